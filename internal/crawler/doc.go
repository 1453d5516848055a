// Package crawler implements the code-space crawl: resolving a code to a
// catalog URL, fetching it with bounded retries, parsing the result table into
// records, and driving a whole code space into an append-only crawl log while
// isolating per-code failures.
package crawler
