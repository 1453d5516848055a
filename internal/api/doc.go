// Package api hosts the read-only REST handlers operators use to follow a
// crawl. Routes are mounted on the metrics server:
//   - GET /api/crawls?status= lists the latest crawl of every kind.
//   - GET /api/crawls/{kind} returns one kind's crawl.
package api
