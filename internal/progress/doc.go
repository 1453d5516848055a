// Package progress turns crawl lifecycle notifications into events and fans
// them out to pluggable sinks (structured logs, Prometheus) on a background
// goroutine, so the crawl never waits on reporting.
package progress
