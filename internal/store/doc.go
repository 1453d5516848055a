// Package store keeps the status of recent crawls so operators can inspect a
// run while it is in flight. It is fed by the progress hub.
package store
