// Package task runs background work off the request path. Tasks are
// pushed onto a bounded in-memory queue and executed by a fixed pool of
// worker goroutines. Nothing is persisted: tasks still queued when the
// process exits are lost.
package task
