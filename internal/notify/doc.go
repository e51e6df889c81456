// Package notify turns record events into chat messages and delivers them
// through the background worker pool at a bounded rate.
package notify
