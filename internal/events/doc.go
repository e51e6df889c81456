// Package events carries record lifecycle events from the service layer to
// whoever reacts to them, such as the chat notifier.
//
// Services emit events without knowing which handlers will process them.
//
// The primary components are:
// - RecordEvent: a typed event with a JSON payload
// - EventHandler: interface for components that can handle events
// - EventEmitter: interface for components that can emit events
package events
