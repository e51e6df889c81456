package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// InMemoryEventEmitter delivers record events to handlers registered at
// wiring time. Delivery is synchronous and happens after the sheet write
// has succeeded, so handlers must be quick: the notifier only enqueues.
type InMemoryEventEmitter struct {
	mu            sync.RWMutex
	subscriptions []subscription
	logger        *slog.Logger
}

// subscription pairs a handler with the event types it wants. An empty set
// means every type.
type subscription struct {
	handler EventHandler
	types   map[string]bool
}

func (s subscription) wants(eventType string) bool {
	return len(s.types) == 0 || s.types[eventType]
}

// NewInMemoryEventEmitter creates an emitter with no handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With("component", "event_emitter"),
	}
}

// RegisterHandler subscribes handler to the given event types, or to every
// type when none are given.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler, types ...string) {
	sub := subscription{handler: handler}
	if len(types) > 0 {
		sub.types = make(map[string]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscriptions = append(e.subscriptions, sub)
	e.logger.Debug("registered event handler",
		"handler_count", len(e.subscriptions),
		"event_types", types)
}

// EmitEvent passes event to every subscribed handler. A failing or
// panicking handler does not stop delivery to the others; the first
// failure is returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *RecordEvent) error {
	e.mu.RLock()
	subs := make([]subscription, len(e.subscriptions))
	copy(subs, e.subscriptions)
	e.mu.RUnlock()

	var firstErr error
	delivered := 0
	for i, sub := range subs {
		if !sub.wants(event.Type) {
			continue
		}
		delivered++
		if err := deliver(ctx, sub.handler, event); err != nil {
			e.logger.ErrorContext(ctx, "handler failed to process record event",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"event_type", event.Type)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	e.logger.DebugContext(ctx, "record event emitted",
		"event_id", event.ID,
		"event_type", event.Type,
		"delivered", delivered)
	return firstErr
}

func deliver(ctx context.Context, handler EventHandler, event *RecordEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked on %s: %v", event.Type, r)
		}
	}()
	return handler.HandleEvent(ctx, event)
}
