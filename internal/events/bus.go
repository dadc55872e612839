package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for broadcasting job lifecycle
// events to in-process subscribers (API SSE connections, CLI progress
// printers, metrics).
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(JobProgressEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event dispatches on the concrete type, so each event type
	// needs its own generic Publish call.
	switch e := ev.(type) {
	case JobProgressEvent:
		event.Publish(b.dispatcher, e)
	case JobAdvisoryEvent:
		event.Publish(b.dispatcher, e)
	case JobCompleteEvent:
		event.Publish(b.dispatcher, e)
	case JobCancelledEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function. The handler's
// parameter type determines which events it receives. Returns an
// unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e JobProgressEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(JobProgressEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(JobAdvisoryEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(JobCompleteEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(JobCancelledEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Unknown handler type: no-op unsubscriber.
		return func() {}
	}
}
