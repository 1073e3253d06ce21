package testing

import (
	"sync"

	"github.com/aristath/stockledger/internal/events"
)

// RecordedEvent is one call captured by RecordingEmitter
type RecordedEvent struct {
	Type   events.EventType
	Module string
	Data   map[string]interface{}
}

// RecordingEmitter captures emitted events for assertions
type RecordingEmitter struct {
	mu     sync.Mutex
	events []RecordedEvent
}

// Emit records the event
func (r *RecordingEmitter) Emit(eventType events.EventType, module string, data map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, RecordedEvent{Type: eventType, Module: module, Data: data})
}

// Types returns the recorded event types in emission order
func (r *RecordingEmitter) Types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// Events returns a copy of everything recorded
func (r *RecordingEmitter) Events() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedEvent(nil), r.events...)
}
