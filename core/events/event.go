package events

import (
	"sync"

	"tonaffiliate/core/types"
)

// Event represents a structured state change emitted by a contract.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, relays).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Envelope carries a committed contract event through an Emitter.
type Envelope struct {
	Evt *types.Event
}

// EventType satisfies the Event interface.
func (e Envelope) EventType() string {
	if e.Evt == nil {
		return ""
	}
	return e.Evt.Type
}

// Event returns the wire representation.
func (e Envelope) Event() *types.Event { return e.Evt }

// Multi fans an event out to several emitters in order.
type Multi []Emitter

// Emit implements the Emitter interface.
func (m Multi) Emit(evt Event) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}

// Recorder keeps every emitted event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []*types.Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	env, ok := evt.(interface{ Event() *types.Event })
	if !ok || env.Event() == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, env.Event().Clone())
	r.mu.Unlock()
}

// Events returns the recorded events, oldest first.
func (r *Recorder) Events() []*types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*types.Event(nil), r.events...)
}

// OfType filters the recorded events by type.
func (r *Recorder) OfType(eventType string) []*types.Event {
	var out []*types.Event
	for _, evt := range r.Events() {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}
