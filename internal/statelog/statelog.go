// Package statelog journals game state transitions to pluggable sinks so
// that operators can follow and replay the life of every room. Events are
// emitted from the hub goroutine; sinks must not block it for long.
package statelog

import (
	"encoding/json"
	"log/slog"
	"time"
)

// Channel is the Redis Pub/Sub channel state events are published to.
const Channel = "channel:state-events"

// Event is one journaled state transition.
type Event struct {
	OccurredAt time.Time         `json:"occurred_at"`
	Type       string            `json:"event"`
	Payload    map[string]string `json:"payload"`
}

// Sink receives journaled events.
type Sink interface {
	Write(ev Event) error
	Close() error
}

// Emitter fans one event out to every configured sink. A failing sink is
// logged and skipped; journaling never interferes with play.
type Emitter struct {
	sinks []Sink
}

// NewEmitter creates an emitter over the given sinks. Zero sinks is valid;
// Emit becomes a no-op.
func NewEmitter(sinks ...Sink) *Emitter {
	return &Emitter{sinks: sinks}
}

// Emit journals one event to all sinks.
func (e *Emitter) Emit(event string, payload map[string]string) {
	if len(e.sinks) == 0 {
		return
	}
	ev := Event{
		OccurredAt: time.Now().UTC(),
		Type:       event,
		Payload:    payload,
	}
	for _, s := range e.sinks {
		if err := s.Write(ev); err != nil {
			slog.Warn("state event sink write failed", "event", event, "error", err)
		}
	}
}

// Close closes every sink.
func (e *Emitter) Close() {
	for _, s := range e.sinks {
		if err := s.Close(); err != nil {
			slog.Warn("state event sink close failed", "error", err)
		}
	}
}

func (ev Event) marshal() ([]byte, error) {
	return json.Marshal(ev)
}
