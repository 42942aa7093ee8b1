package history

import (
	"context"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventStart EventType = "start"
	EventStop  EventType = "stop"
)

// Event represents one service lifecycle event to be exported to external
// analytics systems.
type Event struct {
	Type       EventType `json:"type"`
	Service    string    `json:"service"`
	PID        int       `json:"pid"`
	OccurredAt time.Time `json:"occurred_at"`
	ExitErr    string    `json:"exit_err,omitempty"`
}

// Sink is a destination for history events.
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}

// NopSink discards every event. Used when no sink is configured.
type NopSink struct{}

func (NopSink) Send(context.Context, Event) error { return nil }
func (NopSink) Close() error                      { return nil }
