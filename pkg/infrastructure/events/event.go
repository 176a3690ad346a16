package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is one fact about a run or a lot. Runs and lots each own a stream
// keyed by their id.
type Event interface {
	ID() string
	Type() string
	StreamID() string
	Data() any
	Timestamp() time.Time
	Version() int
}

type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

// Publisher is the write side the allocation ledger depends on
type Publisher interface {
	Publish(event Event) error
}

type EventStore interface {
	Publisher
	AppendEvent(streamID string, event Event) error
	ReadEvents(streamID string, fromVersion int) ([]Event, error)
	ReadAllEvents(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler EventHandler) error
	Unsubscribe(handler EventHandler) error
}

// BaseEvent is the stored form of every event. Version is assigned on append.
type BaseEvent struct {
	EventID      string
	EventType    string
	Stream       string
	EventData    any
	EventTime    time.Time
	EventVersion int
}

func (e BaseEvent) ID() string           { return e.EventID }
func (e BaseEvent) Type() string         { return e.EventType }
func (e BaseEvent) StreamID() string     { return e.Stream }
func (e BaseEvent) Data() any            { return e.EventData }
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }
func (e BaseEvent) Version() int         { return e.EventVersion }

// NewEvent creates an unversioned event with a fresh id, stamped now
func NewEvent(eventType, streamID string, data any) Event {
	return BaseEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Stream:    streamID,
		EventData: data,
		EventTime: time.Now().UTC(),
	}
}

// Stamp returns event with its timestamp replaced by at, keeping its id
func Stamp(event Event, at time.Time) Event {
	return BaseEvent{
		EventID:      event.ID(),
		EventType:    event.Type(),
		Stream:       event.StreamID(),
		EventData:    event.Data(),
		EventTime:    at,
		EventVersion: event.Version(),
	}
}

// NopPublisher discards events
type NopPublisher struct{}

func (NopPublisher) Publish(Event) error { return nil }
