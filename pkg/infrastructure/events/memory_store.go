package events

import (
	"sync"

	"go.uber.org/zap"
)

type InMemoryEventStore struct {
	streams     map[string][]Event
	subscribers map[string][]EventHandler
	mutex       sync.RWMutex
	position    int
	allEvents   []Event
	seen        map[string]struct{}
	logger      *zap.Logger
	handlers    sync.WaitGroup
}

func NewInMemoryEventStore(logger *zap.Logger) *InMemoryEventStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventStore{
		streams:     make(map[string][]Event),
		subscribers: make(map[string][]EventHandler),
		allEvents:   make([]Event, 0),
		seen:        make(map[string]struct{}),
		logger:      logger,
	}
}

var _ EventStore = (*InMemoryEventStore)(nil)

// Publish appends the event to its own stream
func (s *InMemoryEventStore) Publish(event Event) error {
	return s.AppendEvent(event.StreamID(), event)
}

// AppendEvent versions event within streamID. An event whose id was already
// appended is dropped, so a retried publish is recorded once.
func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mutex.Lock()
	if id := event.ID(); id != "" {
		if _, dup := s.seen[id]; dup {
			s.mutex.Unlock()
			s.logger.Debug("duplicate event dropped", zap.String("event_id", id), zap.String("event_type", event.Type()))
			return nil
		}
		s.seen[id] = struct{}{}
	}

	eventWithVersion := BaseEvent{
		EventID:      event.ID(),
		EventType:    event.Type(),
		Stream:       streamID,
		EventData:    event.Data(),
		EventTime:    event.Timestamp(),
		EventVersion: len(s.streams[streamID]) + 1,
	}

	s.streams[streamID] = append(s.streams[streamID], eventWithVersion)
	s.allEvents = append(s.allEvents, eventWithVersion)
	s.position++
	handlers := append([]EventHandler(nil), s.subscribers[event.Type()]...)
	s.mutex.Unlock()

	s.notifySubscribers(eventWithVersion, handlers)

	return nil
}

func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events, exists := s.streams[streamID]
	if !exists {
		return []Event{}, nil
	}

	if fromVersion < 1 {
		fromVersion = 1
	}

	if fromVersion > len(events) {
		return []Event{}, nil
	}

	return append([]Event(nil), events[fromVersion-1:]...), nil
}

func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if fromPosition < 0 {
		fromPosition = 0
	}

	if fromPosition >= len(s.allEvents) {
		return []Event{}, nil
	}

	return append([]Event(nil), s.allEvents[fromPosition:]...), nil
}

func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	}

	return nil
}

func (s *InMemoryEventStore) Unsubscribe(handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for eventType, handlers := range s.subscribers {
		newHandlers := make([]EventHandler, 0, len(handlers))
		for _, h := range handlers {
			if h != handler {
				newHandlers = append(newHandlers, h)
			}
		}
		s.subscribers[eventType] = newHandlers
	}

	return nil
}

// Wait blocks until every handler started so far has returned
func (s *InMemoryEventStore) Wait() {
	s.handlers.Wait()
}

func (s *InMemoryEventStore) notifySubscribers(event Event, handlers []EventHandler) {
	for _, handler := range handlers {
		if !handler.CanHandle(event.Type()) {
			continue
		}
		s.handlers.Add(1)
		go func(h EventHandler, e Event) {
			defer s.handlers.Done()
			if err := h.Handle(e); err != nil {
				s.logger.Warn("event handler failed",
					zap.String("event_type", e.Type()),
					zap.String("stream_id", e.StreamID()),
					zap.Error(err))
			}
		}(handler, event)
	}
}
