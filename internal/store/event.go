package store

// EventKind tells which part of the store changed
type EventKind int

const (
	EventMessages    EventKind = iota + 1 // Message list of a conversation
	EventUnread                           // Unread counter of a conversation
	EventActive                           // Active conversation
	EventLastMessage                      // Last message of a conversation
)

// Event is a change notification
type Event struct {
	Kind           EventKind
	ConversationId string
}

const watchBuffer = 64

// Watch returns a feed of change events and a function that stops it.
// Events are dropped when the consumer falls behind.
func (s *Store) Watch() (<-chan Event, func()) {
	ch := make(chan Event, watchBuffer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.nextWatch++
	key := s.nextWatch
	s.watchers[key] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.watchers[key]; ok {
			close(c)
			delete(s.watchers, key)
		}
	}
}

func (s *Store) emitLocked(ev Event) {
	for _, ch := range s.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}
