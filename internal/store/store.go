package store

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/nexochat/internal/entity"
	"github.com/mbeoliero/nexochat/internal/notify"
	"github.com/mbeoliero/nexochat/internal/realtime"
	"github.com/mbeoliero/nexochat/pkg/metrics"
)

// Mode selects how a page is merged into a conversation
type Mode int

const (
	ModeReplace      Mode = iota // Drop stored messages, keep the page
	ModePrependNewer             // Page holds messages newer than the stored ones
	ModeAppendOlder              // Page holds messages older than the stored ones
)

// Subscriber is the part of the realtime connection the store needs
type Subscriber interface {
	Subscribe(destination string, handler realtime.Handler) (unsubscribe func())
}

// Store is the per-session view of conversations: newest-first message
// lists without duplicates, last messages and unread counters.
type Store struct {
	notifier    notify.Dispatcher
	unsubscribe func()
	closeOnce   sync.Once

	mu          sync.RWMutex
	closed      bool
	active      string
	messages    map[string][]*entity.Message
	lastMessage map[string]*entity.Message
	unread      map[string]int
	watchers    map[uint64]chan Event
	nextWatch   uint64
}

// New creates a store and subscribes it to destination on conn
func New(conn Subscriber, destination string, notifier notify.Dispatcher) *Store {
	if notifier == nil {
		notifier = notify.LogDispatcher{}
	}
	s := &Store{
		notifier:    notifier,
		messages:    make(map[string][]*entity.Message),
		lastMessage: make(map[string]*entity.Message),
		unread:      make(map[string]int),
		watchers:    make(map[uint64]chan Event),
	}
	if conn != nil {
		s.unsubscribe = conn.Subscribe(destination, s.handleFrame)
	}
	return s
}

func (s *Store) handleFrame(frame *realtime.Frame) {
	var msg entity.Message
	if err := json.Unmarshal(frame.Body, &msg); err != nil {
		log.Warn("store drop undecodable frame, destination=%s, err=%v", frame.Destination, err)
		return
	}
	if msg.Id == "" || msg.ChatId == "" {
		log.Warn("store drop frame without ids, destination=%s", frame.Destination)
		return
	}
	s.IngestPushedMessage(context.Background(), &msg)
}

// SetActiveConversation foregrounds id and zeroes its unread counter
func (s *Store) SetActiveConversation(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.active = id
	s.emitLocked(Event{Kind: EventActive, ConversationId: id})
	if id != "" {
		s.markReadLocked(id)
	}
}

// ClearActiveConversation leaves no conversation in the foreground
func (s *Store) ClearActiveConversation() {
	s.SetActiveConversation("")
}

// ActiveConversation returns the foreground conversation id, or ""
func (s *Store) ActiveConversation() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// MarkRead zeroes the unread counter of id
func (s *Store) MarkRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.markReadLocked(id)
}

func (s *Store) markReadLocked(id string) {
	if s.unread[id] == 0 {
		return
	}
	delete(s.unread, id)
	s.publishUnreadLocked()
	s.emitLocked(Event{Kind: EventUnread, ConversationId: id})
}

// IngestPage merges a fetched page into conversation id
func (s *Store) IngestPage(id string, msgs []*entity.Message, mode Mode) {
	incoming := cloneAll(msgs)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.messages[id] = merge(s.messages[id], incoming, mode)
	s.emitLocked(Event{Kind: EventMessages, ConversationId: id})
}

// IngestPushedMessage records a message pushed by the server. Messages for
// a conversation other than the active one bump its unread counter and
// raise a notification.
func (s *Store) IngestPushedMessage(ctx context.Context, msg *entity.Message) {
	if msg == nil {
		return
	}
	msg = msg.Clone()
	id := msg.ChatId

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.messages[id] = merge(s.messages[id], []*entity.Message{msg}, ModePrependNewer)
	s.emitLocked(Event{Kind: EventMessages, ConversationId: id})
	s.setLastLocked(id, msg)

	active := s.active == id
	if !active {
		s.unread[id]++
		s.publishUnreadLocked()
		s.emitLocked(Event{Kind: EventUnread, ConversationId: id})
	}
	s.mu.Unlock()

	metrics.PushedMessages.WithLabelValues(metrics.BoolLabel(active)).Inc()
	if active {
		return
	}

	if err := s.notifier.Notify(ctx, notify.MessageNotification(msg)); err != nil {
		log.CtxWarn(ctx, "store notify failed, conversation_id=%s, err=%v", id, err)
	}
}

// SetLastMessage seeds the last message of id when msg is not older than
// the known one
func (s *Store) SetLastMessage(id string, msg *entity.Message) {
	if msg == nil {
		return
	}
	msg = msg.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.setLastLocked(id, msg)
}

func (s *Store) setLastLocked(id string, msg *entity.Message) {
	if cur, ok := s.lastMessage[id]; ok && msg.Created.Before(cur.Created.Time) {
		return
	}
	s.lastMessage[id] = msg
	s.emitLocked(Event{Kind: EventLastMessage, ConversationId: id})
}

// AddPending inserts an optimistic placeholder into conversation id
func (s *Store) AddPending(id string, msg *entity.Message) {
	if msg == nil {
		return
	}
	msg = msg.Clone()
	msg.State = entity.StatePending
	if msg.ClientId == "" {
		msg.ClientId = msg.Id
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.messages[id] = merge(s.messages[id], []*entity.Message{msg}, ModePrependNewer)
	s.emitLocked(Event{Kind: EventMessages, ConversationId: id})
}

// ConfirmPending swaps the placeholder clientId for the server message.
// When a push already delivered serverMsg only the placeholder goes.
func (s *Store) ConfirmPending(id, clientId string, serverMsg *entity.Message) {
	var confirmed *entity.Message
	if serverMsg != nil {
		confirmed = serverMsg.Clone()
		confirmed.State = entity.StateConfirmed
		confirmed.ClientId = ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	list := removePending(s.messages[id], clientId)
	if confirmed != nil {
		list = merge(list, []*entity.Message{confirmed}, ModePrependNewer)
		s.setLastLocked(id, confirmed)
	}
	s.messages[id] = list
	s.emitLocked(Event{Kind: EventMessages, ConversationId: id})
}

// DropPending removes the placeholder clientId after a failed send
func (s *Store) DropPending(id, clientId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.messages[id] = removePending(s.messages[id], clientId)
	s.emitLocked(Event{Kind: EventMessages, ConversationId: id})
}

// Messages returns a copy of the newest-first list of id
func (s *Store) Messages(id string) []*entity.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.messages[id])
}

// LastMessage returns the most recent known message of id, or nil
func (s *Store) LastMessage(id string) *entity.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMessage[id].Clone()
}

func (s *Store) Unread(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread[id]
}

func (s *Store) TotalUnread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalUnreadLocked()
}

func (s *Store) totalUnreadLocked() int {
	total := 0
	for _, n := range s.unread {
		total += n
	}
	return total
}

func (s *Store) publishUnreadLocked() {
	metrics.Unread.Set(float64(s.totalUnreadLocked()))
}

// Close unsubscribes from the realtime connection and drops all state
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		s.closed = true
		s.active = ""
		s.messages = make(map[string][]*entity.Message)
		s.lastMessage = make(map[string]*entity.Message)
		s.unread = make(map[string]int)
		for key, ch := range s.watchers {
			close(ch)
			delete(s.watchers, key)
		}
		metrics.Unread.Set(0)
	})
}

// merge combines stored and incoming messages per mode, keeping the first
// occurrence of every id and newest-first order
func merge(existing, incoming []*entity.Message, mode Mode) []*entity.Message {
	combined := make([]*entity.Message, 0, len(existing)+len(incoming))
	switch mode {
	case ModeReplace:
		combined = append(combined, incoming...)
	case ModePrependNewer:
		combined = append(combined, incoming...)
		combined = append(combined, existing...)
	default:
		combined = append(combined, existing...)
		combined = append(combined, incoming...)
	}

	seen := make(map[string]struct{}, len(combined))
	out := combined[:0]
	for _, m := range combined {
		if m == nil {
			continue
		}
		if _, dup := seen[m.Id]; dup {
			continue
		}
		seen[m.Id] = struct{}{}
		out = append(out, m)
	}

	slices.SortStableFunc(out, func(a, b *entity.Message) int {
		return b.Created.Compare(a.Created.Time)
	})
	return out
}

func removePending(list []*entity.Message, clientId string) []*entity.Message {
	out := make([]*entity.Message, 0, len(list))
	for _, m := range list {
		if m.IsPending() && m.ClientId == clientId {
			continue
		}
		out = append(out, m)
	}
	return out
}

func cloneAll(msgs []*entity.Message) []*entity.Message {
	if msgs == nil {
		return nil
	}
	out := make([]*entity.Message, 0, len(msgs))
	for _, m := range msgs {
		if m != nil {
			out = append(out, m.Clone())
		}
	}
	return out
}
