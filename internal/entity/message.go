package entity

import "time"

// DeliveryState distinguishes server-confirmed messages from optimistic placeholders
type DeliveryState int

const (
	StateConfirmed DeliveryState = iota // Acknowledged by the server
	StatePending                        // Local placeholder awaiting the send response
)

// ReplyPreview is a denormalized snapshot of a replied-to message
type ReplyPreview struct {
	Sender  Person `json:"sender"`
	Content string `json:"content"`
}

// Message represents a chat message
type Message struct {
	Id           string        `json:"id"`
	ChatId       string        `json:"chatId"`
	Sender       Person        `json:"sender"`
	Content      string        `json:"content"`
	Created      Timestamp     `json:"created"`
	ResponseToId *string       `json:"responseToId,omitempty"`
	ResponseTo   *ReplyPreview `json:"responseTo,omitempty"`

	State    DeliveryState `json:"-"`
	ClientId string        `json:"-"`
}

// NewPendingMessage builds an optimistic placeholder keyed by clientId
func NewPendingMessage(clientId, chatId string, sender Person, content string, replyTo *Message) *Message {
	msg := &Message{
		Id:       clientId,
		ChatId:   chatId,
		Sender:   sender,
		Content:  content,
		Created:  Now(),
		State:    StatePending,
		ClientId: clientId,
	}
	if replyTo != nil {
		id := replyTo.Id
		msg.ResponseToId = &id
		msg.ResponseTo = &ReplyPreview{Sender: replyTo.Sender, Content: replyTo.Content}
	}
	return msg
}

// IsPending reports whether the message is an unconfirmed placeholder
func (m *Message) IsPending() bool {
	return m.State == StatePending
}

// Clone returns a shallow copy safe to hand out of a store
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

// ShouldShowTimeSeparator reports whether a separator belongs above msgs[i]
// in a newest-first list: for the oldest message, on a calendar day change,
// or when the gap to the next older message is at least gap
func ShouldShowTimeSeparator(msgs []*Message, i int, gap time.Duration) bool {
	if i < 0 || i >= len(msgs) {
		return false
	}
	if i == len(msgs)-1 {
		return true
	}
	curr := msgs[i].Created.Local()
	older := msgs[i+1].Created.Local()

	cy, cm, cd := curr.Date()
	oy, om, od := older.Date()
	if cy != oy || cm != om || cd != od {
		return true
	}
	return curr.Sub(older) >= gap
}
