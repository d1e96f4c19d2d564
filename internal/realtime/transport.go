package realtime

import "context"

// Frame is one message delivered to a subscription
type Frame struct {
	Destination string
	ContentType string
	Header      map[string]string
	Body        []byte
}

// Handler consumes frames of one destination
type Handler func(frame *Frame)

// TokenProvider returns the current bearer token. It is called on every
// connection attempt, never cached.
type TokenProvider func() string

// DialRequest carries per-attempt connection parameters
type DialRequest struct {
	// Header is sent with the protocol-level CONNECT
	Header map[string]string
	// OnError receives protocol errors reported after the session is up
	OnError func(error)
}

// Dialer opens physical sessions to the message bus
type Dialer interface {
	Dial(ctx context.Context, req DialRequest) (Session, error)
}

// Session is one physical connection to the message bus
type Session interface {
	// Subscribe starts delivering frames for destination to deliver
	Subscribe(destination string, deliver func(*Frame)) (Subscription, error)
	// Send publishes body to destination
	Send(destination, contentType string, body []byte) error
	// Done is closed once the session is gone
	Done() <-chan struct{}
	// Err returns the reason the session ended, if any
	Err() error
	// Close tears the session down
	Close() error
}

// Subscription is a live subscription on a Session
type Subscription interface {
	Unsubscribe() error
}
