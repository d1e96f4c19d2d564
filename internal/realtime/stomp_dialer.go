package realtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3"
	"github.com/gorilla/websocket"
	"github.com/mbeoliero/kit/log"
)

// StompDialer speaks STOMP 1.2 over a raw websocket
type StompDialer struct {
	URL               string
	Host              string
	HeartbeatIncoming time.Duration
	HeartbeatOutgoing time.Duration
	WriteWait         time.Duration

	ws *websocket.Dialer
}

// NewStompDialer creates a dialer for the given websocket url
func NewStompDialer(url, host string, opts Options) *StompDialer {
	return &StompDialer{
		URL:               url,
		Host:              host,
		HeartbeatIncoming: opts.HeartbeatIncoming,
		HeartbeatOutgoing: opts.HeartbeatOutgoing,
		WriteWait:         WriteWait,
		ws: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 45 * time.Second,
			Subprotocols:     []string{"v12.stomp", "v11.stomp", "v10.stomp"},
		},
	}
}

// Dial opens the websocket and performs the STOMP CONNECT handshake
func (d *StompDialer) Dial(ctx context.Context, req DialRequest) (Session, error) {
	wsConn, _, err := d.ws.DialContext(ctx, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.URL, err)
	}

	stream := newWSStream(wsConn, d.WriteWait)

	opts := []func(*stomp.Conn) error{
		stomp.ConnOpt.HeartBeat(d.HeartbeatOutgoing, d.HeartbeatIncoming),
	}
	if d.Host != "" {
		opts = append(opts, stomp.ConnOpt.Host(d.Host))
	}
	for k, v := range req.Header {
		opts = append(opts, stomp.ConnOpt.Header(k, v))
	}

	// abort the handshake when ctx is cancelled
	stop := context.AfterFunc(ctx, func() { _ = stream.Close() })
	conn, err := stomp.Connect(stream, opts...)
	stop()
	if err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("stomp connect: %w", err)
	}
	if ctx.Err() != nil {
		_ = stream.Close()
		return nil, ctx.Err()
	}

	log.Debug("realtime stomp session established, url=%s, version=%s", d.URL, conn.Version())

	return &stompSession{
		stream:  stream,
		conn:    conn,
		onError: req.OnError,
	}, nil
}

// stompSession implements Session on top of go-stomp
type stompSession struct {
	stream  *wsStream
	conn    *stomp.Conn
	onError func(error)

	closeOnce sync.Once
}

func (s *stompSession) Subscribe(destination string, deliver func(*Frame)) (Subscription, error) {
	sub, err := s.conn.Subscribe(destination, stomp.AckAuto)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", destination, err)
	}

	go func() {
		for msg := range sub.C {
			if msg.Err != nil {
				log.Debug("realtime subscription error, destination=%s, err=%v", destination, msg.Err)
				if s.onError != nil {
					s.onError(msg.Err)
				}
				continue
			}
			deliver(toFrame(destination, msg))
		}
	}()

	return &stompSubscription{sub: sub}, nil
}

func (s *stompSession) Send(destination, contentType string, body []byte) error {
	return s.conn.Send(destination, contentType, body)
}

func (s *stompSession) Done() <-chan struct{} {
	return s.stream.Done()
}

func (s *stompSession) Err() error {
	return s.stream.Err()
}

func (s *stompSession) Close() error {
	s.closeOnce.Do(func() {
		done := make(chan error, 1)
		go func() { done <- s.conn.Disconnect() }()

		select {
		case err := <-done:
			if err != nil {
				log.Debug("realtime stomp disconnect: %v", err)
			}
		case <-time.After(DisconnectWait):
			log.Debug("realtime stomp disconnect receipt timed out")
		}
		_ = s.stream.Close()
	})
	return nil
}

type stompSubscription struct {
	sub *stomp.Subscription
}

// Unsubscribe waits for the broker receipt at most DisconnectWait
func (s *stompSubscription) Unsubscribe() error {
	if !s.sub.Active() {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- s.sub.Unsubscribe() }()

	select {
	case err := <-done:
		return err
	case <-time.After(DisconnectWait):
		return ErrReceiptTimeout
	}
}

func toFrame(destination string, msg *stomp.Message) *Frame {
	f := &Frame{
		Destination: msg.Destination,
		ContentType: msg.ContentType,
		Body:        msg.Body,
		Header:      make(map[string]string),
	}
	if f.Destination == "" {
		f.Destination = destination
	}
	if msg.Header != nil {
		for i := 0; i < msg.Header.Len(); i++ {
			k, v := msg.Header.GetAt(i)
			f.Header[k] = v
		}
	}
	return f
}
