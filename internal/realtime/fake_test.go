package realtime

import (
	"context"
	"errors"
	"sync"
)

type sentFrame struct {
	destination string
	contentType string
	body        []byte
}

type fakeSub struct {
	session *fakeSession
	dest    string
	deliver func(*Frame)
	active  bool
}

func (s *fakeSub) Unsubscribe() error {
	s.session.mu.Lock()
	defer s.session.mu.Unlock()
	s.active = false
	return nil
}

type fakeSession struct {
	header map[string]string

	mu        sync.Mutex
	subs      []*fakeSub
	sent      []sentFrame
	done      chan struct{}
	closeOnce sync.Once
	err       error
	closed    bool
}

func newFakeSession(header map[string]string) *fakeSession {
	return &fakeSession{header: header, done: make(chan struct{})}
}

func (s *fakeSession) Subscribe(dest string, deliver func(*Frame)) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &fakeSub{session: s, dest: dest, deliver: deliver, active: true}
	s.subs = append(s.subs, sub)
	return sub, nil
}

func (s *fakeSession) Send(dest, contentType string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentFrame{destination: dest, contentType: contentType, body: body})
	return nil
}

func (s *fakeSession) Done() <-chan struct{} { return s.done }

func (s *fakeSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.drop(nil)
	return nil
}

// drop simulates the server going away
func (s *fakeSession) drop(err error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}

// deliver pushes body to every active subscription of dest
func (s *fakeSession) deliver(dest string, body string) int {
	s.mu.Lock()
	var targets []*fakeSub
	for _, sub := range s.subs {
		if sub.active && sub.dest == dest {
			targets = append(targets, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range targets {
		sub.deliver(&Frame{Destination: dest, Body: []byte(body)})
	}
	return len(targets)
}

// activeCount returns active subscriptions per destination
func (s *fakeSession) activeCount() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, sub := range s.subs {
		if sub.active {
			out[sub.dest]++
		}
	}
	return out
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSession) sentFrames() []sentFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentFrame(nil), s.sent...)
}

var errDialRefused = errors.New("connection refused")

type fakeDialer struct {
	mu       sync.Mutex
	sessions []*fakeSession
	failures int
	dials    int
}

func (d *fakeDialer) Dial(ctx context.Context, req DialRequest) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.failures > 0 {
		d.failures--
		return nil, errDialRefused
	}
	s := newFakeSession(req.Header)
	d.sessions = append(d.sessions, s)
	return s, nil
}

func (d *fakeDialer) failNext(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = n
}

func (d *fakeDialer) sessionCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

func (d *fakeDialer) session(i int) *fakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.sessions) {
		return nil
	}
	return d.sessions[i]
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}
