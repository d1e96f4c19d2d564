package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/nexochat/pkg/constant"
	"github.com/mbeoliero/nexochat/pkg/metrics"
)

type registration struct {
	id      uint64
	handler Handler
}

// Connection keeps one logical realtime link alive across physical
// reconnects. Subscriptions are remembered as desired destinations and
// re-established on every new session.
type Connection struct {
	dialer Dialer
	opts   Options

	mu          sync.Mutex
	state       State
	tokens      TokenProvider
	onConnected func()
	onError     func(error)
	session     Session
	cancel      context.CancelFunc
	desired     map[string]registration
	live        map[string]Subscription
	nextRegId   uint64
}

// NewConnection creates an idle connection
func NewConnection(dialer Dialer, opts Options) *Connection {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = constant.DefaultReconnectDelay
	}
	return &Connection{
		dialer:  dialer,
		opts:    opts,
		state:   StateIdle,
		desired: make(map[string]registration),
		live:    make(map[string]Subscription),
	}
}

// Connect starts connecting in the background. While a connection is
// being established or held, it only replaces the remembered provider and
// callbacks.
func (c *Connection) Connect(tokens TokenProvider, onConnected func(), onError func(error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return ErrClosed
	}

	c.tokens = tokens
	c.onConnected = onConnected
	c.onError = onError

	if c.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.setState(StateConnecting)

	go c.run(ctx)
	return nil
}

func (c *Connection) run(ctx context.Context) {
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			metrics.Reconnects.Inc()
		}

		c.mu.Lock()
		if ctx.Err() != nil {
			c.mu.Unlock()
			return
		}
		c.setState(StateConnecting)
		tokens := c.tokens
		c.mu.Unlock()

		sess, err := c.dial(ctx, tokens)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.reportError(err)
			if !c.waitRetry(ctx) {
				return
			}
			continue
		}

		if !c.attach(ctx, sess) {
			_ = sess.Close()
			return
		}

		select {
		case <-sess.Done():
			c.detach(sess)
			if ctx.Err() != nil {
				return
			}
			err := sess.Err()
			if err == nil {
				err = ErrConnClosed
			}
			log.Warn("realtime session lost, err=%v", err)
			c.reportError(err)
			if !c.waitRetry(ctx) {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (c *Connection) dial(ctx context.Context, tokens TokenProvider) (Session, error) {
	var token string
	if tokens != nil {
		token = tokens()
	}
	if token == "" {
		return nil, ErrNoToken
	}

	return c.dialer.Dial(ctx, DialRequest{
		Header: map[string]string{
			constant.HeaderAuthorization: constant.BearerToken(token),
		},
		OnError: c.reportError,
	})
}

// attach installs sess and activates every desired destination on it
func (c *Connection) attach(ctx context.Context, sess Session) bool {
	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		return false
	}

	c.session = sess
	c.live = make(map[string]Subscription, len(c.desired))
	c.setState(StateConnected)

	var errs []error
	for dest := range c.desired {
		if err := c.activateLocked(dest); err != nil {
			errs = append(errs, err)
		}
	}
	onConnected := c.onConnected
	n := len(c.desired)
	c.mu.Unlock()

	log.Info("realtime connected, subscriptions=%d", n)

	for _, err := range errs {
		c.reportError(err)
	}
	if onConnected != nil {
		onConnected()
	}
	return true
}

func (c *Connection) detach(sess Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != sess {
		return
	}
	c.session = nil
	c.live = make(map[string]Subscription)
	metrics.ActiveSubscriptions.Set(0)
}

func (c *Connection) waitRetry(ctx context.Context) bool {
	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		return false
	}
	c.setState(StateDisconnected)
	c.mu.Unlock()

	timer := time.NewTimer(c.opts.ReconnectDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// activateLocked opens the live subscription for dest. Caller holds mu.
func (c *Connection) activateLocked(dest string) error {
	if c.session == nil {
		return nil
	}
	if _, ok := c.live[dest]; ok {
		return nil
	}

	sub, err := c.session.Subscribe(dest, func(frame *Frame) {
		c.route(dest, frame)
	})
	if err != nil {
		return err
	}
	c.live[dest] = sub
	metrics.ActiveSubscriptions.Set(float64(len(c.live)))
	return nil
}

func (c *Connection) route(dest string, frame *Frame) {
	c.mu.Lock()
	reg, ok := c.desired[dest]
	c.mu.Unlock()

	metrics.FramesReceived.WithLabelValues(metrics.BoolLabel(ok)).Inc()
	if !ok {
		log.Debug("realtime frame dropped, destination=%s", dest)
		return
	}
	reg.handler(frame)
}

// Subscribe registers handler for destination and returns a function
// that removes it. Registering a destination again replaces its handler
// without opening a second live subscription.
func (c *Connection) Subscribe(destination string, handler Handler) (unsubscribe func()) {
	c.mu.Lock()
	c.nextRegId++
	id := c.nextRegId
	c.desired[destination] = registration{id: id, handler: handler}

	var err error
	if c.state == StateConnected {
		err = c.activateLocked(destination)
	}
	c.mu.Unlock()

	if err != nil {
		c.reportError(err)
	}

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(destination, id) })
	}
}

func (c *Connection) unsubscribe(destination string, id uint64) {
	c.mu.Lock()
	reg, ok := c.desired[destination]
	if !ok || reg.id != id {
		c.mu.Unlock()
		return
	}
	delete(c.desired, destination)

	sub, live := c.live[destination]
	if live {
		delete(c.live, destination)
		metrics.ActiveSubscriptions.Set(float64(len(c.live)))
	}
	c.mu.Unlock()

	if live {
		if err := sub.Unsubscribe(); err != nil {
			log.Debug("realtime unsubscribe %s: %v", destination, err)
		}
	}
}

// Publish sends payload as JSON to destination
func (c *Connection) Publish(destination string, payload any) error {
	c.mu.Lock()
	sess := c.session
	connected := c.state == StateConnected && sess != nil
	c.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := sess.Send(destination, constant.ContentTypeJSON, body); err != nil {
		return fmt.Errorf("publish %s: %w", destination, err)
	}
	return nil
}

// Disconnect tears the session down and stops reconnecting. With
// clearSubscriptions the desired destinations are forgotten as well.
func (c *Connection) Disconnect(clearSubscriptions bool) {
	c.mu.Lock()
	c.teardownLocked(clearSubscriptions, StateIdle)
}

// Close disconnects for good; Connect fails afterwards
func (c *Connection) Close() {
	c.mu.Lock()
	c.teardownLocked(true, StateClosed)
}

// teardownLocked releases mu before closing the session
func (c *Connection) teardownLocked(clearSubscriptions bool, next State) {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	sess := c.session
	c.session = nil
	c.live = make(map[string]Subscription)
	if clearSubscriptions {
		c.desired = make(map[string]registration)
	}
	if c.state != StateClosed {
		c.setState(next)
	}
	metrics.ActiveSubscriptions.Set(0)
	c.mu.Unlock()

	if sess != nil {
		_ = sess.Close()
	}
}

// State returns the current lifecycle state
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) IsConnected() bool {
	return c.State() == StateConnected
}

// Destinations returns the desired destinations
func (c *Connection) Destinations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.desired))
	for dest := range c.desired {
		out = append(out, dest)
	}
	return out
}

func (c *Connection) setState(s State) {
	c.state = s
	metrics.ConnectionState.Set(float64(s))
}

func (c *Connection) reportError(err error) {
	c.mu.Lock()
	fn := c.onError
	c.mu.Unlock()

	log.Warn("realtime error: %v", err)
	if fn != nil {
		fn(err)
	}
}
