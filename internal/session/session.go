package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/nexochat/internal/entity"
	"github.com/mbeoliero/nexochat/internal/notify"
	"github.com/mbeoliero/nexochat/internal/realtime"
	"github.com/mbeoliero/nexochat/internal/store"
	"github.com/mbeoliero/nexochat/pkg/constant"
	"github.com/mbeoliero/nexochat/pkg/jwt"
	"github.com/mbeoliero/nexochat/sdk"
)

var (
	ErrEmptyToken  = errors.New("empty token")
	ErrNotLoggedIn = errors.New("not logged in")
)

// API is the part of the REST client the session drives
type API interface {
	SetToken(token string)
	ClearToken()
	UpdateMe(ctx context.Context, req *sdk.UpdateMeRequest) error
}

// Conn is the part of the realtime connection the session drives
type Conn interface {
	store.Subscriber
	Connect(tokens realtime.TokenProvider, onConnected func(), onError func(error)) error
	Disconnect(clearSubscriptions bool)
}

// Option configures a Session
type Option func(*Session)

// WithDestination overrides the private queue the store subscribes to
func WithDestination(destination string) Option {
	return func(s *Session) {
		s.destination = destination
	}
}

// WithNotifier sets the dispatcher used for incoming message alerts
func WithNotifier(n notify.Dispatcher) Option {
	return func(s *Session) {
		s.notifier = n
	}
}

// OnConnectError routes realtime errors
func OnConnectError(fn func(error)) Option {
	return func(s *Session) {
		s.onConnectError = fn
	}
}

// OnConnected is called on every realtime (re)connection
func OnConnected(fn func()) Option {
	return func(s *Session) {
		s.onConnected = fn
	}
}

// Session owns the token and the profile of the signed-in user. The
// conversation store lives exactly as long as the session has a token.
type Session struct {
	api            API
	conn           Conn
	destination    string
	notifier       notify.Dispatcher
	onConnectError func(error)
	onConnected    func()

	mu    sync.RWMutex
	token string
	user  *entity.User
	store *store.Store
}

// New creates a logged-out session
func New(api API, conn Conn, opts ...Option) *Session {
	s := &Session{
		api:         api,
		conn:        conn,
		destination: constant.UserMessageDestination,
		notifier:    notify.LogDispatcher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.onConnectError == nil {
		s.onConnectError = func(err error) {
			log.Warn("realtime connection error: %v", err)
		}
	}
	return s
}

// Login installs token and user. The first token starts the store and
// the realtime connection; a different token reconnects with the
// subscriptions kept.
func (s *Session) Login(ctx context.Context, token string, user *entity.User) error {
	if token == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	prev := s.token
	s.token = token
	if user != nil {
		u := *user
		s.user = &u
	}
	starting := s.store == nil
	if starting {
		s.store = store.New(s.conn, s.destination, s.notifier)
	}
	s.mu.Unlock()

	s.api.SetToken(token)

	switch {
	case starting:
		log.CtxInfo(ctx, "session started, username=%s", s.username())
	case prev != token:
		log.CtxInfo(ctx, "session token refreshed, reconnecting")
		s.conn.Disconnect(false)
	default:
		return nil
	}

	if err := s.conn.Connect(s.Token, s.onConnected, s.onConnectError); err != nil {
		return fmt.Errorf("failed to connect realtime: %w", err)
	}
	return nil
}

// SetToken rotates the token. The realtime connection picks it up on its
// next attempt. An empty token logs out.
func (s *Session) SetToken(token string) {
	if token == "" {
		s.Logout()
		return
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	s.api.SetToken(token)
}

// Logout closes the store, drops every subscription and forgets the user
func (s *Session) Logout() {
	s.mu.Lock()
	st := s.store
	s.store = nil
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if st != nil {
		st.Close()
	}
	s.conn.Disconnect(true)
	s.api.ClearToken()
}

// Token returns the current token, or "" when logged out
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

// User returns a copy of the signed-in user, or nil
func (s *Session) User() *entity.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) username() string {
	if u := s.User(); u != nil {
		return u.Username
	}
	return ""
}

// Store returns the conversation store, or nil when logged out
func (s *Session) Store() *store.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// UpdateUser changes the profile names on the server and locally
func (s *Session) UpdateUser(ctx context.Context, firstName, lastName string) error {
	if !s.LoggedIn() {
		return ErrNotLoggedIn
	}

	if err := s.api.UpdateMe(ctx, &sdk.UpdateMeRequest{FirstName: firstName, LastName: lastName}); err != nil {
		log.CtxWarn(ctx, "update profile failed: %v", err)
		return err
	}

	s.mu.Lock()
	if s.user != nil {
		s.user.FirstName = firstName
		s.user.LastName = lastName
	}
	s.mu.Unlock()
	return nil
}

// Claims decodes the current token without verifying it
func (s *Session) Claims() (*jwt.Claims, error) {
	return jwt.ParseUnverified(s.Token())
}

// Expired reports whether the token is missing, unreadable or past its expiry
func (s *Session) Expired() bool {
	claims, err := s.Claims()
	if err != nil {
		return true
	}
	return claims.ExpiresWithin(time.Now(), 0)
}
