package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pgcportal/portal/api"
	"github.com/pgcportal/portal/fetch"
	"github.com/pgcportal/portal/permission"
	"github.com/pgcportal/portal/storage"
)

var (
	// ErrInvalidInput is returned by Login for empty credentials.
	ErrInvalidInput = errors.New("employee number and password are required")
	// ErrClosed is returned by Login after Close.
	ErrClosed = errors.New("session store closed")
)

// Authenticator is the slice of the API client the store depends on.
type Authenticator interface {
	Login(ctx context.Context, employeeNo, password string) (api.LoginResult, error)
	Logout(ctx context.Context, token string) error
	GuardConfig(ctx context.Context, token string) (permission.GuardConfig, error)
}

// Event names reported to an Observer.
const (
	EventLogin        = "login"
	EventLoginFailed  = "login_failed"
	EventLogout       = "logout"
	EventRehydrated   = "rehydrated"
	EventExpired      = "expired"
	EventGuardApplied = "guard_applied"
	EventGuardReset   = "guard_reset"
	EventRemoteLogout = "remote_logout_failed"
)

// Observer receives session lifecycle events for metrics.
type Observer interface {
	ObserveSession(event string)
}

// Options configures New.
type Options struct {
	Auth     Authenticator
	Durable  storage.Store
	Resolver *permission.Resolver
	Logger   *slog.Logger
	Observer Observer
	// Now defaults to time.Now.
	Now func() time.Time
}

// Store is safe for concurrent use.
type Store struct {
	auth     Authenticator
	durable  storage.Store
	resolver *permission.Resolver
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	bg       context.Context
	bgCancel context.CancelFunc
	wg       sync.WaitGroup
	guard    fetch.Latest

	mu          sync.RWMutex
	initialized bool
	closed      bool
	session     *Session
	lastErr     error
	nextSub     int
	subs        map[int]func(State)
}

// New returns an uninitialized store. Call Init before relying on State.
func New(opts Options) (*Store, error) {
	if opts.Auth == nil {
		return nil, errors.New("session: authenticator is required")
	}
	if opts.Durable == nil {
		return nil, errors.New("session: durable storage is required")
	}
	s := &Store{
		auth:     opts.Auth,
		durable:  opts.Durable,
		resolver: opts.Resolver,
		logger:   opts.Logger,
		observer: opts.Observer,
		now:      opts.Now,
		subs:     make(map[int]func(State)),
	}
	if s.resolver == nil {
		s.resolver = permission.NewResolver()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.bg, s.bgCancel = context.WithCancel(context.Background())
	return s, nil
}

// Resolver returns the permission resolver the store keeps in sync.
func (s *Store) Resolver() *permission.Resolver {
	return s.resolver
}

// Init rehydrates the persisted session. Invalid, partial and expired
// payloads are discarded. Init never fails; storage errors are logged and
// leave the store unauthenticated.
func (s *Store) Init(ctx context.Context) {
	sess := s.rehydrate(ctx)

	s.mu.Lock()
	s.initialized = true
	s.session = sess
	token := tokenOf(sess)
	s.mu.Unlock()

	if sess != nil {
		s.emit(EventRehydrated)
	}
	s.tokenChanged(token)
	s.notify()
}

func (s *Store) rehydrate(ctx context.Context) *Session {
	payload, ok, err := s.durable.Get(ctx, storage.SessionKey)
	if err != nil {
		s.logger.Warn("portal: session read failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	sess, err := decodeSession(payload)
	if err != nil {
		s.logger.Warn("portal: discarding stored session", "error", err)
		s.deleteDurable(ctx)
		return nil
	}
	if exp, ok := expiry(sess); ok && !s.now().Before(exp) {
		s.emit(EventExpired)
		s.deleteDurable(ctx)
		return nil
	}
	return sess
}

// Login authenticates and replaces the current session. On failure any
// previous session is cleared and the error is kept for LastError.
func (s *Store) Login(ctx context.Context, employeeNo, password string) error {
	employeeNo = strings.TrimSpace(employeeNo)
	if employeeNo == "" || password == "" {
		s.setLastErr(ErrInvalidInput)
		return ErrInvalidInput
	}

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	res, err := s.auth.Login(ctx, employeeNo, password)
	if err == nil && strings.TrimSpace(res.AccessToken) == "" {
		err = fmt.Errorf("%w: empty access token", api.ErrInvalidResponse)
	}
	if err != nil {
		return s.loginFailed(ctx, err)
	}

	sess := &Session{
		AccessToken: strings.TrimSpace(res.AccessToken),
		ExpiresIn:   res.ExpiresIn,
		User:        userFromAPI(res.User),
	}
	if !sess.Valid() {
		return s.loginFailed(ctx, fmt.Errorf("%w: login returned no user", api.ErrInvalidResponse))
	}
	if res.ExpiresIn > 0 {
		at := s.now().Add(time.Duration(res.ExpiresIn) * time.Second).UTC()
		sess.ExpiresAt = &at
	}

	if payload, err := encodeSession(sess); err != nil {
		s.logger.Warn("portal: session encode failed", "error", err)
	} else if err := s.durable.Set(ctx, storage.SessionKey, payload); err != nil {
		s.logger.Warn("portal: session persist failed", "error", err)
	}

	s.mu.Lock()
	s.initialized = true
	s.session = sess
	s.lastErr = nil
	s.mu.Unlock()

	s.emit(EventLogin)
	s.tokenChanged(sess.AccessToken)
	s.notify()
	return nil
}

func (s *Store) loginFailed(ctx context.Context, err error) error {
	s.emit(EventLoginFailed)
	s.clearLocal(ctx)
	s.setLastErr(err)
	s.notify()
	return err
}

// Logout clears local state immediately and notifies the server in the
// background. It cannot fail.
func (s *Store) Logout(ctx context.Context) {
	token := s.clearLocal(ctx)
	s.emit(EventLogout)
	s.notify()

	if token == "" {
		return
	}
	s.spawn(func() {
		if err := s.auth.Logout(s.bg, token); err != nil {
			s.emit(EventRemoteLogout)
			s.logger.Warn("portal: remote logout failed", "error", err)
		}
	})
}

// clearLocal drops the session from memory and the durable tier and resets
// the permission mapping. It returns the token that was cleared.
func (s *Store) clearLocal(ctx context.Context) string {
	s.mu.Lock()
	token := tokenOf(s.session)
	s.session = nil
	s.initialized = true
	s.guard.Cancel()
	s.resolver.Reset()
	s.mu.Unlock()

	s.deleteDurable(ctx)
	return token
}

func (s *Store) deleteDurable(ctx context.Context) {
	if err := s.durable.Delete(context.WithoutCancel(ctx), storage.SessionKey); err != nil {
		s.logger.Warn("portal: session delete failed", "error", err)
	}
}

// tokenChanged refreshes the guard configuration for token in the
// background. An empty token resets the mapping at once.
func (s *Store) tokenChanged(token string) {
	if token == "" {
		s.mu.Lock()
		s.guard.Cancel()
		s.resolver.Reset()
		s.mu.Unlock()
		return
	}

	s.spawn(func() { s.refreshGuard(token) })
}

// spawn runs fn in a tracked goroutine unless the store is closed.
func (s *Store) spawn(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Store) refreshGuard(token string) {
	cfg, err := fetch.Run(s.bg, &s.guard, func(ctx context.Context) (permission.GuardConfig, error) {
		return s.auth.GuardConfig(ctx, token)
	})
	if errors.Is(err, fetch.ErrSuperseded) {
		return
	}

	s.mu.Lock()
	if tokenOf(s.session) != token {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.resolver.Reset()
	} else {
		s.resolver.Apply(cfg)
	}
	s.mu.Unlock()

	if err != nil {
		s.emit(EventGuardReset)
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("portal: guard config fetch failed, using defaults", "error", err)
		}
		return
	}
	s.emit(EventGuardApplied)
}

// IsAuthenticated is derived from the stored fields on every call.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized && s.session.Valid()
}

func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Token returns the current access token, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tokenOf(s.session)
}

// Session returns a copy of the current session.
func (s *Store) Session() (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.session.Valid() {
		return nil, false
	}
	return s.session.clone(), true
}

// LastError returns the error of the most recent failed login.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Store) setLastErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// State returns a snapshot for route evaluation.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	st := State{Initialized: s.initialized}
	if s.initialized && s.session.Valid() {
		u := s.session.User
		st.Authenticated = true
		st.UserID = u.ID
		st.EmployeeNo = u.EmployeeNo
		st.Roles = append([]string(nil), u.Roles...)
		st.Permissions = append([]string(nil), u.Permissions...)
	}
	return st
}

// OnChange registers fn to run after every login, logout and rehydration.
// The returned func unsubscribes.
func (s *Store) OnChange(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	st := s.stateLocked()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(st)
	}
}

func (s *Store) emit(event string) {
	if s.observer != nil {
		s.observer.ObserveSession(event)
	}
}

// Wait blocks until background guard fetches and remote logouts finish.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Close cancels background work and waits for it.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.bgCancel()
	s.guard.Cancel()
	s.wg.Wait()
}

func tokenOf(s *Session) string {
	if s == nil {
		return ""
	}
	return s.AccessToken
}
