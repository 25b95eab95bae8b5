// Package session holds the per-principal session store: the single source
// of truth for "who is logged in", with controlled rehydration from the
// upstream backend and exclusive ownership of the auth cookie pair.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/brightpath-hq/brightpath/internal/api"
	"github.com/brightpath-hq/brightpath/internal/observability"
	"github.com/brightpath-hq/brightpath/internal/shared"
)

// Backend is the slice of the upstream API the store depends on.
type Backend interface {
	Login(ctx context.Context, creds api.Credentials) (*api.LoginResult, error)
	Register(ctx context.Context, input api.RegisterInput) (*api.LoginResult, error)
	Profile(ctx context.Context, token string) (*shared.Identity, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
}

// State is a snapshot of the store. Rehydrated latches true after the first
// rehydration resolves, success or failure, and never resets for the
// lifetime of the store.
type State struct {
	User       *shared.Identity
	Loading    bool
	Rehydrated bool
}

// Manager builds a Store per principal. Stores are explicitly constructed
// and carry their own dependencies, so tests can run independent sessions
// in parallel; there is no ambient singleton.
type Manager struct {
	backend Backend
	cache   *Cache
	codec   *shared.CookieCodec
	cookies shared.CookieConfig
	logger  *slog.Logger
	metrics *observability.Metrics
	timeout time.Duration
	group   singleflight.Group
}

// ManagerConfig groups Manager dependencies.
type ManagerConfig struct {
	Backend Backend
	Cache   *Cache
	Codec   *shared.CookieCodec
	Cookies shared.CookieConfig
	Logger  *slog.Logger
	Metrics *observability.Metrics
	// Timeout bounds one rehydration round trip so a hanging upstream
	// cannot leave a request loading forever.
	Timeout time.Duration
}

// NewManager constructs a Manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Manager{
		backend: cfg.Backend,
		cache:   cfg.Cache,
		codec:   cfg.Codec,
		cookies: cfg.Cookies,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		timeout: cfg.Timeout,
	}
}

// NewStore builds a store seeded with the given cookie snapshot and jar.
func (m *Manager) NewStore(token string, role shared.Role, jar shared.CookieJar) *Store {
	return &Store{manager: m, token: token, role: role, jar: jar}
}

// ForRequest reads the request's auth cookies and binds a store that writes
// cookie mutations onto w.
func (m *Manager) ForRequest(w http.ResponseWriter, r *http.Request) *Store {
	token, role := shared.ReadAuthCookies(r, m.codec, m.cookies)
	return m.NewStore(token, role, shared.NewResponseJar(w, m.codec, m.cookies))
}

// Invalidate drops the cached identity for token. Handlers call it when any
// pass-through upstream call reports the session expired.
func (m *Manager) Invalidate(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := m.cache.Invalidate(ctx, token); err != nil && m.logger != nil {
		m.logger.Warn("invalidate cached identity", slog.Any("error", err))
	}
}

// Store owns the in-memory identity for one principal. It is the sole
// writer of the token and role cookies.
type Store struct {
	manager *Manager

	mu         sync.Mutex
	user       *shared.Identity
	loading    bool
	rehydrated bool
	token      string
	role       shared.Role
	sessionID  string
	jar        shared.CookieJar
}

// State returns a snapshot of the store.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	var user *shared.Identity
	if s.user != nil {
		copied := *s.user
		user = &copied
	}
	return State{User: user, Loading: s.loading, Rehydrated: s.rehydrated}
}

// Token returns the current bearer token, empty when logged out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SessionID returns the portal-side session identifier assigned at login or
// rehydration, empty when logged out.
func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Login exchanges credentials for a session. On failure the session state is
// left unchanged and the upstream's message is surfaced unmodified.
func (s *Store) Login(ctx context.Context, email, password string) (*shared.Identity, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	res, err := s.manager.backend.Login(ctx, api.Credentials{
		Email:    shared.NormalizeEmail(email),
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	return s.adopt(ctx, res), nil
}

// Register creates an account upstream. The invite token/class pair is
// passed through unvalidated; the upstream owns invitation semantics.
func (s *Store) Register(ctx context.Context, input api.RegisterInput) (*shared.Identity, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	input.Email = shared.NormalizeEmail(input.Email)
	res, err := s.manager.backend.Register(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.adopt(ctx, res), nil
}

// Logout clears cookies and in-memory identity unconditionally. It never
// fails, even when no session existed.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	s.manager.Invalidate(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.rehydrated = true
}

// VerifyEmail passes the emailed token upstream. It does not mutate session
// state, but a 401 on the call still forces a logout.
func (s *Store) VerifyEmail(ctx context.Context, token string) error {
	return s.noteAuthFailure(ctx, s.manager.backend.VerifyEmail(ctx, token))
}

// ResendVerification asks the upstream for a fresh verification email.
func (s *Store) ResendVerification(ctx context.Context, email string) error {
	return s.noteAuthFailure(ctx, s.manager.backend.ResendVerification(ctx, shared.NormalizeEmail(email)))
}

// Rehydrate resolves the persisted token into a live identity: cache first,
// then the upstream profile endpoint. Any failure, including 401, clears the
// cookies and leaves the user nil. Rehydrated is true in both outcomes.
// Concurrent rehydrations of the same token share one upstream call.
func (s *Store) Rehydrate(ctx context.Context) error {
	s.mu.Lock()
	if s.rehydrated {
		s.mu.Unlock()
		return nil
	}
	token := s.token
	s.loading = true
	s.mu.Unlock()

	if token == "" {
		s.mu.Lock()
		s.loading = false
		s.rehydrated = true
		s.mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.manager.timeout)
	defer cancel()

	v, err, _ := s.manager.group.Do(token, func() (any, error) {
		return s.manager.resolve(ctx, token)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.rehydrated = true
	if err != nil {
		s.clearLocked()
		s.manager.metrics.Rehydration("error")
		return err
	}

	entry := v.(*Entry)
	previousRole := s.role
	s.user = &entry.User
	s.sessionID = entry.SessionID
	s.role = entry.User.Role
	// The role cookie must agree with the backend-confirmed role once
	// rehydration completes; rewrite it when the edge snapshot was stale.
	if previousRole != entry.User.Role && s.jar != nil {
		s.jar.SetAuth(token, entry.User.Role)
	}
	return nil
}

// resolve looks the token up in the cache, falling back to the upstream.
func (m *Manager) resolve(ctx context.Context, token string) (*Entry, error) {
	entry, err := m.cache.Get(ctx, token)
	if err != nil && m.logger != nil {
		m.logger.Warn("identity cache read", slog.Any("error", err))
	}
	if entry != nil {
		m.metrics.Rehydration("hit")
		return entry, nil
	}

	user, err := m.backend.Profile(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrSessionExpired) {
			m.metrics.Rehydration("expired")
			m.Invalidate(ctx, token)
		}
		return nil, err
	}

	fresh := Entry{SessionID: uuid.NewString(), User: *user}
	if err := m.cache.Put(ctx, token, fresh); err != nil && m.logger != nil {
		m.logger.Warn("identity cache write", slog.Any("error", err))
	}
	m.metrics.Rehydration("miss")
	return &fresh, nil
}

// noteAuthFailure forces a logout when any upstream call reports the
// session expired, so stale UI never survives a backend invalidation.
func (s *Store) noteAuthFailure(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrSessionExpired) {
		s.mu.Lock()
		token := s.token
		s.mu.Unlock()
		s.manager.Invalidate(ctx, token)

		s.mu.Lock()
		s.clearLocked()
		s.rehydrated = true
		s.mu.Unlock()
	}
	return err
}

// adopt installs a fresh upstream session: cookies, in-memory identity, and
// the cache entry. Login resolves the identity, so it also counts as the
// store's rehydration.
func (s *Store) adopt(ctx context.Context, res *api.LoginResult) *shared.Identity {
	entry := Entry{SessionID: uuid.NewString(), User: res.User}
	if err := s.manager.cache.Put(ctx, res.Token, entry); err != nil && s.manager.logger != nil {
		s.manager.logger.Warn("identity cache write", slog.Any("error", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = res.Token
	s.role = res.User.Role
	s.sessionID = entry.SessionID
	user := res.User
	s.user = &user
	s.rehydrated = true
	if s.jar != nil {
		s.jar.SetAuth(res.Token, res.User.Role)
	}
	copied := user
	return &copied
}

// clearLocked resets to the logged-out state. Callers hold s.mu.
func (s *Store) clearLocked() {
	s.user = nil
	s.token = ""
	s.role = ""
	s.sessionID = ""
	if s.jar != nil {
		s.jar.ClearAuth()
	}
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}
