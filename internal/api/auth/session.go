package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"github.com/wrenchwise/workshop-api/app/observability/metrics"
	"github.com/wrenchwise/workshop-api/internal/types"
)

// SessionCookieName is the opaque session id cookie.
const SessionCookieName = "wrenchwise_session"

// Flash is a one-time message consumed on the next page render.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Session is the server-side per-client state, keyed by an opaque id.
// All request handling for one client mutates the same session, so the
// mutex serializes concurrent requests from that client.
type Session struct {
	ID string

	mu           sync.Mutex
	loggedIn     bool
	userID       uuid.UUID
	username     string
	fullName     string
	email        string
	role         types.Role
	loginTime    time.Time
	lastActivity time.Time
	csrfToken    string
	flashes      []Flash
	attrs        map[string]any
}

func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

func (s *Session) UserID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) Role() types.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

func (s *Session) CSRFToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.csrfToken
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// User returns the minimal descriptor of the authenticated user.
func (s *Session) User() types.UserDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.UserDescriptor{ID: s.userID, Username: s.username, FullName: s.fullName, Role: s.role}
}

func (s *Session) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email
}

// Authenticate marks the session logged in for user.
func (s *Session) Authenticate(user *types.User, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedIn = true
	s.userID = user.ID
	s.username = user.Username
	s.fullName = user.FullName
	s.email = user.Email
	s.role = user.Role
	s.loginTime = now
	s.lastActivity = now
}

func (s *Session) AddFlash(kind, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes = append(s.flashes, Flash{Kind: kind, Message: message})
}

// ConsumeFlashes returns and clears pending flash messages.
func (s *Session) ConsumeFlashes() []Flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.flashes
	s.flashes = nil
	return out
}

// Attr and SetAttr expose the session-scoped attribute map. The login
// rate limiter keeps its counters here, which scopes throttling to one
// client session (see the limiter docs for the consequences).
func (s *Session) Attr(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.attrs[key]
	return v, ok
}

func (s *Session) SetAttr(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[key] = value
}

// SessionManager owns the in-memory session store. Sessions expire after
// the idle lifetime; the cache janitor reclaims expired entries.
type SessionManager struct {
	logger   *slog.Logger
	store    *cache.Cache
	lifetime time.Duration
	secure   bool
	now      func() time.Time
}

func NewSessionManager(lifetime time.Duration, secureCookies bool, logger *slog.Logger) *SessionManager {
	m := &SessionManager{
		logger:   logger,
		store:    cache.New(lifetime, 2*lifetime),
		lifetime: lifetime,
		secure:   secureCookies,
		now:      time.Now,
	}
	// Eviction is the single decrement point: Destroy, idle expiry and
	// the cache janitor all land here. Overwrites (Touch) do not.
	m.store.OnEvicted(func(string, any) {
		sessionGauge(-1)
	})
	return m
}

func sessionGauge(delta int64) {
	if am := metrics.Get(); am != nil {
		am.ActiveSessions.Add(context.Background(), delta)
	}
}

func newSessionID() string {
	return uuid.NewString()
}

func newCSRFToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

// Start creates a fresh anonymous session with a CSRF token.
func (m *SessionManager) Start() *Session {
	s := &Session{
		ID:           newSessionID(),
		csrfToken:    newCSRFToken(),
		lastActivity: m.now(),
		attrs:        make(map[string]any),
	}
	m.store.Set(s.ID, s, m.lifetime)
	sessionGauge(1)
	return s
}

// Get resolves an id to a live session. A session whose idle time
// exceeds the lifetime is destroyed and reported missing even when the
// store has not reclaimed it yet; expired sessions cannot be resumed.
func (m *SessionManager) Get(id string) (*Session, bool) {
	v, ok := m.store.Get(id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	if m.now().Sub(s.LastActivity()) > m.lifetime {
		m.Destroy(id)
		return nil, false
	}
	return s, true
}

// Touch refreshes last-activity and slides the store expiry.
func (m *SessionManager) Touch(s *Session) {
	s.mu.Lock()
	s.lastActivity = m.now()
	s.mu.Unlock()
	m.store.Set(s.ID, s, m.lifetime)
}

// Regenerate gives the session a new opaque id, keeping its state.
// Called on every privilege change to defeat session fixation.
func (m *SessionManager) Regenerate(s *Session) {
	m.store.Delete(s.ID)
	s.mu.Lock()
	s.ID = newSessionID()
	s.mu.Unlock()
	m.store.Set(s.ID, s, m.lifetime)
	// The Delete above decremented via the eviction hook; the session
	// is still live under its new id.
	sessionGauge(1)
}

func (m *SessionManager) Destroy(id string) {
	m.store.Delete(id)
}

// WriteCookie sets the session cookie: http-only, SameSite=Strict,
// Secure when the deployment terminates TLS.
func (m *SessionManager) WriteCookie(w http.ResponseWriter, s *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
