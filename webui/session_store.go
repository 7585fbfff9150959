package webui

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"spooktrunt/studio"

	"github.com/google/uuid"
)

// SessionCookieName is the cookie that binds a browser to its studio.
const SessionCookieName = "studio_session"

// ErrSessionNotFound is returned when a session ID is not found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExpired is returned when a session exists but has expired.
var ErrSessionExpired = errors.New("session expired")

// StudioFactory builds the studio for a new session.
type StudioFactory func(sessionID string) *studio.Studio

type session struct {
	studio    *studio.Studio
	expiresAt time.Time
}

// SessionStore maps browser sessions to in-memory studios. Each access
// extends the session by the TTL; nothing is persisted.
//
// Thread safety is provided via sync.RWMutex for concurrent access.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
	ttl      time.Duration
	factory  StudioFactory
	now      func() time.Time
	onCount  func(int)
}

// SessionStoreConfig configures a SessionStore.
type SessionStoreConfig struct {
	// TTL is the idle lifetime of a session (default: 24h)
	TTL time.Duration

	// Factory creates the studio of a new session (required)
	Factory StudioFactory

	// OnCountChange is called with the new session count after creation
	// and cleanup, e.g. to update a gauge
	OnCountChange func(count int)

	// Now overrides the clock, mainly for tests
	Now func() time.Time
}

// NewSessionStore creates an empty store.
func NewSessionStore(config SessionStoreConfig) *SessionStore {
	if config.TTL <= 0 {
		config.TTL = 24 * time.Hour
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &SessionStore{
		sessions: make(map[string]*session),
		ttl:      config.TTL,
		factory:  config.Factory,
		now:      config.Now,
		onCount:  config.OnCountChange,
	}
}

// Create starts a new session with a random ID.
func (s *SessionStore) Create() (string, *studio.Studio) {
	id := uuid.NewString()
	st := s.factory(id)

	s.mu.Lock()
	s.sessions[id] = &session{studio: st, expiresAt: s.now().Add(s.ttl)}
	count := len(s.sessions)
	s.mu.Unlock()

	s.reportCount(count)
	return id, st
}

// Get returns the studio of a live session and extends its expiry.
// Expired sessions are removed.
func (s *SessionStore) Get(sessionID string) (*studio.Studio, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	now := s.now()
	if now.After(sess.expiresAt) {
		delete(s.sessions, sessionID)
		count := len(s.sessions)
		s.mu.Unlock()
		s.reportCount(count)
		return nil, ErrSessionExpired
	}
	sess.expiresAt = now.Add(s.ttl)
	s.mu.Unlock()
	return sess.studio, nil
}

// Resolve returns the caller's studio, creating a session and setting the
// cookie when the request carries no live one.
func (s *SessionStore) Resolve(w http.ResponseWriter, r *http.Request) (string, *studio.Studio) {
	id, st, cookie := s.lookupOrCreate(r)
	if cookie != nil {
		http.SetCookie(w, cookie)
	}
	return id, st
}

// lookupOrCreate is Resolve for callers that write their own headers. The
// returned cookie is nil when the request already carried a live session.
func (s *SessionStore) lookupOrCreate(r *http.Request) (string, *studio.Studio, *http.Cookie) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if st, err := s.Get(cookie.Value); err == nil {
			return cookie.Value, st, nil
		}
	}

	id, st := s.Create()
	return id, st, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Delete removes a session from the store. It is idempotent.
func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	count := len(s.sessions)
	s.mu.Unlock()

	if ok {
		s.reportCount(count)
	}
}

// Cleanup removes all expired sessions and returns how many were removed.
// Operations already running in a removed studio finish on their own.
func (s *SessionStore) Cleanup() int {
	s.mu.Lock()
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	if removed > 0 {
		s.reportCount(count)
	}
	return removed
}

// RunCleanup calls Cleanup every interval until ctx is cancelled.
func (s *SessionStore) RunCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

// Count returns the current number of sessions in the store.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) reportCount(n int) {
	if s.onCount != nil {
		s.onCount(n)
	}
}
