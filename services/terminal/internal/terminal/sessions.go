package terminal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"

	"github.com/appetiteclub/pos/services/terminal/internal/checkout"
)

const defaultSessionTTL = 12 * time.Hour

type storedSession struct {
	session  *checkout.Session
	lastSeen time.Time
}

// SessionStore keeps the open checkout sessions of this terminal. Sessions
// idle for longer than ttl are dropped by a background sweep.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*storedSession
	ttl      time.Duration
	logger   aqm.Logger
	now      func() time.Time
	cancel   context.CancelFunc
}

func NewSessionStore(ttl time.Duration, logger aqm.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &SessionStore{
		sessions: make(map[string]*storedSession),
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *SessionStore) Save(session *checkout.Session) error {
	if session == nil {
		return errors.New("session is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID.String()] = &storedSession{session: session, lastSeen: s.now()}
	return nil
}

// Get returns the session and marks it as seen.
func (s *SessionStore) Get(id string) (*checkout.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[id]
	if !ok {
		return nil, checkout.ErrSessionNotFound
	}
	if s.now().Sub(stored.lastSeen) > s.ttl {
		delete(s.sessions, id)
		return nil, checkout.ErrSessionNotFound
	}
	stored.lastSeen = s.now()
	return stored.session, nil
}

func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Start runs the expiry sweep until Stop is called.
func (s *SessionStore) Start(ctx context.Context) error {
	sweepCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.cleanup(sweepCtx)
	return nil
}

func (s *SessionStore) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *SessionStore) cleanup(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sweep(); n > 0 {
				s.logger.Debug("expired terminal sessions", "count", n)
			}
		}
	}
}

// sweep drops idle sessions, except those with a submission in flight.
func (s *SessionStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, stored := range s.sessions {
		if now.Sub(stored.lastSeen) <= s.ttl {
			continue
		}
		if stored.session.Phase() == checkout.PhaseSubmitting {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	return removed
}
