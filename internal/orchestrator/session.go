package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/planner"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is per-client research state keyed by an opaque identifier.
type Session struct {
	ID       string
	Topic    string
	Plan     *planner.Plan
	LastSeen time.Time
}

// SessionStore is the explicit session state boundary. Handlers receive
// one by injection; there is no ambient process-global session map.
type SessionStore interface {
	// Create allocates a new session with a fresh identifier.
	Create(ctx context.Context) (*Session, error)
	// Get returns the session, refreshing its idle clock, or
	// ErrSessionNotFound when the ID is unknown or expired.
	Get(ctx context.Context, id string) (*Session, error)
	// Put stores the session under its ID.
	Put(ctx context.Context, session *Session) error
	// Close stops background eviction.
	Close() error
}

// MemoryStore is an in-memory SessionStore with time-based eviction:
// sessions idle longer than the TTL are dropped, both lazily on access
// and by a background janitor.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   *zap.Logger
	stop     chan struct{}
	stopped  sync.Once
}

// NewMemoryStore creates a session store. A non-positive TTL falls back
// to one hour.
func NewMemoryStore(ttl time.Duration, logger *zap.Logger) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logger,
		stop:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

var _ SessionStore = (*MemoryStore)(nil)

func (s *MemoryStore) Create(ctx context.Context) (*Session, error) {
	session := &Session{
		ID:       uuid.NewString(),
		LastSeen: time.Now(),
	}
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if time.Since(session.LastSeen) > s.ttl {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}
	session.LastSeen = time.Now()
	return session, nil
}

func (s *MemoryStore) Put(ctx context.Context, session *Session) error {
	session.LastSeen = time.Now()
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error {
	s.stopped.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) janitor() {
	interval := s.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *MemoryStore) evictExpired() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if now.Sub(session.LastSeen) > s.ttl {
			delete(s.sessions, id)
			s.logger.Debug("session evicted", zap.String("session_id", id))
		}
	}
}
