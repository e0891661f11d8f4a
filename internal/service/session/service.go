// Package session provisions guard/conversation pairs and hands out
// serialized access to them. Each session is independent; nothing mutable
// is shared across sessions.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/renhao-x/gatechat/backend/internal/service/auth"
	"github.com/renhao-x/gatechat/backend/internal/service/chat"
)

var ErrSessionNotFound = errors.New("session not found")

// Config carries the immutable per-session settings, resolved once at
// process start.
type Config struct {
	Secret       string
	MaxAttempts  int
	Timeout      time.Duration
	ModelOptions []string
	DefaultModel string
}

// Entry is one live session: an auth guard paired with its conversation.
type Entry struct {
	ID        string
	CreatedAt time.Time
	Guard     *auth.Guard
	Chat      *chat.Session

	// mu serializes operations against this session; the guard and the
	// conversation themselves are lock-free.
	mu sync.Mutex
}

// Service is the in-memory session registry.
type Service struct {
	cfg      Config
	provider chat.ResponseProvider

	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewService bootstraps an empty registry. All sessions it creates share
// the same provider and configuration.
func NewService(cfg Config, provider chat.ResponseProvider) *Service {
	return &Service{
		cfg:      cfg,
		provider: provider,
		entries:  make(map[string]*Entry),
	}
}

// Create provisions a fresh logged-out session.
func (s *Service) Create() *Entry {
	guard := auth.NewGuard(s.cfg.Secret, s.cfg.MaxAttempts, s.cfg.Timeout)
	entry := &Entry{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Guard:     guard,
		Chat:      chat.NewSession(guard, s.provider, s.cfg.ModelOptions, s.cfg.DefaultModel),
	}

	s.mu.Lock()
	s.entries[entry.ID] = entry
	s.mu.Unlock()

	return entry
}

// Do runs fn against the named session while holding its lock, so no two
// operations against the same session interleave.
func (s *Service) Do(id string, fn func(*Entry) error) error {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry)
}
