package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rcliao/agent-recall/internal/builder"
	"github.com/rcliao/agent-recall/internal/store"
)

// Manager is the session registry. It shares one long-term store and one
// context builder across all sessions.
type Manager struct {
	store   store.Store
	builder *builder.Builder
	opts    Options
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a registry over the given store.
func NewManager(st store.Store, opts Options) (*Manager, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	b, err := builder.New(st, logger)
	if err != nil {
		return nil, err
	}
	return &Manager{
		store:    st,
		builder:  b,
		opts:     opts,
		logger:   logger,
		sessions: map[string]*Session{},
	}, nil
}

// Open returns the session for id, creating and starting it when absent.
func (m *Manager) Open(id string) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session: empty id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	s, err := New(id, m.store, m.builder, m.opts)
	if err != nil {
		return nil, err
	}
	m.sessions[id] = s
	m.logger.Debug("session opened", "session", id)
	return s, nil
}

// Get returns an already-open session or ErrSessionNotFound.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, ErrSessionNotFound)
	}
	return s, nil
}

// Pause delegates to the session's pause trigger, keeping it registered.
func (m *Manager) Pause(ctx context.Context, id string) (int, error) {
	s, err := m.Get(id)
	if err != nil {
		return 0, err
	}
	return s.Pause(ctx)
}

// Close closes the session and removes it from the registry.
func (m *Manager) Close(ctx context.Context, id string) (int, error) {
	s, err := m.Get(id)
	if err != nil {
		return 0, err
	}
	promoted, err := s.Close(ctx)

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	return promoted, err
}

// CloseAll closes every open session, returning the first error.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = map[string]*Session{}
	m.mu.Unlock()

	var firstErr error
	for _, s := range sessions {
		if _, err := s.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
