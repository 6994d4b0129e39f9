package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/quire/internal/apperr"
)

// Option configures a Manager.
type Option func(*Manager)

// WithHistoryLimit bounds the undo steps kept per session.
func WithHistoryLimit(n int) Option {
	return func(m *Manager) { m.historyLimit = n }
}

// WithStripZeroWidth toggles removal of zero-width characters around
// single-character deletes.
func WithStripZeroWidth(on bool) Option {
	return func(m *Manager) { m.stripZeroWidth = on }
}

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager keeps the open sessions keyed by id.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	store  Store
	pub    Publisher
	logger *slog.Logger

	historyLimit   int
	stripZeroWidth bool
}

// NewManager returns a manager loading documents from store. pub may be nil.
func NewManager(store Store, pub Publisher, opts ...Option) *Manager {
	m := &Manager{
		sessions:       make(map[string]*Session),
		store:          store,
		pub:            pub,
		logger:         slog.Default(),
		historyLimit:   200,
		stripZeroWidth: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open starts a session on the stored document at path.
func (m *Manager) Open(ctx context.Context, path string) (*Session, error) {
	text, err := m.store.Read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", path, err)
	}
	s := newSession(uuid.NewString(), path, text, m)

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	m.logger.Info("session: opened", slog.String("session", s.id), slog.String("path", path))
	return s, nil
}

// Get returns the open session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	return s, nil
}

// Close ends the session with id. Unsaved edits are discarded.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	s.close()
	m.logger.Info("session: closed", slog.String("session", id))
	return nil
}

// CloseAll ends every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		s.close()
	}
}

// ForPath returns the open sessions of a document ordered by id.
func (m *Manager) ForPath(path string) []*Session {
	m.mu.RLock()
	var out []*Session
	for _, s := range m.sessions {
		if s.path == path {
			out = append(out, s)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// DocumentChanged reloads the clean sessions of a document changed outside
// the editor. Sessions with unsaved edits keep their tree.
func (m *Manager) DocumentChanged(ctx context.Context, kind, path string) {
	if kind == "deleted" {
		return
	}
	sessions := m.ForPath(path)
	if len(sessions) == 0 {
		return
	}
	text, err := m.store.Read(ctx, path)
	if err != nil {
		m.logger.Warn("session: reload read failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	for _, s := range sessions {
		if s.Dirty() {
			m.logger.Info("session: external change ignored, unsaved edits", slog.String("session", s.id))
			continue
		}
		s.Reload(text)
	}
}
