// Package session tracks one timeline engine per dispatcher session. The
// manager is the only owner of engine lifecycles: opening a session creates
// an engine, closing it releases the engine's playback clock and
// subscribers.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vantage/dispatch/internal/timeline"
)

// Session is one dispatcher console session and its private engine.
type Session struct {
	ID        string
	Engine    *timeline.Engine
	CreatedAt time.Time
}

// Manager holds the open sessions. All methods are safe for concurrent use.
type Manager struct {
	log  zerolog.Logger
	tick time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns an empty manager whose engines run their playback
// clocks at the given tick.
func NewManager(log zerolog.Logger, tick time.Duration) *Manager {
	return &Manager{
		log:      log,
		tick:     tick,
		sessions: make(map[string]*Session),
	}
}

// Open creates a session with a fresh engine and returns it.
func (m *Manager) Open() *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Engine:    timeline.New(m.log, m.tick),
		CreatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.log.Info().Str("session_id", s.ID).Msg("session opened")
	return s
}

// Get looks up an open session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close ends a session and tears down its engine. It reports whether the
// session existed.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.Engine.Close()
	m.log.Info().Str("session_id", id).Msg("session closed")
	return true
}

// CloseAll tears down every open session, used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Engine.Close()
	}
	if len(sessions) > 0 {
		m.log.Info().Int("count", len(sessions)).Msg("all sessions closed")
	}
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
