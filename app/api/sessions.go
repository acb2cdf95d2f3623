package api

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/OmarCodes2/Slop-Block/app/engine"
	"github.com/OmarCodes2/Slop-Block/app/feed"
	"github.com/OmarCodes2/Slop-Block/app/llm"
	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionManager owns the live browsing sessions and the settings they share.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*engine.Session
	settings feed.Settings
	backend  llm.Backend
	options  engine.Options
}

func NewSessionManager(settings feed.Settings, backend llm.Backend, options engine.Options) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*engine.Session),
		settings: settings.Clone(),
		backend:  backend,
		options:  options,
	}
}

// Create starts a session using the current settings.
func (m *SessionManager) Create() *engine.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := engine.NewSession(uuid.NewString(), m.settings, m.backend, m.options)
	session.Start()
	m.sessions[session.ID] = session

	slog.Info("Session created", "session", session.ID, "sessions", len(m.sessions))
	return session
}

func (m *SessionManager) Get(id string) (*engine.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// List returns the sessions ordered by id.
func (m *SessionManager) List() []*engine.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*engine.Session, 0, len(m.sessions))
	for _, id := range slices.Sorted(maps.Keys(m.sessions)) {
		out = append(out, m.sessions[id])
	}
	return out
}

func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Delete stops and forgets a session.
func (m *SessionManager) Delete(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	session.Close()

	slog.Info("Session closed", "session", id)
	return nil
}

func (m *SessionManager) Settings() feed.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.Clone()
}

// Broadcast makes settings current and reconciles every live session.
func (m *SessionManager) Broadcast(ctx context.Context, settings feed.Settings) error {
	m.mu.Lock()
	m.settings = settings.Clone()
	m.mu.Unlock()

	var errs []error
	for _, session := range m.List() {
		if err := session.ApplySettings(ctx, settings); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CloseAll stops every session.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*engine.Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}
