package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// UI preference values.
const (
	ModeLight = "light"
	ModeDark  = "dark"

	LangEnglish   = "English"
	LangBulgarian = "Bulgarian"
)

// ErrInvalidPreference is returned when a preference write names a value
// outside the allowed set.
var ErrInvalidPreference = errors.New("invalid preference value")

// Session is the server-side state bound to one client token.
type Session struct {
	LoggedIn bool
	Username string
	Mode     string
	Language string
}

func defaultSession() Session {
	return Session{Mode: ModeLight, Language: LangEnglish}
}

// Manager maps opaque client tokens to sessions. Unknown tokens resolve to a
// default unauthenticated session.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]Session)}
}

// NewToken issues a fresh opaque session token.
func (m *Manager) NewToken() string {
	return uuid.NewString()
}

// Current returns the session for token, or the default session when the
// token is absent or unrecognized.
func (m *Manager) Current(token string) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.sessions[token]; ok {
		return s
	}
	return defaultSession()
}

// Login marks the token's session as authenticated for username, keeping any
// preferences already set on it.
func (m *Manager) Login(token, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		s = defaultSession()
	}
	s.LoggedIn = true
	s.Username = username
	m.sessions[token] = s
}

// Logout clears authentication state for the token. Preferences survive.
func (m *Manager) Logout(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return
	}
	s.LoggedIn = false
	s.Username = ""
	m.sessions[token] = s
}

// SetPreferences updates the token's UI preferences. Values are validated
// against the allowed sets; empty values leave the current setting unchanged.
func (m *Manager) SetPreferences(token, mode, language string) error {
	if mode != "" && mode != ModeLight && mode != ModeDark {
		return ErrInvalidPreference
	}
	if language != "" && language != LangEnglish && language != LangBulgarian {
		return ErrInvalidPreference
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		s = defaultSession()
	}
	if mode != "" {
		s.Mode = mode
	}
	if language != "" {
		s.Language = language
	}
	m.sessions[token] = s
	return nil
}
