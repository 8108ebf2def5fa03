package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoSession is returned by Load when nobody is signed in
var ErrNoSession = errors.New("not signed in")

// Session is the signed-in state persisted between CLI runs
type Session struct {
	Server    string    `yaml:"server"`
	UID       string    `yaml:"uid"`
	Email     string    `yaml:"email,omitempty"`
	Provider  string    `yaml:"provider,omitempty"`
	Token     string    `yaml:"token"`
	ExpiresAt time.Time `yaml:"expires_at"`
}

// Valid reports whether the session still carries a usable token
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.Token != "" && s.UID != "" && now.Before(s.ExpiresAt)
}

// SessionStore reads and writes a Session as YAML
type SessionStore struct {
	path string
}

func NewSessionStore(path string) *SessionStore {
	return &SessionStore{path: path}
}

// DefaultSessionPath is session.yaml in the user config directory
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "thing-counter", "session.yaml"), nil
}

func (s *SessionStore) Path() string {
	return s.path
}

func (s *SessionStore) Load() (*Session, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var session Session
	if err := yaml.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", s.path, err)
	}
	if session.Token == "" {
		return nil, ErrNoSession
	}
	return &session, nil
}

// Save writes the session readable by the owner only
func (s *SessionStore) Save(session *Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := yaml.Marshal(session)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}

// Clear removes the session file. A missing file is not an error.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
