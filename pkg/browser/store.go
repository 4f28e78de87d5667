package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// SavedSession records one persisted storage-state blob. The blob itself
// is owned by the browser capability; the core only tracks where it lives.
type SavedSession struct {
	SessionID string    `yaml:"session_id"`
	Username  string    `yaml:"username"`
	Path      string    `yaml:"path"`
	SavedAt   time.Time `yaml:"saved_at"`
}

// SessionStore persists browser storage state to disk so a later
// acquisition can skip re-authentication. State files are keyed by session
// id; an index file maps usernames to their most recent state.
type SessionStore struct {
	dir string

	mu    sync.Mutex
	index map[string]SavedSession // username -> latest saved session
}

const sessionIndexFile = "index.yaml"

// NewSessionStore opens (or creates) a session store rooted at dir.
func NewSessionStore(dir string) (*SessionStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	s := &SessionStore{
		dir:   dir,
		index: make(map[string]SavedSession),
	}

	data, err := os.ReadFile(filepath.Join(dir, sessionIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read session index: %w", err)
	}

	var entries []SavedSession
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse session index: %w", err)
	}
	for _, e := range entries {
		s.index[e.Username] = e
	}
	return s, nil
}

// Save writes the session's storage state to a file keyed by session id
// and records it in the index under the given username.
func (s *SessionStore) Save(session *Session, username string) (string, error) {
	path := filepath.Join(s.dir, session.ID+".json")
	if err := session.Handle.SaveState(path); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.index[username] = SavedSession{
		SessionID: session.ID,
		Username:  username,
		Path:      path,
		SavedAt:   time.Now(),
	}
	err := s.writeIndexLocked()
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	return path, nil
}

// Lookup returns the storage-state path for a username, if one was saved
// within maxAge. A zero maxAge accepts any saved state.
func (s *SessionStore) Lookup(username string, maxAge time.Duration) (string, bool) {
	s.mu.Lock()
	entry, ok := s.index[username]
	s.mu.Unlock()
	if !ok {
		return "", false
	}
	if maxAge > 0 && time.Since(entry.SavedAt) > maxAge {
		return "", false
	}
	if _, err := os.Stat(entry.Path); err != nil {
		return "", false
	}
	return entry.Path, true
}

// Forget drops a username's saved state, removing the blob from disk.
func (s *SessionStore) Forget(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index[username]
	if !ok {
		return nil
	}
	delete(s.index, username)
	_ = os.Remove(entry.Path)
	return s.writeIndexLocked()
}

func (s *SessionStore) writeIndexLocked() error {
	entries := make([]SavedSession, 0, len(s.index))
	for _, e := range s.index {
		entries = append(entries, e)
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode session index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, sessionIndexFile), data, 0600); err != nil {
		return fmt.Errorf("failed to write session index: %w", err)
	}
	return nil
}
