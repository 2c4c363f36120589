// Package session holds the client's belief about who is logged in and with
// what credential. State lives in memory and is mirrored to a JSON blob under
// a fixed namespace key so it survives process restarts.
package session

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// StorageKey is the fixed namespace key the serialized session is stored
// under. It must not change between releases or stored sessions are lost.
const StorageKey = "yaothink-user-storage"

// Session is the persisted authentication state. Invariant:
// IsAuthenticated == (User != nil); Token may independently be empty.
type Session struct {
	User            *User  `json:"user"`
	Token           string `json:"token"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// Store is the application-scoped session container. All mutations are
// atomic field-group updates under a single writer lock, and each one
// rewrites the persisted blob.
type Store struct {
	mu   sync.RWMutex
	sess Session
	path string
	log  *slog.Logger
}

// NewStore loads the persisted session from dir, falling back to the empty
// unauthenticated session when no blob exists or it cannot be decoded.
func NewStore(dir string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &Store{
		path: filepath.Join(dir, StorageKey+".json"),
		log:  log,
	}

	data, err := os.ReadFile(s.path)
	if err == nil {
		if err := json.Unmarshal(data, &s.sess); err != nil {
			log.Warn("stored session is corrupt, starting empty", "path", s.path, "error", err)
			s.sess = Session{}
		}
	}

	// The blob is external input; re-derive the invariant instead of
	// trusting the stored flag.
	s.sess.IsAuthenticated = s.sess.User != nil

	return s, nil
}

// Current returns a copy of the session state.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.sess
	if s.sess.User != nil {
		u := *s.sess.User
		sess.User = &u
	}
	return sess
}

// Token returns the current access token, empty when none is held.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.Token
}

// IsAuthenticated reports whether a user is logged in.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.IsAuthenticated
}

// Login sets user, token and the authenticated flag in one step.
func (s *Store) Login(user *User, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess = Session{
		User:            user,
		Token:           token,
		IsAuthenticated: user != nil,
	}
	s.persistLocked()
}

// Logout clears the session back to the empty initial state.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess = Session{}
	s.persistLocked()
}

// SetToken replaces the token without touching the user.
func (s *Store) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess.Token = token
	s.persistLocked()
}

// UpdateUser merges the patch into the current user without touching token
// or the authenticated flag. A no-op when nobody is logged in.
func (s *Store) UpdateUser(patch Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess.User == nil {
		return
	}
	s.sess.User.apply(patch)
	s.persistLocked()
}

func (s *Store) persistLocked() {
	data, err := json.Marshal(s.sess)
	if err != nil {
		s.log.Error("failed to serialize session", "error", err)
		return
	}

	// Write-then-rename keeps the blob whole if the process dies mid-write.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		s.log.Error("failed to persist session", "path", s.path, "error", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.log.Error("failed to persist session", "path", s.path, "error", err)
	}
}
