// Package credstore persists the user's cloud API credential. This is the
// only state that survives restarts; everything else the daemon derives fresh
// on each start.
package credstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"inferd/internal/common/fsutil"
)

// credentialFile is the on-disk shape.
type credentialFile struct {
	APIKey string `json:"api_key"`
}

// Store reads and writes the credential file. Construct once per process and
// inject wherever a credential is needed.
type Store struct {
	mu   sync.Mutex
	path string
}

// DefaultPath is the per-user credential location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Join(dir, "inferd", "credentials.json"), nil
}

// New builds a Store at path. An empty path selects DefaultPath lazily on
// first use so construction never fails.
func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) resolvePath() (string, error) {
	if s.path == "" {
		p, err := DefaultPath()
		if err != nil {
			return "", err
		}
		s.path = p
	}
	return fsutil.ExpandHome(s.path)
}

// Load returns the stored key, or "" when no credential file exists yet.
func (s *Store) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.resolvePath()
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var cf credentialFile
	if err := json.Unmarshal(b, &cf); err != nil {
		return "", fmt.Errorf("parse credential file: %w", err)
	}
	return cf.APIKey, nil
}

// Save writes the key with owner-only permissions, creating parent
// directories as needed. An empty key removes the stored credential.
func (s *Store) Save(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.resolvePath()
	if err != nil {
		return err
	}
	if key == "" {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(credentialFile{APIKey: key}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}

// Present reports whether a non-empty credential is stored.
func (s *Store) Present() bool {
	key, err := s.Load()
	return err == nil && key != ""
}
