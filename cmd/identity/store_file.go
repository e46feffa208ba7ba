package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the whole user collection as one JSON snapshot:
// a map of normalized email -> user record.
//
// Concurrency model: every operation is a whole-collection read-modify-write,
// so a single mutex guards the entire store. A per-record lock would be wrong
// here because writes replace the full collection.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a FileStore writing to path (e.g. data/users.json).
// The file is created lazily on first write; a missing file reads as empty.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, OpError{Op: "identity.NewFileStore", Kind: ErrInvalidInput, Msg: "empty path"}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("identity: create data dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// GetUser looks up a user by normalized email.
func (s *FileStore) GetUser(_ context.Context, email string) (User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readAll()
	if err != nil {
		return User{}, false, err
	}
	u, ok := users[NormalizeEmail(email)]
	return u, ok, nil
}

// PutUser upserts a user record. The write replaces the persisted collection
// only after composing it from a fresh read, under the store lock.
func (s *FileStore) PutUser(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readAll()
	if err != nil {
		return err
	}
	u.Email = NormalizeEmail(u.Email)
	users[u.Email] = u
	return s.writeAll(users)
}

// ListUsers returns the full collection keyed by normalized email.
func (s *FileStore) ListUsers(_ context.Context) (map[string]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

func (s *FileStore) readAll() (map[string]User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]User), nil
		}
		return nil, OpError{Op: "identity.readAll", Kind: ErrStore, Msg: err.Error()}
	}
	users := make(map[string]User)
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, OpError{Op: "identity.readAll", Kind: ErrStore, Msg: err.Error()}
	}
	return users, nil
}

// writeAll replaces the snapshot atomically: write to a temp file in the same
// directory, then rename over the target. Readers never observe a torn file.
func (s *FileStore) writeAll(users map[string]User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return OpError{Op: "identity.writeAll", Kind: ErrStore, Msg: err.Error()}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".users-*.json")
	if err != nil {
		return OpError{Op: "identity.writeAll", Kind: ErrStore, Msg: err.Error()}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return OpError{Op: "identity.writeAll", Kind: ErrStore, Msg: err.Error()}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return OpError{Op: "identity.writeAll", Kind: ErrStore, Msg: err.Error()}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return OpError{Op: "identity.writeAll", Kind: ErrStore, Msg: err.Error()}
	}
	return nil
}
