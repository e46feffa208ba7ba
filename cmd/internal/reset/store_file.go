package reset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"rnbw/cmd/identity"
	"rnbw/cmd/security/token"
)

// FileStore persists the token collection as one ordered JSON array snapshot.
// One mutex guards every read and write; each mutation is a whole-collection
// read-modify-write, which is what makes Issue atomic.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a FileStore writing to path (e.g. data/reset-tokens.json).
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("reset: %w: empty path", ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("reset: create data dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Append adds a token record without touching existing records.
func (s *FileStore) Append(_ context.Context, t Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.readAll()
	if err != nil {
		return err
	}
	t.Email = identity.NormalizeEmail(t.Email)
	return s.writeAll(append(tokens, t))
}

// List returns the full ordered collection.
func (s *FileStore) List(_ context.Context) ([]Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll()
}

// ReplaceAll overwrites the collection with tokens.
func (s *FileStore) ReplaceAll(_ context.Context, tokens []Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeAll(tokens)
}

// FindValid selects the unique unused, unexpired record matching tokenValue.
// Unknown, used and expired all come back as ok=false.
func (s *FileStore) FindValid(_ context.Context, tokenValue string, now time.Time) (Token, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.readAll()
	if err != nil {
		return Token{}, false, err
	}
	for _, t := range tokens {
		if token.Equal(t.Token, tokenValue) && t.Valid(now) {
			return t, true, nil
		}
	}
	return Token{}, false, nil
}

// InvalidateAllForEmail marks every unused record for email as used.
func (s *FileStore) InvalidateAllForEmail(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.readAll()
	if err != nil {
		return err
	}
	norm := identity.NormalizeEmail(email)
	for i := range tokens {
		if tokens[i].Email == norm {
			tokens[i].Used = true
		}
	}
	return s.writeAll(tokens)
}

// MarkUsed consumes the record matching tokenValue.
func (s *FileStore) MarkUsed(_ context.Context, tokenValue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.readAll()
	if err != nil {
		return err
	}
	for i := range tokens {
		if token.Equal(tokens[i].Token, tokenValue) {
			tokens[i].Used = true
		}
	}
	return s.writeAll(tokens)
}

// PurgeExpired drops every record with ExpiresAt <= now.
// Housekeeping only; FindValid checks expiry anyway.
func (s *FileStore) PurgeExpired(_ context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.readAll()
	if err != nil {
		return err
	}
	kept := tokens[:0]
	for _, t := range tokens {
		if t.ExpiresAt.After(now) {
			kept = append(kept, t)
		}
	}
	return s.writeAll(kept)
}

// Issue supersedes all live tokens for t.Email and appends t, in one
// read-modify-write under the store lock.
func (s *FileStore) Issue(_ context.Context, t Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.readAll()
	if err != nil {
		return err
	}
	t.Email = identity.NormalizeEmail(t.Email)
	for i := range tokens {
		if tokens[i].Email == t.Email {
			tokens[i].Used = true
		}
	}
	return s.writeAll(append(tokens, t))
}

func (s *FileStore) readAll() ([]Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Token{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	var tokens []Token
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return tokens, nil
}

func (s *FileStore) writeAll(tokens []Token) error {
	if tokens == nil {
		tokens = []Token{}
	}
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".reset-tokens-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}
