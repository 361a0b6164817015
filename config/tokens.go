package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jongio/vmc/fileutil"
	"github.com/jongio/vmc/logutil"
	"github.com/jongio/vmc/security"
	"github.com/jongio/vmc/urlutil"
)

// TokenStore persists auth tokens keyed by normalized target URL.
type TokenStore struct {
	path string
	mu   sync.Mutex
}

// NewTokenStore returns a store backed by the JSON file at path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the backing file.
func (s *TokenStore) Path() string {
	return s.path
}

func (s *TokenStore) load() (map[string]string, error) {
	tokens := make(map[string]string)
	if err := security.ValidateFilePermissions(s.path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logutil.Warn("token file is group or world writable", "path", s.path, "error", err)
		}
	}
	if err := fileutil.ReadJSON(s.path, &tokens); err != nil {
		return nil, fmt.Errorf("reading token file %s: %w", s.path, err)
	}
	return tokens, nil
}

// Token returns the token saved for target, or "" when there is none.
func (s *TokenStore) Token(target string) (string, error) {
	key, err := urlutil.NormalizeTarget(target)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.load()
	if err != nil {
		return "", err
	}
	return tokens[key], nil
}

// Save stores token for target.
func (s *TokenStore) Save(target, token string) error {
	return s.update(target, func(tokens map[string]string, key string) {
		tokens[key] = token
	})
}

// Delete forgets the token for target.
func (s *TokenStore) Delete(target string) error {
	return s.update(target, func(tokens map[string]string, key string) {
		delete(tokens, key)
	})
}

func (s *TokenStore) update(target string, fn func(map[string]string, string)) error {
	key, err := urlutil.NormalizeTarget(target)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.load()
	if err != nil {
		return err
	}
	fn(tokens, key)

	if err := fileutil.EnsureDir(filepath.Dir(s.path)); err != nil {
		return err
	}
	return fileutil.AtomicWriteJSON(s.path, tokens, fileutil.PrivateFilePermission)
}

// GetToken implements httpclient.TokenProvider. scope is the target URL.
func (s *TokenStore) GetToken(_ context.Context, scope string) (string, error) {
	return s.Token(scope)
}
