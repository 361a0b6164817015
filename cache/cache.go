// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package cache stores JSON values on disk with a TTL and a format version.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/jongio/vmc/fileutil"
)

// Options configures a cache Manager.
type Options struct {
	Dir     string        // Directory to store cache files
	TTL     time.Duration // Zero keeps entries forever
	Version string        // Entries written under another version are misses
}

// Stats tracks cache hit/miss statistics.
type Stats struct {
	Hits   int
	Misses int
	Errors int
}

// Metadata is stored alongside every cached value.
type Metadata struct {
	CachedAt time.Time `json:"cached_at"`
	Version  string    `json:"version,omitempty"`
}

type envelope struct {
	Metadata Metadata        `json:"_cache"`
	Data     json.RawMessage `json:"data"`
}

var keySanitizer = regexp.MustCompile(`[^a-zA-Z0-9_\-.]`)

// Manager provides thread-safe file-based caching.
type Manager struct {
	dir     string
	ttl     time.Duration
	version string
	now     func() time.Time

	mu      sync.RWMutex
	statsMu sync.Mutex
	stats   Stats
}

// NewManager creates a cache manager rooted at opts.Dir.
func NewManager(opts Options) *Manager {
	return &Manager{
		dir:     opts.Dir,
		ttl:     opts.TTL,
		version: opts.Version,
		now:     time.Now,
	}
}

// Dir returns the cache directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Get loads the value cached under key into target. It reports false for
// missing, expired, or other-version entries.
func (m *Manager) Get(key string, target any) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := os.ReadFile(m.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			m.record(func(s *Stats) { s.Misses++ })
			return false, nil
		}
		m.record(func(s *Stats) { s.Errors++ })
		return false, fmt.Errorf("failed to read cache file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		m.record(func(s *Stats) { s.Errors++ })
		return false, fmt.Errorf("failed to parse cache file: %w", err)
	}

	if m.version != "" && env.Metadata.Version != m.version {
		m.record(func(s *Stats) { s.Misses++ })
		return false, nil
	}
	if m.ttl > 0 && m.now().Sub(env.Metadata.CachedAt) > m.ttl {
		m.record(func(s *Stats) { s.Misses++ })
		return false, nil
	}

	if err := json.Unmarshal(env.Data, target); err != nil {
		m.record(func(s *Stats) { s.Errors++ })
		return false, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	m.record(func(s *Stats) { s.Hits++ })
	return true, nil
}

// Set stores data under key.
func (m *Manager) Set(key string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := fileutil.EnsureDir(m.dir); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	env := envelope{
		Metadata: Metadata{CachedAt: m.now(), Version: m.version},
		Data:     raw,
	}
	return fileutil.AtomicWriteJSON(m.keyPath(key), env, fileutil.FilePermission)
}

// Invalidate removes a specific cache entry.
func (m *Manager) Invalidate(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(m.keyPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry in the cache directory.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove cache file %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// GetStats returns cache hit/miss statistics.
func (m *Manager) GetStats() Stats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.stats
}

func (m *Manager) keyPath(key string) string {
	return filepath.Join(m.dir, keySanitizer.ReplaceAllString(key, "_")+".json")
}

func (m *Manager) record(fn func(*Stats)) {
	m.statsMu.Lock()
	fn(&m.stats)
	m.statsMu.Unlock()
}
