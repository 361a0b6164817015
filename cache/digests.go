package cache

import (
	"fmt"
	"sync"
)

// Digests is a string map persisted as a single cache entry. Bundle
// fingerprinting uses it to skip rehashing files that have not changed.
// Flush keeps only the keys touched since loading, so entries for edited or
// removed files do not accumulate.
type Digests struct {
	m   *Manager
	key string

	mu    sync.Mutex
	sums  map[string]string
	used  map[string]bool
	dirty bool
}

// Digests loads the map stored under key. A missing, expired, or unreadable
// entry starts empty.
func (m *Manager) Digests(key string) *Digests {
	d := &Digests{m: m, key: key, sums: make(map[string]string), used: make(map[string]bool)}
	if ok, err := m.Get(key, &d.sums); err != nil || !ok {
		d.sums = make(map[string]string)
	}
	return d
}

// Lookup returns the digest recorded for k.
func (d *Digests) Lookup(k string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sum, ok := d.sums[k]
	if ok {
		d.used[k] = true
	}
	return sum, ok
}

// Store records sum for k.
func (d *Digests) Store(k, sum string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.used[k] = true
	if old, ok := d.sums[k]; ok && old == sum {
		return
	}
	d.sums[k] = sum
	d.dirty = true
}

// Len returns the number of recorded digests.
func (d *Digests) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sums)
}

// Flush drops keys that were neither looked up nor stored, then writes the
// map back when it changed. A run that touched no keys leaves the stored
// map alone.
func (d *Digests) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.used) > 0 {
		for k := range d.sums {
			if !d.used[k] {
				delete(d.sums, k)
				d.dirty = true
			}
		}
	}
	if !d.dirty {
		return nil
	}
	if err := d.m.Set(d.key, d.sums); err != nil {
		return fmt.Errorf("saving %s: %w", d.key, err)
	}
	d.dirty = false
	return nil
}
