package vault

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memEntry struct {
	data    map[string]string
	version int
	created time.Time
}

// MemoryKV is an in-memory KV used in tests and dry runs. Like KV v2, a Put
// replaces the whole data map at a path and bumps its version.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	now     func() time.Time
}

var _ KV = (*MemoryKV)(nil)

// NewMemoryKV returns an empty engine.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		entries: make(map[string]*memEntry),
		now:     time.Now,
	}
}

// Paths returns every stored path in order.
func (m *MemoryKV) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for p := range m.entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (m *MemoryKV) List(ctx context.Context, path string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := ""
	if path != "" {
		prefix = strings.TrimSuffix(path, "/") + "/"
	}
	seen := make(map[string]bool)
	for p := range m.entries {
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok || rest == "" {
			continue
		}
		if i := strings.Index(rest, "/"); i >= 0 {
			seen[rest[:i+1]] = true
		} else {
			seen[rest] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryKV) Put(ctx context.Context, path, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[path]
	if !ok {
		e = &memEntry{}
		m.entries[path] = e
	}
	e.data = map[string]string{key: value}
	e.version++
	e.created = m.now()
	return nil
}

func (m *MemoryKV) Get(ctx context.Context, path, key string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[path]
	if !ok {
		return Entry{}, ErrNotFound
	}
	v, ok := e.data[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{Value: v, Version: e.version, Created: e.created}, nil
}

func (m *MemoryKV) DeleteAll(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, path)
	return nil
}
