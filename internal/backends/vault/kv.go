package vault

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by KV.Get when the path or the key is absent.
var ErrNotFound = errors.New("vault: secret not found")

// Entry is one value read from the KV engine.
type Entry struct {
	Value   string
	Version int
	Created time.Time
}

// KV is the subset of a path-addressed KV v2 engine the backend consumes.
// Paths are relative to the mount.
type KV interface {
	// List returns the children of path. Names ending in "/" are sub-paths.
	// An absent path yields no names and no error.
	List(ctx context.Context, path string) ([]string, error)

	// Put replaces the data stored at path with {key: value}.
	Put(ctx context.Context, path, key, value string) error

	// Get reads key from the latest version stored at path.
	Get(ctx context.Context, path, key string) (Entry, error)

	// DeleteAll removes path together with every version and its metadata.
	DeleteAll(ctx context.Context, path string) error
}
