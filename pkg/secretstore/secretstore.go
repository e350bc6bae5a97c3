package secretstore

import (
	"context"
	"sort"
	"time"
)

const (
	// DefaultVersion is reported by backends without real versioning.
	DefaultVersion = 1

	// UnknownOwner is reported when a backend cannot resolve ownership.
	UnknownOwner = "undefined"
)

// Backend is the capability set every storage substrate implements.
type Backend interface {
	// Name identifies the backend kind ("file", "envdir", "vault").
	Name() string

	// ListServices returns every service that holds at least one secret.
	ListServices(ctx context.Context) ([]string, error)

	// ListSecrets returns the key/value pairs stored directly in service.
	// Descendant services are not included. An unknown service yields an
	// empty map.
	ListSecrets(ctx context.Context, service string) (map[string]string, error)

	// ListMetadata returns metadata for every secret stored directly in service.
	ListMetadata(ctx context.Context, service string) (map[string]Metadata, error)

	// Read returns one secret with its metadata.
	Read(ctx context.Context, service, key string) (Secret, error)

	// Write stores value under service/key, creating parents as needed.
	Write(ctx context.Context, service, key, value string) error

	// Delete removes service/key and all of its versions.
	Delete(ctx context.Context, service, key string) error

	// Close releases resources and flushes pending changes.
	Close() error
}

// Secret is a single key/value pair scoped to a service.
type Secret struct {
	Service  string
	Key      string
	Value    string
	Metadata Metadata
}

// Metadata describes a stored secret.
type Metadata struct {
	Version  int       `json:"version"`
	Modified time.Time `json:"modified"`
	Owner    string    `json:"owner"`
}

// PlaceholderMetadata returns the metadata used when a backend has none.
func PlaceholderMetadata() Metadata {
	return Metadata{
		Version: DefaultVersion,
		Owner:   UnknownOwner,
	}
}

// SortedKeys returns the keys of m in lexicographic order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot captures every service and its secrets. The result is detached from
// the backend, so callers may mutate the backend while walking it.
func Snapshot(ctx context.Context, b Backend) (map[string]map[string]string, error) {
	services, err := b.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	tree := make(map[string]map[string]string, len(services))
	for _, svc := range services {
		secrets, err := b.ListSecrets(ctx, svc)
		if err != nil {
			return nil, err
		}
		tree[svc] = secrets
	}
	return tree, nil
}
