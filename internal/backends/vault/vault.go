// Package vault stores secrets in a Vault (or OpenBao) KV v2 secrets engine.
//
// Each secret gets its own KV path: service "app/db" key "USER" is stored at
// <mount>/app/db/USER holding {"USER": value}. Services are discovered by
// walking the metadata tree, where names ending in "/" are sub-paths.
// Every listing and every value is a separate round trip.
package vault

import (
	"context"
	"errors"
	"sort"
	"strings"

	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/internal/paths"
	"github.com/systmms/chamber/pkg/secretstore"
)

// BackendName is the configuration name of this backend.
const BackendName = "vault"

// Backend is a secretstore.Backend over a KV engine.
type Backend struct {
	kv KV
}

var _ secretstore.Backend = (*Backend)(nil)

// New wraps a KV collaborator.
func New(kv KV) *Backend {
	return &Backend{kv: kv}
}

// Open connects to the server described by cfg.
func Open(cfg Config) (*Backend, error) {
	kv, err := NewAPIKV(cfg)
	if err != nil {
		return nil, dserrors.BackendError(BackendName, "connect", cfg.Address, err)
	}
	return New(kv), nil
}

// Name returns the backend kind.
func (b *Backend) Name() string { return BackendName }

func secretPath(service, key string) string {
	return service + paths.Separator + key
}

func (b *Backend) list(ctx context.Context, path string) ([]string, error) {
	names, err := b.kv.List(ctx, path)
	if err != nil {
		return nil, dserrors.BackendError(BackendName, "list", path, err)
	}
	return names, nil
}

func (b *Backend) keys(ctx context.Context, service string) ([]string, error) {
	names, err := b.list(ctx, service)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(names))
	for _, n := range names {
		if !strings.HasSuffix(n, paths.Separator) {
			keys = append(keys, n)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// ListServices walks the metadata tree from the mount root.
func (b *Backend) ListServices(ctx context.Context) ([]string, error) {
	var services []string
	stack := []string{""}
	for len(stack) > 0 {
		path := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		names, err := b.list(ctx, path)
		if err != nil {
			return nil, err
		}
		hasKey := false
		for _, n := range names {
			if sub, ok := strings.CutSuffix(n, paths.Separator); ok {
				if path == "" {
					stack = append(stack, sub)
				} else {
					stack = append(stack, secretPath(path, sub))
				}
				continue
			}
			hasKey = true
		}
		if hasKey && path != "" {
			services = append(services, path)
		}
	}
	sort.Strings(services)
	return services, nil
}

func (b *Backend) get(ctx context.Context, service, key string) (Entry, error) {
	entry, err := b.kv.Get(ctx, secretPath(service, key), key)
	if errors.Is(err, ErrNotFound) {
		return Entry{}, dserrors.SecretNotFoundError{Service: service, Key: key}
	}
	if err != nil {
		return Entry{}, dserrors.BackendError(BackendName, "read", secretPath(service, key), err)
	}
	return entry, nil
}

// ListSecrets reads every key stored directly under service.
func (b *Backend) ListSecrets(ctx context.Context, service string) (map[string]string, error) {
	keys, err := b.keys(ctx, service)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		entry, err := b.get(ctx, service, k)
		if dserrors.IsSecretNotFound(err) {
			// Listed but all versions deleted.
			continue
		}
		if err != nil {
			return nil, err
		}
		out[k] = entry.Value
	}
	return out, nil
}

// ListMetadata reports the KV version and creation time of each key.
func (b *Backend) ListMetadata(ctx context.Context, service string) (map[string]secretstore.Metadata, error) {
	keys, err := b.keys(ctx, service)
	if err != nil {
		return nil, err
	}
	out := make(map[string]secretstore.Metadata, len(keys))
	for _, k := range keys {
		entry, err := b.get(ctx, service, k)
		if dserrors.IsSecretNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[k] = metadata(entry)
	}
	return out, nil
}

func metadata(e Entry) secretstore.Metadata {
	m := secretstore.PlaceholderMetadata()
	if e.Version > 0 {
		m.Version = e.Version
	}
	m.Modified = e.Created
	return m
}

// Read fetches the latest version of a secret.
func (b *Backend) Read(ctx context.Context, service, key string) (secretstore.Secret, error) {
	entry, err := b.get(ctx, service, key)
	if err != nil {
		return secretstore.Secret{}, err
	}
	return secretstore.Secret{
		Service:  service,
		Key:      key,
		Value:    entry.Value,
		Metadata: metadata(entry),
	}, nil
}

// Write stores a new version of a secret.
func (b *Backend) Write(ctx context.Context, service, key, value string) error {
	if err := b.kv.Put(ctx, secretPath(service, key), key, value); err != nil {
		return dserrors.BackendError(BackendName, "write", secretPath(service, key), err)
	}
	return nil
}

// Delete destroys every version of a secret.
func (b *Backend) Delete(ctx context.Context, service, key string) error {
	if _, err := b.get(ctx, service, key); err != nil {
		return err
	}
	if err := b.kv.DeleteAll(ctx, secretPath(service, key)); err != nil {
		return dserrors.BackendError(BackendName, "delete", secretPath(service, key), err)
	}
	return nil
}

// Close is a no-op; the client holds no session state.
func (b *Backend) Close() error { return nil }
