// Package backends selects and constructs a storage backend from configuration.
package backends

import (
	"fmt"
	"sort"

	"github.com/systmms/chamber/internal/backends/dirtree"
	"github.com/systmms/chamber/internal/backends/filetree"
	"github.com/systmms/chamber/internal/backends/vault"
	"github.com/systmms/chamber/pkg/secretstore"
)

// Options carries every backend's settings. Each factory reads the fields it
// needs.
type Options struct {
	SecretsFile string
	SecretsDir  string
	VaultAddr   string
	Token       string
	Root        string
}

// Factory opens a backend.
type Factory func(opts Options) (secretstore.Backend, error)

// Registry maps backend names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates a registry with the built-in backends.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}

	r.RegisterFactory(filetree.BackendName, openFileTree)
	r.RegisterFactory(dirtree.BackendName, openDirTree)
	r.RegisterFactory(vault.BackendName, openVault)

	return r
}

// RegisterFactory registers or replaces the factory for name.
func (r *Registry) RegisterFactory(name string, factory Factory) {
	r.factories[name] = factory
}

// Open constructs the named backend.
func (r *Registry) Open(name string, opts Options) (secretstore.Backend, error) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend type: %s", name)
	}
	return factory(opts)
}

// GetSupportedTypes returns the registered backend names in order.
func (r *Registry) GetSupportedTypes() []string {
	types := make([]string, 0, len(r.factories))
	for name := range r.factories {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// IsSupported reports whether name is registered.
func (r *Registry) IsSupported(name string) bool {
	_, ok := r.factories[name]
	return ok
}

func openFileTree(opts Options) (secretstore.Backend, error) {
	if opts.SecretsFile == "" {
		return nil, fmt.Errorf("file backend requires a secrets file")
	}
	return filetree.Open(opts.SecretsFile)
}

func openDirTree(opts Options) (secretstore.Backend, error) {
	if opts.SecretsDir == "" {
		return nil, fmt.Errorf("envdir backend requires a secrets directory")
	}
	return dirtree.Open(opts.SecretsDir), nil
}

func openVault(opts Options) (secretstore.Backend, error) {
	return vault.Open(vault.Config{
		Address: opts.VaultAddr,
		Token:   opts.Token,
		Mount:   opts.Root,
	})
}
