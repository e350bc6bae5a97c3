// Package dirtree stores secrets as files in a directory tree.
//
// Directories are services and regular files are secrets: the secret
// app/db/PASSWORD lives in <root>/app/db/PASSWORD. Files whose name starts with
// "." or "readme." (any case) are documentation, not secrets. Values are stored
// and returned byte for byte. Service segments starting with "." are hidden
// and cannot be written.
package dirtree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/systmms/chamber/internal/backends/fsmeta"
	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/internal/paths"
	"github.com/systmms/chamber/pkg/secretstore"
)

// BackendName is the configuration name of this backend.
const BackendName = "envdir"

const (
	dirMode  = 0o700
	fileMode = 0o600
)

// notDir is reported when a service path segment is a secret file.
var notDir error = syscall.ENOTDIR

// Backend is a secretstore.Backend over a directory.
type Backend struct {
	root string
}

var _ secretstore.Backend = (*Backend)(nil)

// Open returns a backend rooted at dir. The directory is created on first write.
func Open(dir string) *Backend {
	return &Backend{root: dir}
}

// Name returns the backend kind.
func (b *Backend) Name() string { return BackendName }

// isSecretName reports whether a file name holds a secret.
func isSecretName(name string) bool {
	return !strings.HasPrefix(name, ".") && !strings.HasPrefix(strings.ToLower(name), "readme.")
}

// isServiceName reports whether every segment of service is visible to the
// tree walk.
func isServiceName(service string) bool {
	for _, seg := range paths.Split(service) {
		if strings.HasPrefix(seg, ".") {
			return false
		}
	}
	return true
}

func (b *Backend) serviceDir(service string) string {
	return filepath.Join(b.root, filepath.FromSlash(service))
}

func (b *Backend) secretPath(service, key string) string {
	return filepath.Join(b.serviceDir(service), key)
}

// ListServices walks the tree and returns every directory holding a secret.
func (b *Backend) ListServices(ctx context.Context) ([]string, error) {
	var services []string
	err := filepath.WalkDir(b.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == b.root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != b.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if path == b.root {
			return nil
		}
		has, err := hasSecrets(path)
		if err != nil {
			return err
		}
		if has {
			rel, err := filepath.Rel(b.root, path)
			if err != nil {
				return err
			}
			services = append(services, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, dserrors.BackendError(BackendName, "walk", b.root, err)
	}
	sort.Strings(services)
	return services, nil
}

func hasSecrets(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Type().IsRegular() && isSecretName(e.Name()) {
			return true, nil
		}
	}
	return false, nil
}

func (b *Backend) secretEntries(service string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(b.serviceDir(service))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, dserrors.BackendError(BackendName, "list", b.serviceDir(service), err)
	}
	out := entries[:0]
	for _, e := range entries {
		if e.Type().IsRegular() && isSecretName(e.Name()) {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListSecrets reads every secret file directly inside the service directory.
func (b *Backend) ListSecrets(ctx context.Context, service string) (map[string]string, error) {
	entries, err := b.secretEntries(service)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		path := b.secretPath(service, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, dserrors.BackendError(BackendName, "read", path, err)
		}
		out[e.Name()] = string(data)
	}
	return out, nil
}

// ListMetadata reports each file's mtime and owner.
func (b *Backend) ListMetadata(ctx context.Context, service string) (map[string]secretstore.Metadata, error) {
	entries, err := b.secretEntries(service)
	if err != nil {
		return nil, err
	}
	out := make(map[string]secretstore.Metadata, len(entries))
	for _, e := range entries {
		fi, err := e.Info()
		if err != nil {
			out[e.Name()] = secretstore.PlaceholderMetadata()
			continue
		}
		out[e.Name()] = fsmeta.FromFileInfo(fi)
	}
	return out, nil
}

// Read returns one secret file.
func (b *Backend) Read(ctx context.Context, service, key string) (secretstore.Secret, error) {
	if !isServiceName(service) || !isSecretName(key) {
		return secretstore.Secret{}, dserrors.SecretNotFoundError{Service: service, Key: key}
	}
	path := b.secretPath(service, key)
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		if err == nil || errors.Is(err, fs.ErrNotExist) || errors.Is(err, notDir) {
			return secretstore.Secret{}, dserrors.SecretNotFoundError{Service: service, Key: key}
		}
		return secretstore.Secret{}, dserrors.BackendError(BackendName, "stat", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return secretstore.Secret{}, dserrors.BackendError(BackendName, "read", path, err)
	}
	return secretstore.Secret{
		Service:  service,
		Key:      key,
		Value:    string(data),
		Metadata: fsmeta.FromFileInfo(fi),
	}, nil
}

// Write stores value in <root>/<service>/<key>, creating directories.
func (b *Backend) Write(ctx context.Context, service, key, value string) error {
	if !isSecretName(key) {
		return dserrors.UserError{
			Message:    fmt.Sprintf("key %q would be ignored by the envdir backend", key),
			Suggestion: "Keys must not start with '.' or 'readme.'",
		}
	}
	if !isServiceName(service) {
		return dserrors.UserError{
			Message:    fmt.Sprintf("service %q would be ignored by the envdir backend", service),
			Suggestion: "Service segments must not start with '.'",
		}
	}
	dir := b.serviceDir(service)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return dserrors.BackendError(BackendName, "mkdir", dir, err)
	}

	path := b.secretPath(service, key)
	tmp, err := os.CreateTemp(dir, "."+key+".*")
	if err != nil {
		return dserrors.BackendError(BackendName, "write", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return dserrors.BackendError(BackendName, "write", path, err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return dserrors.BackendError(BackendName, "write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return dserrors.BackendError(BackendName, "write", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return dserrors.BackendError(BackendName, "write", path, err)
	}
	return nil
}

// Delete removes the secret file and any service directories left empty.
func (b *Backend) Delete(ctx context.Context, service, key string) error {
	if !isServiceName(service) || !isSecretName(key) {
		return dserrors.SecretNotFoundError{Service: service, Key: key}
	}
	path := b.secretPath(service, key)
	fi, err := os.Lstat(path)
	if err != nil || !fi.Mode().IsRegular() {
		if err == nil || errors.Is(err, fs.ErrNotExist) || errors.Is(err, notDir) {
			return dserrors.SecretNotFoundError{Service: service, Key: key}
		}
		return dserrors.BackendError(BackendName, "stat", path, err)
	}
	if err := os.Remove(path); err != nil {
		return dserrors.BackendError(BackendName, "delete", path, err)
	}

	segments := paths.Split(service)
	for i := len(segments); i > 0; i-- {
		dir := filepath.Join(b.root, filepath.Join(segments[:i]...))
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}

// Close is a no-op; every write is already on disk.
func (b *Backend) Close() error { return nil }
