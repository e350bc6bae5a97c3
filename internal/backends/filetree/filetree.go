// Package filetree stores every service in one JSON document.
//
// The document is a nested object: string values are secrets, object values
// are child services. The whole tree is loaded on Open and written back once on
// Close, only when something changed.
package filetree

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/systmms/chamber/internal/backends/fsmeta"
	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/internal/paths"
	"github.com/systmms/chamber/pkg/secretstore"
)

// BackendName is the configuration name of this backend.
const BackendName = "file"

// ErrConflict is returned when a name would be both a secret and a service.
var ErrConflict = errors.New("name is already used")

type node struct {
	secrets  map[string]string
	children map[string]*node
}

func newNode() *node {
	return &node{
		secrets:  make(map[string]string),
		children: make(map[string]*node),
	}
}

func (n *node) empty() bool {
	return len(n.secrets) == 0 && len(n.children) == 0
}

// Backend is a secretstore.Backend over a JSON document.
type Backend struct {
	path   string
	root   *node
	dirty  bool
	closed bool
}

var _ secretstore.Backend = (*Backend)(nil)

// Open loads the document at path. A missing document is an empty tree; the
// file is created by the first Close that has something to write.
func Open(path string) (*Backend, error) {
	b := &Backend{path: path, root: newNode()}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return b, nil
	case err != nil:
		return nil, dserrors.BackendError(BackendName, "open", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return b, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, dserrors.BackendError(BackendName, "parse", path, err)
	}
	b.root = decodeNode(doc)
	return b, nil
}

func decodeNode(doc map[string]any) *node {
	n := newNode()
	for k, v := range doc {
		switch val := v.(type) {
		case map[string]any:
			n.children[k] = decodeNode(val)
		case string:
			n.secrets[k] = val
		case json.Number:
			n.secrets[k] = val.String()
		default:
			raw, _ := json.Marshal(val)
			n.secrets[k] = string(raw)
		}
	}
	return n
}

func encodeNode(n *node) map[string]any {
	out := make(map[string]any, len(n.secrets)+len(n.children))
	for k, v := range n.secrets {
		out[k] = v
	}
	for k, child := range n.children {
		out[k] = encodeNode(child)
	}
	return out
}

// Name returns the backend kind.
func (b *Backend) Name() string { return BackendName }

func (b *Backend) find(service string) *node {
	n := b.root
	for _, seg := range paths.Split(service) {
		child, ok := n.children[seg]
		if !ok {
			return nil
		}
		n = child
	}
	return n
}

func (b *Backend) ensure(service string) (*node, error) {
	n := b.root
	segments := paths.Split(service)
	for i, seg := range segments {
		if _, isSecret := n.secrets[seg]; isSecret {
			return nil, fmt.Errorf("%w: %q is a secret, not a service", ErrConflict, paths.Join(segments[:i+1]...))
		}
		child, ok := n.children[seg]
		if !ok {
			child = newNode()
			n.children[seg] = child
		}
		n = child
	}
	return n, nil
}

// ListServices walks the tree and returns every node holding a secret.
func (b *Backend) ListServices(ctx context.Context) ([]string, error) {
	type entry struct {
		path string
		n    *node
	}
	var services []string
	stack := []entry{{"", b.root}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.path != "" && len(e.n.secrets) > 0 {
			services = append(services, e.path)
		}
		for name, child := range e.n.children {
			p := name
			if e.path != "" {
				p = e.path + paths.Separator + name
			}
			stack = append(stack, entry{p, child})
		}
	}
	sort.Strings(services)
	return services, nil
}

// ListSecrets returns the secrets stored directly in service.
func (b *Backend) ListSecrets(ctx context.Context, service string) (map[string]string, error) {
	out := make(map[string]string)
	if n := b.find(service); n != nil {
		for k, v := range n.secrets {
			out[k] = v
		}
	}
	return out, nil
}

// ListMetadata reports the document's own mtime and owner for every secret.
func (b *Backend) ListMetadata(ctx context.Context, service string) (map[string]secretstore.Metadata, error) {
	out := make(map[string]secretstore.Metadata)
	n := b.find(service)
	if n == nil || len(n.secrets) == 0 {
		return out, nil
	}
	meta := fsmeta.Stat(b.path)
	for k := range n.secrets {
		out[k] = meta
	}
	return out, nil
}

// Read returns one secret.
func (b *Backend) Read(ctx context.Context, service, key string) (secretstore.Secret, error) {
	n := b.find(service)
	if n == nil {
		return secretstore.Secret{}, dserrors.SecretNotFoundError{Service: service, Key: key}
	}
	v, ok := n.secrets[key]
	if !ok {
		return secretstore.Secret{}, dserrors.SecretNotFoundError{Service: service, Key: key}
	}
	return secretstore.Secret{
		Service:  service,
		Key:      key,
		Value:    v,
		Metadata: fsmeta.Stat(b.path),
	}, nil
}

// Write stores a secret, creating intermediate services.
func (b *Backend) Write(ctx context.Context, service, key, value string) error {
	n, err := b.ensure(service)
	if err != nil {
		return err
	}
	if _, isService := n.children[key]; isService {
		return fmt.Errorf("%w: %q in %q is a service, not a secret", ErrConflict, key, service)
	}
	n.secrets[key] = value
	b.dirty = true
	return nil
}

// Delete removes a secret and prunes nodes left empty.
func (b *Backend) Delete(ctx context.Context, service, key string) error {
	segments := paths.Split(service)
	chain := make([]*node, 0, len(segments)+1)
	n := b.root
	chain = append(chain, n)
	for _, seg := range segments {
		child, ok := n.children[seg]
		if !ok {
			return dserrors.SecretNotFoundError{Service: service, Key: key}
		}
		n = child
		chain = append(chain, n)
	}
	if _, ok := n.secrets[key]; !ok {
		return dserrors.SecretNotFoundError{Service: service, Key: key}
	}
	delete(n.secrets, key)
	b.dirty = true

	for i := len(segments) - 1; i >= 0; i-- {
		if !chain[i+1].empty() {
			break
		}
		delete(chain[i].children, segments[i])
	}
	return nil
}

// Close writes the document if the tree changed. Later calls do nothing.
func (b *Backend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if !b.dirty {
		return nil
	}
	if err := b.flush(); err != nil {
		return dserrors.BackendError(BackendName, "flush", b.path, err)
	}
	b.dirty = false
	return nil
}

func (b *Backend) flush() error {
	data, err := json.MarshalIndent(encodeNode(b.root), "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(b.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, b.path)
}
