package backendtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/pkg/secretstore"
)

// Fake is an in-memory secretstore.Backend for tests.
//
//	fake := backendtest.NewFake().
//	    WithSecret("app", "PORT", "8080").
//	    WithError("Write", errors.New("disk full"))
type Fake struct {
	mu        sync.Mutex
	tree      map[string]map[string]string
	failOn    map[string]error
	callCount map[string]int
	closed    int
	now       time.Time
}

// NewFake creates an empty fake backend.
func NewFake() *Fake {
	return &Fake{
		tree:      make(map[string]map[string]string),
		failOn:    make(map[string]error),
		callCount: make(map[string]int),
		now:       time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// WithSecret seeds a secret.
func (f *Fake) WithSecret(service, key, value string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(service, key, value)
	return f
}

// WithError makes the named method fail with err.
func (f *Fake) WithError(method string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[method] = err
	return f
}

// CallCount returns how often method was called.
func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount[method]
}

// Closed returns how often Close was called.
func (f *Fake) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Tree returns a copy of the stored tree.
func (f *Fake) Tree() map[string]map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]map[string]string, len(f.tree))
	for svc, secrets := range f.tree {
		out[svc] = copyMap(secrets)
	}
	return out
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) ListServices(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.track("ListServices"); err != nil {
		return nil, err
	}
	services := make([]string, 0, len(f.tree))
	for svc := range f.tree {
		services = append(services, svc)
	}
	sort.Strings(services)
	return services, nil
}

func (f *Fake) ListSecrets(ctx context.Context, service string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.track("ListSecrets"); err != nil {
		return nil, err
	}
	return copyMap(f.tree[service]), nil
}

func (f *Fake) ListMetadata(ctx context.Context, service string) (map[string]secretstore.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.track("ListMetadata"); err != nil {
		return nil, err
	}
	out := make(map[string]secretstore.Metadata, len(f.tree[service]))
	for k := range f.tree[service] {
		out[k] = f.metadata()
	}
	return out, nil
}

func (f *Fake) Read(ctx context.Context, service, key string) (secretstore.Secret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.track("Read"); err != nil {
		return secretstore.Secret{}, err
	}
	v, ok := f.tree[service][key]
	if !ok {
		return secretstore.Secret{}, dserrors.SecretNotFoundError{Service: service, Key: key}
	}
	return secretstore.Secret{Service: service, Key: key, Value: v, Metadata: f.metadata()}, nil
}

func (f *Fake) Write(ctx context.Context, service, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.track("Write"); err != nil {
		return err
	}
	f.put(service, key, value)
	return nil
}

func (f *Fake) Delete(ctx context.Context, service, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.track("Delete"); err != nil {
		return err
	}
	if _, ok := f.tree[service][key]; !ok {
		return dserrors.SecretNotFoundError{Service: service, Key: key}
	}
	delete(f.tree[service], key)
	if len(f.tree[service]) == 0 {
		delete(f.tree, service)
	}
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return f.failOn["Close"]
}

// String returns a short description of the fake.
func (f *Fake) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("Fake{services=%d}", len(f.tree))
}

func (f *Fake) put(service, key, value string) {
	if f.tree[service] == nil {
		f.tree[service] = make(map[string]string)
	}
	f.tree[service][key] = value
}

func (f *Fake) track(method string) error {
	f.callCount[method]++
	return f.failOn[method]
}

func (f *Fake) metadata() secretstore.Metadata {
	return secretstore.Metadata{Version: secretstore.DefaultVersion, Modified: f.now, Owner: "tester"}
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
