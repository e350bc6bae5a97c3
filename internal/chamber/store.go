// Package chamber is the store facade used by every command.
//
// A Store wraps one backend for one invocation. It normalizes names (including
// the store-wide case folding switch), validates them, and routes every lookup
// through the existence policy before touching the backend.
package chamber

import (
	"context"
	"errors"
	"sort"
	"strings"

	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/internal/execenv"
	"github.com/systmms/chamber/internal/logging"
	"github.com/systmms/chamber/internal/paths"
	"github.com/systmms/chamber/internal/policy"
	"github.com/systmms/chamber/pkg/secretstore"
)

// Options configures a Store.
type Options struct {
	Policy   policy.Policy
	FoldCase bool
	Logger   *logging.Logger
	Executor *execenv.Executor
	// OnClose runs after the backend is closed.
	OnClose func() error
}

// Store is the facade over one backend.
type Store struct {
	backend  secretstore.Backend
	policy   policy.Policy
	fold     bool
	logger   *logging.Logger
	executor *execenv.Executor
	onClose  func() error
	closed   bool
}

// New wraps backend. The Store owns the backend and closes it on Close.
func New(backend secretstore.Backend, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = logging.New(false, true)
	}
	executor := opts.Executor
	if executor == nil {
		executor = execenv.New(logger)
	}
	return &Store{
		backend:  backend,
		policy:   opts.Policy,
		fold:     opts.FoldCase,
		logger:   logger,
		executor: executor,
		onClose:  opts.OnClose,
	}
}

// Backend returns the wrapped backend.
func (s *Store) Backend() secretstore.Backend { return s.backend }

// Policy returns the existence policy in effect.
func (s *Store) Policy() policy.Policy { return s.policy }

// Close closes the backend once, then runs the OnClose hook.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.backend.Close()
	if s.onClose != nil {
		err = errors.Join(err, s.onClose())
	}
	return err
}

func (s *Store) serviceName(name string) (string, error) {
	svc := paths.Normalize(name, s.fold)
	if err := paths.ValidateService(svc); err != nil {
		return "", invalidName(err)
	}
	return svc, nil
}

func (s *Store) keyName(key string) (string, error) {
	k := paths.NormalizeKey(key, s.fold)
	if err := paths.ValidateKey(k); err != nil {
		return "", invalidName(err)
	}
	return k, nil
}

func invalidName(err error) error {
	return dserrors.UserError{
		Message:    err.Error(),
		Suggestion: "Services are '/'-separated paths; keys must not contain '/'",
		Err:        err,
	}
}

func (s *Store) hasService(ctx context.Context, service string) (bool, error) {
	services, err := s.backend.ListServices(ctx)
	if err != nil {
		return false, err
	}
	i := sort.SearchStrings(services, service)
	return i < len(services) && services[i] == service, nil
}

// resolveService normalizes name and applies the policy. An empty name is
// treated as absent.
func (s *Store) resolveService(ctx context.Context, name string) (policy.Resolution, error) {
	svc := paths.Normalize(name, s.fold)
	if svc == "" {
		return s.policy.ResolveService(svc, false)
	}
	if err := paths.ValidateService(svc); err != nil {
		return policy.Resolution{}, invalidName(err)
	}
	exists, err := s.hasService(ctx, svc)
	if err != nil {
		return policy.Resolution{}, err
	}
	return s.policy.ResolveService(svc, exists)
}

func (s *Store) resolveSecret(ctx context.Context, service, key string) (policy.Resolution, error) {
	svc, err := s.resolveService(ctx, service)
	if err != nil || svc.Skip {
		return policy.Resolution{Service: svc.Service, Key: key, Skip: true}, err
	}
	k := paths.NormalizeKey(key, s.fold)
	if k == "" {
		return s.policy.ResolveSecret(svc, k, false)
	}
	if err := paths.ValidateKey(k); err != nil {
		return policy.Resolution{}, invalidName(err)
	}
	secrets, err := s.backend.ListSecrets(ctx, svc.Service)
	if err != nil {
		return policy.Resolution{}, err
	}
	_, exists := secrets[k]
	return s.policy.ResolveSecret(svc, k, exists)
}

// Read returns one secret. ok is false when the policy skipped a missing entry.
func (s *Store) Read(ctx context.Context, service, key string) (secret secretstore.Secret, ok bool, err error) {
	res, err := s.resolveSecret(ctx, service, key)
	if err != nil || res.Skip {
		return secretstore.Secret{}, false, err
	}
	secret, err = s.backend.Read(ctx, res.Service, res.Key)
	if err != nil {
		return secretstore.Secret{}, false, err
	}
	return secret, true, nil
}

// Write stores a secret. Writes never require the service to exist.
func (s *Store) Write(ctx context.Context, service, key, value string) error {
	svc, err := s.serviceName(service)
	if err != nil {
		return err
	}
	k, err := s.keyName(key)
	if err != nil {
		return err
	}
	s.logger.Debug("Writing %s/%s", svc, k)
	return s.backend.Write(ctx, svc, k, value)
}

// Delete removes a secret and all of its versions. A skipped lookup deletes
// nothing.
func (s *Store) Delete(ctx context.Context, service, key string) error {
	res, err := s.resolveSecret(ctx, service, key)
	if err != nil || res.Skip {
		return err
	}
	s.logger.Debug("Deleting %s/%s", res.Service, res.Key)
	return s.backend.Delete(ctx, res.Service, res.Key)
}

// Entry is one row of List.
type Entry struct {
	Key      string
	Metadata secretstore.Metadata
}

// List returns the metadata of every secret in service, sorted by key.
func (s *Store) List(ctx context.Context, service string) ([]Entry, error) {
	res, err := s.resolveService(ctx, service)
	if err != nil || res.Skip {
		return nil, err
	}
	meta, err := s.backend.ListMetadata(ctx, res.Service)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(meta))
	for _, k := range secretstore.SortedKeys(meta) {
		entries = append(entries, Entry{Key: k, Metadata: meta[k]})
	}
	return entries, nil
}

// Secrets returns every pair stored in service, or nothing when skipped.
func (s *Store) Secrets(ctx context.Context, service string) (map[string]string, error) {
	res, err := s.resolveService(ctx, service)
	if err != nil {
		return nil, err
	}
	if res.Skip {
		return map[string]string{}, nil
	}
	return s.backend.ListSecrets(ctx, res.Service)
}

// ListServices returns services whose name starts with filter, or every
// service/key pair when includeSecrets is set. Output is sorted.
func (s *Store) ListServices(ctx context.Context, filter string, includeSecrets bool) ([]string, error) {
	if s.fold {
		filter = strings.ToLower(filter)
	}
	services, err := s.backend.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, svc := range services {
		if !strings.HasPrefix(svc, filter) {
			continue
		}
		if !includeSecrets {
			out = append(out, svc)
			continue
		}
		secrets, err := s.backend.ListSecrets(ctx, svc)
		if err != nil {
			return nil, err
		}
		for k := range secrets {
			out = append(out, svc+paths.Separator+k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Prune deletes every secret of service and of its segment descendants and
// returns how many secrets were removed.
func (s *Store) Prune(ctx context.Context, service string) (int, error) {
	target := paths.Normalize(service, s.fold)
	if target != "" {
		if err := paths.ValidateService(target); err != nil {
			return 0, invalidName(err)
		}
	}

	services, err := s.backend.ListServices(ctx)
	if err != nil {
		return 0, err
	}
	var affected []string
	for _, svc := range services {
		if target != "" && paths.Within(target, svc) {
			affected = append(affected, svc)
		}
	}

	res, err := s.policy.ResolveService(target, len(affected) > 0)
	if err != nil || res.Skip {
		return 0, err
	}

	snapshot := make(map[string][]string, len(affected))
	for _, svc := range affected {
		secrets, err := s.backend.ListSecrets(ctx, svc)
		if err != nil {
			return 0, err
		}
		snapshot[svc] = secretstore.SortedKeys(secrets)
	}

	deleted := 0
	for _, svc := range affected {
		for _, k := range snapshot[svc] {
			if err := s.backend.Delete(ctx, svc, k); err != nil {
				return deleted, err
			}
			deleted++
		}
	}
	s.logger.Debug("Pruned %d secrets from %d services under %s", deleted, len(affected), target)
	return deleted, nil
}
