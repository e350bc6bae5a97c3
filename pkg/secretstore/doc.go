// Package secretstore defines the storage contract shared by every chamber
// backend.
//
// chamber keeps key/value secrets grouped by hierarchical service paths such as
// "app/prod/db". Three substrates implement the same contract:
//
//   - file:   a single JSON document holding a nested tree of services
//   - envdir: a directory tree where directories are services and files are secrets
//   - vault:  a KV v2 secrets engine reached over the network
//
// # Semantics
//
// Every implementation agrees on the following:
//
//   - ListServices returns only services that hold at least one secret.
//   - ListSecrets and ListMetadata return an empty map for an unknown service.
//   - Read and Delete of a missing secret fail with an error matched by
//     errors.IsSecretNotFound from internal/errors.
//   - Write creates parent services implicitly and overwrites an existing key.
//   - Delete removes every version of a secret.
//   - Close releases the backend and flushes pending mutations at most once.
//
// Metadata is best effort. A backend that cannot supply a real version reports
// DefaultVersion, and one that cannot supply an owner reports UnknownOwner.
// Retrieving metadata never fails because metadata is missing.
//
// # Names
//
// Backends receive names that are already normalized and validated by the
// caller (see internal/paths). Case folding is never applied inside a backend.
//
// # Implementing a backend
//
//	type MyBackend struct{ ... }
//
//	func (b *MyBackend) Read(ctx context.Context, service, key string) (secretstore.Secret, error) {
//	    raw, ok := b.lookup(service, key)
//	    if !ok {
//	        return secretstore.Secret{}, errors.SecretNotFoundError{Service: service, Key: key}
//	    }
//	    return secretstore.Secret{Service: service, Key: key, Value: raw, Metadata: secretstore.PlaceholderMetadata()}, nil
//	}
//
// Implementations are used by one invocation at a time and need not be safe
// for concurrent use unless documented otherwise.
package secretstore
