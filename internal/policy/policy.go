// Package policy decides what happens when a command names a service or secret
// that does not exist.
//
// In strict mode (the default) a missing service or secret is an error. In
// lenient mode the lookup resolves to a skip: reads see nothing and writes or
// deletes do nothing. Every store operation goes through the same Policy so the
// two modes never diverge between commands.
package policy

import (
	dserrors "github.com/systmms/chamber/internal/errors"
)

// Policy is the existence verification policy.
type Policy struct {
	// RequireExists selects strict mode.
	RequireExists bool
}

// Strict returns a policy that fails on missing entries.
func Strict() Policy {
	return Policy{RequireExists: true}
}

// Lenient returns a policy that skips missing entries.
func Lenient() Policy {
	return Policy{RequireExists: false}
}

// Resolution is the outcome of a verification. When Skip is set the caller must
// treat the target as empty and perform no mutation.
type Resolution struct {
	Service string
	Key     string
	Skip    bool
}

// ResolveService checks a service whose existence the caller already looked up.
func (p Policy) ResolveService(name string, exists bool) (Resolution, error) {
	if name != "" && exists {
		return Resolution{Service: name}, nil
	}
	if p.RequireExists {
		return Resolution{}, dserrors.ServiceNotFoundError{Service: name}
	}
	return Resolution{Service: name, Skip: true}, nil
}

// ResolveSecret checks a key within an already resolved service. A skipped
// service always yields a skipped secret.
func (p Policy) ResolveSecret(svc Resolution, key string, exists bool) (Resolution, error) {
	if svc.Skip {
		return Resolution{Service: svc.Service, Key: key, Skip: true}, nil
	}
	if key != "" && exists {
		return Resolution{Service: svc.Service, Key: key}, nil
	}
	if p.RequireExists {
		return Resolution{}, dserrors.SecretNotFoundError{Service: svc.Service, Key: key}
	}
	return Resolution{Service: svc.Service, Key: key, Skip: true}, nil
}
