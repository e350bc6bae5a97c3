package errors

import (
	"errors"
	"fmt"
)

// ErrCommandMissing is returned by exec when no command follows the services.
var ErrCommandMissing = errors.New("must specify command to run: requires at least 1 arg(s), only received 0")

// ServiceNotFoundError reports a service that holds no secrets.
type ServiceNotFoundError struct {
	Service string
}

func (e ServiceNotFoundError) Error() string {
	return fmt.Sprintf("service not found: '%s'", e.Service)
}

// SecretNotFoundError reports a missing key inside a service.
type SecretNotFoundError struct {
	Service string
	Key     string
}

func (e SecretNotFoundError) Error() string {
	return fmt.Sprintf("secret not found: '%s/%s'", e.Service, e.Key)
}

// StrictVariableError reports an inherited variable still holding the strict
// sentinel after every service was merged.
type StrictVariableError struct {
	Variable string
	Sentinel string
}

func (e StrictVariableError) Error() string {
	return fmt.Sprintf("parent env was expecting %s=%s, but was not in store", e.Variable, e.Sentinel)
}

// ArchiveFormatError reports a backup archive that cannot be written or restored.
type ArchiveFormatError struct {
	Reason string
}

func (e ArchiveFormatError) Error() string {
	return "invalid archive: " + e.Reason
}

// UnknownFormatError reports an export or import format that is not supported.
type UnknownFormatError struct {
	Format string
}

func (e UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown format: %s", e.Format)
}

// IsServiceNotFound reports whether err is or wraps a ServiceNotFoundError.
func IsServiceNotFound(err error) bool {
	var target ServiceNotFoundError
	return errors.As(err, &target)
}

// IsSecretNotFound reports whether err is or wraps a SecretNotFoundError.
func IsSecretNotFound(err error) bool {
	var target SecretNotFoundError
	return errors.As(err, &target)
}

// IsNotFound reports either kind of missing-entry error.
func IsNotFound(err error) bool {
	return IsServiceNotFound(err) || IsSecretNotFound(err)
}

// IsDomainError reports whether err belongs to the chamber error taxonomy.
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}
	var (
		strict  StrictVariableError
		archive ArchiveFormatError
		format  UnknownFormatError
	)
	return IsNotFound(err) ||
		errors.Is(err, ErrCommandMissing) ||
		errors.As(err, &strict) ||
		errors.As(err, &archive) ||
		errors.As(err, &format)
}
