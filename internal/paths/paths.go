// Package paths implements the naming grammar for services and secret keys.
//
// A service is a "/"-separated path of non-empty segments, for example
// "app/prod/db". Services form a tree: "app/prod/db" is a descendant of
// "app/prod" and of "app", but not of "app/pro". A key names one secret inside
// a service and never contains "/".
//
// Case folding is a single store-wide switch. Callers pass the same fold flag
// to every function here so that reads, writes, deletes and listings agree on
// what a name means.
package paths

import (
	"errors"
	"fmt"
	"strings"
)

// Separator divides service path segments.
const Separator = "/"

// ArchiveExt is the suffix of a per-service document inside a backup archive.
const ArchiveExt = ".json"

// ErrInvalidName is wrapped by every validation failure.
var ErrInvalidName = errors.New("invalid name")

// Normalize trims surrounding separators and applies case folding.
func Normalize(name string, fold bool) string {
	name = strings.Trim(name, Separator)
	if fold {
		name = strings.ToLower(name)
	}
	return name
}

// NormalizeKey applies case folding to a secret key.
func NormalizeKey(key string, fold bool) string {
	if fold {
		return strings.ToLower(key)
	}
	return key
}

// ValidateService checks a normalized service path.
func ValidateService(service string) error {
	if service == "" {
		return fmt.Errorf("%w: empty service name", ErrInvalidName)
	}
	for _, seg := range Split(service) {
		switch {
		case seg == "":
			return fmt.Errorf("%w: service %q has an empty segment", ErrInvalidName, service)
		case seg == "." || seg == "..":
			return fmt.Errorf("%w: service %q contains %q", ErrInvalidName, service, seg)
		case strings.ContainsRune(seg, 0):
			return fmt.Errorf("%w: service %q contains a NUL byte", ErrInvalidName, service)
		}
	}
	return nil
}

// ValidateKey checks a secret key.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty key", ErrInvalidName)
	case strings.Contains(key, Separator):
		return fmt.Errorf("%w: key %q contains %q", ErrInvalidName, key, Separator)
	case key == "." || key == "..":
		return fmt.Errorf("%w: key %q", ErrInvalidName, key)
	case strings.ContainsRune(key, 0):
		return fmt.Errorf("%w: key %q contains a NUL byte", ErrInvalidName, key)
	}
	return nil
}

// Split returns the segments of a service path.
func Split(service string) []string {
	if service == "" {
		return nil
	}
	return strings.Split(service, Separator)
}

// Join builds a service path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, Separator)
}

// Within reports whether candidate is target or one of its descendants.
// Matching is by whole segment: "svc/a" contains "svc/a/b" but not "svc/ab".
func Within(target, candidate string) bool {
	if candidate == target {
		return true
	}
	return strings.HasPrefix(candidate, target+Separator)
}

// ErrNotArchivable is returned for services whose archive member name would
// decode to a different service.
var ErrNotArchivable = errors.New("service segment contains '.'")

// ArchiveFileName encodes a service path as a flat archive member name.
// Segments are joined with ".", so a segment containing "." is rejected.
func ArchiveFileName(service string) (string, error) {
	if strings.Contains(service, ".") {
		return "", fmt.Errorf("%w: %q", ErrNotArchivable, service)
	}
	return strings.ReplaceAll(service, Separator, ".") + ArchiveExt, nil
}

// ServiceFromArchiveFileName reverses ArchiveFileName.
func ServiceFromArchiveFileName(name string) (string, bool) {
	if !strings.HasSuffix(name, ArchiveExt) {
		return "", false
	}
	stem := strings.TrimSuffix(name, ArchiveExt)
	if stem == "" {
		return "", false
	}
	return strings.ReplaceAll(stem, ".", Separator), true
}
