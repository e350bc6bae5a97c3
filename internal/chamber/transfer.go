package chamber

import (
	"context"
	"io"

	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/internal/format"
)

// EnvLines returns the service's secrets as sorted shell export lines.
func (s *Store) EnvLines(ctx context.Context, service string) ([]string, error) {
	secrets, err := s.Secrets(ctx, service)
	if err != nil {
		return nil, err
	}
	return format.ShellExports(secrets), nil
}

// Export writes the service's secrets to w in the named format.
func (s *Store) Export(ctx context.Context, w io.Writer, service, name string, opts format.Options) error {
	if !format.Supported(name) {
		return dserrors.UnknownFormatError{Format: name}
	}
	secrets, err := s.Secrets(ctx, service)
	if err != nil {
		return err
	}
	return format.Export(w, name, format.FromMap(secrets), opts)
}

// Import reads a JSON object from r and writes every pair into service in key
// order. It returns the number of secrets written.
func (s *Store) Import(ctx context.Context, service string, r io.Reader) (int, error) {
	svc, err := s.serviceName(service)
	if err != nil {
		return 0, err
	}
	doc, err := format.Import(r)
	if err != nil {
		return 0, err
	}
	for i, p := range doc {
		if err := s.Write(ctx, svc, p.Key, p.Value); err != nil {
			return i, err
		}
	}
	s.logger.Debug("Imported %d secrets into %s", len(doc), svc)
	return len(doc), nil
}
