// Package archive writes and restores gzip-compressed tar backups of a whole
// secret tree.
//
// A backup named <label>.tgz holds one member per service,
// <label>/<service with "/" replaced by ".">.json, containing the service's
// own pairs as a compact JSON object with sorted keys.
package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/internal/format"
	"github.com/systmms/chamber/internal/logging"
	"github.com/systmms/chamber/internal/paths"
	"github.com/systmms/chamber/pkg/secretstore"
)

const (
	// Ext is the extension given to backups.
	Ext = ".tgz"

	labelSuffix = "_chamber"
	labelLayout = "20060102_150405"
)

// Label returns the default backup label for t.
func Label(t time.Time) string {
	return t.Format(labelLayout) + labelSuffix
}

// LabelFromFileName strips ".tgz" or ".tar.gz" from the base name.
func LabelFromFileName(name string) string {
	base := filepath.Base(name)
	for _, ext := range []string{Ext, ".tar.gz"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Target resolves where a backup goes. With no file name the label is derived
// from now and the file is <label>.tgz. A file name without ".tgz" gets it
// appended, and the label follows the file name so the archive restores.
func Target(outputDir, fileName string, now time.Time) (label, file string, err error) {
	if outputDir == "" {
		outputDir = "."
	}
	if fileName == "" {
		label = Label(now)
		fileName = label + Ext
	} else {
		if !strings.HasSuffix(fileName, Ext) {
			fileName += Ext
		}
		label = LabelFromFileName(fileName)
	}
	file, err = filepath.Abs(filepath.Join(outputDir, fileName))
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve backup path: %w", err)
	}
	return label, file, nil
}

// Document is one service restored from an archive.
type Document struct {
	Service string
	Secrets format.Document
}

// Write streams every service of b into w under label and returns the number
// of services written. Nothing is written when a service name cannot be
// encoded as a member name.
func Write(ctx context.Context, b secretstore.Backend, w io.Writer, label string, now time.Time) (int, error) {
	tree, err := secretstore.Snapshot(ctx, b)
	if err != nil {
		return 0, err
	}

	services := secretstore.SortedKeys(tree)
	members := make(map[string]string, len(services))
	for _, svc := range services {
		name, err := paths.ArchiveFileName(svc)
		if err != nil {
			return 0, dserrors.ArchiveFormatError{Reason: err.Error()}
		}
		members[svc] = name
	}

	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	if err := tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeDir,
		Name:     label + "/",
		Mode:     0o700,
		ModTime:  now,
	}); err != nil {
		return 0, err
	}

	for _, svc := range services {
		var body bytes.Buffer
		opts := format.Options{Compact: true, SortKeys: true}
		if err := format.Export(&body, format.JSON, format.FromMap(tree[svc]), opts); err != nil {
			return 0, err
		}
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     path.Join(label, members[svc]),
			Mode:     0o600,
			Size:     int64(body.Len()),
			ModTime:  now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return 0, err
		}
		if _, err := tw.Write(body.Bytes()); err != nil {
			return 0, err
		}
	}

	if err := tw.Close(); err != nil {
		return 0, err
	}
	if err := gz.Close(); err != nil {
		return 0, err
	}
	return len(tree), nil
}

// Backup writes a backup file and returns its absolute path.
func Backup(ctx context.Context, b secretstore.Backend, outputDir, fileName string, now time.Time) (string, error) {
	label, file, err := Target(outputDir, fileName, now)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", dserrors.UserError{
			Message:    "Cannot create backup file",
			Details:    err.Error(),
			Suggestion: "Check that the output directory exists and is writable",
			Err:        err,
		}
	}
	if _, err := Write(ctx, b, f, label, now); err != nil {
		f.Close()
		os.Remove(file)
		return "", dserrors.Wrapf(err, "writing backup %s", file)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return file, nil
}

// Read decodes and validates a whole archive. Every member must be
// <label>/<name>.json and every document must be an importable object.
func Read(r io.Reader, label string) ([]Document, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, dserrors.ArchiveFormatError{Reason: "not a gzip stream: " + err.Error()}
	}
	defer gz.Close()

	var docs []Document
	seen := make(map[string]bool)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, dserrors.ArchiveFormatError{Reason: "corrupt tar stream: " + err.Error()}
		}

		name := strings.TrimPrefix(path.Clean(hdr.Name), "./")
		dir, base := path.Split(name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if name != label {
				return nil, dserrors.ArchiveFormatError{Reason: fmt.Sprintf("unexpected directory %q, expected %q", hdr.Name, label)}
			}
			continue
		case tar.TypeReg:
		default:
			return nil, dserrors.ArchiveFormatError{Reason: fmt.Sprintf("unexpected member %q", hdr.Name)}
		}

		if path.Clean(dir) != label {
			return nil, dserrors.ArchiveFormatError{Reason: fmt.Sprintf("member %q is not under %q", hdr.Name, label)}
		}
		service, ok := paths.ServiceFromArchiveFileName(base)
		if !ok {
			return nil, dserrors.ArchiveFormatError{Reason: fmt.Sprintf("member %q is not a .json document", hdr.Name)}
		}
		if err := paths.ValidateService(service); err != nil {
			return nil, dserrors.ArchiveFormatError{Reason: err.Error()}
		}
		if seen[service] {
			return nil, dserrors.ArchiveFormatError{Reason: fmt.Sprintf("service %q appears twice", service)}
		}
		seen[service] = true

		doc, err := format.Import(tr)
		if err != nil {
			return nil, dserrors.ArchiveFormatError{Reason: fmt.Sprintf("%s: %s", hdr.Name, dserrors.SimplifyError(err))}
		}
		for _, p := range doc {
			if err := paths.ValidateKey(p.Key); err != nil {
				return nil, dserrors.ArchiveFormatError{Reason: fmt.Sprintf("%s: %s", hdr.Name, err)}
			}
		}
		docs = append(docs, Document{Service: service, Secrets: doc})
	}
	return docs, nil
}

// RestoreOptions controls Restore.
type RestoreOptions struct {
	// Patch merges into the current tree instead of replacing it.
	Patch  bool
	Logger *logging.Logger
}

// Restore validates the archive at file, then (unless patching) deletes every
// secret in b, then imports every document. It returns the number of services
// restored.
func Restore(ctx context.Context, b secretstore.Backend, file string, opts RestoreOptions) (int, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.New(false, true)
	}

	f, err := os.Open(file)
	if err != nil {
		return 0, dserrors.UserError{
			Message:    "Cannot open backup file",
			Details:    err.Error(),
			Suggestion: "Pass the path of a .tgz file written by 'chamber backup'",
			Err:        err,
		}
	}
	defer f.Close()

	docs, err := Read(f, LabelFromFileName(file))
	if err != nil {
		return 0, err
	}

	if !opts.Patch {
		tree, err := secretstore.Snapshot(ctx, b)
		if err != nil {
			return 0, err
		}
		logger.Info("Deleting...")
		for _, svc := range services {
			logger.Debug("  %s", svc)
			for _, key := range secretstore.SortedKeys(tree[svc]) {
				if err := b.Delete(ctx, svc, key); err != nil {
					return 0, err
				}
			}
		}
	}

	logger.Info("Importing %d services...", len(docs))
	for _, doc := range docs {
		logger.Debug("  %s", doc.Service)
		for _, p := range doc.Secrets {
			if err := b.Write(ctx, doc.Service, p.Key, p.Value); err != nil {
				return 0, err
			}
		}
	}
	return len(docs), nil
}
