// Package backendtest provides the shared contract suite and an in-memory fake
// for secretstore.Backend implementations.
package backendtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/pkg/secretstore"
)

// BackendTestCase describes one backend under contract test.
type BackendTestCase struct {
	// Name is the expected value of Backend.Name().
	Name string

	// New returns a fresh, empty backend. It is called once per subtest.
	New func(t *testing.T) secretstore.Backend
}

// RunBackendContractTests runs the behavior every backend must share.
func RunBackendContractTests(t *testing.T, tc BackendTestCase) {
	t.Helper()

	require.NotNil(t, tc.New, "New cannot be nil")
	require.NotEmpty(t, tc.Name, "test case name cannot be empty")

	t.Run("Name", func(t *testing.T) {
		b := open(t, tc)
		assert.Equal(t, tc.Name, b.Name())
	})

	t.Run("WriteThenRead", func(t *testing.T) {
		testWriteThenRead(t, open(t, tc))
	})

	t.Run("Overwrite", func(t *testing.T) {
		testOverwrite(t, open(t, tc))
	})

	t.Run("DeleteThenRead", func(t *testing.T) {
		testDeleteThenRead(t, open(t, tc))
	})

	t.Run("MissingSecret", func(t *testing.T) {
		testMissingSecret(t, open(t, tc))
	})

	t.Run("ListServices", func(t *testing.T) {
		testListServices(t, open(t, tc))
	})

	t.Run("ListMetadata", func(t *testing.T) {
		testListMetadata(t, open(t, tc))
	})

	t.Run("AwkwardValues", func(t *testing.T) {
		testAwkwardValues(t, open(t, tc))
	})
}

func open(t *testing.T, tc BackendTestCase) secretstore.Backend {
	t.Helper()
	b := tc.New(t)
	t.Cleanup(func() {
		assert.NoError(t, b.Close())
	})
	return b
}

func testWriteThenRead(t *testing.T, b secretstore.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, "app", "PORT", "8080"))
	require.NoError(t, b.Write(ctx, "app", "NAME", "svc one"))

	got, err := b.Read(ctx, "app", "PORT")
	require.NoError(t, err)
	assert.Equal(t, "app", got.Service)
	assert.Equal(t, "PORT", got.Key)
	assert.Equal(t, "8080", got.Value)

	// Other secrets in the service are untouched.
	all, err := b.ListSecrets(ctx, "app")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"PORT": "8080", "NAME": "svc one"}, all)
}

func testOverwrite(t *testing.T, b secretstore.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, "app", "TOKEN", "first"))
	require.NoError(t, b.Write(ctx, "app", "TOKEN", "second"))

	got, err := b.Read(ctx, "app", "TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Value)
}

func testDeleteThenRead(t *testing.T, b secretstore.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, "app/db", "USER", "admin"))
	require.NoError(t, b.Write(ctx, "app/db", "PASS", "pw"))
	require.NoError(t, b.Delete(ctx, "app/db", "USER"))

	_, err := b.Read(ctx, "app/db", "USER")
	assert.True(t, dserrors.IsSecretNotFound(err), "expected secret not found, got %v", err)

	remaining, err := b.ListSecrets(ctx, "app/db")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"PASS": "pw"}, remaining)

	// Removing the last secret removes the service.
	require.NoError(t, b.Delete(ctx, "app/db", "PASS"))
	services, err := b.ListServices(ctx)
	require.NoError(t, err)
	assert.NotContains(t, services, "app/db")
}

func testMissingSecret(t *testing.T, b secretstore.Backend) {
	ctx := context.Background()

	_, err := b.Read(ctx, "nope", "KEY")
	assert.True(t, dserrors.IsSecretNotFound(err), "read: expected secret not found, got %v", err)

	err = b.Delete(ctx, "nope", "KEY")
	assert.True(t, dserrors.IsSecretNotFound(err), "delete: expected secret not found, got %v", err)

	secrets, err := b.ListSecrets(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, secrets)

	meta, err := b.ListMetadata(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, meta)
}

func testListServices(t *testing.T, b secretstore.Backend) {
	ctx := context.Background()

	services, err := b.ListServices(ctx)
	require.NoError(t, err)
	assert.Empty(t, services)

	require.NoError(t, b.Write(ctx, "svc", "ROOT", "1"))
	require.NoError(t, b.Write(ctx, "svc/a", "A", "2"))
	require.NoError(t, b.Write(ctx, "svc/a/deep", "D", "3"))
	require.NoError(t, b.Write(ctx, "svc/ab", "AB", "4"))
	require.NoError(t, b.Write(ctx, "other/x/y", "Y", "5"))

	services, err = b.ListServices(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"svc", "svc/a", "svc/a/deep", "svc/ab", "other/x/y"}, services)

	// Descendants are never folded into a parent's listing.
	secrets, err := b.ListSecrets(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ROOT": "1"}, secrets)
}

func testListMetadata(t *testing.T, b secretstore.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Write(ctx, "meta", "ONE", "1"))
	require.NoError(t, b.Write(ctx, "meta", "TWO", "2"))

	meta, err := b.ListMetadata(ctx, "meta")
	require.NoError(t, err)
	require.Len(t, meta, 2)
	for key, m := range meta {
		assert.GreaterOrEqual(t, m.Version, 1, "version for %s", key)
		assert.NotEmpty(t, m.Owner, "owner for %s", key)
	}

	got, err := b.Read(ctx, "meta", "ONE")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Metadata.Version, 1)
}

func testAwkwardValues(t *testing.T, b secretstore.Backend) {
	ctx := context.Background()

	values := map[string]string{
		"COMMA":     "a,b",
		"TAB":       "a\tb",
		"NEWLINE":   "line1\nline2\n",
		"QUOTES":    `say "hi" 'there'`,
		"EMPTY":     "",
		"UNICODE":   "pässwörd ✓",
		"SENTINEL":  "chamberme",
		"LEADINGWS": "  padded  ",
	}
	for k, v := range values {
		require.NoError(t, b.Write(ctx, "odd", k, v))
	}

	got, err := b.ListSecrets(ctx, "odd")
	require.NoError(t, err)
	assert.Equal(t, values, got)
}
