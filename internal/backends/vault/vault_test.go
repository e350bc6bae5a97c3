package vault

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/chamber/internal/backends/backendtest"
	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/pkg/secretstore"
)

func TestVaultContract(t *testing.T) {
	backendtest.RunBackendContractTests(t, backendtest.BackendTestCase{
		Name: BackendName,
		New: func(t *testing.T) secretstore.Backend {
			return New(NewMemoryKV())
		},
	})
}

func TestOnePathPerSecret(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := NewMemoryKV()
	b := New(kv)

	require.NoError(t, b.Write(ctx, "app", "db", "value"))
	require.NoError(t, b.Write(ctx, "app/db", "USER", "admin"))
	require.NoError(t, b.Write(ctx, "app/db", "PASS", "pw"))

	assert.Equal(t, []string{"app/db", "app/db/PASS", "app/db/USER"}, kv.Paths())

	entry, err := kv.Get(ctx, "app/db/USER", "USER")
	require.NoError(t, err)
	assert.Equal(t, "admin", entry.Value)

	// A key may share its name with a child service.
	services, err := b.ListServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "app/db"}, services)

	secrets, err := b.ListSecrets(ctx, "app")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"db": "value"}, secrets)
}

func TestVersionsAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := NewMemoryKV()
	b := New(kv)

	require.NoError(t, b.Write(ctx, "app", "TOKEN", "one"))
	require.NoError(t, b.Write(ctx, "app", "TOKEN", "two"))
	require.NoError(t, b.Write(ctx, "app", "TOKEN", "three"))

	got, err := b.Read(ctx, "app", "TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "three", got.Value)
	assert.Equal(t, 3, got.Metadata.Version)
	assert.Equal(t, secretstore.UnknownOwner, got.Metadata.Owner)

	require.NoError(t, b.Delete(ctx, "app", "TOKEN"))
	assert.Empty(t, kv.Paths(), "delete removes every version")
}

type failingKV struct {
	*MemoryKV
	err error
}

func (f failingKV) List(ctx context.Context, path string) ([]string, error) {
	return nil, f.err
}

func TestListFailureIsWrapped(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection refused")
	b := New(failingKV{MemoryKV: NewMemoryKV(), err: boom})

	_, err := b.ListServices(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, dserrors.IsNotFound(err))
}
