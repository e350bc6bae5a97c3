package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/chamber/internal/backends/backendtest"
)

func TestInstrumentCountsResults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := New()
	fake := backendtest.NewFake().WithSecret("app", "K", "v")
	b := Instrument(fake, m)

	_, err := b.Read(ctx, "app", "K")
	require.NoError(t, err)
	_, err = b.Read(ctx, "app", "MISSING")
	require.Error(t, err)
	require.NoError(t, b.Write(ctx, "app", "K2", "v2"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Count("fake", "read", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Count("fake", "read", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Count("fake", "write", "ok")))
	assert.Equal(t, "fake", b.Name())
}

func TestInstrumentCountsErrors(t *testing.T) {
	t.Parallel()

	m := New()
	fake := backendtest.NewFake().WithError("ListServices", errors.New("down"))
	b := Instrument(fake, m)

	_, err := b.ListServices(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Count("fake", "list_services", "error")))
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m := New()
	b := Instrument(backendtest.NewFake(), m)
	require.NoError(t, b.Close())

	path := filepath.Join(t.TempDir(), "chamber.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `chamber_backend_operations_total{backend="fake",operation="close",result="ok"} 1`)
	assert.Contains(t, string(data), "chamber_backend_operation_duration_seconds_bucket")
}
