package paths

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		fold bool
		want string
	}{
		{"app/db", false, "app/db"},
		{"/app/db/", false, "app/db"},
		{"App/DB", false, "App/DB"},
		{"App/DB", true, "app/db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in, tt.fold), "Normalize(%q, %v)", tt.in, tt.fold)
	}

	assert.Equal(t, "Port", NormalizeKey("Port", false))
	assert.Equal(t, "port", NormalizeKey("Port", true))
}

func TestValidateService(t *testing.T) {
	t.Parallel()

	valid := []string{"app", "app/db", "a.b/c-d_e"}
	for _, s := range valid {
		assert.NoError(t, ValidateService(s), s)
	}

	invalid := []string{"", "app//db", "app/../etc", "./app", "a\x00b"}
	for _, s := range invalid {
		err := ValidateService(s)
		assert.Error(t, err, s)
		assert.True(t, errors.Is(err, ErrInvalidName), s)
	}
}

func TestValidateKey(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateKey("DATABASE_URL"))
	assert.Error(t, ValidateKey(""))
	assert.Error(t, ValidateKey("a/b"))
	assert.Error(t, ValidateKey(".."))
}

func TestWithin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		target, candidate string
		want              bool
	}{
		{"svc/a", "svc/a", true},
		{"svc/a", "svc/a/b", true},
		{"svc/a", "svc/a/b/c", true},
		{"svc/a", "svc/ab", false},
		{"svc/a", "svc", false},
		{"svc", "svcx/a", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Within(tt.target, tt.candidate), "Within(%q, %q)", tt.target, tt.candidate)
	}
}

func TestArchiveFileNameRoundTrip(t *testing.T) {
	t.Parallel()

	name, err := ArchiveFileName("app/prod/db")
	require.NoError(t, err)
	assert.Equal(t, "app.prod.db.json", name)

	_, err = ArchiveFileName("a.b/c")
	assert.ErrorIs(t, err, ErrNotArchivable)

	svc, ok := ServiceFromArchiveFileName("app.prod.db.json")
	assert.True(t, ok)
	assert.Equal(t, "app/prod/db", svc)

	_, ok = ServiceFromArchiveFileName("notes.txt")
	assert.False(t, ok)
	_, ok = ServiceFromArchiveFileName(".json")
	assert.False(t, ok)
}
