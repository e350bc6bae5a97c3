package execenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/systmms/chamber/internal/errors"
)

func TestParseEnviron(t *testing.T) {
	t.Parallel()

	got := ParseEnviron([]string{"A=1", "B=x=y", "EMPTY=", "junk", "=nameless"})
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "EMPTY": ""}, got)
}

func TestEnvironmentMergeOrder(t *testing.T) {
	t.Parallel()

	env := NewEnvironment([]string{"HOME=/home/me", "DB_HOST=inherited"}, false, false, DefaultStrictValue)
	defer env.Destroy()

	require.NoError(t, env.Merge(map[string]string{"db_host": "first", "port": "5432"}))
	require.NoError(t, env.Merge(map[string]string{"DB_HOST": "second"}))

	vars, err := env.Environ()
	require.NoError(t, err)
	assert.Equal(t, []string{"DB_HOST=second", "HOME=/home/me", "PORT=5432"}, vars)
	assert.Equal(t, []string{"DB_HOST", "PORT"}, env.Names())
}

func TestEnvironmentPristine(t *testing.T) {
	t.Parallel()

	env := NewEnvironment([]string{"HOME=/home/me", "NEED=chamberme"}, true, true, DefaultStrictValue)
	defer env.Destroy()

	assert.Equal(t, []string{"NEED"}, env.Expected(), "sentinels are collected before the environment is dropped")

	vars, err := env.Environ()
	require.NoError(t, err)
	assert.Empty(t, vars)

	var strictErr dserrors.StrictVariableError
	assert.ErrorAs(t, env.Check(), &strictErr)

	require.NoError(t, env.Merge(map[string]string{"need": "ok"}))
	assert.NoError(t, env.Check())
}

func TestEnvironmentStrict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sentinel string
		merged   map[string]string
		wantVar  string
	}{
		{"satisfied", "chamberme", map[string]string{"b": "1", "c": "2"}, ""},
		{"first missing in name order", "chamberme", map[string]string{"b": "1"}, "C"},
		{"value still sentinel", "chamberme", map[string]string{"b": "chamberme", "c": "2"}, "B"},
		{"custom sentinel", "fillme", map[string]string{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := NewEnvironment([]string{"B=chamberme", "C=chamberme", "D=other"}, false, true, tt.sentinel)
			defer env.Destroy()
			require.NoError(t, env.Merge(tt.merged))

			err := env.Check()
			if tt.wantVar == "" {
				assert.NoError(t, err)
				return
			}
			var strictErr dserrors.StrictVariableError
			require.ErrorAs(t, err, &strictErr)
			assert.Equal(t, tt.wantVar, strictErr.Variable)
		})
	}
}

func TestEnvironmentNotStrict(t *testing.T) {
	t.Parallel()

	env := NewEnvironment([]string{"B=chamberme"}, false, false, DefaultStrictValue)
	defer env.Destroy()
	assert.Empty(t, env.Expected())
	assert.NoError(t, env.Check())
}
