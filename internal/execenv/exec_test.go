package execenv

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/internal/logging"
)

func createTestExecutor() *Executor {
	return New(logging.New(false, true))
}

func TestRunCommandMissing(t *testing.T) {
	t.Parallel()

	env := NewEnvironment(nil, false, false, DefaultStrictValue)
	_, err := createTestExecutor().Run(context.Background(), nil, env, Options{})
	assert.ErrorIs(t, err, dserrors.ErrCommandMissing)
}

func TestRunCommandNotFound(t *testing.T) {
	t.Parallel()

	env := NewEnvironment(nil, false, false, DefaultStrictValue)
	_, err := createTestExecutor().Run(context.Background(), []string{"chamber-no-such-command-xyz"}, env, Options{})
	var cmdErr dserrors.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "chamber-no-such-command-xyz", cmdErr.Command)
}

func TestRunChildBuffered(t *testing.T) {
	t.Parallel()

	env := NewEnvironment([]string{"PATH=/usr/bin:/bin", "INHERITED=yes"}, false, false, DefaultStrictValue)
	require.NoError(t, env.Merge(map[string]string{"token": "s3cret value"}))

	res, err := createTestExecutor().Run(context.Background(),
		[]string{"sh", "-c", `printf '%s|%s' "$TOKEN" "$INHERITED"; printf oops >&2`},
		env, Options{BufferOutput: true})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "s3cret value|yes", string(res.Stdout))
	assert.Equal(t, "oops", string(res.Stderr))
	assert.False(t, res.Replaced)
}

func TestRunChildPristine(t *testing.T) {
	t.Parallel()

	env := NewEnvironment([]string{"INHERITED=yes"}, true, false, DefaultStrictValue)
	require.NoError(t, env.Merge(map[string]string{"A": "1"}))

	var out strings.Builder
	res, err := createTestExecutor().Run(context.Background(),
		[]string{"sh", "-c", `printf '%s:%s' "$A" "${INHERITED-unset}"`},
		env, Options{Stdout: &out})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "1:unset", out.String())
}

func TestRunChildExitCode(t *testing.T) {
	t.Parallel()

	env := NewEnvironment(nil, false, false, DefaultStrictValue)
	res, err := createTestExecutor().Run(context.Background(),
		[]string{"sh", "-c", "exit 3"}, env, Options{BufferOutput: true})
	require.NoError(t, err, "a failing child is not an error")
	assert.Equal(t, 3, res.ExitCode)
}

func TestRunStrictUnsatisfied(t *testing.T) {
	t.Parallel()

	env := NewEnvironment([]string{"ZED=chamberme", "ALPHA=chamberme", "OTHER=x"}, false, true, DefaultStrictValue)
	require.NoError(t, env.Merge(map[string]string{"zed": "filled"}))

	_, err := createTestExecutor().Run(context.Background(), []string{"true"}, env, Options{})
	var strictErr dserrors.StrictVariableError
	require.ErrorAs(t, err, &strictErr)
	assert.Equal(t, "ALPHA", strictErr.Variable)
	assert.Equal(t, "parent env was expecting ALPHA=chamberme, but was not in store", err.Error())
}

func TestRunReplaceUsesExecFunc(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotArgv, gotEnv []string
	exec := createTestExecutor().WithExecFunc(func(argv0 string, argv, envv []string) error {
		gotPath, gotArgv, gotEnv = argv0, argv, envv
		return nil
	})

	env := NewEnvironment([]string{"PATH=/usr/bin:/bin"}, false, false, DefaultStrictValue)
	require.NoError(t, env.Merge(map[string]string{"key": "v"}))

	res, err := exec.Run(context.Background(), []string{"sh", "-c", "env"}, env, Options{Mode: ModeReplace})
	require.NoError(t, err)
	assert.True(t, res.Replaced)
	assert.True(t, strings.HasSuffix(gotPath, "/sh"))
	assert.Equal(t, []string{"sh", "-c", "env"}, gotArgv)
	assert.Equal(t, []string{"KEY=v", "PATH=/usr/bin:/bin"}, gotEnv)
}

func TestRunReplaceFailure(t *testing.T) {
	t.Parallel()

	exec := createTestExecutor().WithExecFunc(func(string, []string, []string) error {
		return errors.New("permission denied")
	})
	env := NewEnvironment(nil, false, false, DefaultStrictValue)

	_, err := exec.Run(context.Background(), []string{"sh"}, env, Options{Mode: ModeReplace})
	var cmdErr dserrors.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Contains(t, cmdErr.Message, "permission denied")
}

func TestRunDebugLogRedactsSecrets(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	executor := New(logging.NewWithWriter(&logs, true, true))

	env := NewEnvironment([]string{"DB_PASSWORD=chamberme"}, true, true, DefaultStrictValue)
	require.NoError(t, env.Merge(map[string]string{"db_password": "hunter2-secret"}))

	res, err := executor.Run(context.Background(),
		[]string{"sh", "-c", "test -n \"$DB_PASSWORD\"", "hunter2-secret"},
		env, Options{BufferOutput: true})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)

	out := logs.String()
	assert.NotContains(t, out, "hunter2-secret", "values never reach the log, even on the command line")
	assert.Contains(t, out, "DB_PASSWORD=[REDACTED]")
	assert.Contains(t, out, "Strict variables supplied: DB_PASSWORD")
}
