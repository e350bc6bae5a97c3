package chamber

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/chamber/internal/backends/backendtest"
	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/internal/execenv"
	"github.com/systmms/chamber/internal/format"
	"github.com/systmms/chamber/internal/logging"
	"github.com/systmms/chamber/internal/policy"
)

func seeded() *backendtest.Fake {
	return backendtest.NewFake().
		WithSecret("app", "PORT", "8080").
		WithSecret("app", "NAME", "my app").
		WithSecret("app/db", "USER", "admin").
		WithSecret("app/db", "PASSWORD", "hunter2").
		WithSecret("application", "PORT", "9090").
		WithSecret("other", "token", " hunter2 ")
}

func newStore(fake *backendtest.Fake, p policy.Policy) *Store {
	return New(fake, Options{Policy: p, Logger: logging.New(false, true)})
}

func TestReadPolicy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	strict := newStore(seeded(), policy.Strict())
	got, ok, err := strict.Read(ctx, "/app/db/", "USER")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "admin", got.Value)

	_, _, err = strict.Read(ctx, "missing", "USER")
	assert.True(t, dserrors.IsServiceNotFound(err))

	_, _, err = strict.Read(ctx, "app", "MISSING")
	assert.True(t, dserrors.IsSecretNotFound(err))
	assert.Equal(t, "secret not found: 'app/MISSING'", err.Error())

	lenient := newStore(seeded(), policy.Lenient())
	_, ok, err = lenient.Read(ctx, "missing", "USER")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = lenient.Read(ctx, "app", "MISSING")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteNeverRequiresExistence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := backendtest.NewFake()
	s := newStore(fake, policy.Strict())

	require.NoError(t, s.Write(ctx, "new/service", "KEY", "v"))
	assert.Equal(t, map[string]map[string]string{"new/service": {"KEY": "v"}}, fake.Tree())
}

func TestWriteRejectsInvalidNames(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(backendtest.NewFake(), policy.Strict())

	tests := []struct {
		name    string
		service string
		key     string
	}{
		{"empty service", "", "K"},
		{"dot segment", "app/../etc", "K"},
		{"empty key", "app", ""},
		{"slash in key", "app", "a/b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Write(ctx, tt.service, tt.key, "v")
			var userErr dserrors.UserError
			assert.ErrorAs(t, err, &userErr)
		})
	}
}

func TestFoldCase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := backendtest.NewFake()
	s := New(fake, Options{Policy: policy.Strict(), FoldCase: true})

	require.NoError(t, s.Write(ctx, "App/DB", "User", "admin"))
	assert.Equal(t, map[string]map[string]string{"app/db": {"user": "admin"}}, fake.Tree())

	got, ok, err := s.Read(ctx, "APP/db", "USER")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "admin", got.Value)

	services, err := s.ListServices(ctx, "APP", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"app/db"}, services)

	matches, err := s.Find(ctx, "USER", FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []Match{{Service: "app/db", Key: "user"}}, matches)

	matches, err = s.Find(ctx, "^US", FindOptions{Regex: true})
	require.NoError(t, err)
	assert.Equal(t, []Match{{Service: "app/db", Key: "user"}}, matches)

	matches, err = s.Find(ctx, "ADMIN", FindOptions{ByValue: true})
	require.NoError(t, err)
	assert.Empty(t, matches, "values are never folded")

	require.NoError(t, s.Delete(ctx, "App/Db", "uSeR"))
	assert.Empty(t, fake.Tree())
}

func TestDeletePolicy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	fake := seeded()
	require.NoError(t, newStore(fake, policy.Strict()).Delete(ctx, "app", "PORT"))
	assert.NotContains(t, fake.Tree()["app"], "PORT")

	err := newStore(seeded(), policy.Strict()).Delete(ctx, "app", "NOPE")
	assert.True(t, dserrors.IsSecretNotFound(err))

	fake = seeded()
	require.NoError(t, newStore(fake, policy.Lenient()).Delete(ctx, "app", "NOPE"))
	assert.Equal(t, 0, fake.CallCount("Delete"), "a skipped delete never reaches the backend")
}

func TestList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	entries, err := newStore(seeded(), policy.Strict()).List(ctx, "app")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "NAME", entries[0].Key)
	assert.Equal(t, "PORT", entries[1].Key)
	assert.Equal(t, "tester", entries[0].Metadata.Owner)

	entries, err = newStore(seeded(), policy.Lenient()).List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListServices(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(seeded(), policy.Strict())

	tests := []struct {
		name    string
		filter  string
		secrets bool
		want    []string
	}{
		{"all", "", false, []string{"app", "app/db", "application", "other"}},
		{"prefix is a string prefix", "app", false, []string{"app", "app/db", "application"}},
		{"with secrets", "app/", true, []string{"app/db/PASSWORD", "app/db/USER"}},
		{"no match", "zzz", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListServices(ctx, tt.filter, tt.secrets)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(seeded(), policy.Strict())

	tests := []struct {
		name    string
		pattern string
		opts    FindOptions
		want    []string
	}{
		{"exact key", "PORT", FindOptions{}, []string{"app", "application"}},
		{"exact key is anchored", "POR", FindOptions{}, []string{}},
		{"by value trims", "hunter2", FindOptions{ByValue: true}, []string{"app/db\tPASSWORD", "other\ttoken"}},
		{"regex key search", "AS", FindOptions{Regex: true}, []string{"app/db\tPASSWORD"}},
		{"regex value", "^80", FindOptions{ByValue: true, Regex: true}, []string{"app\tPORT"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := s.Find(ctx, tt.pattern, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, FindLines(matches, tt.opts))
		})
	}

	assert.Equal(t, "Service", FindHeader(FindOptions{}))
	assert.Equal(t, "Service\tKey", FindHeader(FindOptions{Regex: true}))

	_, err := s.Find(ctx, "(", FindOptions{Regex: true})
	var userErr dserrors.UserError
	assert.ErrorAs(t, err, &userErr)
}

func TestPrune(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	fake := seeded()
	n, err := newStore(fake, policy.Strict()).Prune(ctx, "app")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	tree := fake.Tree()
	assert.NotContains(t, tree, "app")
	assert.NotContains(t, tree, "app/db")
	assert.Contains(t, tree, "application", "prune matches whole segments only")

	// A parent without secrets of its own still prunes its descendants.
	fake = backendtest.NewFake().WithSecret("a/b/c", "K", "v")
	n, err = newStore(fake, policy.Strict()).Prune(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, fake.Tree())

	_, err = newStore(seeded(), policy.Strict()).Prune(ctx, "nothing")
	assert.True(t, dserrors.IsServiceNotFound(err))

	n, err = newStore(seeded(), policy.Lenient()).Prune(ctx, "nothing")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEnvLines(t *testing.T) {
	t.Parallel()

	lines, err := newStore(seeded(), policy.Strict()).EnvLines(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, []string{"export NAME='my app'", "export PORT=8080"}, lines)
}

func TestExportAndImport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(seeded(), policy.Strict())

	var buf bytes.Buffer
	require.NoError(t, s.Export(ctx, &buf, "app/db", format.Dotenv, format.DefaultOptions()))
	assert.Equal(t, "PASSWORD=\"hunter2\"\nUSER=\"admin\"\n", buf.String())

	err := s.Export(ctx, &buf, "app", "xml", format.DefaultOptions())
	var unknown dserrors.UnknownFormatError
	assert.ErrorAs(t, err, &unknown)

	fake := backendtest.NewFake()
	target := newStore(fake, policy.Strict())
	n, err := target.Import(ctx, "copy", strings.NewReader(`{"b": "2", "a": 1, "c": true}`))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "true"}, fake.Tree()["copy"])
}

func TestImportStopsOnWriteError(t *testing.T) {
	t.Parallel()

	fake := backendtest.NewFake().WithError("Write", errors.New("disk full"))
	n, err := newStore(fake, policy.Strict()).Import(context.Background(), "svc", strings.NewReader(`{"a":"1"}`))
	require.Error(t, err)
	assert.Zero(t, n)
}

func TestExec(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fake := backendtest.NewFake().
		WithSecret("base", "db_host", "base-host").
		WithSecret("base", "port", "1").
		WithSecret("override", "db_host", "override-host")

	var gotEnv []string
	exec := execenv.New(logging.New(false, true)).WithExecFunc(func(_ string, _ []string, envv []string) error {
		gotEnv = envv
		return nil
	})
	s := New(fake, Options{Policy: policy.Strict(), Executor: exec})

	res, err := s.Exec(ctx, ExecRequest{
		Services:  []string{"base", "override"},
		Command:   []string{"sh"},
		Inherited: []string{"PATH=/usr/bin:/bin", "PORT=chamberme"},
		Strict:    true,
		Mode:      execenv.ModeReplace,
	})
	require.NoError(t, err)
	assert.True(t, res.Replaced)
	assert.Equal(t, []string{"DB_HOST=override-host", "PATH=/usr/bin:/bin", "PORT=1"}, gotEnv)
}

func TestExecErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(seeded(), policy.Strict())

	_, err := s.Exec(ctx, ExecRequest{Services: []string{"app"}})
	assert.ErrorIs(t, err, dserrors.ErrCommandMissing)

	_, err = s.Exec(ctx, ExecRequest{Services: []string{"missing"}, Command: []string{"true"}})
	assert.True(t, dserrors.IsServiceNotFound(err))

	_, err = s.Exec(ctx, ExecRequest{
		Services:  []string{"app"},
		Command:   []string{"true"},
		Inherited: []string{"SECRET=chamberme"},
		Strict:    true,
	})
	var strictErr dserrors.StrictVariableError
	require.ErrorAs(t, err, &strictErr)
	assert.Equal(t, "SECRET", strictErr.Variable)
}

func TestCloseOnce(t *testing.T) {
	t.Parallel()

	fake := backendtest.NewFake()
	s := newStore(fake, policy.Strict())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, fake.Closed())
}

func TestCloseRunsHook(t *testing.T) {
	t.Parallel()

	hookErr := errors.New("metrics")
	calls := 0
	fake := backendtest.NewFake()
	s := New(fake, Options{OnClose: func() error {
		calls++
		return hookErr
	}})

	assert.ErrorIs(t, s.Close(), hookErr)
	assert.NoError(t, s.Close())
	assert.Equal(t, 1, calls)
}

func TestExecReplaceClosesStore(t *testing.T) {
	t.Parallel()

	fake := backendtest.NewFake().WithSecret("app", "K", "v")
	exec := execenv.New(logging.New(false, true)).WithExecFunc(func(string, []string, []string) error {
		return nil
	})
	s := New(fake, Options{Policy: policy.Strict(), Executor: exec})

	_, err := s.Exec(context.Background(), ExecRequest{
		Services: []string{"app"},
		Command:  []string{"sh"},
		Mode:     execenv.ModeReplace,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Closed())
}
