package execenv

import (
	"sort"
	"strings"

	dserrors "github.com/systmms/chamber/internal/errors"
	"github.com/systmms/chamber/internal/secure"
)

// DefaultStrictValue marks inherited variables that a service must override.
const DefaultStrictValue = "chamberme"

// Environment is the variable set handed to a launched command. Inherited
// values stay in plain memory; secret values stay sealed until Environ.
type Environment struct {
	base     map[string]string
	secrets  *secure.Env
	expected []string
	sentinel string
}

// NewEnvironment parses inherited NAME=value pairs. When strict is set, every
// inherited variable whose value equals sentinel must later be supplied by a
// service. A pristine environment starts without the inherited variables.
func NewEnvironment(inherited []string, pristine, strict bool, sentinel string) *Environment {
	parsed := ParseEnviron(inherited)

	e := &Environment{
		base:     parsed,
		secrets:  secure.NewEnv(),
		sentinel: sentinel,
	}
	if strict {
		for name, value := range parsed {
			if value == sentinel {
				e.expected = append(e.expected, name)
			}
		}
		sort.Strings(e.expected)
	}
	if pristine {
		e.base = map[string]string{}
	}
	return e
}

// ParseEnviron converts NAME=value pairs into a map. Entries without '=' are
// dropped.
func ParseEnviron(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		out[name] = value
	}
	return out
}

// Merge adds one service's secrets with upper-cased names. Later merges win.
func (e *Environment) Merge(secrets map[string]string) error {
	keys := make([]string, 0, len(secrets))
	for k := range secrets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := e.secrets.Set(strings.ToUpper(k), secrets[k]); err != nil {
			return dserrors.Wrapf(err, "sealing %s", k)
		}
	}
	return nil
}

// Expected returns the inherited variables that carried the strict sentinel.
func (e *Environment) Expected() []string {
	return append([]string(nil), e.expected...)
}

// Check fails on the first expected variable, in name order, that no service
// supplied or that still holds the sentinel.
func (e *Environment) Check() error {
	for _, name := range e.expected {
		v, ok, err := e.secrets.Lookup(name)
		if err != nil {
			return err
		}
		if !ok || v == e.sentinel {
			return dserrors.StrictVariableError{Variable: name, Sentinel: e.sentinel}
		}
	}
	return nil
}

// Names returns the injected secret names in order.
func (e *Environment) Names() []string {
	return e.secrets.Names()
}

// Environ opens every sealed value and returns the final NAME=value list.
func (e *Environment) Environ() ([]string, error) {
	return e.secrets.Environ(e.base)
}

// Destroy drops the sealed values.
func (e *Environment) Destroy() {
	e.secrets.Destroy()
}
