package secure

import (
	"sort"
)

// Env is a set of environment variables whose values stay sealed until
// Environ is called.
type Env struct {
	vars map[string]*SecureBuffer
}

// NewEnv returns an empty set.
func NewEnv() *Env {
	return &Env{vars: make(map[string]*SecureBuffer)}
}

// Set seals value under name, replacing any earlier value.
func (e *Env) Set(name, value string) error {
	buf, err := NewSecureBufferFromString(value)
	if err != nil {
		return err
	}
	if old, ok := e.vars[name]; ok {
		old.Destroy()
	}
	e.vars[name] = buf
	return nil
}

// Names returns the variable names in order.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.vars))
	for n := range e.vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup decrypts one value.
func (e *Env) Lookup(name string) (string, bool, error) {
	buf, ok := e.vars[name]
	if !ok {
		return "", false, nil
	}
	v, err := buf.Reveal()
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Environ overlays the sealed values on base and returns NAME=value pairs
// sorted by name.
func (e *Env) Environ(base map[string]string) ([]string, error) {
	merged := make(map[string]string, len(base)+len(e.vars))
	for k, v := range base {
		merged[k] = v
	}
	for name, buf := range e.vars {
		v, err := buf.Reveal()
		if err != nil {
			return nil, err
		}
		merged[name] = v
	}

	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out, nil
}

// Destroy drops every sealed value.
func (e *Env) Destroy() {
	for _, buf := range e.vars {
		buf.Destroy()
	}
	e.vars = make(map[string]*SecureBuffer)
}
