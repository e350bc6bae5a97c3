package chamber

import (
	"context"
	"regexp"
	"sort"
	"strings"

	dserrors "github.com/systmms/chamber/internal/errors"
)

// Match is one hit of Find.
type Match struct {
	Service string
	Key     string
}

// FindOptions selects what Find compares.
type FindOptions struct {
	// ByValue matches against the (trimmed) secret value instead of the key.
	ByValue bool
	// Regex treats the pattern as an unanchored regular expression. Without it
	// the pattern must equal the whole key or value. Key patterns are folded
	// like every other name when the store folds case.
	Regex bool
}

// Find searches every service. Results are sorted by service then key.
func (s *Store) Find(ctx context.Context, pattern string, opts FindOptions) ([]Match, error) {
	if s.fold && !opts.ByValue && !opts.Regex {
		pattern = strings.ToLower(pattern)
	}
	match := func(candidate string) bool { return candidate == pattern }
	if opts.Regex {
		expr := pattern
		if s.fold && !opts.ByValue {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, dserrors.UserError{
				Message:    "invalid search pattern",
				Details:    err.Error(),
				Suggestion: "Patterns use RE2 syntax",
				Err:        err,
			}
		}
		match = re.MatchString
	}

	services, err := s.backend.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	var out []Match
	for _, svc := range services {
		secrets, err := s.backend.ListSecrets(ctx, svc)
		if err != nil {
			return nil, err
		}
		for k, v := range secrets {
			candidate := k
			if opts.ByValue {
				candidate = strings.TrimSpace(v)
			}
			if match(candidate) {
				out = append(out, Match{Service: svc, Key: k})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Service != out[j].Service {
			return out[i].Service < out[j].Service
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// FindLines renders matches the way the find command prints them: the service
// alone for an exact key search, otherwise service and key separated by a tab.
func FindLines(matches []Match, opts FindOptions) []string {
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		if !opts.ByValue && !opts.Regex {
			lines = append(lines, m.Service)
			continue
		}
		lines = append(lines, m.Service+"\t"+m.Key)
	}
	return lines
}

// FindHeader is the first line printed by the find command.
func FindHeader(opts FindOptions) string {
	if opts.ByValue || opts.Regex {
		return "Service\tKey"
	}
	return "Service"
}
