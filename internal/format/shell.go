package format

import (
	"sort"
	"strings"
)

// ShellExports renders secrets as sorted "export KEY=value" lines. Keys are
// upper-cased and a value containing a space is wrapped in single quotes.
func ShellExports(secrets map[string]string) []string {
	lines := make([]string, 0, len(secrets))
	for k, v := range secrets {
		lines = append(lines, "export "+strings.ToUpper(k)+"="+quoteIf(v, " ", "'"))
	}
	sort.Strings(lines)
	return lines
}
