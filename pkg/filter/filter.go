package filter

import (
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
	"github.com/scylladb/go-set/strset"
)

// Filter decides whether a directory entry is excluded from a scan based on
// its base name alone. It performs no I/O and is safe for concurrent use.
type Filter struct {
	names    *strset.Set
	prefixes []string
}

// New builds a Filter from exact base names and base-name prefixes.
func New(names []string, prefixes []string) *Filter {
	return &Filter{
		names:    strset.New(names...),
		prefixes: prefixes,
	}
}

// Excluded reports whether an entry with the given base name is excluded.
func (f *Filter) Excluded(name string) bool {
	if f.names.Has(name) {
		return true
	}

	for _, prefix := range f.prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}

	return false
}

// CompilePatterns compiles relative path exclusion patterns. Patterns apply
// to slash-separated paths relative to the scanned root, not base names.
func CompilePatterns(patterns []string) ([]*regexp2.Regexp, error) {
	compiled := make([]*regexp2.Regexp, 0, len(patterns))

	for _, pattern := range patterns {
		re, err := regexp2.Compile(pattern, regexp2.None)
		if err != nil {
			return nil, errors.Wrapf(err, "compile exclusion pattern: %q", pattern)
		}

		compiled = append(compiled, re)
	}

	return compiled, nil
}
