package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_Excluded(t *testing.T) {
	f := New([]string{".DS_Store"}, []string{"._"})

	tests := []struct {
		name     string
		entry    string
		expected bool
	}{
		{"exact match", ".DS_Store", true},
		{"exact match is case sensitive", ".ds_store", false},
		{"prefix match", "._resource-fork", true},
		{"prefix alone", "._", true},
		{"prefix not at start", "a._b", false},
		{"plain file", "report.csv", false},
		{"substring of excluded name", "DS_Store", false},
		{"empty name", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.Excluded(tt.entry))
		})
	}
}

func TestFilter_ExcludedNoRules(t *testing.T) {
	f := New(nil, nil)

	assert.False(t, f.Excluded(".DS_Store"))
	assert.False(t, f.Excluded("._anything"))
}

func TestCompilePatterns(t *testing.T) {
	compiled, err := CompilePatterns([]string{`\.tmp$`, `^build/`})
	require.NoError(t, err)
	require.Len(t, compiled, 2)

	match, err := compiled[0].MatchString("notes/draft.tmp")
	require.NoError(t, err)
	assert.True(t, match)

	match, err = compiled[1].MatchString("build/out.bin")
	require.NoError(t, err)
	assert.True(t, match)

	match, err = compiled[1].MatchString("src/build/out.bin")
	require.NoError(t, err)
	assert.False(t, match)
}

func TestCompilePatterns_Invalid(t *testing.T) {
	_, err := CompilePatterns([]string{`valid`, `(`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile exclusion pattern")
}
