package expression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile([]string{`Size > `})
	require.Error(t, err)

	// non-boolean expressions are rejected at compile time
	_, err = Compile([]string{`Size + 1`})
	require.Error(t, err)
}

func TestCheckFileSingleMatch(t *testing.T) {
	exprs, err := Compile([]string{
		`Ext == ".iso"`,
		`Size > 1048576 && Name startsWith "movie"`,
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		file     File
		expected bool
		reason   string
	}{
		{
			name:     "extension match",
			file:     File{Name: "ubuntu.iso", Ext: ".iso", Size: 100},
			expected: true,
			reason:   `Ext == ".iso"`,
		},
		{
			name:     "size and prefix match",
			file:     File{Name: "movie-cut.mkv", Ext: ".mkv", Size: 2097152},
			expected: true,
			reason:   `Size > 1048576 && Name startsWith "movie"`,
		},
		{
			name:     "no match",
			file:     File{Name: "notes.txt", Ext: ".txt", Size: 42},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, reason, err := CheckFileSingleMatchWithReason(&tt.file, exprs)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, match)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestCheckFileSingleMatch_AgeDays(t *testing.T) {
	exprs, err := Compile([]string{`AgeDays() > 30`})
	require.NoError(t, err)

	oldFile := &File{Name: "stale.log", ModTime: time.Now().Add(-40 * 24 * time.Hour)}
	match, err := CheckFileSingleMatch(oldFile, exprs)
	require.NoError(t, err)
	assert.True(t, match)

	freshFile := &File{Name: "fresh.log", ModTime: time.Now()}
	match, err = CheckFileSingleMatch(freshFile, exprs)
	require.NoError(t, err)
	assert.False(t, match)
}
