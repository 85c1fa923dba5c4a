package duplicates

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsaudit/fsaudit/pkg/content"
	"github.com/fsaudit/fsaudit/pkg/scanner"
)

func writeFile(t *testing.T, root, rel string, data []byte) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func testDigester(t *testing.T) *content.Engine {
	t.Helper()

	algo, err := content.AlgorithmByName("blake3")
	require.NoError(t, err)
	return content.NewEngine(content.EngineOptions{Algorithm: algo})
}

func newTestFinder(t *testing.T, opts Options) *Finder {
	t.Helper()

	if opts.Scanner == nil {
		opts.Scanner = scanner.New(scanner.Options{})
	}
	if opts.Digester == nil {
		opts.Digester = testDigester(t)
	}
	return NewFinder(opts)
}

func TestFinder_Find(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big-1.bin", []byte("duplicate-data"))
	writeFile(t, root, "sub/big-2.bin", []byte("duplicate-data"))
	writeFile(t, root, "sub/deep/big-3.bin", []byte("duplicate-data"))
	writeFile(t, root, "small-1.txt", []byte("abcd"))
	writeFile(t, root, "small-2.txt", []byte("abcd"))
	writeFile(t, root, "decoy.txt", []byte("wxyz")) // shares size, not content
	writeFile(t, root, "unique.bin", []byte("unique-size-content!"))

	f := newTestFinder(t, Options{MinSize: 1})
	groups, stats, err := f.Find(root)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// largest first
	big := groups[0]
	assert.Equal(t, uint64(14), big.Size)
	assert.Equal(t, 3, big.Count())
	small := groups[1]
	assert.Equal(t, uint64(4), small.Size)
	assert.Equal(t, 2, small.Count())

	// members sorted by path, all sharing the group size
	paths := make([]string, 0, big.Count())
	for _, rec := range big.Files {
		assert.Equal(t, big.Size, rec.Size)
		paths = append(paths, rec.AbsPath)
	}
	assert.True(t, sort.StringsAreSorted(paths))

	assert.Equal(t, 7, stats.ScannedFiles)
	assert.Equal(t, 1, stats.UniqueSize)
	assert.Equal(t, 6, stats.Digested)
	assert.Equal(t, 2, stats.Groups)
	assert.Equal(t, 5, stats.DuplicateFiles)
	assert.Equal(t, uint64(14*2+4*1), stats.WastedBytes)
	assert.Equal(t, 0, stats.ReadErrors)
}

func TestFinder_Find_MinSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "tiny-1.txt", []byte("aa"))
	writeFile(t, root, "tiny-2.txt", []byte("aa"))
	writeFile(t, root, "big-1.bin", []byte("above the threshold"))
	writeFile(t, root, "big-2.bin", []byte("above the threshold"))

	f := newTestFinder(t, Options{MinSize: 10})
	groups, stats, err := f.Find(root)
	require.NoError(t, err)

	require.Len(t, groups, 1)
	assert.Equal(t, uint64(19), groups[0].Size)
	assert.Equal(t, 2, stats.BelowMinSize)
}

func TestFinder_Find_EmptyFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "empty-1", nil)
	writeFile(t, root, "empty-2", nil)

	// default-style threshold of one byte excludes empty files
	f := newTestFinder(t, Options{MinSize: 1})
	groups, stats, err := f.Find(root)
	require.NoError(t, err)
	assert.Empty(t, groups)
	assert.Equal(t, 2, stats.BelowMinSize)

	// a zero threshold groups them
	f = newTestFinder(t, Options{MinSize: 0})
	groups, stats, err = f.Find(root)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].Count())
	assert.Equal(t, uint64(0), stats.WastedBytes)
}

type countingDigester struct {
	inner Digester

	mu    sync.Mutex
	paths []string
}

func (c *countingDigester) Checksum(path string) (string, error) {
	c.mu.Lock()
	c.paths = append(c.paths, path)
	c.mu.Unlock()
	return c.inner.Checksum(path)
}

func TestFinder_Find_UniqueSizesNeverDigested(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pair-1.bin", []byte("expensive read"))
	writeFile(t, root, "pair-2.bin", []byte("expensive read"))
	unique := writeFile(t, root, "lonely.bin", []byte("no other file has this size"))

	counter := &countingDigester{inner: testDigester(t)}
	f := newTestFinder(t, Options{Digester: counter, MinSize: 1})

	_, stats, err := f.Find(root)
	require.NoError(t, err)

	assert.Len(t, counter.paths, 2)
	assert.NotContains(t, counter.paths, unique)
	assert.Equal(t, 1, stats.UniqueSize)
	assert.Equal(t, 2, stats.Digested)
}

func TestFinder_Find_DeterministicOrdering(t *testing.T) {
	root := t.TempDir()
	// two groups with identical sizes force the digest tie-break
	writeFile(t, root, "a-1.bin", []byte("11111111"))
	writeFile(t, root, "a-2.bin", []byte("11111111"))
	writeFile(t, root, "b-1.bin", []byte("22222222"))
	writeFile(t, root, "b-2.bin", []byte("22222222"))

	f := newTestFinder(t, Options{MinSize: 1})

	first, _, err := f.Find(root)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Less(t, first[0].Digest, first[1].Digest)

	second, _, err := f.Find(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

type flakyDigester struct {
	inner  Digester
	failOn string
}

func (f *flakyDigester) Checksum(path string) (string, error) {
	if filepath.Base(path) == f.failOn {
		return "", &content.ReadError{Path: path, Err: errors.New("injected failure")}
	}
	return f.inner.Checksum(path)
}

func TestFinder_Find_ReadErrorDropsCandidate(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "copy-1.bin", []byte("shared bytes"))
	writeFile(t, root, "copy-2.bin", []byte("shared bytes"))
	writeFile(t, root, "copy-3.bin", []byte("shared bytes"))

	f := newTestFinder(t, Options{
		Digester: &flakyDigester{inner: testDigester(t), failOn: "copy-2.bin"},
		MinSize:  1,
	})

	groups, stats, err := f.Find(root)
	require.NoError(t, err, "per-file failures must not fail the run")

	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].Count())
	assert.Equal(t, 1, stats.ReadErrors)
	assert.Equal(t, 2, stats.Digested)
}

func TestFinder_Find_HardlinksNotCountedAsWaste(t *testing.T) {
	root := t.TempDir()
	original := writeFile(t, root, "a.bin", []byte("hardlink-payload"))
	if err := os.Link(original, filepath.Join(root, "b.bin")); err != nil {
		t.Skipf("hardlinks not supported: %v", err)
	}
	writeFile(t, root, "c.bin", []byte("hardlink-payload"))

	f := newTestFinder(t, Options{MinSize: 1})
	groups, stats, err := f.Find(root)
	require.NoError(t, err)

	require.Len(t, groups, 1)
	group := groups[0]
	assert.Equal(t, 3, group.Count())

	// two physical copies: the linked pair occupies one
	assert.Equal(t, group.Size*1, group.Wasted)
	assert.Equal(t, 1, stats.HardlinkedCopies)
	assert.Equal(t, group.Size, stats.WastedBytes)
}

func TestFinder_Find_ScanErrorIsFatal(t *testing.T) {
	f := newTestFinder(t, Options{MinSize: 1})

	groups, stats, err := f.Find(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Nil(t, groups)
	assert.Nil(t, stats)

	var scanErr *scanner.ScanError
	require.ErrorAs(t, err, &scanErr)
}

func TestFinder_Find_NoDuplicates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", []byte("one"))
	writeFile(t, root, "b.txt", []byte("three"))
	writeFile(t, root, "c.txt", []byte("seventeen"))

	f := newTestFinder(t, Options{MinSize: 1})
	groups, stats, err := f.Find(root)
	require.NoError(t, err)

	assert.Empty(t, groups)
	assert.Equal(t, 0, stats.Groups)
	assert.Equal(t, 3, stats.UniqueSize)
	assert.Equal(t, uint64(0), stats.WastedBytes)
}

func TestFinder_Find_Progress(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "x-1", []byte("pair"))
	writeFile(t, root, "x-2", []byte("pair"))
	writeFile(t, root, "y-1", []byte("pear"))
	writeFile(t, root, "y-2", []byte("pear"))

	var calls, lastTotal atomic.Uint64
	f := newTestFinder(t, Options{
		MinSize: 1,
		Progress: func(done, total uint64) {
			calls.Add(1)
			lastTotal.Store(total)
		},
	})

	_, _, err := f.Find(root)
	require.NoError(t, err)

	assert.Equal(t, uint64(4), calls.Load())
	assert.Equal(t, uint64(4), lastTotal.Load())
}
