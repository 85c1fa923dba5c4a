package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fsaudit/fsaudit/pkg/filter"
	"github.com/fsaudit/fsaudit/pkg/logger"
)

// FileRecord describes one regular file found during a scan. Records are
// immutable once produced.
type FileRecord struct {
	// RelPath is the slash-separated path relative to the scanned root and
	// is unique within one scan.
	RelPath string
	// AbsPath is the path usable to open the file.
	AbsPath string
	Size    uint64
	ModTime time.Time
}

// Result holds the outcome of scanning one root.
type Result struct {
	Root  string
	Files map[string]FileRecord // keyed by RelPath

	// Excluded counts entries dropped by name, pattern or accept rules.
	Excluded uint64
	// Errored counts entries dropped because they could not be read or
	// statted mid-walk. Root-level failures are a ScanError instead.
	Errored uint64
}

// AcceptFunc decides whether a scanned record is kept.
type AcceptFunc func(FileRecord) bool

// ScanError reports a root that could not be scanned at all. It is always
// fatal to the run, unlike per-entry failures which are counted and skipped.
type ScanError struct {
	Root string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %q: %v", e.Root, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

type Scanner struct {
	filter   *filter.Filter
	patterns []*regexp2.Regexp
	accept   AcceptFunc
	workers  int
	log      *logrus.Entry
}

type Options struct {
	// Filter excludes entries by base name. Nil means no name exclusions.
	Filter *filter.Filter
	// Patterns exclude files by relative path.
	Patterns []*regexp2.Regexp
	// Accept, when set, is the final gate for a record.
	Accept AcceptFunc
	// Workers bounds the walk concurrency. Zero picks the walker default.
	Workers int
}

func New(opts Options) *Scanner {
	if opts.Filter == nil {
		opts.Filter = filter.New(nil, nil)
	}

	return &Scanner{
		filter:   opts.Filter,
		patterns: opts.Patterns,
		accept:   opts.Accept,
		workers:  opts.Workers,
		log:      logger.GetLogger("scanner"),
	}
}

// Scan walks root and returns a record for every regular file that passed
// the exclusion rules. Directories are always descended into; symlinks are
// not followed and, like every other non-regular entry, never recorded.
func (s *Scanner) Scan(root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &ScanError{Root: root, Err: err}
	}

	if !info.IsDir() {
		return nil, &ScanError{Root: root, Err: errors.New("not a directory")}
	}

	result := &Result{
		Root:  root,
		Files: make(map[string]FileRecord),
	}

	var (
		mu       sync.Mutex
		excluded atomic.Uint64
		errored  atomic.Uint64
	)

	conf := &fastwalk.Config{
		NumWorkers: s.workers,
	}

	walkErr := fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}

			s.log.WithError(err).Warnf("Failed walking: %q", path)
			errored.Add(1)
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if s.filter.Excluded(d.Name()) {
			s.log.Tracef("Excluded by name: %q", path)
			excluded.Add(1)
			return nil
		}

		if !d.Type().IsRegular() {
			s.log.Tracef("Skipping non-regular file: %q", path)
			excluded.Add(1)
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			s.log.WithError(err).Warnf("Failed relativizing: %q", path)
			errored.Add(1)
			return nil
		}
		rel = filepath.ToSlash(rel)

		for _, re := range s.patterns {
			match, matchErr := re.MatchString(rel)
			if matchErr != nil {
				s.log.WithError(matchErr).Warnf("Failed matching pattern against: %q", rel)
				continue
			}
			if match {
				s.log.Tracef("Excluded by pattern: %q", rel)
				excluded.Add(1)
				return nil
			}
		}

		fileInfo, err := d.Info()
		if err != nil {
			s.log.WithError(err).Warnf("Failed to stat: %q", path)
			errored.Add(1)
			return nil
		}

		record := FileRecord{
			RelPath: rel,
			AbsPath: path,
			Size:    uint64(fileInfo.Size()),
			ModTime: fileInfo.ModTime(),
		}

		if s.accept != nil && !s.accept(record) {
			s.log.Tracef("Excluded by filter: %q", rel)
			excluded.Add(1)
			return nil
		}

		mu.Lock()
		result.Files[rel] = record
		mu.Unlock()
		return nil
	})

	if walkErr != nil {
		return nil, &ScanError{Root: root, Err: walkErr}
	}

	result.Excluded = excluded.Load()
	result.Errored = errored.Load()

	s.log.Debugf("Scanned %q: %d files (%d excluded, %d errored)",
		root, len(result.Files), result.Excluded, result.Errored)

	return result, nil
}
