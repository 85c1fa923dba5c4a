package duplicates

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fsaudit/fsaudit/pkg/logger"
	"github.com/fsaudit/fsaudit/pkg/scanner"
	"github.com/fsaudit/fsaudit/pkg/workerpool"
)

// Digester is the content surface the finder consumes.
type Digester interface {
	Checksum(path string) (string, error)
}

// Progress is invoked after every completed digest task.
type Progress func(done, total uint64)

type Finder struct {
	scanner  *scanner.Scanner
	digester Digester
	workers  int
	minSize  uint64
	progress Progress
	log      *logrus.Entry
}

type Options struct {
	Scanner  *scanner.Scanner
	Digester Digester
	// Workers bounds the digest task pool.
	Workers int
	// MinSize drops files smaller than this before grouping. A value of 1
	// excludes empty files, 0 includes them.
	MinSize  uint64
	Progress Progress
}

func NewFinder(opts Options) *Finder {
	return &Finder{
		scanner:  opts.Scanner,
		digester: opts.Digester,
		workers:  opts.Workers,
		minSize:  opts.MinSize,
		progress: opts.Progress,
		log:      logger.GetLogger("duplicates"),
	}
}

type digestResult struct {
	record scanner.FileRecord
	digest string
	err    error
}

// Find scans root and groups files with identical content. Only sizes with
// at least two members are ever digested; a file whose size has no peer
// cannot be a duplicate. Groups come back sorted by size descending, digest
// ascending, with members sorted by path. Per-file read failures drop that
// file from grouping and never abort the run.
func (f *Finder) Find(root string) ([]Group, *Stats, error) {
	start := time.Now()

	scan, err := f.scanner.Scan(root)
	if err != nil {
		return nil, nil, err
	}

	stats := &Stats{ScannedFiles: len(scan.Files)}

	sizeGroups := make(map[uint64][]scanner.FileRecord)
	for _, record := range scan.Files {
		if record.Size < f.minSize {
			stats.BelowMinSize++
			continue
		}
		sizeGroups[record.Size] = append(sizeGroups[record.Size], record)
	}

	var tasks []scanner.FileRecord
	for _, records := range sizeGroups {
		if len(records) < 2 {
			stats.UniqueSize += len(records)
			continue
		}
		tasks = append(tasks, records...)
	}

	f.log.Infof("Digesting %d candidates across %d shared sizes (skipped %d unique-size, %d below min-size)",
		len(tasks), countSharedSizes(sizeGroups), stats.UniqueSize, stats.BelowMinSize)

	var done atomic.Uint64
	total := uint64(len(tasks))

	results := workerpool.Run(tasks, f.workers, func(record scanner.FileRecord) digestResult {
		digest, err := f.digester.Checksum(record.AbsPath)
		if f.progress != nil {
			f.progress(done.Add(1), total)
		}
		return digestResult{record: record, digest: digest, err: err}
	})

	byDigest := make(map[string][]scanner.FileRecord)
	for _, res := range results {
		if res.err != nil {
			f.log.WithError(res.err).Warnf("Failed digesting: %q", res.record.AbsPath)
			stats.ReadErrors++
			continue
		}
		stats.Digested++
		byDigest[res.digest] = append(byDigest[res.digest], res.record)
	}

	groups := make([]Group, 0, len(byDigest))
	for digest, records := range byDigest {
		if len(records) < 2 {
			continue
		}

		sort.Slice(records, func(i, j int) bool {
			return records[i].AbsPath < records[j].AbsPath
		})

		group := Group{
			Digest: digest,
			Size:   records[0].Size,
			Files:  records,
		}

		wasted, hardlinked := f.groupWaste(group)
		group.Wasted = wasted

		stats.DuplicateFiles += len(records)
		stats.HardlinkedCopies += hardlinked
		stats.WastedBytes += wasted

		groups = append(groups, group)
	}

	// size descending; digest breaks ties so repeated runs emit identical output
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Size != groups[j].Size {
			return groups[i].Size > groups[j].Size
		}
		return groups[i].Digest < groups[j].Digest
	})

	stats.Groups = len(groups)
	stats.Elapsed = time.Since(start)

	return groups, stats, nil
}

// groupWaste computes the reclaimable bytes of one group. Members sharing a
// FileID occupy the same storage and count as a single physical copy.
func (f *Finder) groupWaste(group Group) (wasted uint64, hardlinked int) {
	seen := make(map[FileID]bool, len(group.Files))
	physical := 0

	for _, record := range group.Files {
		id, err := getFileID(record.AbsPath)
		if err != nil {
			// identity unavailable, assume a distinct copy
			f.log.WithError(err).Debugf("Failed resolving file identity: %q", record.AbsPath)
			physical++
			continue
		}

		if seen[id] {
			hardlinked++
			continue
		}

		seen[id] = true
		physical++
	}

	if physical < 1 {
		physical = 1
	}

	return group.Size * uint64(physical-1), hardlinked
}

func countSharedSizes(sizeGroups map[uint64][]scanner.FileRecord) int {
	shared := 0
	for _, records := range sizeGroups {
		if len(records) > 1 {
			shared++
		}
	}
	return shared
}
