package comparison

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scylladb/go-set/strset"
	"github.com/sirupsen/logrus"

	"github.com/fsaudit/fsaudit/pkg/logger"
	"github.com/fsaudit/fsaudit/pkg/scanner"
	"github.com/fsaudit/fsaudit/pkg/workerpool"
)

// Comparer is the content equivalence surface the pipeline consumes.
type Comparer interface {
	Checksum(path string) (string, error)
	Equal(pathA, pathB string) (bool, error)
}

// Progress is invoked after every completed content task.
type Progress func(done, total uint64)

type Pipeline struct {
	scanner          *scanner.Scanner
	comparer         Comparer
	mode             Mode
	workers          int
	includeIdentical bool
	progress         Progress
	log              *logrus.Entry
}

type Options struct {
	Scanner  *scanner.Scanner
	Comparer Comparer
	Mode     Mode
	// Workers bounds the content task pool.
	Workers int
	// IncludeIdentical keeps rows whose content matched in both trees;
	// by default only drift is reported.
	IncludeIdentical bool
	Progress         Progress
}

func New(opts Options) *Pipeline {
	mode := opts.Mode
	if mode == "" {
		mode = ModeChecksum
	}

	return &Pipeline{
		scanner:          opts.Scanner,
		comparer:         opts.Comparer,
		mode:             mode,
		workers:          opts.Workers,
		includeIdentical: opts.IncludeIdentical,
		progress:         opts.Progress,
		log:              logger.GetLogger("comparison"),
	}
}

type task struct {
	rel   string
	left  scanner.FileRecord
	right scanner.FileRecord
}

type taskResult struct {
	outcome  Outcome
	readErrs int
}

// Run scans both roots, pairs files by relative path and evaluates size and
// content equivalence for every pair. Rows come back sorted by relative
// path. A root that cannot be scanned fails the run before any row exists;
// per-file read failures degrade that row's content verdict to unknown.
func (p *Pipeline) Run(leftRoot, rightRoot string) ([]Outcome, *Stats, error) {
	start := time.Now()

	var (
		wg        sync.WaitGroup
		leftScan  *scanner.Result
		rightScan *scanner.Result
		leftErr   error
		rightErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		leftScan, leftErr = p.scanner.Scan(leftRoot)
	}()
	go func() {
		defer wg.Done()
		rightScan, rightErr = p.scanner.Scan(rightRoot)
	}()
	wg.Wait()

	if leftErr != nil {
		return nil, nil, leftErr
	}
	if rightErr != nil {
		return nil, nil, rightErr
	}

	leftSet := strset.New()
	for rel := range leftScan.Files {
		leftSet.Add(rel)
	}

	rightSet := strset.New()
	for rel := range rightScan.Files {
		rightSet.Add(rel)
	}

	onlyLeft := strset.Difference(leftSet, rightSet).List()
	onlyRight := strset.Difference(rightSet, leftSet).List()
	both := strset.Intersection(leftSet, rightSet).List()

	p.log.Infof("Scanned trees: %d vs %d files (%d only left, %d only right, %d in both)",
		len(leftScan.Files), len(rightScan.Files), len(onlyLeft), len(onlyRight), len(both))

	tasks := make([]task, 0, len(both))
	for _, rel := range both {
		tasks = append(tasks, task{
			rel:   rel,
			left:  leftScan.Files[rel],
			right: rightScan.Files[rel],
		})
	}

	var done atomic.Uint64
	total := uint64(len(tasks))

	taskResults := workerpool.Run(tasks, p.workers, func(tsk task) taskResult {
		res := p.compareTask(tsk)
		if p.progress != nil {
			p.progress(done.Add(1), total)
		}
		return res
	})

	stats := &Stats{
		LeftFiles:  len(leftScan.Files),
		RightFiles: len(rightScan.Files),
		OnlyLeft:   len(onlyLeft),
		OnlyRight:  len(onlyRight),
		InBoth:     len(both),
	}

	outcomes := make([]Outcome, 0, len(both)+len(onlyLeft)+len(onlyRight))

	for _, res := range taskResults {
		stats.ReadErrors += res.readErrs

		switch {
		case res.outcome.SizeSame == VerdictDiffer:
			stats.SizeMismatched++
		case res.outcome.ContentSame == VerdictDiffer:
			stats.ContentMismatched++
		case res.outcome.ContentSame == VerdictSame:
			stats.Identical++
		}

		if res.outcome.Identical() && !p.includeIdentical {
			continue
		}

		outcomes = append(outcomes, res.outcome)
	}

	for _, rel := range onlyLeft {
		outcomes = append(outcomes, Outcome{RelPath: rel, InLeft: true})
	}
	for _, rel := range onlyRight {
		outcomes = append(outcomes, Outcome{RelPath: rel, InRight: true})
	}

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].RelPath < outcomes[j].RelPath
	})

	stats.Elapsed = time.Since(start)

	return outcomes, stats, nil
}

func (p *Pipeline) compareTask(tsk task) taskResult {
	out := Outcome{RelPath: tsk.rel, InLeft: true, InRight: true}

	// content is never examined for mismatched sizes, its verdict stays unknown
	if tsk.left.Size != tsk.right.Size {
		out.SizeSame = VerdictDiffer
		out.ContentSame = VerdictUnknown
		return taskResult{outcome: out}
	}

	out.SizeSame = VerdictSame

	switch p.mode {
	case ModeBytes:
		equal, err := p.comparer.Equal(tsk.left.AbsPath, tsk.right.AbsPath)
		if err != nil {
			p.log.WithError(err).Warnf("Failed comparing content: %q", tsk.rel)
			out.ContentSame = VerdictUnknown
			return taskResult{outcome: out, readErrs: 1}
		}
		out.ContentSame = verdictOf(equal)

	default:
		leftSum, err := p.comparer.Checksum(tsk.left.AbsPath)
		if err != nil {
			p.log.WithError(err).Warnf("Failed checksumming: %q", tsk.left.AbsPath)
			out.ContentSame = VerdictUnknown
			return taskResult{outcome: out, readErrs: 1}
		}

		rightSum, err := p.comparer.Checksum(tsk.right.AbsPath)
		if err != nil {
			p.log.WithError(err).Warnf("Failed checksumming: %q", tsk.right.AbsPath)
			out.ContentSame = VerdictUnknown
			return taskResult{outcome: out, readErrs: 1}
		}

		out.ContentSame = verdictOf(leftSum == rightSum)
	}

	return taskResult{outcome: out}
}

func verdictOf(same bool) Verdict {
	if same {
		return VerdictSame
	}
	return VerdictDiffer
}
