package cmd

import (
	"path"
	"path/filepath"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/fsaudit/fsaudit/pkg/config"
	"github.com/fsaudit/fsaudit/pkg/content"
	"github.com/fsaudit/fsaudit/pkg/expression"
	"github.com/fsaudit/fsaudit/pkg/filter"
	"github.com/fsaudit/fsaudit/pkg/logger"
	"github.com/fsaudit/fsaudit/pkg/runtime"
	"github.com/fsaudit/fsaudit/pkg/scanner"
)

var (
	// Global flags
	FlagLogLevel     = 0
	FlagConfigFile   = "config.yaml"
	FlagConfigFolder = config.GetDefaultConfigDirectory("fsaudit", "config.yaml")
	FlagLogFile      = ""

	// Global vars
	cfg         *config.Config
	initialized bool
)

// progressLogInterval is how many completed tasks pass between progress log
// lines when no progress bar is rendered.
const progressLogInterval = 500

func initCore(showAppInfo bool) {
	// init logging
	logFilePath := ""
	if FlagLogFile != "" {
		logFilePath = filepath.Join(FlagConfigFolder, FlagLogFile)
	}

	if err := logger.Init(FlagLogLevel, logFilePath); err != nil {
		logrus.WithError(err).Fatal("Failed initializing logger")
	}

	// load config
	c, err := config.Load(filepath.Join(FlagConfigFolder, FlagConfigFile))
	if err != nil {
		logrus.WithError(err).Fatal("Failed loading configuration")
	}
	cfg = c

	// show app info
	if showAppInfo {
		showUsing()
	}
}

func showUsing() {
	log := logger.GetLogger("app")
	log.Infof("Using VERSION: %s (%s@%s)", runtime.Version, runtime.GitCommit, runtime.Timestamp)
	log.Infof("Using CONFIG_DIR: %q", FlagConfigFolder)
	if FlagLogFile != "" {
		log.Infof("Using LOG_FILE: %q", filepath.Join(FlagConfigFolder, FlagLogFile))
	}
}

// newScanner assembles a tree scanner from the configured exclusion rules,
// optionally gated by compiled ignore expressions.
func newScanner(workers int, ignores []expression.CompiledExpression, log *logrus.Entry) (*scanner.Scanner, error) {
	patterns, err := filter.CompilePatterns(cfg.Exclusions.Patterns)
	if err != nil {
		return nil, err
	}

	opts := scanner.Options{
		Filter:   filter.New(cfg.Exclusions.Names, cfg.Exclusions.Prefixes),
		Patterns: patterns,
		Workers:  workers,
	}

	if len(ignores) > 0 {
		opts.Accept = acceptFunc(ignores, log)
	}

	return scanner.New(opts), nil
}

// acceptFunc adapts ignore expressions into the scan gate. A record matching
// any expression is dropped from the scan result.
func acceptFunc(ignores []expression.CompiledExpression, log *logrus.Entry) scanner.AcceptFunc {
	return func(record scanner.FileRecord) bool {
		f := &expression.File{
			Name:    path.Base(record.RelPath),
			Ext:     path.Ext(record.RelPath),
			Dir:     path.Dir(record.RelPath),
			Path:    record.RelPath,
			Size:    record.Size,
			ModTime: record.ModTime,
		}

		match, reason, err := expression.CheckFileSingleMatchWithReason(f, ignores)
		if err != nil {
			log.WithError(err).Warnf("Failed evaluating ignore expressions against: %q", record.RelPath)
			return true
		}

		if match {
			log.Tracef("Ignoring %q, matched: %q", record.RelPath, reason)
			return false
		}

		return true
	}
}

// newContentEngine builds the content engine from the configured algorithm,
// buffer size and optional io limit.
func newContentEngine() (*content.Engine, error) {
	algo, err := content.AlgorithmByName(cfg.Checksum.Algorithm)
	if err != nil {
		return nil, err
	}

	bufferSize, err := cfg.ReadBufferSize()
	if err != nil {
		return nil, err
	}

	ioLimit, err := cfg.IOLimit()
	if err != nil {
		return nil, err
	}

	opts := content.EngineOptions{
		Algorithm:  algo,
		BufferSize: bufferSize,
	}

	if ioLimit > 0 {
		// the limiter is taken once per buffer-sized read
		reads := int(ioLimit) / bufferSize
		if reads < 1 {
			reads = 1
		}
		opts.Limiter = ratelimit.New(reads, ratelimit.WithoutSlack)
	}

	return content.NewEngine(opts), nil
}

// progressFunc returns a per-task progress callback plus a finish func to be
// called once all tasks completed. With showBar set a terminal progress bar
// is rendered, otherwise progress is logged every progressLogInterval tasks.
func progressFunc(showBar bool, label string, log *logrus.Entry) (func(done, total uint64), func()) {
	if !showBar {
		fn := func(done, total uint64) {
			if done%progressLogInterval == 0 || done == total {
				log.Infof("%s %d/%d", label, done, total)
			}
		}
		return fn, func() {}
	}

	var (
		mu  sync.Mutex
		bar *pb.ProgressBar
	)

	fn := func(done, total uint64) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			bar = pb.New64(int64(total)).Start()
		}

		// tasks complete out of order, never move the bar backwards
		if int64(done) > bar.Current() {
			bar.SetCurrent(int64(done))
		}
	}

	finish := func() {
		mu.Lock()
		defer mu.Unlock()

		if bar != nil {
			bar.Finish()
		}
	}

	return fn, finish
}
