package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fsaudit/fsaudit/pkg/comparison"
	"github.com/fsaudit/fsaudit/pkg/expression"
	"github.com/fsaudit/fsaudit/pkg/logger"
	"github.com/fsaudit/fsaudit/pkg/notification"
	"github.com/fsaudit/fsaudit/pkg/report"
)

func CompareCommand() *cobra.Command {
	var (
		flagOutput           string
		flagMode             string
		flagIncludeIdentical bool
		flagWorkers          int
		flagProgress         bool
	)

	command := &cobra.Command{
		Use:   "compare [LEFT] [RIGHT]",
		Short: "Compare two directory trees",
		Long: `Pairs the files of two directory trees by relative path and reports
presence, size and content equivalence for every path as CSV. By default
only drifted paths are reported.`,

		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			start := time.Now()

			// init core
			if !initialized {
				initCore(true)
				initialized = true
			}

			// set log
			log := logger.GetLogger("compare")

			noti := notification.NewDiscordSender(log, cfg.Notifications)

			leftRoot, rightRoot := args[0], args[1]

			mode, err := comparison.ParseMode(flagMode)
			if err != nil {
				log.WithError(err).Fatal("Failed parsing comparison mode")
			}

			workers := flagWorkers
			if workers <= 0 {
				workers = cfg.Performance.Workers
			}

			ignores, err := expression.Compile(cfg.Filters.Ignore)
			if err != nil {
				log.WithError(err).Fatal("Failed compiling ignore expressions")
			}

			scan, err := newScanner(workers, ignores, log)
			if err != nil {
				log.WithError(err).Fatal("Failed assembling scanner")
			}

			engine, err := newContentEngine()
			if err != nil {
				log.WithError(err).Fatal("Failed assembling content engine")
			}

			progress, finishProgress := progressFunc(flagProgress, "Compared", log)

			pipeline := comparison.New(comparison.Options{
				Scanner:          scan,
				Comparer:         engine,
				Mode:             mode,
				Workers:          workers,
				IncludeIdentical: flagIncludeIdentical,
				Progress:         progress,
			})

			log.Infof("Comparing %q against %q (mode: %s, workers: %d)", leftRoot, rightRoot, mode, workers)

			outcomes, stats, err := pipeline.Run(leftRoot, rightRoot)
			finishProgress()
			if err != nil {
				log.WithError(err).Fatal("Failed comparing trees")
			}

			if err := report.SaveComparison(flagOutput, outcomes); err != nil {
				log.WithError(err).Fatalf("Failed writing report: %q", flagOutput)
			}

			drifted := stats.OnlyLeft + stats.OnlyRight + stats.SizeMismatched + stats.ContentMismatched

			log.Info("-----")
			log.Infof("Compared %d vs %d files in %s", stats.LeftFiles, stats.RightFiles,
				stats.Elapsed.Truncate(time.Millisecond))
			log.Infof("In both trees: %d (%d identical, %d size mismatch, %d content mismatch)",
				stats.InBoth, stats.Identical, stats.SizeMismatched, stats.ContentMismatched)
			log.Infof("Only left: %d / only right: %d", stats.OnlyLeft, stats.OnlyRight)
			if stats.ReadErrors > 0 {
				log.Warnf("Files unreadable during content check: %d", stats.ReadErrors)
			}
			log.Infof("Report saved to: %q", flagOutput)

			if !noti.CanSend() {
				log.Debug("Notifications disabled, skipping...")
				return
			}

			fields := make([]notification.Field, 0, len(outcomes))
			for _, outcome := range outcomes {
				if outcome.Identical() {
					continue
				}
				fields = append(fields, noti.BuildField(notification.ActionDrift, notification.BuildOptions{
					Outcome: outcome,
				}))
			}

			sendErr := noti.Send(
				"Compare",
				fmt.Sprintf("Compared **%d** vs **%d** files | **%d** drifted",
					stats.LeftFiles, stats.RightFiles, drifted),
				time.Since(start),
				fields,
			)
			if sendErr != nil {
				log.WithError(sendErr).Error("Failed sending notification")
			}
		},
	}

	command.Flags().StringVarP(&flagOutput, "output", "o", "comparison_results.csv", "Report destination")
	command.Flags().StringVar(&flagMode, "mode", "checksum", "Content comparison mode (checksum or bytes)")
	command.Flags().BoolVar(&flagIncludeIdentical, "include-identical", false, "Also report identical paths")
	command.Flags().IntVarP(&flagWorkers, "workers", "w", 0, "Concurrent content tasks (defaults to performance.workers)")
	command.Flags().BoolVar(&flagProgress, "progress", false, "Render a progress bar")

	return command
}
