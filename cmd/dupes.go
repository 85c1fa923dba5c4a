package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fsaudit/fsaudit/pkg/duplicates"
	"github.com/fsaudit/fsaudit/pkg/expression"
	"github.com/fsaudit/fsaudit/pkg/logger"
	"github.com/fsaudit/fsaudit/pkg/notification"
	"github.com/fsaudit/fsaudit/pkg/report"
)

func DupesCommand() *cobra.Command {
	var (
		flagOutput   string
		flagMinSize  string
		flagWorkers  int
		flagFilters  []string
		flagProgress bool
	)

	command := &cobra.Command{
		Use:   "dupes [DIR]",
		Short: "Find files with identical content",
		Long: `Groups the files of a directory tree by identical content and reports
every group holding two or more files as CSV.`,

		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			start := time.Now()

			// init core
			if !initialized {
				initCore(true)
				initialized = true
			}

			// set log
			log := logger.GetLogger("dupes")

			noti := notification.NewDiscordSender(log, cfg.Notifications)

			root := args[0]

			minSize, err := humanize.ParseBytes(flagMinSize)
			if err != nil {
				log.WithError(err).Fatalf("Failed parsing min-size: %q", flagMinSize)
			}

			workers := flagWorkers
			if workers <= 0 {
				workers = cfg.Performance.Workers
			}

			ignores, err := expression.Compile(append(append([]string{}, cfg.Filters.Ignore...), flagFilters...))
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

			progress, finishProgress := progressFunc(flagProgress, "Digested", log)

			finder := duplicates.NewFinder(duplicates.Options{
				Scanner:  scan,
				Digester: engine,
				Workers:  workers,
				MinSize:  minSize,
				Progress: progress,
			})

			log.Infof("Finding duplicates under %q (algorithm: %s, workers: %d)",
				root, engine.Algorithm().Name, workers)

			groups, stats, err := finder.Find(root)
			finishProgress()
			if err != nil {
				log.WithError(err).Fatal("Failed finding duplicates")
			}

			if err := report.SaveDuplicates(flagOutput, groups); err != nil {
				log.WithError(err).Fatalf("Failed writing report: %q", flagOutput)
			}

			log.Info("-----")
			log.WithField("wasted_space", humanize.IBytes(stats.WastedBytes)).
				Infof("Found %d duplicate groups (%d files) out of %d scanned in %s",
					stats.Groups, stats.DuplicateFiles, stats.ScannedFiles,
					stats.Elapsed.Truncate(time.Millisecond))
			log.Infof("Digested %d files (%d skipped by unique size, %d below min size)",
				stats.Digested, stats.UniqueSize, stats.BelowMinSize)
			if stats.HardlinkedCopies > 0 {
				log.Infof("Hardlinked copies not counted as waste: %d", stats.HardlinkedCopies)
			}
			if stats.ReadErrors > 0 {
				log.Warnf("Files unreadable during digesting: %d", stats.ReadErrors)
			}
			log.Infof("Report saved to: %q", flagOutput)

			if !noti.CanSend() {
				log.Debug("Notifications disabled, skipping...")
				return
			}

			fields := make([]notification.Field, 0, len(groups))
			for _, group := range groups {
				fields = append(fields, noti.BuildField(notification.ActionDuplicate, notification.BuildOptions{
					Group: group,
				}))
			}

			sendErr := noti.Send(
				"Duplicates",
				fmt.Sprintf("Found **%d** duplicate groups across **%d** files | Wasted **%s**",
					stats.Groups, stats.DuplicateFiles, humanize.IBytes(stats.WastedBytes)),
				time.Since(start),
				fields,
			)
			if sendErr != nil {
				log.WithError(sendErr).Error("Failed sending notification")
			}
		},
	}

	command.Flags().StringVarP(&flagOutput, "output", "o", "duplicates.csv", "Report destination")
	command.Flags().StringVarP(&flagMinSize, "min-size", "m", "1", "Smallest file size considered (accepts units, e.g. 10MiB)")
	command.Flags().IntVarP(&flagWorkers, "workers", "w", 0, "Concurrent digest tasks (defaults to performance.workers)")
	command.Flags().StringSliceVar(&flagFilters, "filter", nil, "Additional ignore expression (repeatable)")
	command.Flags().BoolVar(&flagProgress, "progress", false, "Render a progress bar")

	return command
}
