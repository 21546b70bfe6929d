package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/silbinarywolf/simple-game/internal/e2e"
)

type runOptions struct {
	gamePkg     string
	binary      string
	tags        string
	report      string
	db          string
	logsDir     string
	transport   string
	filter      string
	concurrency int
	verbose     bool
	noShots     bool
}

func newRunCmd() *cobra.Command {
	var options runOptions
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Build the game and run feature files, exits 1 if any scenario fails",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeatures(cmd.Context(), args, options)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&options.gamePkg, "game", "./cmd/simple-game", "main package of the game to build")
	flags.StringVar(&options.binary, "binary", "", "use this game binary instead of building one")
	flags.StringVar(&options.tags, "tags", "", "build tags for the game, ie. headless")
	flags.StringVar(&options.report, "report", "", "write a YAML report to this file")
	flags.StringVar(&options.db, "db", e2e.DefaultHistoryFile, "SQLite file for run history, empty to disable")
	flags.StringVar(&options.logsDir, "logs", e2e.DefaultLogsDir, "directory for per scenario logs and screenshots")
	flags.StringVar(&options.transport, "transport", e2e.TransportWebSocket, "bridge transport: ws or webrtc")
	flags.StringVar(&options.filter, "filter", "", "only run scenarios matching this tag expression, ie. @smoke")
	flags.IntVar(&options.concurrency, "concurrency", 1, "scenarios to run at once")
	flags.BoolVarP(&options.verbose, "verbose", "v", false, "show godog's step by step output")
	flags.BoolVar(&options.noShots, "no-screenshots", false, "skip the per step screenshots")
	return cmd
}

func runFeatures(ctx context.Context, paths []string, options runOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	binary := options.binary
	if binary == "" {
		log.Info("building game", "package", options.gamePkg, "tags", options.tags)
		var err error
		binary, err = e2e.BuildGame(ctx, e2e.BuildOptions{
			Package: options.gamePkg,
			Tags:    options.tags,
		})
		if err != nil {
			return errors.Wrap(err, "unable to build game")
		}
		log.Debug("built game", "binary", binary)
	}

	var history *e2e.History
	if options.db != "" {
		var err error
		history, err = e2e.OpenHistory(options.db)
		if err != nil {
			return err
		}
		defer history.Close()
	}

	var godogOutput io.Writer = io.Discard
	if options.verbose {
		godogOutput = os.Stdout
	}
	reporter := e2e.NewReporter(os.Stdout)
	summary, err := e2e.Run(ctx, e2e.Options{
		Paths:         paths,
		Binary:        binary,
		LogsDir:       options.logsDir,
		Transport:     options.transport,
		Tags:          options.filter,
		Concurrency:   options.concurrency,
		NoScreenshots: options.noShots,
		Output:        godogOutput,
		History:       history,
		Reporter:      reporter,
		Log:           log.Default(),
	})
	if err != nil {
		return err
	}
	reporter.Summary(summary)

	if options.report != "" {
		if err := e2e.WriteReport(options.report, summary); err != nil {
			return err
		}
		log.Info("wrote report", "path", options.report)
	}
	if !summary.OK() {
		return errors.Errorf("%d of %d scenarios failed", summary.Failed, len(summary.Scenarios))
	}
	return nil
}
