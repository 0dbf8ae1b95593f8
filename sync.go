package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/planea-app/planea-go/internal/sync"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull remote changes, then push local edits",
		Long: `Run one full sync cycle: fetch rows newer than each kind's watermark,
merge them into the local store, then push every locally-dirty row.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			pullReport, err := a.engine.PullOnce(cmd.Context())
			if err != nil {
				return err
			}

			printPullReport(a.logger, pullReport)

			pushReport, err := a.engine.PushOnce(cmd.Context())
			if err != nil {
				return err
			}

			printPushReport(a.logger, pushReport)

			return nil
		},
	}
}

func newPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Fetch and merge remote changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.engine.PullOnce(cmd.Context())
			if err != nil {
				return err
			}

			printPullReport(a.logger, report)

			return nil
		},
	}
}

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Push locally-dirty rows to the remote store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.engine.PushOnce(cmd.Context())
			if err != nil {
				return err
			}

			printPushReport(a.logger, report)

			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the sync engine until interrupted",
		Long: `Run the scheduling loop: an immediate pull, then periodic pulls and
debounced pushes, until SIGINT or SIGTERM. A second signal forces exit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			ctx := shutdownContext(cmd.Context(), a.logger)

			if err := a.engine.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}

			a.logger.Info("sync engine stopped")

			return nil
		},
	}
}

// shutdownContext returns a context that cancels on the first SIGINT or
// SIGTERM and force-exits on the second, so a hung shutdown can still be
// escaped.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit", slog.String("signal", sig.String()))
			os.Exit(1)
		case <-parent.Done():
		}
	}()

	return ctx
}

func printPullReport(logger *slog.Logger, report *sync.PullReport) {
	for _, k := range report.Kinds {
		if k.Err != nil {
			logger.Warn("pull failed",
				slog.String("kind", string(k.Kind)),
				slog.String("error", k.Err.Error()),
			)

			continue
		}

		if k.Fetched == 0 {
			continue
		}

		statusf("%s: %d fetched, %d applied, %d deleted, %d skipped (watermark %s)\n",
			k.Kind, k.Fetched, k.Applied, k.Deleted, k.Skipped, k.Watermark)
	}
}

func printPushReport(_ *slog.Logger, report *sync.PushReport) {
	if report.Pushed+report.Tombstoned+report.Failed == 0 {
		statusf("nothing to push\n")
		return
	}

	statusf("pushed %d, tombstoned %d, failed %d\n",
		report.Pushed, report.Tombstoned, report.Failed)
}

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
