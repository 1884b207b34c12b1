package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"peakline/internal/advisor"
	"peakline/internal/logging"
	"peakline/internal/notify"
)

func newWatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [symbols...]",
		Short: "Re-run the scan on a cron schedule",
		Long: `Run the scan on the schedule.cron expression (or --cron) until
interrupted. Each run gets its own run id in the log and every advice is
logged as an event. When a symbol's action changes between runs a notification
is printed and, if configured, posted to the webhook.`,
		Example: `  peakline watch 600519 000001
  peakline watch --cron "*/30 9-15 * * 1-5" --now`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			opts, err := readServiceOptions(cmd)
			if err != nil {
				return err
			}
			offline, err := cmd.Flags().GetBool("offline")
			if err != nil {
				return err
			}
			fetcher, err := app.Fetcher(offline)
			if err != nil {
				return err
			}

			expr, err := cmd.Flags().GetString("cron")
			if err != nil {
				return err
			}
			if expr == "" {
				expr = app.Config.Schedule.Cron
			}
			symbols, err := app.scanSymbols(cmd.Context(), args)
			if err != nil {
				return err
			}
			if len(symbols) == 0 {
				return fmt.Errorf("no symbols to watch")
			}

			notifier := notify.NewMultiNotifier(app.Config.Notify)
			if !output.IsStructured() {
				notifier.AddChannel(notify.NewTerminalNotifier(cmd.OutOrStdout(), app.Config.Notify.Bell, output.colorEnabled))
			}

			w := &watcher{
				service:  app.Service(fetcher, opts),
				symbols:  symbols,
				output:   output,
				notifier: notifier,
				tracker:  notify.NewSignalTracker(),
				logger:   logging.WithOperation(logging.FromContext(cmd.Context()), "watch"),
			}
			runNow, err := cmd.Flags().GetBool("now")
			if err != nil {
				return err
			}
			return w.Run(cmd.Context(), expr, runNow)
		},
	}

	addServiceFlags(cmd)
	cmd.Flags().Int("workers", 0, "symbols advised concurrently (default from config)")
	cmd.Flags().String("cron", "", "cron expression (default schedule.cron)")
	cmd.Flags().Bool("now", false, "run once immediately before waiting for the schedule")
	return cmd
}

// watcher runs scheduled scans.
type watcher struct {
	service  *advisor.Service
	symbols  []string
	output   *Output
	notifier notify.Notifier
	tracker  *notify.SignalTracker
	logger   zerolog.Logger
}

// Run schedules scans on the cron expression expr and blocks until ctx is done.
func (w *watcher) Run(ctx context.Context, expr string, runNow bool) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	id, err := c.AddFunc(expr, func() { w.scan(ctx) })
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	if runNow {
		w.scan(ctx)
	}

	c.Start()
	next := c.Entry(id).Next
	w.logger.Info().Str("cron", expr).Int("symbols", len(w.symbols)).Time("next_run", next).Msg("Watch started")
	if !w.output.IsStructured() {
		w.output.Info("Watching %d symbols on %q, next run %s", len(w.symbols), expr, next.Format(time.RFC3339))
	}

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	w.logger.Info().Msg("Watch stopped")
	return nil
}

func (w *watcher) scan(ctx context.Context) {
	runID := logging.NewRunID()
	logger := logging.WithRunID(w.logger, runID)
	started := time.Now()

	results := w.service.Scan(ctx, w.symbols)
	logger.Info().Int("symbols", len(results)).Dur("duration", time.Since(started)).Msg("Scheduled scan finished")
	w.notify(ctx, logger, results)

	if w.output.IsStructured() {
		if err := w.output.Structured(scanReport{RunID: runID, Results: results}); err != nil {
			logger.Error().Err(err).Msg("Failed to write scan output")
		}
		return
	}
	w.output.Bold("Scan %s", started.Format("2006-01-02 15:04:05"))
	renderScan(w.output, results)
	w.output.Println()
}

// notify sends a notification for every changed action and every failure.
func (w *watcher) notify(ctx context.Context, logger zerolog.Logger, results []advisor.ScanResult) {
	if w.notifier == nil || w.tracker == nil {
		return
	}
	for _, change := range w.tracker.Update(results) {
		logging.LogSignalChange(logger, change.Symbol, string(change.Previous), string(change.Current), change.PositionPct)
		if err := w.notifier.SendSignal(ctx, change); err != nil {
			logger.Warn().Err(err).Str("symbol", change.Symbol).Msg("Failed to send signal notification")
		}
	}
	for _, r := range results {
		if r.Err == nil || ctx.Err() != nil {
			continue
		}
		if err := w.notifier.SendError(ctx, r.Err, r.Symbol); err != nil {
			logger.Warn().Err(err).Str("symbol", r.Symbol).Msg("Failed to send error notification")
		}
	}
}
