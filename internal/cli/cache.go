package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"peakline/internal/advisor"
	"peakline/internal/feed"
	"peakline/internal/logging"
	"peakline/internal/security"
	"peakline/internal/store"
)

func newCacheCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the SQLite candle cache",
		Long: `Import bar files into the SQLite cache, export cached bars, inspect
how fresh each symbol is and clear symbols. The cache always holds daily
bars; weekly and monthly series are resampled on read.`,
	}

	cmd.AddCommand(newCacheImportCmd(app))
	cmd.AddCommand(newCacheExportCmd(app))
	cmd.AddCommand(newCacheStatusCmd(app))
	cmd.AddCommand(newCacheClearCmd(app))
	return cmd
}

// importReport is the structured result of cache import.
type importReport struct {
	Symbol  string    `json:"symbol" yaml:"symbol"`
	Path    string    `json:"path" yaml:"path"`
	Candles int       `json:"candles" yaml:"candles"`
	First   time.Time `json:"first" yaml:"first"`
	Last    time.Time `json:"last" yaml:"last"`
}

func newCacheImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a CSV bar file into the cache",
		Example: `  peakline cache import ./bars/600519.csv
  peakline cache import ./bars/maotai.csv --symbol 600519`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			path := args[0]
			symbol, _ := cmd.Flags().GetString("symbol")
			if symbol == "" {
				symbol = symbolFromPath(path)
			}
			if err := security.ValidateSymbol(symbol); err != nil {
				return err
			}

			report, err := importFile(cmd, app, symbol, path)
			if err != nil {
				return err
			}

			if output.IsStructured() {
				return output.Structured(report)
			}
			output.Success("✓ Imported %d bars for %s (%s to %s)", report.Candles, symbol, FormatDate(report.First), FormatDate(report.Last))
			return nil
		},
	}

	cmd.Flags().StringP("symbol", "s", "", "symbol to store the bars under (default from the file name)")
	return cmd
}

func importFile(cmd *cobra.Command, app *App, symbol, path string) (importReport, error) {
	started := time.Now()
	logger := logging.WithSymbol(logging.FromContext(cmd.Context()), symbol)

	candles, err := feed.ReadFile(path)
	if err == nil && len(candles) == 0 {
		err = fmt.Errorf("%s has no bars", path)
	}
	if err == nil {
		err = advisor.ValidateCandles(candles)
	}
	if err != nil {
		logging.LogImport(logger, symbol, path, len(candles), time.Since(started), err)
		return importReport{}, fmt.Errorf("importing %s: %w", path, err)
	}

	s, err := app.Store()
	if err != nil {
		return importReport{}, err
	}
	if err := s.SaveCandles(cmd.Context(), symbol, feed.Daily.String(), candles); err != nil {
		logging.LogImport(logger, symbol, path, len(candles), time.Since(started), err)
		return importReport{}, err
	}
	if err := s.SetLastSync(store.SyncKey(symbol, feed.Daily.String()), time.Now()); err != nil {
		logger.Warn().Err(err).Msg("Failed to record sync time")
	}
	logging.LogImport(logger, symbol, path, len(candles), time.Since(started), nil)

	return importReport{
		Symbol:  symbol,
		Path:    path,
		Candles: len(candles),
		First:   candles[0].Timestamp,
		Last:    candles[len(candles)-1].Timestamp,
	}, nil
}

func newCacheExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <symbol>",
		Short: "Write a symbol's cached bars as CSV",
		Example: `  peakline cache export 600519
  peakline cache export 600519 --out 600519.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.Store()
			if err != nil {
				return err
			}
			candles, err := s.GetCandles(cmd.Context(), args[0], feed.Daily.String(), time.Time{}, time.Time{})
			if err != nil {
				return err
			}
			if len(candles) == 0 {
				return fmt.Errorf("no cached bars for %s", args[0])
			}

			out, _ := cmd.Flags().GetString("out")
			if out == "" {
				return feed.WriteCSV(cmd.OutOrStdout(), candles)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := feed.WriteCSV(f, candles); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			NewOutput(cmd).Success("✓ Wrote %d bars to %s", len(candles), out)
			return nil
		},
	}

	cmd.Flags().StringP("out", "o", "", "output file (default stdout)")
	return cmd
}

// cacheStatus is one row of cache status.
type cacheStatus struct {
	Symbol      string    `json:"symbol" yaml:"symbol"`
	Candles     int       `json:"candles" yaml:"candles"`
	LastBar     time.Time `json:"last_bar" yaml:"last_bar"`
	LastSync    time.Time `json:"last_sync" yaml:"last_sync"`
	Fresh       bool      `json:"fresh" yaml:"fresh"`
	Description string    `json:"description" yaml:"description"`
}

func newCacheStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status [symbols...]",
		Short: "Show cached bar counts and freshness",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.Store()
			if err != nil {
				return err
			}

			symbols := args
			if len(symbols) == 0 {
				symbols, err = s.Symbols(cmd.Context(), feed.Daily.String())
				if err != nil {
					return err
				}
			}

			now := time.Now()
			maxAge := app.Config.MaxAgeDuration()
			rows := make([]cacheStatus, 0, len(symbols))
			for _, symbol := range symbols {
				candles, err := s.GetCandles(cmd.Context(), symbol, feed.Daily.String(), time.Time{}, time.Time{})
				if err != nil {
					return err
				}
				freshness := store.CheckFreshness(s, store.SyncKey(symbol, feed.Daily.String()), maxAge, now)
				row := cacheStatus{
					Symbol:      symbol,
					Candles:     len(candles),
					LastSync:    freshness.LastUpdated,
					Fresh:       freshness.IsFresh,
					Description: store.FormatFreshness(freshness),
				}
				if len(candles) > 0 {
					row.LastBar = candles[len(candles)-1].Timestamp
				}
				rows = append(rows, row)
			}

			if output.IsStructured() {
				return output.Structured(rows)
			}
			if len(rows) == 0 {
				output.Warning("Cache is empty")
				return nil
			}

			table := NewTable(output, "Symbol", "Bars", "Last Bar", "Sync")
			for _, r := range rows {
				lastBar := "-"
				if !r.LastBar.IsZero() {
					lastBar = FormatDate(r.LastBar)
				}
				sync := output.Green(r.Description)
				if !r.Fresh {
					sync = output.Yellow(r.Description)
				}
				table.AddRow(r.Symbol, fmt.Sprintf("%d", r.Candles), lastBar, sync)
			}
			table.Render()
			return nil
		},
	}
}

func newCacheClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <symbol>",
		Short: "Delete a symbol's cached bars",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.Store()
			if err != nil {
				return err
			}
			n, err := s.DeleteCandles(cmd.Context(), args[0], feed.Daily.String())
			if err != nil {
				return err
			}
			logger := logging.FromContext(cmd.Context())
			logger.Info().Str("symbol", args[0]).Int64("candles", n).Msg("Cache cleared")

			if output.IsStructured() {
				return output.Structured(map[string]interface{}{"symbol": args[0], "deleted": n})
			}
			output.Success("✓ Deleted %d bars for %s", n, args[0])
			return nil
		},
	}
}
