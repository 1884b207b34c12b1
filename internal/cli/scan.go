package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"peakline/internal/advisor"
	"peakline/internal/feed"
	"peakline/internal/models"
)

// scanReport is the structured form of a scan.
type scanReport struct {
	RunID   string               `json:"run_id" yaml:"run_id"`
	Results []advisor.ScanResult `json:"results" yaml:"results"`
}

func newScanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [symbols...]",
		Short: "Advise on many symbols in parallel",
		Long: `Advise on every given symbol, or on scan.symbols from the config, or on
every symbol in the cache when neither is set. Results are ordered BUY, HOLD,
SELL with the largest positions first.`,
		Example: `  peakline scan 600519 000001 300750
  peakline scan --workers 8 --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			opts, err := readServiceOptions(cmd)
			if err != nil {
				return err
			}
			offline, _ := cmd.Flags().GetBool("offline")
			fetcher, err := app.Fetcher(offline)
			if err != nil {
				return err
			}

			symbols, err := app.scanSymbols(cmd.Context(), args)
			if err != nil {
				return err
			}
			if len(symbols) == 0 {
				output.Warning("No symbols to scan. Pass symbols, set scan.symbols or import bars with 'peakline cache import'.")
				return nil
			}

			results := app.Service(fetcher, opts).Scan(cmd.Context(), symbols)
			if output.IsStructured() {
				return output.Structured(scanReport{RunID: app.RunID, Results: results})
			}
			renderScan(output, results)
			return nil
		},
	}

	addServiceFlags(cmd)
	cmd.Flags().Int("workers", 0, "symbols advised concurrently (default from config)")
	return cmd
}

// scanSymbols resolves the symbols a scan or watch covers.
func (a *App) scanSymbols(ctx context.Context, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(a.Config.Scan.Symbols) > 0 {
		return a.Config.Scan.Symbols, nil
	}
	s, err := a.Store()
	if err != nil {
		return nil, err
	}
	return s.Symbols(ctx, feed.Daily.String())
}

func renderScan(output *Output, results []advisor.ScanResult) {
	table := NewTable(output, "Symbol", "Action", "Position", "Price", "Trend", "Setup", "Reason")

	var buys, sells, failed int
	for _, r := range results {
		if r.Advice == nil {
			failed++
			table.AddRow(r.Symbol, actionCell(output, nil), "-", "-", "-", "-", output.DimText(TruncateString(r.Error, 60)))
			continue
		}

		a := r.Advice
		switch a.Action {
		case models.ActionBuy:
			buys++
		case models.ActionSell:
			sells++
		}

		setup := "-"
		if a.Setup.Pattern != nil {
			setup = a.Setup.Pattern.Name
		}
		table.AddRow(
			r.Symbol,
			actionCell(output, a),
			fmt.Sprintf("%d%%", a.PositionPct),
			FormatPrice(a.CurrentPrice),
			string(a.Trend.Direction),
			setup,
			TruncateString(a.Reason, 60),
		)
	}
	table.Render()

	output.Println()
	output.Dim("%d symbols: %d buy, %d sell, %d failed", len(results), buys, sells, failed)
}
