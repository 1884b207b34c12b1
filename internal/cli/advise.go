package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"peakline/internal/advisor"
	"peakline/internal/analysis"
	"peakline/internal/analysis/patterns"
	"peakline/internal/analysis/scoring"
	"peakline/internal/feed"
	"peakline/internal/models"
)

// adviceReport is the structured form of one symbol's advice.
type adviceReport struct {
	Symbol string               `json:"symbol" yaml:"symbol"`
	Bars   int                  `json:"bars" yaml:"bars"`
	Advice *advisor.TradeAdvice `json:"advice" yaml:"advice"`
}

func newAdviseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advise <symbol>",
		Short: "Advise on one symbol",
		Long: `Load a symbol's bars and print the merged recommendation: action,
position size, trend, support/resistance levels, candlestick setups and the
oscillator snapshot behind the vote.

With --file the bars are read straight from a CSV file and the cache is not
used.`,
		Example: `  peakline advise 600519
  peakline advise 600519 --granularity weekly --detail
  peakline advise 600519 --timeframes
  peakline advise demo --file ./bars/demo.csv --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			opts, err := readServiceOptions(cmd)
			if err != nil {
				return err
			}
			file, _ := cmd.Flags().GetString("file")
			detail, _ := cmd.Flags().GetBool("detail")

			if all, _ := cmd.Flags().GetBool("timeframes"); all {
				if file != "" || len(args) != 1 {
					return fmt.Errorf("--timeframes needs a symbol and cannot be combined with --file")
				}
				return adviseTimeframes(cmd, app, output, args[0], opts)
			}

			var report adviceReport
			switch {
			case file != "":
				report, err = adviseFile(app, file, args, opts)
			case len(args) == 1:
				report, err = adviseSymbol(cmd, app, args[0], opts)
			default:
				return fmt.Errorf("a symbol or --file is required")
			}
			if err != nil {
				return err
			}

			if output.IsStructured() {
				return output.Structured(report)
			}
			renderAdvice(output, report, detail)
			return nil
		},
	}

	addServiceFlags(cmd)
	cmd.Flags().StringP("file", "f", "", "read bars from a CSV file instead of the data directory")
	cmd.Flags().BoolP("detail", "d", false, "show the oscillator snapshot")
	cmd.Flags().BoolP("timeframes", "t", false, "compare daily, weekly and monthly advice")
	return cmd
}

func adviseTimeframes(cmd *cobra.Command, app *App, output *Output, symbol string, opts serviceOptions) error {
	offline, _ := cmd.Flags().GetBool("offline")
	fetcher, err := app.Fetcher(offline)
	if err != nil {
		return err
	}
	report, err := app.Service(fetcher, opts).AdviseTimeframes(cmd.Context(), symbol)
	if err != nil {
		return err
	}
	if output.IsStructured() {
		return output.Structured(report)
	}

	output.Printf("%s  %s  %s\n", output.BoldText(symbol), output.Action(report.OverallAction), output.BoldText(fmt.Sprintf("%d%%", report.OverallPosition)))
	output.Dim("confluence %s, trend %s (%d up / %d down / %d other)",
		report.Confluence, report.OverallTrend, report.BullishCount, report.BearishCount, report.NeutralCount)
	output.Println()

	table := NewTable(output, "Period", "Bars", "Action", "Position", "Trend", "Reason")
	for _, tf := range report.Timeframes {
		if tf.Advice == nil {
			table.AddRow(tf.Granularity.String(), fmt.Sprintf("%d", tf.Bars), actionCell(output, nil), "-", "-", output.DimText(TruncateString(tf.Error, 50)))
			continue
		}
		a := tf.Advice
		table.AddRow(
			tf.Granularity.String(),
			fmt.Sprintf("%d", tf.Bars),
			actionCell(output, a),
			fmt.Sprintf("%d%%", a.PositionPct),
			trendLabel(output, a),
			TruncateString(a.Reason, 50),
		)
	}
	table.Render()
	return nil
}

func adviseSymbol(cmd *cobra.Command, app *App, symbol string, opts serviceOptions) (adviceReport, error) {
	offline, _ := cmd.Flags().GetBool("offline")
	fetcher, err := app.Fetcher(offline)
	if err != nil {
		return adviceReport{}, err
	}
	advice, bars, err := app.Service(fetcher, opts).Advise(cmd.Context(), symbol)
	if err != nil {
		return adviceReport{}, err
	}
	return adviceReport{Symbol: symbol, Bars: bars, Advice: advice}, nil
}

func adviseFile(app *App, path string, args []string, opts serviceOptions) (adviceReport, error) {
	candles, err := feed.ReadFile(path)
	if err != nil {
		return adviceReport{}, fmt.Errorf("reading %s: %w", path, err)
	}

	granularity := app.Config.GranularityValue()
	if opts.granularity != "" {
		granularity = opts.granularity
	}
	candles = feed.Resample(candles, granularity)

	window := app.Config.Analysis.Window
	if opts.window > 0 {
		window = opts.window
	}

	symbol := symbolFromPath(path)
	if len(args) == 1 {
		symbol = args[0]
	}

	advice, err := advisor.NewAdvisorWithMinBars(app.Config.Analysis.MinBars).Advise(candles, window)
	if err != nil {
		return adviceReport{}, err
	}
	return adviceReport{Symbol: symbol, Bars: len(candles), Advice: advice}, nil
}

// symbolFromPath derives a symbol from a bar file name: 600519.csv and
// 600519_贵州茅台.csv both give 600519.
func symbolFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.Index(base, "_"); i > 0 {
		return base[:i]
	}
	return base
}

func renderAdvice(output *Output, report adviceReport, detail bool) {
	a := report.Advice

	output.Printf("%s  %s  %s\n", output.BoldText(report.Symbol), output.Action(a.Action), output.BoldText(fmt.Sprintf("%d%%", a.PositionPct)))
	output.Dim("%d bars, last close %s", report.Bars, FormatPrice(a.CurrentPrice))
	output.Println()

	if a.EntryPrice != nil || a.StopLoss != nil || a.TakeProfit != nil {
		output.Printf("  Entry:       %s\n", FormatOptionalPrice(a.EntryPrice))
		output.Printf("  Stop Loss:   %s\n", FormatOptionalPrice(a.StopLoss))
		output.Printf("  Target:      %s\n", FormatOptionalPrice(a.TakeProfit))
		output.Printf("  Confidence:  %s\n", FormatConfidence(a.Confidence))
		output.Println()
	}

	output.Printf("  Trend:       %s", trendLabel(output, a))
	if a.Trend.Description != "" {
		output.Printf("  %s", output.DimText(a.Trend.Description))
	}
	output.Println()
	output.Printf("  Support:     %s\n", FormatLevels(a.SupportLevels))
	output.Printf("  Resistance:  %s\n", FormatLevels(a.ResistanceLevels))

	if len(a.Patterns) > 0 {
		output.Println()
		output.Bold("Patterns")
		for _, p := range a.Patterns {
			label := output.Green(p.Name)
			if p.Polarity != analysis.Bullish {
				label = output.Red(p.Name)
			}
			output.Printf("  %s  %s  %s\n", label, FormatConfidence(p.Confidence), output.DimText(p.Description))
		}
	}

	output.Println()
	output.Bold("Reason")
	output.Printf("  %s\n", a.Reason)

	if detail && a.Status.Available {
		output.Println()
		renderStatus(output, a.Status, a.Base)
	}
}

func trendLabel(output *Output, a *advisor.TradeAdvice) string {
	label := fmt.Sprintf("%s (%s)", a.Trend.Direction, FormatConfidence(a.Trend.Confidence))
	switch a.Trend.Direction {
	case patterns.TrendUp:
		return output.Green(label)
	case patterns.TrendDown:
		return output.Red(label)
	default:
		return output.Yellow(label)
	}
}

func renderStatus(output *Output, s scoring.MarketStatus, base scoring.OscillatorAdvice) {
	output.Bold("Oscillators")
	table := NewTable(output, "Indicator", "State", "Values")
	table.AddRow("MA", string(s.MA.State), fmt.Sprintf("MA5 %.2f  MA10 %.2f  MA20 %.2f", s.MA.MA5, s.MA.MA10, s.MA.MA20))
	table.AddRow("MACD", string(s.MACD.State), fmt.Sprintf("DIF %.3f  DEA %.3f  HIST %.3f (%+.3f)", s.MACD.DIF, s.MACD.DEA, s.MACD.Histogram, s.MACD.HistogramChange))
	table.AddRow("RSI", string(s.RSI.State), fmt.Sprintf("%.1f (%+.1f)", s.RSI.Value, s.RSI.Change))
	table.AddRow("KDJ", string(s.KDJ.State), fmt.Sprintf("K %.1f  D %.1f  J %.1f", s.KDJ.K, s.KDJ.D, s.KDJ.J))
	table.AddRow("Volume", string(s.Volume.State), fmt.Sprintf("%s (%s), 5-bar avg %s", FormatVolume(s.Volume.Value), FormatPercent(s.Volume.ChangePct), FormatVolume(int64(s.Volume.Average))))
	table.AddRow("Channel", string(s.Price.State), fmt.Sprintf("%.0f%% of 20-bar range, %s", s.Price.Position, FormatPercent(s.Price.ChangePct)))
	bbi := "below"
	if s.BBI.Above {
		bbi = "above"
	}
	table.AddRow("BBI", bbi, fmt.Sprintf("%.2f", s.BBI.Value))
	table.Render()

	output.Println()
	output.Printf("  Vote: %s  buy %.3f / sell %.3f\n", output.Action(base.Action), base.BuyStrength, base.SellStrength)
}

func actionCell(output *Output, a *advisor.TradeAdvice) string {
	if a == nil {
		return output.Red("ERROR")
	}
	switch a.Action {
	case models.ActionBuy:
		return output.Green(string(a.Action))
	case models.ActionSell:
		return output.Red(string(a.Action))
	default:
		return output.Yellow(string(a.Action))
	}
}
