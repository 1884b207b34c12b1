package advisor

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"peakline/internal/feed"
	"peakline/internal/logging"
	"peakline/internal/models"
	"peakline/internal/security"
)

// DefaultLookbackDays is the history loaded per symbol when none is set.
const DefaultLookbackDays = 365

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Window       int
	MinBars      int
	LookbackDays int
	Granularity  feed.Granularity
	Workers      int
}

// ScanResult is the outcome of advising one symbol in a scan.
type ScanResult struct {
	Symbol string       `json:"symbol" yaml:"symbol"`
	Advice *TradeAdvice `json:"advice,omitempty" yaml:"advice,omitempty"`
	Err    error        `json:"-" yaml:"-"`
	Error  string       `json:"error,omitempty" yaml:"error,omitempty"`
	Bars   int          `json:"bars" yaml:"bars"`
}

// Service loads price history for symbols and advises on it.
type Service struct {
	fetcher feed.Fetcher
	advisor *Advisor
	cfg     ServiceConfig
	now     func() time.Time
	logger  zerolog.Logger
}

// NewService creates a service reading candles from fetcher.
func NewService(fetcher feed.Fetcher, cfg ServiceConfig, logger zerolog.Logger) *Service {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultLookbackDays
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Granularity == "" {
		cfg.Granularity = feed.Daily
	}
	return &Service{
		fetcher: fetcher,
		advisor: NewAdvisorWithMinBars(cfg.MinBars),
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

// WithClock replaces the clock used to compute the history window.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Advise loads the symbol's history and advises on it.
func (s *Service) Advise(ctx context.Context, symbol string) (*TradeAdvice, int, error) {
	if err := security.ValidateSymbol(symbol); err != nil {
		return nil, 0, err
	}
	logger := logging.WithSymbol(s.logger, symbol)
	start, end := feed.Window(s.now(), s.cfg.LookbackDays)

	candles, err := s.fetcher.Fetch(ctx, symbol, start, end, s.cfg.Granularity)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load candles")
		return nil, 0, err
	}

	advice, err := s.advisor.Advise(candles, s.cfg.Window)
	if err != nil {
		logger.Error().Err(err).Int("candles", len(candles)).Msg("Rejected candle series")
		return nil, len(candles), err
	}

	logging.LogAdvice(logger, symbol, string(advice.Action), advice.PositionPct, advice.Confidence, advice.Reason)
	return advice, len(candles), nil
}

// Scan advises every symbol with at most cfg.Workers running at once.
// Results are ordered BUY, HOLD, SELL, then failures, with larger positions
// first inside each action.
func (s *Service) Scan(ctx context.Context, symbols []string) []ScanResult {
	if len(symbols) == 0 {
		return nil
	}

	started := time.Now()
	p := pool.NewWithResults[ScanResult]().WithMaxGoroutines(s.cfg.Workers)
	for _, symbol := range symbols {
		symbol := symbol
		p.Go(func() ScanResult {
			if err := ctx.Err(); err != nil {
				return ScanResult{Symbol: symbol, Err: err, Error: err.Error()}
			}
			advice, bars, err := s.Advise(ctx, symbol)
			result := ScanResult{Symbol: symbol, Advice: advice, Bars: bars, Err: err}
			if err != nil {
				result.Error = err.Error()
			}
			return result
		})
	}

	results := p.Wait()
	SortResults(results)

	var buys, sells, failed int
	for _, r := range results {
		switch {
		case r.Advice == nil:
			failed++
		case r.Advice.Action == models.ActionBuy:
			buys++
		case r.Advice.Action == models.ActionSell:
			sells++
		}
	}
	logging.LogScan(s.logger, len(results), buys, sells, failed, time.Since(started))
	return results
}

var actionRank = map[models.Action]int{
	models.ActionBuy:  0,
	models.ActionHold: 1,
	models.ActionSell: 2,
}

// SortResults orders scan results by action, then position, then symbol.
func SortResults(results []ScanResult) {
	rank := func(r ScanResult) int {
		if r.Advice == nil {
			return len(actionRank)
		}
		return actionRank[r.Advice.Action]
	}
	position := func(r ScanResult) int {
		if r.Advice == nil {
			return -1
		}
		return r.Advice.PositionPct
	}

	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := rank(results[i]), rank(results[j])
		if ri != rj {
			return ri < rj
		}
		pi, pj := position(results[i]), position(results[j])
		if pi != pj {
			return pi > pj
		}
		return results[i].Symbol < results[j].Symbol
	})
}
