package advisor

import (
	"context"
	"math"

	"github.com/sourcegraph/conc/pool"

	"peakline/internal/analysis/patterns"
	"peakline/internal/feed"
	"peakline/internal/logging"
	"peakline/internal/models"
	"peakline/internal/security"
)

// Confluence grades how many timeframes agree on the trend direction.
type Confluence string

const (
	ConfluenceStrong   Confluence = "STRONG"   // 3/3 agree
	ConfluenceModerate Confluence = "MODERATE" // 2/3 agree
	ConfluenceNone     Confluence = "NONE"
)

// Timeframes lists the bar periods compared by AdviseTimeframes, shortest
// first.
func Timeframes() []feed.Granularity {
	return []feed.Granularity{feed.Daily, feed.Weekly, feed.Monthly}
}

// Longer periods weigh more in the blended position.
var timeframeWeights = map[feed.Granularity]float64{
	feed.Daily:   0.25,
	feed.Weekly:  0.35,
	feed.Monthly: 0.40,
}

// TimeframeAdvice is the advice for one bar period.
type TimeframeAdvice struct {
	Granularity feed.Granularity `json:"granularity" yaml:"granularity"`
	Bars        int              `json:"bars" yaml:"bars"`
	Advice      *TradeAdvice     `json:"advice,omitempty" yaml:"advice,omitempty"`
	Error       string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// TimeframeReport compares the advice for one symbol across bar periods.
type TimeframeReport struct {
	Symbol          string                  `json:"symbol" yaml:"symbol"`
	Timeframes      []TimeframeAdvice       `json:"timeframes" yaml:"timeframes"`
	Confluence      Confluence              `json:"confluence" yaml:"confluence"`
	TrendAlignment  bool                    `json:"trend_alignment" yaml:"trend_alignment"`
	OverallTrend    patterns.TrendDirection `json:"overall_trend" yaml:"overall_trend"`
	OverallAction   models.Action           `json:"overall_action" yaml:"overall_action"`
	OverallPosition int                     `json:"overall_position" yaml:"overall_position"`
	BullishCount    int                     `json:"bullish" yaml:"bullish"`
	BearishCount    int                     `json:"bearish" yaml:"bearish"`
	NeutralCount    int                     `json:"neutral" yaml:"neutral"`
}

// AdviseTimeframes loads the symbol's daily history once and advises on the
// daily, weekly and monthly series built from it.
func (s *Service) AdviseTimeframes(ctx context.Context, symbol string) (*TimeframeReport, error) {
	if err := security.ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	logger := logging.WithSymbol(s.logger, symbol)
	start, end := feed.Window(s.now(), s.cfg.LookbackDays)

	daily, err := s.fetcher.Fetch(ctx, symbol, start, end, feed.Daily)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load candles")
		return nil, err
	}

	p := pool.NewWithResults[TimeframeAdvice]()
	for _, g := range Timeframes() {
		g := g
		p.Go(func() TimeframeAdvice {
			candles := feed.Resample(daily, g)
			tf := TimeframeAdvice{Granularity: g, Bars: len(candles)}
			advice, err := s.advisor.Advise(candles, s.cfg.Window)
			if err != nil {
				tf.Error = err.Error()
				return tf
			}
			tf.Advice = advice
			return tf
		})
	}
	// Results arrive in completion order.
	byGranularity := make(map[feed.Granularity]TimeframeAdvice)
	for _, tf := range p.Wait() {
		byGranularity[tf.Granularity] = tf
	}

	report := &TimeframeReport{Symbol: symbol}
	for _, g := range Timeframes() {
		report.Timeframes = append(report.Timeframes, byGranularity[g])
	}
	summarizeTimeframes(report)

	logger.Info().
		Str("confluence", string(report.Confluence)).
		Str("trend", string(report.OverallTrend)).
		Str("action", string(report.OverallAction)).
		Int("position_pct", report.OverallPosition).
		Msg("Timeframe advice")
	return report, nil
}

// summarizeTimeframes fills the confluence and overall fields from the
// per-timeframe advice. Timeframes that failed are ignored.
func summarizeTimeframes(r *TimeframeReport) {
	actions := make(map[models.Action]int)
	var weighted, totalWeight float64

	r.BullishCount, r.BearishCount, r.NeutralCount = 0, 0, 0
	for _, tf := range r.Timeframes {
		if tf.Advice == nil {
			continue
		}
		switch tf.Advice.Trend.Direction {
		case patterns.TrendUp:
			r.BullishCount++
		case patterns.TrendDown:
			r.BearishCount++
		default:
			r.NeutralCount++
		}
		actions[tf.Advice.Action]++

		w := timeframeWeights[tf.Granularity]
		weighted += float64(tf.Advice.PositionPct) * w
		totalWeight += w
	}

	agreement := r.BullishCount
	if r.BearishCount > agreement {
		agreement = r.BearishCount
	}
	switch {
	case agreement >= 3:
		r.Confluence = ConfluenceStrong
	case agreement == 2:
		r.Confluence = ConfluenceModerate
	default:
		r.Confluence = ConfluenceNone
	}
	r.TrendAlignment = agreement >= 2

	switch {
	case r.BullishCount == 0 && r.BearishCount == 0:
		r.OverallTrend = patterns.TrendUnknown
	case r.BullishCount > r.BearishCount:
		r.OverallTrend = patterns.TrendUp
	case r.BearishCount > r.BullishCount:
		r.OverallTrend = patterns.TrendDown
	default:
		r.OverallTrend = patterns.TrendSideways
	}

	r.OverallAction = models.ActionHold
	for action, n := range actions {
		if n >= 2 {
			r.OverallAction = action
		}
	}

	r.OverallPosition = 0
	if totalWeight > 0 {
		r.OverallPosition = int(math.Round(weighted / totalWeight))
	}
}
