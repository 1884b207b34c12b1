// Package advisor merges oscillator, trend, level and pattern analysis into a
// single trade recommendation.
package advisor

import (
	"peakline/internal/analysis"
	"peakline/internal/analysis/patterns"
	"peakline/internal/analysis/scoring"
	"peakline/internal/models"
)

// Reason texts with fixed wording.
const (
	ReasonInsufficientData = "insufficient data"
	ReasonNoSetup          = "no high-conviction setup"
	ReasonWait             = "indicators inconclusive, wait for clearer signal"
)

// TradeAdvice is the final recommendation for one series.
type TradeAdvice struct {
	Action           models.Action            `json:"action" yaml:"action"`
	PositionPct      int                      `json:"position_pct" yaml:"position_pct"`
	Reason           string                   `json:"reason" yaml:"reason"`
	Confidence       float64                  `json:"confidence" yaml:"confidence"`
	CurrentPrice     float64                  `json:"current_price" yaml:"current_price"`
	EntryPrice       *float64                 `json:"entry_price,omitempty" yaml:"entry_price,omitempty"`
	StopLoss         *float64                 `json:"stop_loss,omitempty" yaml:"stop_loss,omitempty"`
	TakeProfit       *float64                 `json:"take_profit,omitempty" yaml:"take_profit,omitempty"`
	SupportLevels    []float64                `json:"support_levels" yaml:"support_levels"`
	ResistanceLevels []float64                `json:"resistance_levels" yaml:"resistance_levels"`
	Trend            patterns.TrendAssessment `json:"trend" yaml:"trend"`
	Patterns         []analysis.PatternMatch  `json:"patterns" yaml:"patterns"`

	// Intermediate results, kept for presentation.
	Status scoring.MarketStatus     `json:"market_status" yaml:"market_status"`
	Base   scoring.OscillatorAdvice `json:"base" yaml:"base"`
	Setup  Setup                    `json:"setup" yaml:"setup"`
}

// Setup is the pattern-and-trend recommendation that may override the
// oscillator vote.
type Setup struct {
	Action      models.Action          `json:"action" yaml:"action"`
	Confidence  float64                `json:"confidence" yaml:"confidence"`
	Description string                 `json:"description" yaml:"description"`
	Pattern     *analysis.PatternMatch `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	EntryPrice  *float64               `json:"entry_price,omitempty" yaml:"entry_price,omitempty"`
	StopLoss    *float64               `json:"stop_loss,omitempty" yaml:"stop_loss,omitempty"`
	TakeProfit  *float64               `json:"take_profit,omitempty" yaml:"take_profit,omitempty"`
}
