// Package analysis provides technical analysis functionality including indicators,
// extrema and pattern detection, and signal scoring.
package analysis

import (
	"time"
)

// Polarity represents the expected direction of a pattern.
type Polarity string

const (
	Bullish Polarity = "bullish"
	Bearish Polarity = "bearish"
)

// PatternMatch represents a candlestick template that fired on the latest bars.
type PatternMatch struct {
	Name        string   `json:"name" yaml:"name"`
	Polarity    Polarity `json:"polarity" yaml:"polarity"`
	Confidence  float64  `json:"confidence" yaml:"confidence"`
	Description string   `json:"description" yaml:"description"`
	EntryPrice  float64  `json:"entry_price" yaml:"entry_price"`
	StopLoss    float64  `json:"stop_loss" yaml:"stop_loss"`
	TakeProfit  *float64 `json:"take_profit,omitempty" yaml:"take_profit,omitempty"`
}

// ExtremumKind distinguishes peaks from valleys.
type ExtremumKind string

const (
	Peak   ExtremumKind = "peak"
	Valley ExtremumKind = "valley"
)

// ExtremumPoint is a confirmed local high or low.
type ExtremumPoint struct {
	Index     int          `json:"index" yaml:"index"`
	Timestamp time.Time    `json:"timestamp" yaml:"timestamp"`
	Price     float64      `json:"price" yaml:"price"`
	Kind      ExtremumKind `json:"kind" yaml:"kind"`
}

// Level represents a support or resistance level.
type Level struct {
	Price float64   `json:"price" yaml:"price"`
	Type  LevelType `json:"type" yaml:"type"`
}

// LevelType represents the type of price level.
type LevelType string

const (
	LevelSupport    LevelType = "support"
	LevelResistance LevelType = "resistance"
)

// Float returns a pointer to v, for optional price fields.
func Float(v float64) *float64 {
	return &v
}
