// Package patterns provides extrema, level, trend and candlestick pattern detection.
package patterns

import (
	"peakline/internal/analysis"
	"peakline/internal/models"
)

// DefaultWindow is the number of bars on each side needed to confirm an extremum.
const DefaultWindow = 3

// ExtremaDetector identifies peaks and valleys confirmed by strict dominance
// over the window bars on each side.
type ExtremaDetector struct {
	window int
}

// NewExtremaDetector creates a detector. A non-positive window falls back to DefaultWindow.
func NewExtremaDetector(window int) *ExtremaDetector {
	if window <= 0 {
		window = DefaultWindow
	}
	return &ExtremaDetector{window: window}
}

func (d *ExtremaDetector) Name() string {
	return "ExtremaDetector"
}

// Window returns the confirmation window.
func (d *ExtremaDetector) Window() int {
	return d.window
}

// MarkedCandle is a candle annotated with its extremum flags.
type MarkedCandle struct {
	models.Candle
	IsPeak      bool
	PeakPrice   float64
	IsValley    bool
	ValleyPrice float64
}

// Mark returns a copy of candles with peak and valley flags set.
// The high and low checks are independent, so one bar may be both.
func (d *ExtremaDetector) Mark(candles []models.Candle) []MarkedCandle {
	marked := make([]MarkedCandle, len(candles))
	for i, c := range candles {
		marked[i] = MarkedCandle{Candle: c}
	}

	n := d.window
	if len(candles) < 2*n+1 {
		return marked
	}

	for i := n; i < len(candles)-n; i++ {
		if d.isPeak(candles, i) {
			marked[i].IsPeak = true
			marked[i].PeakPrice = candles[i].High
		}
		if d.isValley(candles, i) {
			marked[i].IsValley = true
			marked[i].ValleyPrice = candles[i].Low
		}
	}

	return marked
}

// Detect returns every extremum in chronological order. A bar flagged as both
// yields its peak before its valley.
func (d *ExtremaDetector) Detect(candles []models.Candle) []analysis.ExtremumPoint {
	var points []analysis.ExtremumPoint
	for i, m := range d.Mark(candles) {
		if m.IsPeak {
			points = append(points, analysis.ExtremumPoint{
				Index:     i,
				Timestamp: m.Timestamp,
				Price:     m.PeakPrice,
				Kind:      analysis.Peak,
			})
		}
		if m.IsValley {
			points = append(points, analysis.ExtremumPoint{
				Index:     i,
				Timestamp: m.Timestamp,
				Price:     m.ValleyPrice,
				Kind:      analysis.Valley,
			})
		}
	}
	return points
}

func (d *ExtremaDetector) isPeak(candles []models.Candle, i int) bool {
	for j := 1; j <= d.window; j++ {
		if candles[i].High <= candles[i-j].High || candles[i].High <= candles[i+j].High {
			return false
		}
	}
	return true
}

func (d *ExtremaDetector) isValley(candles []models.Candle, i int) bool {
	for j := 1; j <= d.window; j++ {
		if candles[i].Low >= candles[i-j].Low || candles[i].Low >= candles[i+j].Low {
			return false
		}
	}
	return true
}

// Peaks filters points down to peaks, preserving order.
func Peaks(points []analysis.ExtremumPoint) []analysis.ExtremumPoint {
	return filterKind(points, analysis.Peak)
}

// Valleys filters points down to valleys, preserving order.
func Valleys(points []analysis.ExtremumPoint) []analysis.ExtremumPoint {
	return filterKind(points, analysis.Valley)
}

func filterKind(points []analysis.ExtremumPoint, kind analysis.ExtremumKind) []analysis.ExtremumPoint {
	var out []analysis.ExtremumPoint
	for _, p := range points {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// RecentPoints holds the tail of an extrema history.
type RecentPoints struct {
	Peaks   []analysis.ExtremumPoint
	Valleys []analysis.ExtremumPoint
	All     []analysis.ExtremumPoint
}

// RecentExtrema returns the last n peaks, the last n valleys and the last n
// points of the merged sequence, each chronological.
func RecentExtrema(points []analysis.ExtremumPoint, n int) RecentPoints {
	return RecentPoints{
		Peaks:   tail(Peaks(points), n),
		Valleys: tail(Valleys(points), n),
		All:     tail(points, n),
	}
}

func tail(points []analysis.ExtremumPoint, n int) []analysis.ExtremumPoint {
	if n <= 0 {
		return nil
	}
	if len(points) > n {
		points = points[len(points)-n:]
	}
	out := make([]analysis.ExtremumPoint, len(points))
	copy(out, points)
	return out
}
