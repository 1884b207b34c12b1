package patterns

import (
	"sort"

	"peakline/internal/analysis"
)

// primaryLevelCount is how many of the nearest levels are reported as primary.
const primaryLevelCount = 3

// LevelCalculator derives support and resistance from historical extrema.
// Resistance comes from peaks above the current price, support from valleys
// below it; a level equal to the current price is neither.
type LevelCalculator struct {
	primaryCount int
}

// NewLevelCalculator creates a new support/resistance calculator.
func NewLevelCalculator() *LevelCalculator {
	return &LevelCalculator{primaryCount: primaryLevelCount}
}

func (l *LevelCalculator) Name() string {
	return "LevelCalculator"
}

// SupportResistance holds levels ordered nearest first.
type SupportResistance struct {
	CurrentPrice      float64   `json:"current_price" yaml:"current_price"`
	Resistance        []float64 `json:"resistance" yaml:"resistance"`
	Support           []float64 `json:"support" yaml:"support"`
	AllResistance     []float64 `json:"all_resistance" yaml:"all_resistance"`
	AllSupport        []float64 `json:"all_support" yaml:"all_support"`
	NearestResistance *float64  `json:"nearest_resistance,omitempty" yaml:"nearest_resistance,omitempty"`
	NearestSupport    *float64  `json:"nearest_support,omitempty" yaml:"nearest_support,omitempty"`
}

// Calculate selects levels from the full extrema history. Duplicate prices
// collapse into one level.
func (l *LevelCalculator) Calculate(points []analysis.ExtremumPoint, currentPrice float64) SupportResistance {
	var resistance, support []float64
	for _, p := range points {
		switch {
		case p.Kind == analysis.Peak && p.Price > currentPrice:
			resistance = append(resistance, p.Price)
		case p.Kind == analysis.Valley && p.Price < currentPrice:
			support = append(support, p.Price)
		}
	}

	// Nearest first: resistance ascending, support descending.
	sort.Float64s(resistance)
	sort.Sort(sort.Reverse(sort.Float64Slice(support)))
	resistance = dedupe(resistance)
	support = dedupe(support)

	sr := SupportResistance{
		CurrentPrice:  currentPrice,
		Resistance:    head(resistance, l.primaryCount),
		Support:       head(support, l.primaryCount),
		AllResistance: resistance,
		AllSupport:    support,
	}
	if len(resistance) > 0 {
		sr.NearestResistance = analysis.Float(resistance[0])
	}
	if len(support) > 0 {
		sr.NearestSupport = analysis.Float(support[0])
	}
	return sr
}

// Levels returns every level as typed records, support first.
func (s SupportResistance) Levels() []analysis.Level {
	levels := make([]analysis.Level, 0, len(s.AllSupport)+len(s.AllResistance))
	for _, p := range s.AllSupport {
		levels = append(levels, analysis.Level{Price: p, Type: analysis.LevelSupport})
	}
	for _, p := range s.AllResistance {
		levels = append(levels, analysis.Level{Price: p, Type: analysis.LevelResistance})
	}
	return levels
}

// dedupe removes adjacent equal values from a sorted slice.
func dedupe(sorted []float64) []float64 {
	if len(sorted) == 0 {
		return []float64{}
	}
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

func head(values []float64, n int) []float64 {
	if len(values) > n {
		values = values[:n]
	}
	out := make([]float64, len(values))
	copy(out, values)
	return out
}
