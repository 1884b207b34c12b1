package patterns

import (
	"fmt"

	"peakline/internal/analysis"
	"peakline/internal/models"
)

// Pattern names as reported in PatternMatch.Name.
const (
	PatternPullbackBar       = "挫棍"
	PatternBullishEngulfing  = "阳吃阴"
	PatternBullSandwich      = "阳夹棍"
	PatternLongLowerShadow   = "长下影线"
	PatternLongUpperShadow   = "长上影线"
	PatternExpandingPeak     = "外扩峰"
	consecutiveBullishSuffix = "连阳"
)

const (
	minConsecutiveBullish = 2
	maxConsecutiveBullish = 4
	breakoutTolerance     = 0.98
)

// ConsecutiveBullishName returns the pattern name for a streak of count bullish bars.
func ConsecutiveBullishName(count int) string {
	return fmt.Sprintf("%d%s", count, consecutiveBullishSuffix)
}

// PatternRecognizer evaluates six independent templates against the latest
// bars. Any number may fire on the same call.
type PatternRecognizer struct{}

// NewPatternRecognizer creates a new pattern recognizer.
func NewPatternRecognizer() *PatternRecognizer {
	return &PatternRecognizer{}
}

func (r *PatternRecognizer) Name() string {
	return "PatternRecognizer"
}

// Recognize returns every template that matches. points is the full extrema
// history of candles and feeds the expanding peak template.
func (r *PatternRecognizer) Recognize(candles []models.Candle, points []analysis.ExtremumPoint) []analysis.PatternMatch {
	matches := []analysis.PatternMatch{}
	if len(candles) == 0 {
		return matches
	}

	detectors := []func([]models.Candle) *analysis.PatternMatch{
		r.pullbackBar,
		r.bullishEngulfing,
		r.consecutiveBullish,
		r.bullSandwich,
		r.longLowerShadow,
		r.longUpperShadow,
	}
	for _, detect := range detectors {
		if m := detect(candles); m != nil {
			matches = append(matches, *m)
		}
	}
	if m := r.expandingPeak(candles, points); m != nil {
		matches = append(matches, *m)
	}

	return matches
}

// pullbackBar: a bearish bar holding above the low of the bullish bar before it.
func (r *PatternRecognizer) pullbackBar(candles []models.Candle) *analysis.PatternMatch {
	if len(candles) < 2 {
		return nil
	}
	prev, curr := candles[len(candles)-2], candles[len(candles)-1]
	if !prev.IsBullish() || !curr.IsBearish() || curr.Low < prev.Low {
		return nil
	}
	return &analysis.PatternMatch{
		Name:        PatternPullbackBar,
		Polarity:    analysis.Bullish,
		Confidence:  0.7,
		Description: "bearish bar after a bullish bar held above its low",
		EntryPrice:  curr.Close,
		StopLoss:    prev.Low,
	}
}

func (r *PatternRecognizer) bullishEngulfing(candles []models.Candle) *analysis.PatternMatch {
	if len(candles) < 2 {
		return nil
	}
	prev, curr := candles[len(candles)-2], candles[len(candles)-1]
	if !prev.IsBearish() || !curr.IsBullish() {
		return nil
	}
	if curr.Close <= prev.Open || curr.Open >= prev.Close {
		return nil
	}
	return &analysis.PatternMatch{
		Name:        PatternBullishEngulfing,
		Polarity:    analysis.Bullish,
		Confidence:  0.75,
		Description: "bullish bar engulfed the prior bearish bar",
		EntryPrice:  curr.Close,
		StopLoss:    curr.Low,
	}
}

func (r *PatternRecognizer) consecutiveBullish(candles []models.Candle) *analysis.PatternMatch {
	count := 0
	for i := len(candles) - 1; i >= 0 && candles[i].IsBullish(); i-- {
		count++
	}
	if count < minConsecutiveBullish || count > maxConsecutiveBullish {
		return nil
	}
	start := candles[len(candles)-count]
	return &analysis.PatternMatch{
		Name:        ConsecutiveBullishName(count),
		Polarity:    analysis.Bullish,
		Confidence:  0.65,
		Description: fmt.Sprintf("%d consecutive bullish bars", count),
		EntryPrice:  candles[len(candles)-1].Close,
		StopLoss:    start.Low,
	}
}

func (r *PatternRecognizer) bullSandwich(candles []models.Candle) *analysis.PatternMatch {
	if len(candles) < 3 {
		return nil
	}
	first := candles[len(candles)-3]
	middle := candles[len(candles)-2]
	last := candles[len(candles)-1]
	if !first.IsBullish() || !middle.IsBearish() || !last.IsBullish() {
		return nil
	}
	if last.Close <= first.Close {
		return nil
	}
	return &analysis.PatternMatch{
		Name:        PatternBullSandwich,
		Polarity:    analysis.Bullish,
		Confidence:  0.8,
		Description: "two bullish bars around a bearish bar, closing above the first",
		EntryPrice:  last.Close,
		StopLoss:    middle.Low,
	}
}

func (r *PatternRecognizer) longLowerShadow(candles []models.Candle) *analysis.PatternMatch {
	c := candles[len(candles)-1]
	body := c.Body()
	if c.LowerShadow() <= 2*body || c.UpperShadow() >= body {
		return nil
	}
	return &analysis.PatternMatch{
		Name:        PatternLongLowerShadow,
		Polarity:    analysis.Bullish,
		Confidence:  0.7,
		Description: "long lower shadow, buyers defended the low",
		EntryPrice:  c.Close,
		StopLoss:    c.Low,
	}
}

func (r *PatternRecognizer) longUpperShadow(candles []models.Candle) *analysis.PatternMatch {
	c := candles[len(candles)-1]
	body := c.Body()
	if c.UpperShadow() <= 2*body || c.LowerShadow() >= body {
		return nil
	}
	return &analysis.PatternMatch{
		Name:        PatternLongUpperShadow,
		Polarity:    analysis.Bearish,
		Confidence:  0.7,
		Description: "long upper shadow, sellers capped the high",
		EntryPrice:  c.Close,
		StopLoss:    c.High,
	}
}

// expandingPeak fires when the latest peak exceeds the previous one and the
// close is within 2% of it or above.
func (r *PatternRecognizer) expandingPeak(candles []models.Candle, points []analysis.ExtremumPoint) *analysis.PatternMatch {
	peaks := Peaks(points)
	if len(peaks) < 2 {
		return nil
	}
	prev := peaks[len(peaks)-2].Price
	latest := peaks[len(peaks)-1].Price
	close := candles[len(candles)-1].Close
	if latest <= prev || close < breakoutTolerance*latest {
		return nil
	}
	return &analysis.PatternMatch{
		Name:        PatternExpandingPeak,
		Polarity:    analysis.Bullish,
		Confidence:  0.85,
		Description: fmt.Sprintf("new high %.2f above prior peak %.2f", latest, prev),
		EntryPrice:  close,
		StopLoss:    prev,
	}
}
