package advisor

import (
	"peakline/internal/analysis/patterns"
	"peakline/internal/analysis/scoring"
	"peakline/internal/models"
)

// Advisor runs the full analysis pipeline over a candle series. Every call
// works on fresh results, so an Advisor is safe for concurrent use.
type Advisor struct {
	analyzer   *scoring.OscillatorAnalyzer
	levels     *patterns.LevelCalculator
	trend      *patterns.TrendClassifier
	recognizer *patterns.PatternRecognizer
	arbitrator *SignalArbitrator
}

// NewAdvisor creates an advisor with the default oscillator requirements.
func NewAdvisor() *Advisor {
	return NewAdvisorWithMinBars(scoring.MinBars)
}

// NewAdvisorWithMinBars creates an advisor whose oscillator analysis needs at
// least minBars bars.
func NewAdvisorWithMinBars(minBars int) *Advisor {
	return &Advisor{
		analyzer:   scoring.NewOscillatorAnalyzerWithMinBars(minBars),
		levels:     patterns.NewLevelCalculator(),
		trend:      patterns.NewTrendClassifier(),
		recognizer: patterns.NewPatternRecognizer(),
		arbitrator: NewSignalArbitrator(),
	}
}

// Advise validates candles and returns the merged recommendation. window is
// the extrema confirmation window; non-positive values use the default of 3.
// The only error returned is a *errors.MalformedBarError.
func (a *Advisor) Advise(candles []models.Candle, window int) (*TradeAdvice, error) {
	if err := ValidateCandles(candles); err != nil {
		return nil, err
	}

	points := patterns.NewExtremaDetector(window).Detect(candles)
	price := models.Series(candles).LastClose()

	advice := a.arbitrator.Arbitrate(Inputs{
		Status:   a.analyzer.Analyze(candles),
		Trend:    a.trend.Classify(points, price),
		Patterns: a.recognizer.Recognize(candles, points),
		Levels:   a.levels.Calculate(points, price),
	})
	return &advice, nil
}

// Advise runs a default Advisor over candles.
func Advise(candles []models.Candle, window int) (*TradeAdvice, error) {
	return NewAdvisor().Advise(candles, window)
}
