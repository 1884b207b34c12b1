package patterns

import (
	"fmt"

	"peakline/internal/analysis"
)

// TrendDirection represents the classified direction of price movement.
type TrendDirection string

const (
	TrendUp       TrendDirection = "UP"
	TrendDown     TrendDirection = "DOWN"
	TrendSideways TrendDirection = "SIDEWAYS"
	TrendUnknown  TrendDirection = "UNKNOWN"
)

// IsConclusive reports whether the direction is Up or Down.
func (d TrendDirection) IsConclusive() bool {
	return d == TrendUp || d == TrendDown
}

const (
	trendLookback          = 10
	breakoutConfidence     = 0.8
	sidewaysConfidence     = 0.6
	insufficientTrendState = "insufficient data"
)

// TrendAssessment is the classifier's verdict along with the extrema it used.
type TrendAssessment struct {
	Direction      TrendDirection `json:"direction" yaml:"direction"`
	Confidence     float64        `json:"confidence" yaml:"confidence"`
	Description    string         `json:"description" yaml:"description"`
	LatestPeak     *float64       `json:"latest_peak,omitempty" yaml:"latest_peak,omitempty"`
	PreviousPeak   *float64       `json:"previous_peak,omitempty" yaml:"previous_peak,omitempty"`
	LatestValley   *float64       `json:"latest_valley,omitempty" yaml:"latest_valley,omitempty"`
	PreviousValley *float64       `json:"previous_valley,omitempty" yaml:"previous_valley,omitempty"`
}

// UnknownTrend is the assessment returned when there are too few extrema.
func UnknownTrend() TrendAssessment {
	return TrendAssessment{
		Direction:   TrendUnknown,
		Confidence:  0,
		Description: insufficientTrendState,
	}
}

// TrendClassifier classifies trend from the most recent peaks and valleys.
type TrendClassifier struct {
	lookback int
}

// NewTrendClassifier creates a new trend classifier.
func NewTrendClassifier() *TrendClassifier {
	return &TrendClassifier{lookback: trendLookback}
}

func (t *TrendClassifier) Name() string {
	return "TrendClassifier"
}

// Classify evaluates Up, then Down, then Sideways. When both a breakout and
// a breakdown hold, Up wins.
func (t *TrendClassifier) Classify(points []analysis.ExtremumPoint, currentPrice float64) TrendAssessment {
	recent := RecentExtrema(points, t.lookback)
	peaks, valleys := recent.Peaks, recent.Valleys
	if len(peaks) < 2 || len(valleys) < 2 {
		return UnknownTrend()
	}

	latestPeak := peaks[len(peaks)-1].Price
	prevPeak := peaks[len(peaks)-2].Price
	latestValley := valleys[len(valleys)-1].Price
	prevValley := valleys[len(valleys)-2].Price

	result := TrendAssessment{
		LatestPeak:     analysis.Float(latestPeak),
		PreviousPeak:   analysis.Float(prevPeak),
		LatestValley:   analysis.Float(latestValley),
		PreviousValley: analysis.Float(prevValley),
	}

	switch {
	case currentPrice > latestPeak && latestPeak > prevPeak:
		result.Direction = TrendUp
		result.Confidence = breakoutConfidence
		result.Description = fmt.Sprintf("broke above prior high %.2f, trend up", latestPeak)
	case currentPrice < latestValley && latestValley < prevValley:
		result.Direction = TrendDown
		result.Confidence = breakoutConfidence
		result.Description = fmt.Sprintf("broke below prior low %.2f, trend down", latestValley)
	default:
		result.Direction = TrendSideways
		result.Confidence = sidewaysConfidence
		result.Description = fmt.Sprintf("ranging between peak %.2f and valley %.2f", latestPeak, latestValley)
	}

	return result
}
