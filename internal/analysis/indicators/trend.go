package indicators

import (
	"fmt"

	"peakline/internal/models"
)

// Indicator defines the interface for single-value technical indicators.
type Indicator interface {
	Name() string
	Calculate(candles []models.Candle) ([]float64, error)
	Period() int
}

// MultiValueIndicator defines the interface for indicators that return multiple values.
type MultiValueIndicator interface {
	Name() string
	Calculate(candles []models.Candle) (map[string][]float64, error)
	Period() int
}

// SMA calculates Simple Moving Average.
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

func (s *SMA) Name() string {
	return fmt.Sprintf("SMA_%d", s.period)
}

func (s *SMA) Period() int {
	return s.period
}

func (s *SMA) Calculate(candles []models.Candle) ([]float64, error) {
	if s.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < s.period {
		return nil, ErrInsufficientData
	}
	return rollingMean(closePrices(candles), s.period), nil
}

// CalculateEWM calculates a recursive exponential average seeded with the
// first value, so every index carries a value. alpha must be in (0, 1].
func CalculateEWM(values []float64, alpha float64) []float64 {
	if len(values) == 0 || alpha <= 0 || alpha > 1 {
		return nil
	}

	result := make([]float64, len(values))
	result[0] = values[0]
	for i := 1; i < len(values); i++ {
		result[i] = alpha*values[i] + (1-alpha)*result[i-1]
	}
	return result
}

// SpanAlpha converts an EMA span into a smoothing factor.
func SpanAlpha(span int) float64 {
	return 2.0 / float64(span+1)
}

// MACD calculates Moving Average Convergence Divergence.
// Lines are seeded from the first close, so the series needs only two bars
// for a cross check; early values are warm-up biased.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a new MACD indicator, conventionally (12, 26, 9).
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
	}
}

func (m *MACD) Name() string {
	return fmt.Sprintf("MACD_%d_%d_%d", m.fastPeriod, m.slowPeriod, m.signalPeriod)
}

func (m *MACD) Period() int {
	return 2
}

func (m *MACD) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if m.fastPeriod <= 0 || m.slowPeriod <= 0 || m.signalPeriod <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < m.Period() {
		return nil, ErrInsufficientData
	}

	closes := closePrices(candles)
	fastEMA := CalculateEWM(closes, SpanAlpha(m.fastPeriod))
	slowEMA := CalculateEWM(closes, SpanAlpha(m.slowPeriod))

	// MACD Line (DIF) = Fast EMA - Slow EMA
	macdLine := make([]float64, len(candles))
	for i := range closes {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}

	// Signal Line (DEA) = EMA of MACD Line
	signalLine := CalculateEWM(macdLine, SpanAlpha(m.signalPeriod))

	histogram := make([]float64, len(candles))
	for i := range macdLine {
		histogram[i] = macdLine[i] - signalLine[i]
	}

	return map[string][]float64{
		"macd":      macdLine,
		"signal":    signalLine,
		"histogram": histogram,
	}, nil
}

// BBI calculates the Bull-Bear Index: the mean of the 3, 6, 12 and 24 period SMAs.
type BBI struct {
	periods [4]int
}

// NewBBI creates a BBI indicator with the conventional 3/6/12/24 periods.
func NewBBI() *BBI {
	return &BBI{periods: [4]int{3, 6, 12, 24}}
}

func (b *BBI) Name() string {
	return "BBI"
}

func (b *BBI) Period() int {
	return b.periods[3]
}

func (b *BBI) Calculate(candles []models.Candle) ([]float64, error) {
	if len(candles) < b.Period() {
		return nil, ErrInsufficientData
	}

	closes := closePrices(candles)
	result := make([]float64, len(candles))
	var averages [4][]float64
	for i, p := range b.periods {
		averages[i] = rollingMean(closes, p)
	}
	for i := b.Period() - 1; i < len(candles); i++ {
		result[i] = (averages[0][i] + averages[1][i] + averages[2][i] + averages[3][i]) / 4
	}
	return result, nil
}
