package indicators

import (
	"fmt"
	"math"

	"peakline/internal/models"
)

// PriceChannel calculates the n-bar high/low channel (Donchian) and the
// close's percentile position inside it.
type PriceChannel struct {
	period int
}

// NewPriceChannel creates a new price channel indicator.
func NewPriceChannel(period int) *PriceChannel {
	return &PriceChannel{period: period}
}

func (p *PriceChannel) Name() string {
	return fmt.Sprintf("PriceChannel_%d", p.period)
}

func (p *PriceChannel) Period() int {
	return p.period
}

// Calculate returns "upper", "lower" and "position" series. Position is in
// [0, 100]; a flat channel reports 50.
func (p *PriceChannel) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if p.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < p.period {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	highs := highPrices(candles)
	lows := lowPrices(candles)

	upper := make([]float64, n)
	lower := make([]float64, n)
	position := make([]float64, n)

	for i := p.period - 1; i < n; i++ {
		upper[i] = highest(highs[i-p.period+1 : i+1])
		lower[i] = lowest(lows[i-p.period+1 : i+1])
		if upper[i] == lower[i] {
			position[i] = 50
			continue
		}
		pos := (candles[i].Close - lower[i]) / (upper[i] - lower[i]) * 100
		position[i] = math.Max(0, math.Min(100, pos))
	}

	return map[string][]float64{
		"upper":    upper,
		"lower":    lower,
		"position": position,
	}, nil
}
