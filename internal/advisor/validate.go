package advisor

import (
	"math"

	apperrors "peakline/internal/errors"
	"peakline/internal/models"
)

// ValidateCandles rejects series that are not strictly chronological or that
// carry non-finite prices, inverted ranges or negative volume. The returned
// error is a *errors.MalformedBarError naming the first offending bar.
func ValidateCandles(candles []models.Candle) error {
	for i, c := range candles {
		fields := [...]struct {
			name  string
			value float64
		}{
			{"open", c.Open},
			{"high", c.High},
			{"low", c.Low},
			{"close", c.Close},
		}
		for _, f := range fields {
			if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
				return apperrors.NewMalformedBarError(i, f.name, "not a finite number")
			}
		}

		if c.High < c.Low {
			return apperrors.NewMalformedBarError(i, "high", "below low")
		}
		if c.Volume < 0 {
			return apperrors.NewMalformedBarError(i, "volume", "negative")
		}
		if i > 0 && !c.Timestamp.After(candles[i-1].Timestamp) {
			return apperrors.NewMalformedBarError(i, "timestamp", "not after previous bar")
		}
	}
	return nil
}
