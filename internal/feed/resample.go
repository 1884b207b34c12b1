package feed

import (
	"peakline/internal/models"
)

// Resample aggregates daily candles into weekly or monthly bars. Each bar
// opens at the period's first open, closes at its last close and carries the
// timestamp of its last daily bar. Daily input is returned unchanged.
func Resample(candles []models.Candle, granularity Granularity) []models.Candle {
	if granularity == Daily || granularity == "" || len(candles) == 0 {
		return candles
	}

	out := make([]models.Candle, 0, len(candles)/4+1)
	var current models.Candle
	var currentKey periodKey
	for i, c := range candles {
		key := keyFor(c, granularity)
		if i == 0 || key != currentKey {
			if i > 0 {
				out = append(out, current)
			}
			current = c
			currentKey = key
			continue
		}

		if c.High > current.High {
			current.High = c.High
		}
		if c.Low < current.Low {
			current.Low = c.Low
		}
		current.Close = c.Close
		current.Volume += c.Volume
		current.Timestamp = c.Timestamp
	}
	return append(out, current)
}

type periodKey struct {
	year   int
	period int
}

func keyFor(c models.Candle, granularity Granularity) periodKey {
	ts := c.Timestamp.UTC()
	if granularity == Weekly {
		year, week := ts.ISOWeek()
		return periodKey{year: year, period: week}
	}
	return periodKey{year: ts.Year(), period: int(ts.Month())}
}
