// Package testutil provides candle builders and gopter generators shared by tests.
package testutil

import (
	"math"
	"reflect"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"

	"peakline/internal/models"
)

// BaseTime is the timestamp of the first bar produced by the builders.
var BaseTime = time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)

// Bar builds a daily candle at index i with the given OHLC.
func Bar(i int, open, high, low, close float64) models.Candle {
	return models.Candle{
		Timestamp: BaseTime.AddDate(0, 0, i),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    100000,
	}
}

// FromCloses builds a series whose bars open at the previous close and wick
// half a unit beyond the body on each side.
func FromCloses(closes ...float64) []models.Candle {
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		candles[i] = Bar(i, open, math.Max(open, c)+0.5, math.Min(open, c)-0.5, c)
	}
	return candles
}

// FromHighLows builds a series of doji-like bars with the given highs and lows.
// Open and close sit at the midpoint so no candlestick template fires.
func FromHighLows(highs, lows []float64) []models.Candle {
	candles := make([]models.Candle, len(highs))
	for i := range highs {
		mid := (highs[i] + lows[i]) / 2
		candles[i] = Bar(i, mid, highs[i], lows[i], mid)
	}
	return candles
}

// Rising builds n bars whose closes climb by step from start.
func Rising(n int, start, step float64) []models.Candle {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return FromCloses(closes...)
}

// CandleGen generates valid candle data with realistic OHLCV values.
func CandleGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.Candle{}), map[string]gopter.Gen{
		"Timestamp": gen.Const(BaseTime),
		"Open":      gen.Float64Range(100.0, 1000.0),
		"High":      gen.Float64Range(100.0, 1000.0),
		"Low":       gen.Float64Range(100.0, 1000.0),
		"Close":     gen.Float64Range(100.0, 1000.0),
		"Volume":    gen.Int64Range(1000, 10000000),
	}).Map(func(c models.Candle) models.Candle {
		return sanitize(c)
	})
}

// CandleSliceGen generates a chronologically ordered slice of valid candles.
func CandleSliceGen(minLen, maxLen int) gopter.Gen {
	return gen.IntRange(minLen, maxLen).FlatMap(func(v interface{}) gopter.Gen {
		return gen.SliceOfN(v.(int), CandleGen())
	}, reflect.TypeOf([]models.Candle{})).Map(func(candles []models.Candle) []models.Candle {
		// Re-validate each candle after shrinking
		for i := range candles {
			candles[i] = sanitize(candles[i])
			candles[i].Timestamp = BaseTime.AddDate(0, 0, i)
		}
		return candles
	})
}

func sanitize(c models.Candle) models.Candle {
	if c.Open <= 0 {
		c.Open = 100.0
	}
	if c.High <= 0 {
		c.High = 100.0
	}
	if c.Low <= 0 {
		c.Low = 100.0
	}
	if c.Close <= 0 {
		c.Close = 100.0
	}
	// Ensure OHLC constraints: High >= max(Open, Close) and Low <= min(Open, Close)
	c.High = math.Max(c.High, math.Max(c.Open, c.Close))
	c.Low = math.Min(c.Low, math.Min(c.Open, c.Close))
	if c.Volume < 0 {
		c.Volume = 0
	}
	return c
}
