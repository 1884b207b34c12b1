// Package feed loads price history for the signal engine.
package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "peakline/internal/errors"
	"peakline/internal/models"
)

// Granularity is the bar period of a price series.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

// ParseGranularity accepts daily, weekly or monthly in any case. An empty
// string means daily.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "daily", "d", "1d":
		return Daily, nil
	case "weekly", "w", "1w":
		return Weekly, nil
	case "monthly", "m", "1m":
		return Monthly, nil
	default:
		return "", apperrors.NewValidationError("granularity", s, "must be daily, weekly or monthly")
	}
}

func (g Granularity) String() string {
	return string(g)
}

// Fetcher provides candles for a symbol over [start, end], oldest first.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time, granularity Granularity) ([]models.Candle, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, symbol string, start, end time.Time, granularity Granularity) ([]models.Candle, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, symbol string, start, end time.Time, granularity Granularity) ([]models.Candle, error) {
	return f(ctx, symbol, start, end, granularity)
}

// Window returns the [start, end] range covering lookbackDays up to now.
func Window(now time.Time, lookbackDays int) (time.Time, time.Time) {
	end := now.UTC()
	return end.AddDate(0, 0, -lookbackDays), end
}

func filterRange(candles []models.Candle, start, end time.Time) []models.Candle {
	out := make([]models.Candle, 0, len(candles))
	for _, c := range candles {
		if !start.IsZero() && c.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && c.Timestamp.After(end) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func notFound(symbol string, err error) error {
	return apperrors.NewDataError("candles", symbol, fmt.Sprintf("no price history for %s", symbol), err)
}
