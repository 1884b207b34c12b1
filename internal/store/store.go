// Package store provides the candle cache used by the price-history feed.
package store

import (
	"context"
	"time"

	"peakline/internal/models"
)

// CandleStore defines the interface for candle persistence.
type CandleStore interface {
	// Candles
	SaveCandles(ctx context.Context, symbol, granularity string, candles []models.Candle) error
	GetCandles(ctx context.Context, symbol, granularity string, from, to time.Time) ([]models.Candle, error)
	GetCandlesFreshness(ctx context.Context, symbol, granularity string) (time.Time, error)
	Symbols(ctx context.Context, granularity string) ([]string, error)
	DeleteCandles(ctx context.Context, symbol, granularity string) (int64, error)

	// Sync
	GetLastSync(key string) time.Time
	SetLastSync(key string, t time.Time) error

	// Lifecycle
	Close() error
}

// SyncKey returns the sync_status key for a symbol's candles.
func SyncKey(symbol, granularity string) string {
	return "candles:" + symbol + ":" + granularity
}
