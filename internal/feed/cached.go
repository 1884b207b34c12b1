package feed

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperrors "peakline/internal/errors"
	"peakline/internal/models"
	"peakline/internal/resilience"
	"peakline/internal/store"
)

// DefaultMaxAge is how long synced candles are served without reloading.
const DefaultMaxAge = 12 * time.Hour

// CachedFetcher serves daily candles from a CandleStore while they are fresh
// and reloads them from a source otherwise. Weekly and monthly series are
// resampled from the cached daily bars.
type CachedFetcher struct {
	source  Fetcher
	store   store.CandleStore
	maxAge  time.Duration
	retry   RetryConfig
	breaker *resilience.CircuitBreaker
	now     func() time.Time
	logger  zerolog.Logger
}

// NewCachedFetcher wraps source with a cache. A non-positive maxAge uses
// DefaultMaxAge.
func NewCachedFetcher(source Fetcher, s store.CandleStore, maxAge time.Duration, logger zerolog.Logger) *CachedFetcher {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &CachedFetcher{
		source: source,
		store:  s,
		maxAge: maxAge,
		retry:  DefaultRetryConfig(),
		now:    time.Now,
		logger: logger,
	}
}

// WithClock replaces the clock used for freshness checks.
func (f *CachedFetcher) WithClock(now func() time.Time) *CachedFetcher {
	f.now = now
	return f
}

// WithRetry replaces the retry policy for source loads.
func (f *CachedFetcher) WithRetry(cfg RetryConfig) *CachedFetcher {
	f.retry = cfg
	return f
}

// WithBreaker guards source loads with cb. While it is open every fetch is
// served from the cache without touching the source.
func (f *CachedFetcher) WithBreaker(cb *resilience.CircuitBreaker) *CachedFetcher {
	f.breaker = cb
	return f
}

// NewSourceBreaker returns a circuit breaker that trips on source outages but
// not on missing symbols.
func NewSourceBreaker(name string) *resilience.CircuitBreaker {
	cfg := resilience.DefaultCircuitBreakerConfig()
	cfg.IsFailure = func(err error) bool { return !permanent(err) }
	return resilience.NewCircuitBreaker(name, cfg)
}

// Fetch returns cached candles when the symbol was synced within maxAge.
// Otherwise it loads from the source and refreshes the cache. If the source
// fails, any cached candles are served instead.
func (f *CachedFetcher) Fetch(ctx context.Context, symbol string, start, end time.Time, granularity Granularity) ([]models.Candle, error) {
	logger := f.logger.With().Str("symbol", symbol).Str("granularity", granularity.String()).Logger()
	key := store.SyncKey(symbol, Daily.String())
	freshness := store.CheckFreshness(f.store, key, f.maxAge, f.now())

	if freshness.IsFresh {
		cached, err := f.store.GetCandles(ctx, symbol, Daily.String(), start, end)
		if err == nil && len(cached) > 0 {
			logger.Debug().Int("candles", len(cached)).Str("freshness", store.FormatFreshness(freshness)).Msg("Serving candles from cache")
			return Resample(cached, granularity), nil
		}
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to read candle cache")
		}
	}

	fetched, err := f.load(ctx, symbol, start, end)
	if err != nil {
		cached, cerr := f.store.GetCandles(ctx, symbol, Daily.String(), start, end)
		if cerr == nil && len(cached) > 0 {
			logger.Warn().Err(err).Str("freshness", store.FormatFreshness(freshness)).Msg("Source failed, serving cached candles")
			return Resample(cached, granularity), nil
		}
		return nil, err
	}
	if len(fetched) == 0 {
		return nil, notFound(symbol, apperrors.ErrDataNotFound)
	}

	if err := f.store.SaveCandles(ctx, symbol, Daily.String(), fetched); err != nil {
		logger.Warn().Err(err).Msg("Failed to cache candles")
	} else if err := f.store.SetLastSync(key, f.now()); err != nil {
		logger.Warn().Err(err).Msg("Failed to record sync time")
	}
	logger.Debug().Int("candles", len(fetched)).Msg("Loaded candles from source")

	return Resample(fetched, granularity), nil
}

func (f *CachedFetcher) load(ctx context.Context, symbol string, start, end time.Time) ([]models.Candle, error) {
	load := func() ([]models.Candle, error) {
		return retryWithResult(ctx, f.retry, func() ([]models.Candle, error) {
			return f.source.Fetch(ctx, symbol, start, end, Daily)
		})
	}
	if f.breaker == nil {
		return load()
	}
	return resilience.ExecuteWithResult(f.breaker, ctx, load)
}

// StoreSource reads candles only from a CandleStore.
type StoreSource struct {
	store store.CandleStore
}

// NewStoreSource creates a cache-only fetcher.
func NewStoreSource(s store.CandleStore) *StoreSource {
	return &StoreSource{store: s}
}

// Fetch returns the cached daily candles in range, resampled to granularity.
func (s *StoreSource) Fetch(ctx context.Context, symbol string, start, end time.Time, granularity Granularity) ([]models.Candle, error) {
	candles, err := s.store.GetCandles(ctx, symbol, Daily.String(), start, end)
	if err != nil {
		return nil, apperrors.NewDataError("candles", symbol, "failed to read cache", err)
	}
	if len(candles) == 0 {
		return nil, notFound(symbol, apperrors.ErrSymbolNotFound)
	}
	return Resample(candles, granularity), nil
}
