package feed

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "peakline/internal/errors"
	"peakline/internal/models"
	"peakline/internal/resilience"
	"peakline/internal/store"
	"peakline/internal/testutil"
)

const sampleCSV = `date,open,high,low,close,volume
2024-01-03,10.2,10.8,10.1,10.6,120000
2024-01-02,10.0,10.5,9.8,10.2,100000
2024-01-04,10.6,11.0,10.4,10.9,150000.0
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestParseGranularity(t *testing.T) {
	tests := []struct {
		in      string
		want    Granularity
		wantErr bool
	}{
		{"", Daily, false},
		{"daily", Daily, false},
		{"Weekly", Weekly, false},
		{"m", Monthly, false},
		{"hourly", "", true},
	}
	for _, tt := range tests {
		got, err := ParseGranularity(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseGranularity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseGranularity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReadCSV_SortsAndParses(t *testing.T) {
	candles, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(candles) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(candles))
	}
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !candles[0].Timestamp.Equal(want) {
		t.Errorf("expected first bar %v, got %v", want, candles[0].Timestamp)
	}
	if candles[2].Volume != 150000 {
		t.Errorf("expected decimal volume to round to 150000, got %d", candles[2].Volume)
	}
	if candles[1].Close != 10.6 {
		t.Errorf("expected close 10.6, got %v", candles[1].Close)
	}
}

func TestReadCSV_CompactDates(t *testing.T) {
	in := "date,open,high,low,close,volume\n20240105,1,2,0.5,1.5,10\n"
	candles, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(candles) != 1 || candles[0].Timestamp.Day() != 5 {
		t.Fatalf("unexpected candles: %+v", candles)
	}
}

func TestReadCSV_BadDate(t *testing.T) {
	in := "date,open,high,low,close,volume\nyesterday,1,2,0.5,1.5,10\n"
	if _, err := ReadCSV(strings.NewReader(in)); err == nil {
		t.Fatal("expected error for unparseable date")
	}
}

func TestWriteCSV_ReadBack(t *testing.T) {
	candles := testutil.Rising(5, 10, 0.5)
	for i := range candles {
		candles[i].Timestamp = time.Date(2024, 2, 1+i, 0, 0, 0, 0, time.UTC)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, candles); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "date,open,high,low,close,volume") {
		t.Errorf("unexpected header: %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}

	back, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(back) != len(candles) {
		t.Fatalf("expected %d candles, got %d", len(candles), len(back))
	}
	for i := range candles {
		if !back[i].Timestamp.Equal(candles[i].Timestamp) || back[i].Close != candles[i].Close || back[i].Volume != candles[i].Volume {
			t.Errorf("bar %d mismatch: %+v vs %+v", i, back[i], candles[i])
		}
	}
}

func TestCSVSource_LocatesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "600519.csv", sampleCSV)
	writeFile(t, dir, "000001_平安银行.csv", sampleCSV)
	src := NewCSVSource(dir)
	ctx := context.Background()

	candles, err := src.Fetch(ctx, "600519", time.Time{}, time.Time{}, Daily)
	if err != nil || len(candles) != 3 {
		t.Fatalf("direct lookup: %d candles, err %v", len(candles), err)
	}

	candles, err = src.Fetch(ctx, "000001.SZ", time.Time{}, time.Time{}, Daily)
	if err != nil || len(candles) != 3 {
		t.Fatalf("code lookup: %d candles, err %v", len(candles), err)
	}

	_, err = src.Fetch(ctx, "300750", time.Time{}, time.Time{}, Daily)
	if !errors.Is(err, apperrors.ErrSymbolNotFound) {
		t.Errorf("expected ErrSymbolNotFound, got %v", err)
	}
}

func TestCSVSource_FiltersRange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "600519.csv", sampleCSV)

	start := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 23, 0, 0, 0, time.UTC)
	candles, err := NewCSVSource(dir).Fetch(context.Background(), "600519", start, end, Daily)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(candles) != 1 || candles[0].Close != 10.6 {
		t.Errorf("expected only the 2024-01-03 bar, got %+v", candles)
	}
}

func TestResample_Weekly(t *testing.T) {
	// Mon 2024-01-01 through Fri 2024-01-12: two ISO weeks.
	var candles []models.Candle
	for i := 0; i < 12; i++ {
		ts := time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
		if ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday {
			continue
		}
		p := float64(10 + i)
		candles = append(candles, models.Candle{Timestamp: ts, Open: p, High: p + 1, Low: p - 1, Close: p + 0.5, Volume: 10})
	}

	weeks := Resample(candles, Weekly)
	if len(weeks) != 2 {
		t.Fatalf("expected 2 weekly bars, got %d", len(weeks))
	}
	w := weeks[0]
	if w.Open != 10 || w.Close != 14.5 || w.High != 15 || w.Low != 9 || w.Volume != 50 {
		t.Errorf("unexpected first week: %+v", w)
	}
	if w.Timestamp.Day() != 5 {
		t.Errorf("expected week stamped with its last bar (5th), got %v", w.Timestamp)
	}
	if weeks[1].Timestamp.Day() != 12 {
		t.Errorf("expected second week stamped 12th, got %v", weeks[1].Timestamp)
	}
}

func TestResample_MonthlyAndDaily(t *testing.T) {
	candles := []models.Candle{
		{Timestamp: time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 1},
		{Timestamp: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 2},
		{Timestamp: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Open: 2.5, High: 2.8, Low: 2, Close: 2.2, Volume: 4},
	}
	months := Resample(candles, Monthly)
	if len(months) != 2 {
		t.Fatalf("expected 2 monthly bars, got %d", len(months))
	}
	if months[0].High != 3 || months[0].Close != 2.5 || months[0].Volume != 3 {
		t.Errorf("unexpected January bar: %+v", months[0])
	}
	if got := Resample(candles, Daily); len(got) != 3 {
		t.Errorf("daily resample should be identity, got %d bars", len(got))
	}
	if got := Resample(nil, Weekly); len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type countingFetcher struct {
	calls   int
	candles []models.Candle
	err     error
}

func (f *countingFetcher) Fetch(ctx context.Context, symbol string, start, end time.Time, granularity Granularity) ([]models.Candle, error) {
	f.calls++
	return f.candles, f.err
}

func TestCachedFetcher_ServesFreshCache(t *testing.T) {
	s := newTestStore(t)
	src := &countingFetcher{candles: testutil.Rising(10, 10, 1)}
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := NewCachedFetcher(src, s, time.Hour, zerolog.Nop()).WithClock(func() time.Time { return now })
	ctx := context.Background()
	start, end := time.Time{}, now

	first, err := f.Fetch(ctx, "600519", start, end, Daily)
	if err != nil || len(first) != 10 {
		t.Fatalf("first fetch: %d candles, err %v", len(first), err)
	}
	second, err := f.Fetch(ctx, "600519", start, end, Daily)
	if err != nil || len(second) != 10 {
		t.Fatalf("second fetch: %d candles, err %v", len(second), err)
	}
	if src.calls != 1 {
		t.Errorf("expected a single source call while fresh, got %d", src.calls)
	}

	now = now.Add(2 * time.Hour)
	if _, err := f.Fetch(ctx, "600519", start, end, Daily); err != nil {
		t.Fatalf("stale fetch: %v", err)
	}
	if src.calls != 2 {
		t.Errorf("expected a reload once stale, got %d calls", src.calls)
	}
}

func TestCachedFetcher_FallsBackOnSourceError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cached := testutil.Rising(8, 10, 1)
	if err := s.SaveCandles(ctx, "600519", Daily.String(), cached); err != nil {
		t.Fatalf("SaveCandles: %v", err)
	}

	src := &countingFetcher{err: errors.New("upstream down")}
	f := NewCachedFetcher(src, s, time.Hour, zerolog.Nop()).WithRetry(NoRetry())

	got, err := f.Fetch(ctx, "600519", time.Time{}, time.Now(), Daily)
	if err != nil {
		t.Fatalf("expected cached fallback, got %v", err)
	}
	if len(got) != 8 {
		t.Errorf("expected 8 cached candles, got %d", len(got))
	}

	if _, err := f.Fetch(ctx, "000001", time.Time{}, time.Now(), Daily); err == nil {
		t.Error("expected error with no cache and a failing source")
	}
}

func TestCachedFetcher_EmptySource(t *testing.T) {
	f := NewCachedFetcher(&countingFetcher{}, newTestStore(t), 0, zerolog.Nop())
	_, err := f.Fetch(context.Background(), "600519", time.Time{}, time.Now(), Daily)
	if !errors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("expected ErrDataNotFound, got %v", err)
	}
}

func TestStoreSource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := NewStoreSource(s).Fetch(ctx, "600519", time.Time{}, time.Now(), Daily); !errors.Is(err, apperrors.ErrSymbolNotFound) {
		t.Errorf("expected ErrSymbolNotFound, got %v", err)
	}
	if err := s.SaveCandles(ctx, "600519", Daily.String(), testutil.Rising(4, 10, 1)); err != nil {
		t.Fatalf("SaveCandles: %v", err)
	}
	got, err := NewStoreSource(s).Fetch(ctx, "600519", time.Time{}, time.Now(), Daily)
	if err != nil || len(got) != 4 {
		t.Errorf("expected 4 candles, got %d %v", len(got), err)
	}
}

func TestCachedFetcher_RetriesTransientErrors(t *testing.T) {
	s := newTestStore(t)
	attempts := 0
	src := FetcherFunc(func(ctx context.Context, symbol string, start, end time.Time, granularity Granularity) ([]models.Candle, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection reset")
		}
		return testutil.Rising(5, 10, 1), nil
	})
	f := NewCachedFetcher(src, s, time.Hour, zerolog.Nop()).WithRetry(RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2,
	})

	got, err := f.Fetch(context.Background(), "600519", time.Time{}, time.Now(), Daily)
	if err != nil || len(got) != 5 {
		t.Fatalf("expected success on third attempt, got %d candles, err %v", len(got), err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	attempts := 0
	_, err := retryWithResult(context.Background(), DefaultRetryConfig(), func() (int, error) {
		attempts++
		return 0, notFound("600519", apperrors.ErrSymbolNotFound)
	})
	if !errors.Is(err, apperrors.ErrSymbolNotFound) || attempts != 1 {
		t.Errorf("expected a single attempt, got %d (%v)", attempts, err)
	}

	if got := backoff(4*time.Second, DefaultRetryConfig()); got != 5*time.Second {
		t.Errorf("expected backoff capped at 5s, got %v", got)
	}
}

func TestCachedFetcher_BreakerSkipsFailingSource(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SaveCandles(ctx, "000001", Daily.String(), testutil.Rising(6, 10, 1)); err != nil {
		t.Fatalf("SaveCandles: %v", err)
	}

	src := &countingFetcher{err: errors.New("share unmounted")}
	cb := resilience.NewCircuitBreaker("csv", resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		Timeout:          time.Hour,
		IsFailure:        func(err error) bool { return !permanent(err) },
	})
	f := NewCachedFetcher(src, s, time.Hour, zerolog.Nop()).WithRetry(NoRetry()).WithBreaker(cb)

	for _, symbol := range []string{"600519", "300750"} {
		if _, err := f.Fetch(ctx, symbol, time.Time{}, time.Now(), Daily); err == nil {
			t.Fatalf("%s: expected source error", symbol)
		}
	}
	if cb.State() != resilience.CircuitOpen {
		t.Fatalf("expected open breaker, got %s", cb.State())
	}

	// Open: the source is skipped and cached bars still serve.
	got, err := f.Fetch(ctx, "000001", time.Time{}, time.Now(), Daily)
	if err != nil || len(got) != 6 {
		t.Fatalf("expected 6 cached candles, got %d %v", len(got), err)
	}
	if _, err := f.Fetch(ctx, "600036", time.Time{}, time.Now(), Daily); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if src.calls != 2 {
		t.Errorf("expected 2 source calls, got %d", src.calls)
	}
}

func TestNewSourceBreaker_IgnoresMissingSymbols(t *testing.T) {
	dir := t.TempDir()
	cb := NewSourceBreaker("csv")
	f := NewCachedFetcher(NewCSVSource(dir), newTestStore(t), time.Hour, zerolog.Nop()).WithBreaker(cb)

	for i := 0; i < 10; i++ {
		if _, err := f.Fetch(context.Background(), "600519", time.Time{}, time.Now(), Daily); !errors.Is(err, apperrors.ErrSymbolNotFound) {
			t.Fatalf("expected ErrSymbolNotFound, got %v", err)
		}
	}
	if cb.State() != resilience.CircuitClosed {
		t.Errorf("missing symbols must not open the breaker, got %s", cb.State())
	}
}
