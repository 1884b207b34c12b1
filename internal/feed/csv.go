package feed

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	apperrors "peakline/internal/errors"
	"peakline/internal/models"
	"peakline/internal/security"
)

// dateLayouts are the date formats accepted in the date column.
var dateLayouts = []string{
	"2006-01-02",
	"20060102",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// parseDate parses any of dateLayouts as a UTC date.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// csvBar is one row of a bar file.
type csvBar struct {
	Date   string  `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

// ReadCSV decodes date,open,high,low,close,volume rows into candles sorted
// oldest first. Volumes written as decimals are rounded.
func ReadCSV(r io.Reader) ([]models.Candle, error) {
	var rows []*csvBar
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode bars")
	}

	candles := make([]models.Candle, 0, len(rows))
	for i, row := range rows {
		if row == nil || strings.TrimSpace(row.Date) == "" {
			continue
		}
		ts, err := parseDate(row.Date)
		if err != nil {
			return nil, apperrors.Wrapf(err, "row %d", i+1)
		}
		candles = append(candles, models.Candle{
			Timestamp: ts,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    int64(math.Round(row.Volume)),
		})
	}

	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	return candles, nil
}

// WriteCSV encodes candles with a date,open,high,low,close,volume header.
func WriteCSV(w io.Writer, candles []models.Candle) error {
	rows := make([]*csvBar, len(candles))
	for i, c := range candles {
		rows[i] = &csvBar{
			Date:   c.Timestamp.UTC().Format("2006-01-02"),
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: float64(c.Volume),
		}
	}
	return gocsv.Marshal(&rows, w)
}

// CSVSource serves daily bar files from a directory. A symbol is looked up
// as <dir>/<symbol>.csv, then as <dir>/<code>_*.csv where code is the symbol
// without its exchange suffix.
type CSVSource struct {
	dir string
}

// NewCSVSource creates a source rooted at dir.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

func (s *CSVSource) Name() string {
	return "csv"
}

// Dir returns the directory bar files are read from.
func (s *CSVSource) Dir() string {
	return s.dir
}

// Fetch reads the symbol's file, keeps bars within [start, end] and
// resamples them to granularity.
func (s *CSVSource) Fetch(ctx context.Context, symbol string, start, end time.Time, granularity Granularity) ([]models.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.locate(symbol)
	if err != nil {
		return nil, err
	}

	candles, err := ReadFile(path)
	if err != nil {
		return nil, apperrors.NewDataError("candles", symbol, "failed to read bar file", err)
	}
	return Resample(filterRange(candles, start, end), granularity), nil
}

// ReadFile decodes a bar file from disk.
func ReadFile(path string) ([]models.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func (s *CSVSource) locate(symbol string) (string, error) {
	if err := security.ValidateSymbol(symbol); err != nil {
		return "", err
	}
	direct := filepath.Join(s.dir, symbol+".csv")
	if _, err := os.Stat(direct); err == nil {
		return direct, nil
	}

	code := symbol
	if i := strings.Index(code, "."); i > 0 {
		code = code[:i]
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, code+"_*.csv"))
	if err != nil || len(matches) == 0 {
		return "", notFound(symbol, apperrors.ErrSymbolNotFound)
	}
	sort.Strings(matches)
	return matches[0], nil
}
