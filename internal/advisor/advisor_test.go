package advisor

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"

	"peakline/internal/analysis"
	"peakline/internal/analysis/patterns"
	"peakline/internal/analysis/scoring"
	apperrors "peakline/internal/errors"
	"peakline/internal/models"
	"peakline/internal/testutil"
)

func newProperties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0
	return gopter.NewProperties(parameters)
}

func neutralStatus() scoring.MarketStatus {
	return scoring.MarketStatus{
		Available: true,
		MA:        scoring.MAReading{State: scoring.AlignmentNeutral},
		MACD:      scoring.MACDReading{State: scoring.MACDBullishWeakening},
		RSI:       scoring.RSIReading{State: scoring.Neutral, Value: 50},
		KDJ:       scoring.KDJReading{State: scoring.Neutral, K: 50, D: 50},
		Volume:    scoring.VolumeReading{State: scoring.VolumeFlat},
		Price:     scoring.PriceReading{State: scoring.PositionMid, Position: 50},
	}
}

func levelsAt(price float64, support, resistance []float64) patterns.SupportResistance {
	sr := patterns.SupportResistance{
		CurrentPrice: price,
		Support:      support,
		Resistance:   resistance,
	}
	if len(support) > 0 {
		sr.NearestSupport = analysis.Float(support[0])
	}
	if len(resistance) > 0 {
		sr.NearestResistance = analysis.Float(resistance[0])
	}
	return sr
}

func TestArbitrate_UptrendPatternOverridesVote(t *testing.T) {
	trend := patterns.TrendAssessment{Direction: patterns.TrendUp, Confidence: 0.8, Description: "broke above prior high 11.00, trend up"}
	match := analysis.PatternMatch{
		Name:        patterns.PatternBullishEngulfing,
		Polarity:    analysis.Bullish,
		Confidence:  0.7,
		Description: "bullish engulfing",
		StopLoss:    10.5,
	}

	advice := NewSignalArbitrator().Arbitrate(Inputs{
		Status:   neutralStatus(),
		Trend:    trend,
		Patterns: []analysis.PatternMatch{match},
		Levels:   levelsAt(12, []float64{11.5, 10}, []float64{13}),
	})

	if advice.Action != models.ActionBuy || advice.PositionPct != 75 {
		t.Fatalf("expected BUY 75, got %s %d", advice.Action, advice.PositionPct)
	}
	if math.Abs(advice.Confidence-0.75) > 1e-9 {
		t.Errorf("expected confidence 0.75, got %v", advice.Confidence)
	}
	if advice.EntryPrice == nil || *advice.EntryPrice != 12 {
		t.Errorf("expected entry 12, got %v", advice.EntryPrice)
	}
	if advice.StopLoss == nil || *advice.StopLoss != 10.5 {
		t.Errorf("expected stop 10.5, got %v", advice.StopLoss)
	}
	if advice.TakeProfit == nil || *advice.TakeProfit != 13 {
		t.Errorf("expected target at nearest resistance 13, got %v", advice.TakeProfit)
	}

	parts := strings.Split(advice.Reason, "; ")
	if len(parts) != 5 {
		t.Fatalf("expected 5 reason parts, got %q", advice.Reason)
	}
	if parts[0] != trend.Description || parts[1] != "bullish engulfing" {
		t.Errorf("unexpected reason prefix %q", advice.Reason)
	}
	if parts[2] != "nearest support 11.50" || parts[3] != "nearest resistance 13.00" {
		t.Errorf("unexpected level phrases %q", advice.Reason)
	}
	if !strings.Contains(parts[4], "RSI neutral") {
		t.Errorf("expected oscillator reasons last, got %q", parts[4])
	}
}

func TestArbitrate_TargetFallsBackWithoutResistance(t *testing.T) {
	advice := NewSignalArbitrator().Arbitrate(Inputs{
		Status:   neutralStatus(),
		Trend:    patterns.TrendAssessment{Direction: patterns.TrendUp, Confidence: 0.8},
		Patterns: []analysis.PatternMatch{{Name: "x", Polarity: analysis.Bullish, Confidence: 0.8}},
		Levels:   levelsAt(100, nil, nil),
	})
	if advice.TakeProfit == nil || math.Abs(*advice.TakeProfit-105) > 1e-9 {
		t.Errorf("expected 5%% target 105, got %v", advice.TakeProfit)
	}
	if advice.SupportLevels == nil || advice.ResistanceLevels == nil {
		t.Error("expected empty, non-nil level slices")
	}
}

func TestArbitrate_DowntrendPatternSells(t *testing.T) {
	status := neutralStatus()
	status.MA.State = scoring.AlignmentBullish
	status.MACD.State = scoring.MACDGoldenCross
	status.RSI.State = scoring.Oversold

	advice := NewSignalArbitrator().Arbitrate(Inputs{
		Status: status,
		Trend:  patterns.TrendAssessment{Direction: patterns.TrendDown, Confidence: 0.8},
		Patterns: []analysis.PatternMatch{
			{Name: patterns.PatternLongUpperShadow, Polarity: analysis.Bearish, Confidence: 0.7, Description: "long upper shadow", StopLoss: 12},
		},
		Levels: levelsAt(11, nil, nil),
	})

	if advice.Base.Action != models.ActionBuy {
		t.Fatalf("expected oscillator vote BUY, got %s", advice.Base.Action)
	}
	if advice.Action != models.ActionSell || advice.PositionPct != 0 {
		t.Errorf("expected SELL 0, got %s %d", advice.Action, advice.PositionPct)
	}
	if advice.TakeProfit != nil {
		t.Errorf("sell setup should not set a target, got %v", *advice.TakeProfit)
	}
}

func TestArbitrate_RangeSetupBelowOverride(t *testing.T) {
	advice := NewSignalArbitrator().Arbitrate(Inputs{
		Status: neutralStatus(),
		Trend:  patterns.TrendAssessment{Direction: patterns.TrendSideways, Confidence: 0.5},
		Patterns: []analysis.PatternMatch{
			{Name: patterns.PatternExpandingPeak, Polarity: analysis.Bullish, Confidence: 0.85},
		},
		Levels: levelsAt(10, nil, nil),
	})

	if advice.Setup.Action != models.ActionBuy || math.Abs(advice.Setup.Confidence-0.68) > 1e-9 {
		t.Errorf("expected discounted BUY setup at 0.68, got %s %v", advice.Setup.Action, advice.Setup.Confidence)
	}
	if advice.Action != models.ActionHold || advice.PositionPct != 0 {
		t.Errorf("setup below 0.7 must not override, got %s %d", advice.Action, advice.PositionPct)
	}
	if advice.TakeProfit == nil || math.Abs(*advice.TakeProfit-10.3) > 1e-9 {
		t.Errorf("expected 3%% target, got %v", advice.TakeProfit)
	}
}

func TestArbitrate_WeakPatternInRangeIgnored(t *testing.T) {
	setup := NewSignalArbitrator().Setup(
		patterns.TrendAssessment{Direction: patterns.TrendUnknown},
		[]analysis.PatternMatch{{Polarity: analysis.Bullish, Confidence: 0.7}},
		levelsAt(10, nil, nil),
	)
	if setup.Action != models.ActionHold || setup.Confidence != 0.5 || setup.Description != ReasonNoSetup {
		t.Errorf("unexpected setup %+v", setup)
	}
}

func TestArbitrate_StrongestPatternTieKeepsEarliest(t *testing.T) {
	matches := []analysis.PatternMatch{
		{Name: "first", Polarity: analysis.Bullish, Confidence: 0.7},
		{Name: "bear", Polarity: analysis.Bearish, Confidence: 0.9},
		{Name: "second", Polarity: analysis.Bullish, Confidence: 0.7},
	}
	if got := strongest(matches, analysis.Bullish); got == nil || got.Name != "first" {
		t.Errorf("expected earliest bullish match, got %+v", got)
	}
	if got := strongest(matches[:1], analysis.Bearish); got != nil {
		t.Errorf("expected no bearish match, got %+v", got)
	}
}

func TestArbitrate_HoldSetupOverride(t *testing.T) {
	a := NewSignalArbitrator()
	hold := Setup{Action: models.ActionHold, Confidence: 0.8}

	tests := []struct {
		basePct int
		want    int
	}{
		{0, 30},
		{40, 30},
		{80, 40},
	}
	for _, tt := range tests {
		action, pct := a.merge(scoring.OscillatorAdvice{Action: models.ActionBuy, PositionPct: tt.basePct}, hold)
		if action != models.ActionHold || pct != tt.want {
			t.Errorf("base %d: expected HOLD %d, got %s %d", tt.basePct, tt.want, action, pct)
		}
	}
}

func TestArbitrate_UnavailableStatus(t *testing.T) {
	advice := NewSignalArbitrator().Arbitrate(Inputs{
		Trend:  patterns.TrendAssessment{Direction: patterns.TrendUp, Confidence: 0.8},
		Levels: levelsAt(10, []float64{9}, nil),
	})
	if advice.Action != models.ActionHold || advice.PositionPct != 0 || advice.Reason != ReasonInsufficientData {
		t.Errorf("expected insufficient-data HOLD, got %s %d %q", advice.Action, advice.PositionPct, advice.Reason)
	}
	if advice.Trend.Direction != patterns.TrendUp || len(advice.SupportLevels) != 1 {
		t.Error("expected trend and levels to be attached")
	}
	if advice.EntryPrice != nil || advice.Patterns == nil {
		t.Error("expected no prices and a non-nil pattern list")
	}
}

func TestAdvise_EmptyAndShortSeries(t *testing.T) {
	for _, candles := range [][]models.Candle{nil, testutil.Rising(20, 10, 0.5)} {
		advice, err := Advise(candles, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if advice.Action != models.ActionHold || advice.PositionPct != 0 || advice.Reason != ReasonInsufficientData {
			t.Errorf("%d bars: expected insufficient-data HOLD, got %s %d %q", len(candles), advice.Action, advice.PositionPct, advice.Reason)
		}
		if advice.Status.Available {
			t.Errorf("%d bars: expected unavailable status", len(candles))
		}
	}
}

func TestAdvise_MonotonicSeries(t *testing.T) {
	advice, err := Advise(testutil.Rising(60, 10, 0.5), 3)
	if err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if advice.Trend.Direction != patterns.TrendUnknown {
		t.Errorf("expected unknown trend without extrema, got %s", advice.Trend.Direction)
	}
	if len(advice.SupportLevels) != 0 || len(advice.ResistanceLevels) != 0 {
		t.Errorf("expected no levels, got %v %v", advice.SupportLevels, advice.ResistanceLevels)
	}
	if !advice.Status.Available || advice.Reason == "" {
		t.Errorf("expected an available status and a reason, got %+v", advice)
	}
	if advice.CurrentPrice != 39.5 {
		t.Errorf("expected current price 39.5, got %v", advice.CurrentPrice)
	}
}

func TestAdvise_RejectsMalformedBars(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]models.Candle)
		index  int
		field  string
	}{
		{"nan close", func(c []models.Candle) { c[3].Close = math.NaN() }, 3, "close"},
		{"inf high", func(c []models.Candle) { c[5].High = math.Inf(1) }, 5, "high"},
		{"inverted range", func(c []models.Candle) { c[7].High = c[7].Low - 1 }, 7, "high"},
		{"negative volume", func(c []models.Candle) { c[2].Volume = -1 }, 2, "volume"},
		{"duplicate timestamp", func(c []models.Candle) { c[9].Timestamp = c[8].Timestamp }, 9, "timestamp"},
		{"out of order", func(c []models.Candle) { c[4].Timestamp = c[0].Timestamp }, 4, "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candles := testutil.Rising(40, 10, 0.5)
			tt.mutate(candles)

			advice, err := Advise(candles, 3)
			if advice != nil {
				t.Error("expected no advice for malformed input")
			}
			if !errors.Is(err, apperrors.ErrMalformedBar) {
				t.Fatalf("expected ErrMalformedBar, got %v", err)
			}
			var mbe *apperrors.MalformedBarError
			if !errors.As(err, &mbe) || mbe.Index != tt.index || mbe.Field != tt.field {
				t.Errorf("expected bar %d field %s, got %+v", tt.index, tt.field, mbe)
			}
		})
	}
}

// Property: advice is deterministic and its position stays within [0, 100].
func TestProperty_AdviseDeterministicAndBounded(t *testing.T) {
	properties := newProperties()

	properties.Property("same input yields identical advice", prop.ForAll(
		func(candles []models.Candle) bool {
			first, err1 := Advise(candles, 3)
			second, err2 := Advise(candles, 3)
			if err1 != nil || err2 != nil {
				return false
			}
			return reflect.DeepEqual(first, second)
		},
		testutil.CandleSliceGen(0, 80),
	))

	properties.Property("position is within [0, 100] and reason is set", prop.ForAll(
		func(candles []models.Candle) bool {
			advice, err := Advise(candles, 2)
			if err != nil {
				return false
			}
			if advice.PositionPct < 0 || advice.PositionPct > 100 || advice.Reason == "" {
				return false
			}
			switch advice.Action {
			case models.ActionBuy, models.ActionSell, models.ActionHold:
			default:
				return false
			}
			if advice.Action == models.ActionSell && advice.Setup.Confidence >= 0.7 && advice.Setup.Action == models.ActionSell {
				return advice.PositionPct == 0
			}
			return true
		},
		testutil.CandleSliceGen(0, 80),
	))

	properties.Property("levels sit on the correct side of the price", prop.ForAll(
		func(candles []models.Candle) bool {
			advice, err := Advise(candles, 3)
			if err != nil {
				return false
			}
			for _, s := range advice.SupportLevels {
				if s >= advice.CurrentPrice {
					return false
				}
			}
			for _, r := range advice.ResistanceLevels {
				if r <= advice.CurrentPrice {
					return false
				}
			}
			return true
		},
		testutil.CandleSliceGen(30, 80),
	))

	properties.TestingRun(t)
}
