package scoring

import (
	"strings"
	"testing"

	"peakline/internal/models"
	"peakline/internal/testutil"
)

func neutralStatus() MarketStatus {
	return MarketStatus{
		Available: true,
		MA:        MAReading{State: AlignmentNeutral},
		MACD:      MACDReading{State: MACDBullishWeakening},
		RSI:       RSIReading{State: Neutral, Value: 50},
		KDJ:       KDJReading{State: Neutral, K: 50, D: 50},
		Volume:    VolumeReading{State: VolumeFlat},
		Price:     PriceReading{State: PositionMid, Position: 50},
	}
}

func TestVote_AllBullishBuysFullPosition(t *testing.T) {
	status := neutralStatus()
	status.MA.State = AlignmentBullish
	status.MACD.State = MACDGoldenCross
	status.RSI = RSIReading{State: Oversold, Value: 25}
	status.KDJ.State = OscillatorCross

	advice := Vote(status)
	if advice.BuyStrength != 1.0 {
		t.Errorf("expected buy strength 1.0, got %v", advice.BuyStrength)
	}
	if advice.Action != models.ActionBuy || advice.PositionPct != 100 {
		t.Errorf("expected BUY 100, got %s %d", advice.Action, advice.PositionPct)
	}
	for _, want := range []string{"bullish alignment", "MACD golden cross", "RSI oversold", "KDJ golden cross"} {
		if !strings.Contains(advice.Reason(), want) {
			t.Errorf("reason %q missing %q", advice.Reason(), want)
		}
	}
}

func TestVote_Sell(t *testing.T) {
	status := neutralStatus()
	status.MA.State = AlignmentBearish
	status.MACD.State = MACDDeathCross
	status.RSI.State = Overbought
	status.Price.State = PositionHigh

	advice := Vote(status)
	if advice.Action != models.ActionSell {
		t.Fatalf("expected SELL, got %s", advice.Action)
	}
	if advice.SellStrength != 0.875 || advice.PositionPct != 88 {
		t.Errorf("expected strength 0.875 and position 88, got %v %d", advice.SellStrength, advice.PositionPct)
	}
	if !strings.Contains(advice.Reason(), "price near channel high") {
		t.Errorf("unexpected reason %q", advice.Reason())
	}
}

func TestVote_VolumeConfirmsTrend(t *testing.T) {
	status := neutralStatus()
	status.MA.State = AlignmentBullish
	status.MACD.State = MACDBullishTrend
	status.Volume.State = VolumeExpanding

	advice := Vote(status)
	if advice.Action != models.ActionBuy || advice.PositionPct != 63 {
		t.Errorf("expected BUY 63, got %s %d", advice.Action, advice.PositionPct)
	}
	if !strings.Contains(advice.Reason(), "expanding volume") {
		t.Errorf("unexpected reason %q", advice.Reason())
	}
}

func TestVote_HalfStrengthHolds(t *testing.T) {
	status := neutralStatus()
	status.MA.State = AlignmentBullish
	status.MACD.State = MACDBullishTrend

	advice := Vote(status)
	if advice.BuyStrength != 0.5 {
		t.Fatalf("expected buy strength 0.5, got %v", advice.BuyStrength)
	}
	if advice.Action != models.ActionHold || advice.PositionPct != 0 {
		t.Errorf("expected HOLD 0, got %s %d", advice.Action, advice.PositionPct)
	}
}

func TestVote_NeutralListsIndecisiveIndicators(t *testing.T) {
	advice := Vote(neutralStatus())
	if advice.Action != models.ActionHold {
		t.Fatalf("expected HOLD, got %s", advice.Action)
	}
	if len(advice.Reasons) != 6 {
		t.Errorf("expected six hold reasons, got %v", advice.Reasons)
	}
}

func TestVote_InconclusiveDefault(t *testing.T) {
	status := neutralStatus()
	status.MA.State = AlignmentBullish
	status.MACD.State = MACDDeathCross
	status.RSI.State = Overbought
	status.KDJ.State = Oversold
	status.Volume.State = VolumeExpanding
	status.Price.State = PositionHigh

	advice := Vote(status)
	if advice.BuyStrength != advice.SellStrength {
		t.Fatalf("expected balanced votes, got %v vs %v", advice.BuyStrength, advice.SellStrength)
	}
	if advice.Action != models.ActionHold {
		t.Fatalf("expected HOLD, got %s", advice.Action)
	}
	if advice.Reason() != Inconclusive {
		t.Errorf("expected %q, got %q", Inconclusive, advice.Reason())
	}
}

func TestVote_Unavailable(t *testing.T) {
	advice := Vote(MarketStatus{})
	if advice.Action != models.ActionHold || advice.PositionPct != 0 || advice.Reason() != InsufficientData {
		t.Errorf("unexpected advice for empty status: %+v", advice)
	}
}

func TestClassifyMACD(t *testing.T) {
	tests := []struct {
		name                 string
		prevDIF, prevDEA     float64
		dif, dea, histChange float64
		want                 MACDState
	}{
		{"golden cross", -0.1, 0, 0.2, 0.1, 0.1, MACDGoldenCross},
		{"death cross", 0.2, 0.1, -0.1, 0, -0.1, MACDDeathCross},
		{"cross wins over zero line", 1, 1, 2, 1, -0.5, MACDGoldenCross},
		{"bullish trend", 1, 0.5, 1.2, 0.6, 0.1, MACDBullishTrend},
		{"bullish weakening", 1, 0.5, 1.1, 0.7, -0.1, MACDBullishWeakening},
		{"bearish trend", -1, -0.5, -1.2, -0.6, -0.1, MACDBearishTrend},
		{"bearish weakening", -1, -0.5, -1.1, -0.7, 0.1, MACDBearishWeakening},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyMACD(tt.prevDIF, tt.prevDEA, tt.dif, tt.dea, tt.histChange); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClassifyKDJ(t *testing.T) {
	tests := []struct {
		name               string
		prevK, prevD, k, d float64
		want               OscillatorState
	}{
		{"overbought beats cross", 79, 81, 85, 82, Overbought},
		{"oversold", 15, 12, 10, 15, Oversold},
		{"golden cross", 40, 45, 50, 46, OscillatorCross},
		{"death cross", 50, 45, 44, 46, OscillatorDeath},
		{"neutral", 50, 45, 52, 46, Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyKDJ(tt.prevK, tt.prevD, tt.k, tt.d); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestClassifyAlignment(t *testing.T) {
	if ClassifyAlignment(3, 2, 1) != AlignmentBullish {
		t.Error("expected bullish alignment")
	}
	if ClassifyAlignment(1, 2, 3) != AlignmentBearish {
		t.Error("expected bearish alignment")
	}
	if ClassifyAlignment(2, 2, 1) != AlignmentNeutral {
		t.Error("expected neutral alignment on a tie")
	}
}

func TestAnalyze_ShortSeriesUnavailable(t *testing.T) {
	status := NewOscillatorAnalyzer().Analyze(testutil.Rising(29, 10, 1))
	if status.Available {
		t.Errorf("expected unavailable status for 29 bars, got %+v", status)
	}
}

func TestAnalyze_RisingSeries(t *testing.T) {
	candles := testutil.Rising(60, 10, 1)
	status := NewOscillatorAnalyzer().Analyze(candles)
	if !status.Available {
		t.Fatal("expected status for 60 bars")
	}
	if status.MA.State != AlignmentBullish {
		t.Errorf("expected bullish alignment, got %s", status.MA.State)
	}
	if status.RSI.State != Overbought || status.RSI.Value != 100 {
		t.Errorf("expected RSI 100 overbought, got %+v", status.RSI)
	}
	if status.KDJ.State != Overbought {
		t.Errorf("expected KDJ overbought, got %+v", status.KDJ)
	}
	if status.Price.State != PositionHigh {
		t.Errorf("expected high channel position, got %+v", status.Price)
	}
	if status.Volume.State != VolumeFlat || status.Volume.ChangePct != 0 {
		t.Errorf("expected flat volume, got %+v", status.Volume)
	}
	if !status.BBI.Above {
		t.Errorf("expected close above BBI, got %+v", status.BBI)
	}
	if status.MACD.DIF <= 0 {
		t.Errorf("expected positive DIF, got %v", status.MACD.DIF)
	}

	advice := Vote(status)
	if advice.Action != models.ActionSell {
		t.Errorf("expected overextended series to vote SELL, got %+v", advice)
	}
}

func TestClampPosition(t *testing.T) {
	if ClampPosition(-5) != 0 || ClampPosition(150) != 100 || ClampPosition(42) != 42 {
		t.Error("ClampPosition out of bounds")
	}
}

func TestAnalyze_RSIReadsRecentRebound(t *testing.T) {
	var closes []float64
	for i := 0; i < 16; i++ {
		closes = append(closes, 200-5*float64(i))
	}
	for i := 1; i <= 15; i++ {
		closes = append(closes, 125+float64(i))
	}

	status := NewOscillatorAnalyzer().Analyze(testutil.FromCloses(closes...))
	if !status.Available {
		t.Fatal("expected status for 31 bars")
	}
	if status.RSI.Value != 100 || status.RSI.State != Overbought {
		t.Errorf("expected RSI 100 overbought after the rebound, got %+v", status.RSI)
	}
}
