package scoring

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"

	"peakline/internal/models"
	"peakline/internal/testutil"
)

// Property: for any valid candle data the oscillator vote produces a
// position within [0, 100], strengths within [0, 1.5], and a HOLD whenever
// neither side clears the threshold.

func TestProperty_VoteWithinBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)

	properties.Property("vote position and strengths are bounded", prop.ForAll(
		func(candles []models.Candle) bool {
			status := NewOscillatorAnalyzer().Analyze(candles)
			if len(candles) < MinBars && status.Available {
				return false
			}

			advice := Vote(status)
			if advice.PositionPct < 0 || advice.PositionPct > 100 {
				return false
			}
			if advice.BuyStrength < 0 || advice.BuyStrength > 1.5 || advice.SellStrength < 0 || advice.SellStrength > 1.5 {
				return false
			}
			if advice.Action == models.ActionHold && advice.PositionPct != 0 {
				return false
			}
			if advice.Action == models.ActionBuy && (advice.BuyStrength <= 0.5 || advice.BuyStrength <= advice.SellStrength) {
				return false
			}
			if advice.Action == models.ActionSell && (advice.SellStrength <= 0.5 || advice.SellStrength <= advice.BuyStrength) {
				return false
			}
			return len(advice.Reasons) > 0
		},
		testutil.CandleSliceGen(10, 80),
	))

	properties.TestingRun(t)
}
