package scoring

import (
	"math"
	"strings"

	"peakline/internal/models"
)

const (
	// totalSignals normalizes votes over the four primary oscillators.
	totalSignals = 4.0
	// actionThreshold is the strength a side must exceed to act.
	actionThreshold = 0.5

	// InsufficientData is the reason given when no status could be computed.
	InsufficientData = "insufficient data"
	// Inconclusive is the reason given when nothing triggered.
	Inconclusive = "indicators inconclusive"
)

// OscillatorAdvice is the base recommendation voted from a MarketStatus.
type OscillatorAdvice struct {
	Action       models.Action `json:"action" yaml:"action"`
	PositionPct  int           `json:"position_pct" yaml:"position_pct"`
	BuyStrength  float64       `json:"buy_strength" yaml:"buy_strength"`
	SellStrength float64       `json:"sell_strength" yaml:"sell_strength"`
	Reasons      []string      `json:"reasons" yaml:"reasons"`
}

// Reason joins the reasons into a single sentence.
func (o OscillatorAdvice) Reason() string {
	return strings.Join(o.Reasons, ", ")
}

// Vote tallies buy and sell points from the oscillator readings. MA, MACD,
// RSI and KDJ each carry one point; volume expansion and channel extremes
// add half a point.
func Vote(status MarketStatus) OscillatorAdvice {
	if !status.Available {
		return OscillatorAdvice{
			Action:  models.ActionHold,
			Reasons: []string{InsufficientData},
		}
	}

	var buy, sell float64

	switch status.MA.State {
	case AlignmentBullish:
		buy++
	case AlignmentBearish:
		sell++
	}

	switch {
	case status.MACD.State.IsBullish():
		buy++
	case status.MACD.State.IsBearish():
		sell++
	}

	switch status.RSI.State {
	case Oversold:
		buy++
	case Overbought:
		sell++
	}

	switch status.KDJ.State {
	case Oversold, OscillatorCross:
		buy++
	case Overbought, OscillatorDeath:
		sell++
	}

	volumeBuy := status.Volume.State == VolumeExpanding &&
		(status.MA.State == AlignmentBullish || status.MACD.State == MACDGoldenCross)
	volumeSell := !volumeBuy && status.Volume.State == VolumeExpanding &&
		(status.MA.State == AlignmentBearish || status.MACD.State == MACDDeathCross)
	if volumeBuy {
		buy += 0.5
	}
	if volumeSell {
		sell += 0.5
	}

	switch status.Price.State {
	case PositionLow:
		buy += 0.5
	case PositionHigh:
		sell += 0.5
	}

	advice := OscillatorAdvice{
		BuyStrength:  buy / totalSignals,
		SellStrength: sell / totalSignals,
	}

	switch {
	case advice.BuyStrength > advice.SellStrength && advice.BuyStrength > actionThreshold:
		advice.Action = models.ActionBuy
		advice.PositionPct = positionFromStrength(advice.BuyStrength)
		advice.Reasons = buyReasons(status, volumeBuy)
	case advice.SellStrength > advice.BuyStrength && advice.SellStrength > actionThreshold:
		advice.Action = models.ActionSell
		advice.PositionPct = positionFromStrength(advice.SellStrength)
		advice.Reasons = sellReasons(status, volumeSell)
	default:
		advice.Action = models.ActionHold
		advice.Reasons = holdReasons(status)
	}

	if len(advice.Reasons) == 0 {
		advice.Reasons = []string{Inconclusive}
	}
	return advice
}

func positionFromStrength(strength float64) int {
	return ClampPosition(int(math.Round(math.Min(strength*100, 100))))
}

// ClampPosition bounds a position percentage to [0, 100].
func ClampPosition(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func buyReasons(s MarketStatus, volume bool) []string {
	var reasons []string
	if s.MA.State == AlignmentBullish {
		reasons = append(reasons, "moving averages in bullish alignment")
	}
	switch s.MACD.State {
	case MACDGoldenCross:
		reasons = append(reasons, "MACD golden cross")
	case MACDBullishTrend:
		reasons = append(reasons, "MACD in bullish trend")
	}
	if s.RSI.State == Oversold {
		reasons = append(reasons, "RSI oversold")
	}
	switch s.KDJ.State {
	case Oversold:
		reasons = append(reasons, "KDJ oversold")
	case OscillatorCross:
		reasons = append(reasons, "KDJ golden cross")
	}
	if volume {
		reasons = append(reasons, "rising on expanding volume")
	}
	if s.Price.State == PositionLow {
		reasons = append(reasons, "price near channel low")
	}
	return reasons
}

func sellReasons(s MarketStatus, volume bool) []string {
	var reasons []string
	if s.MA.State == AlignmentBearish {
		reasons = append(reasons, "moving averages in bearish alignment")
	}
	switch s.MACD.State {
	case MACDDeathCross:
		reasons = append(reasons, "MACD death cross")
	case MACDBearishTrend:
		reasons = append(reasons, "MACD in bearish trend")
	}
	if s.RSI.State == Overbought {
		reasons = append(reasons, "RSI overbought")
	}
	switch s.KDJ.State {
	case Overbought:
		reasons = append(reasons, "KDJ overbought")
	case OscillatorDeath:
		reasons = append(reasons, "KDJ death cross")
	}
	if volume {
		reasons = append(reasons, "falling on expanding volume")
	}
	if s.Price.State == PositionHigh {
		reasons = append(reasons, "price near channel high")
	}
	return reasons
}

func holdReasons(s MarketStatus) []string {
	var reasons []string
	if s.MA.State == AlignmentNeutral {
		reasons = append(reasons, "moving averages mixed")
	}
	if s.MACD.State != MACDGoldenCross && s.MACD.State != MACDDeathCross {
		reasons = append(reasons, "no MACD cross")
	}
	if s.RSI.State == Neutral {
		reasons = append(reasons, "RSI neutral")
	}
	if s.KDJ.State == Neutral {
		reasons = append(reasons, "KDJ neutral")
	}
	if s.Volume.State == VolumeFlat {
		reasons = append(reasons, "volume flat")
	}
	if s.Price.State == PositionMid {
		reasons = append(reasons, "price mid-channel")
	}
	return reasons
}
