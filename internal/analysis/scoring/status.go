// Package scoring reads oscillator states from a price series and votes them
// into a base trade recommendation.
package scoring

import (
	"peakline/internal/analysis/indicators"
	"peakline/internal/models"
)

// MinBars is the shortest series the oscillator analyzer will read.
const MinBars = 30

// Alignment is the ordering of the short, medium and long moving averages.
type Alignment string

const (
	AlignmentBullish Alignment = "BULLISH"
	AlignmentBearish Alignment = "BEARISH"
	AlignmentNeutral Alignment = "NEUTRAL"
)

// MACDState is the MACD reading. Crosses take precedence over trend states.
type MACDState string

const (
	MACDGoldenCross      MACDState = "GOLDEN_CROSS"
	MACDDeathCross       MACDState = "DEATH_CROSS"
	MACDBullishTrend     MACDState = "BULLISH_TREND"
	MACDBullishWeakening MACDState = "BULLISH_WEAKENING"
	MACDBearishTrend     MACDState = "BEARISH_TREND"
	MACDBearishWeakening MACDState = "BEARISH_WEAKENING"
)

// IsBullish reports whether the state votes for buying.
func (s MACDState) IsBullish() bool {
	return s == MACDGoldenCross || s == MACDBullishTrend
}

// IsBearish reports whether the state votes for selling.
func (s MACDState) IsBearish() bool {
	return s == MACDDeathCross || s == MACDBearishTrend
}

// OscillatorState is a bounded oscillator zone.
type OscillatorState string

const (
	Overbought      OscillatorState = "OVERBOUGHT"
	Oversold        OscillatorState = "OVERSOLD"
	OscillatorCross OscillatorState = "GOLDEN_CROSS"
	OscillatorDeath OscillatorState = "DEATH_CROSS"
	Neutral         OscillatorState = "NEUTRAL"
)

// VolumeState compares the latest volume to its 5-bar average.
type VolumeState string

const (
	VolumeExpanding   VolumeState = "EXPANDING"
	VolumeContracting VolumeState = "CONTRACTING"
	VolumeFlat        VolumeState = "FLAT"
)

// PositionState locates the close inside the 20-bar channel.
type PositionState string

const (
	PositionHigh PositionState = "HIGH"
	PositionLow  PositionState = "LOW"
	PositionMid  PositionState = "MID"
)

// MAReading holds the moving average alignment.
type MAReading struct {
	State Alignment `json:"state" yaml:"state"`
	MA5   float64   `json:"ma5" yaml:"ma5"`
	MA10  float64   `json:"ma10" yaml:"ma10"`
	MA20  float64   `json:"ma20" yaml:"ma20"`
}

// MACDReading holds the MACD state and its lines.
type MACDReading struct {
	State           MACDState `json:"state" yaml:"state"`
	DIF             float64   `json:"dif" yaml:"dif"`
	DEA             float64   `json:"dea" yaml:"dea"`
	Histogram       float64   `json:"histogram" yaml:"histogram"`
	HistogramChange float64   `json:"histogram_change" yaml:"histogram_change"`
}

// RSIReading holds the RSI zone and its day-over-day delta.
type RSIReading struct {
	State  OscillatorState `json:"state" yaml:"state"`
	Value  float64         `json:"value" yaml:"value"`
	Change float64         `json:"change" yaml:"change"`
}

// KDJReading holds the KDJ state and lines.
type KDJReading struct {
	State OscillatorState `json:"state" yaml:"state"`
	K     float64         `json:"k" yaml:"k"`
	D     float64         `json:"d" yaml:"d"`
	J     float64         `json:"j" yaml:"j"`
}

// VolumeReading holds the volume state.
type VolumeReading struct {
	State     VolumeState `json:"state" yaml:"state"`
	Value     int64       `json:"value" yaml:"value"`
	Average   float64     `json:"average" yaml:"average"`
	ChangePct float64     `json:"change_pct" yaml:"change_pct"`
}

// PriceReading holds the channel position of the latest close.
type PriceReading struct {
	State     PositionState `json:"state" yaml:"state"`
	Position  float64       `json:"position" yaml:"position"`
	Close     float64       `json:"close" yaml:"close"`
	ChangePct float64       `json:"change_pct" yaml:"change_pct"`
}

// BBIReading holds the Bull-Bear Index and whether the close is above it.
type BBIReading struct {
	Value float64 `json:"value" yaml:"value"`
	Above bool    `json:"above" yaml:"above"`
}

// MarketStatus is the oscillator snapshot for the latest bar. When Available
// is false the series was too short and every reading is zero.
type MarketStatus struct {
	Available bool          `json:"available" yaml:"available"`
	MA        MAReading     `json:"ma" yaml:"ma"`
	MACD      MACDReading   `json:"macd" yaml:"macd"`
	RSI       RSIReading    `json:"rsi" yaml:"rsi"`
	KDJ       KDJReading    `json:"kdj" yaml:"kdj"`
	Volume    VolumeReading `json:"volume" yaml:"volume"`
	Price     PriceReading  `json:"price" yaml:"price"`
	BBI       BBIReading    `json:"bbi" yaml:"bbi"`
}

// OscillatorAnalyzer computes MarketStatus from a candle series.
type OscillatorAnalyzer struct {
	minBars int

	ma5     *indicators.SMA
	ma10    *indicators.SMA
	ma20    *indicators.SMA
	macd    *indicators.MACD
	rsi     *indicators.RSI
	kdj     *indicators.KDJ
	volMA   *indicators.VolumeSMA
	channel *indicators.PriceChannel
	bbi     *indicators.BBI
}

// NewOscillatorAnalyzer creates an analyzer with the conventional periods.
func NewOscillatorAnalyzer() *OscillatorAnalyzer {
	return NewOscillatorAnalyzerWithMinBars(MinBars)
}

// NewOscillatorAnalyzerWithMinBars creates an analyzer that requires at least
// minBars bars. Values below MinBars are raised to MinBars.
func NewOscillatorAnalyzerWithMinBars(minBars int) *OscillatorAnalyzer {
	if minBars < MinBars {
		minBars = MinBars
	}
	return &OscillatorAnalyzer{
		minBars: minBars,
		ma5:     indicators.NewSMA(5),
		ma10:    indicators.NewSMA(10),
		ma20:    indicators.NewSMA(20),
		macd:    indicators.NewMACD(12, 26, 9),
		rsi:     indicators.NewRSI(14),
		kdj:     indicators.NewKDJ(9, 3, 3),
		volMA:   indicators.NewVolumeSMA(5),
		channel: indicators.NewPriceChannel(20),
		bbi:     indicators.NewBBI(),
	}
}

func (a *OscillatorAnalyzer) Name() string {
	return "OscillatorAnalyzer"
}

// MinBars returns the minimum series length.
func (a *OscillatorAnalyzer) MinBars() int {
	return a.minBars
}

// Analyze returns the oscillator snapshot for the latest bar. Short series
// yield an unavailable status rather than an error.
func (a *OscillatorAnalyzer) Analyze(candles []models.Candle) MarketStatus {
	if len(candles) < a.minBars {
		return MarketStatus{}
	}

	ma, err := a.readMA(candles)
	if err != nil {
		return MarketStatus{}
	}
	macd, err := a.readMACD(candles)
	if err != nil {
		return MarketStatus{}
	}
	rsi, err := a.readRSI(candles)
	if err != nil {
		return MarketStatus{}
	}
	kdj, err := a.readKDJ(candles)
	if err != nil {
		return MarketStatus{}
	}
	volume, err := a.readVolume(candles)
	if err != nil {
		return MarketStatus{}
	}
	price, err := a.readPrice(candles)
	if err != nil {
		return MarketStatus{}
	}
	bbi, err := a.readBBI(candles)
	if err != nil {
		return MarketStatus{}
	}

	return MarketStatus{
		Available: true,
		MA:        ma,
		MACD:      macd,
		RSI:       rsi,
		KDJ:       kdj,
		Volume:    volume,
		Price:     price,
		BBI:       bbi,
	}
}

func (a *OscillatorAnalyzer) readMA(candles []models.Candle) (MAReading, error) {
	ma5, err := a.ma5.Calculate(candles)
	if err != nil {
		return MAReading{}, err
	}
	ma10, err := a.ma10.Calculate(candles)
	if err != nil {
		return MAReading{}, err
	}
	ma20, err := a.ma20.Calculate(candles)
	if err != nil {
		return MAReading{}, err
	}

	r := MAReading{
		MA5:  indicators.Last(ma5),
		MA10: indicators.Last(ma10),
		MA20: indicators.Last(ma20),
	}
	r.State = ClassifyAlignment(r.MA5, r.MA10, r.MA20)
	return r, nil
}

// ClassifyAlignment returns Bullish for strictly descending short-to-long
// averages, Bearish for strictly ascending, otherwise Neutral.
func ClassifyAlignment(short, medium, long float64) Alignment {
	switch {
	case short > medium && medium > long:
		return AlignmentBullish
	case short < medium && medium < long:
		return AlignmentBearish
	default:
		return AlignmentNeutral
	}
}

func (a *OscillatorAnalyzer) readMACD(candles []models.Candle) (MACDReading, error) {
	values, err := a.macd.Calculate(candles)
	if err != nil {
		return MACDReading{}, err
	}
	dif, dea, hist := values["macd"], values["signal"], values["histogram"]

	r := MACDReading{
		DIF:             indicators.Last(dif),
		DEA:             indicators.Last(dea),
		Histogram:       indicators.Last(hist),
		HistogramChange: indicators.Last(hist) - indicators.Prev(hist),
	}
	r.State = ClassifyMACD(indicators.Prev(dif), indicators.Prev(dea), r.DIF, r.DEA, r.HistogramChange)
	return r, nil
}

// ClassifyMACD derives one of the six MACD states from the previous and
// current MACD/signal values and the histogram change.
func ClassifyMACD(prevDIF, prevDEA, dif, dea, histChange float64) MACDState {
	switch {
	case prevDIF <= prevDEA && dif > dea:
		return MACDGoldenCross
	case prevDIF >= prevDEA && dif < dea:
		return MACDDeathCross
	case dif >= 0 && histChange > 0:
		return MACDBullishTrend
	case dif >= 0:
		return MACDBullishWeakening
	case histChange < 0:
		return MACDBearishTrend
	default:
		return MACDBearishWeakening
	}
}

func (a *OscillatorAnalyzer) readRSI(candles []models.Candle) (RSIReading, error) {
	values, err := a.rsi.Calculate(candles)
	if err != nil {
		return RSIReading{}, err
	}

	r := RSIReading{
		Value:  indicators.Last(values),
		Change: indicators.Last(values) - indicators.Prev(values),
	}
	switch {
	case r.Value > 70:
		r.State = Overbought
	case r.Value < 30:
		r.State = Oversold
	default:
		r.State = Neutral
	}
	return r, nil
}

func (a *OscillatorAnalyzer) readKDJ(candles []models.Candle) (KDJReading, error) {
	values, err := a.kdj.Calculate(candles)
	if err != nil {
		return KDJReading{}, err
	}
	k, d, j := values["k"], values["d"], values["j"]

	r := KDJReading{
		K: indicators.Last(k),
		D: indicators.Last(d),
		J: indicators.Last(j),
	}
	r.State = ClassifyKDJ(indicators.Prev(k), indicators.Prev(d), r.K, r.D)
	return r, nil
}

// ClassifyKDJ evaluates overbought, oversold, golden cross, death cross and
// neutral in that order.
func ClassifyKDJ(prevK, prevD, k, d float64) OscillatorState {
	switch {
	case k > 80 && d > 80:
		return Overbought
	case k < 20 && d < 20:
		return Oversold
	case k > d && prevK <= prevD:
		return OscillatorCross
	case k < d && prevK >= prevD:
		return OscillatorDeath
	default:
		return Neutral
	}
}

func (a *OscillatorAnalyzer) readVolume(candles []models.Candle) (VolumeReading, error) {
	avg, err := a.volMA.Calculate(candles)
	if err != nil {
		return VolumeReading{}, err
	}

	last := candles[len(candles)-1]
	prev := candles[len(candles)-2]
	r := VolumeReading{
		Value:     last.Volume,
		Average:   indicators.Last(avg),
		ChangePct: percentChange(float64(prev.Volume), float64(last.Volume)),
	}
	v := float64(last.Volume)
	switch {
	case v > 1.5*r.Average:
		r.State = VolumeExpanding
	case v < 0.5*r.Average:
		r.State = VolumeContracting
	default:
		r.State = VolumeFlat
	}
	return r, nil
}

func (a *OscillatorAnalyzer) readPrice(candles []models.Candle) (PriceReading, error) {
	values, err := a.channel.Calculate(candles)
	if err != nil {
		return PriceReading{}, err
	}

	last := candles[len(candles)-1]
	prev := candles[len(candles)-2]
	r := PriceReading{
		Position:  indicators.Last(values["position"]),
		Close:     last.Close,
		ChangePct: percentChange(prev.Close, last.Close),
	}
	switch {
	case r.Position > 80:
		r.State = PositionHigh
	case r.Position < 20:
		r.State = PositionLow
	default:
		r.State = PositionMid
	}
	return r, nil
}

func (a *OscillatorAnalyzer) readBBI(candles []models.Candle) (BBIReading, error) {
	values, err := a.bbi.Calculate(candles)
	if err != nil {
		return BBIReading{}, err
	}
	v := indicators.Last(values)
	return BBIReading{Value: v, Above: candles[len(candles)-1].Close > v}, nil
}

// percentChange returns the change from prev to curr in percent, or 0 when
// prev is zero.
func percentChange(prev, curr float64) float64 {
	if prev == 0 {
		return 0
	}
	return (curr/prev - 1) * 100
}
