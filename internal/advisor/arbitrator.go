package advisor

import (
	"fmt"
	"math"
	"strings"

	"peakline/internal/analysis"
	"peakline/internal/analysis/patterns"
	"peakline/internal/analysis/scoring"
	"peakline/internal/models"
)

const (
	// overrideConfidence is the setup confidence at which it replaces the vote.
	overrideConfidence = 0.7
	// strongPatternConfidence qualifies a bullish pattern outside a trend.
	strongPatternConfidence = 0.75
	// rangeDiscount scales pattern confidence when the trend is inconclusive.
	rangeDiscount   = 0.8
	holdConfidence  = 0.5
	minHoldPosition = 30

	trendTargetMultiple = 1.05
	rangeTargetMultiple = 1.03

	reasonSeparator = "; "
)

// Inputs are the component results the arbitrator merges.
type Inputs struct {
	Status   scoring.MarketStatus
	Trend    patterns.TrendAssessment
	Patterns []analysis.PatternMatch
	Levels   patterns.SupportResistance
}

// SignalArbitrator turns component results into a TradeAdvice. It holds no
// state, so one instance may serve concurrent callers.
type SignalArbitrator struct{}

// NewSignalArbitrator creates a new arbitrator.
func NewSignalArbitrator() *SignalArbitrator {
	return &SignalArbitrator{}
}

func (a *SignalArbitrator) Name() string {
	return "SignalArbitrator"
}

// Arbitrate votes the oscillators, evaluates the pattern/trend setup and
// merges the two.
func (a *SignalArbitrator) Arbitrate(in Inputs) TradeAdvice {
	base := scoring.Vote(in.Status)
	setup := a.Setup(in.Trend, in.Patterns, in.Levels)

	advice := TradeAdvice{
		CurrentPrice:     in.Levels.CurrentPrice,
		SupportLevels:    nonNil(in.Levels.Support),
		ResistanceLevels: nonNil(in.Levels.Resistance),
		Trend:            in.Trend,
		Patterns:         in.Patterns,
		Status:           in.Status,
		Base:             base,
		Setup:            setup,
	}
	if advice.Patterns == nil {
		advice.Patterns = []analysis.PatternMatch{}
	}

	if !in.Status.Available {
		advice.Action = models.ActionHold
		advice.PositionPct = 0
		advice.Reason = ReasonInsufficientData
		return advice
	}

	advice.Action, advice.PositionPct = a.merge(base, setup)
	advice.Confidence = setup.Confidence
	advice.EntryPrice = setup.EntryPrice
	advice.StopLoss = setup.StopLoss
	advice.TakeProfit = setup.TakeProfit
	advice.Reason = a.reason(base, setup, in.Trend, in.Levels)
	return advice
}

// Setup derives the pattern-and-trend recommendation. A bullish pattern in an
// uptrend buys, a bearish pattern in a downtrend sells, and a strong bullish
// pattern without a conclusive trend buys at a discount.
func (a *SignalArbitrator) Setup(trend patterns.TrendAssessment, matches []analysis.PatternMatch, levels patterns.SupportResistance) Setup {
	price := levels.CurrentPrice
	bullish := strongest(matches, analysis.Bullish)
	bearish := strongest(matches, analysis.Bearish)

	switch {
	case trend.Direction == patterns.TrendUp && bullish != nil:
		return Setup{
			Action:      models.ActionBuy,
			Confidence:  (trend.Confidence + bullish.Confidence) / 2,
			Description: fmt.Sprintf("uptrend with %s, buy", bullish.Name),
			Pattern:     bullish,
			EntryPrice:  analysis.Float(price),
			StopLoss:    analysis.Float(bullish.StopLoss),
			TakeProfit:  target(levels, price*trendTargetMultiple),
		}
	case trend.Direction == patterns.TrendDown && bearish != nil:
		return Setup{
			Action:      models.ActionSell,
			Confidence:  (trend.Confidence + bearish.Confidence) / 2,
			Description: fmt.Sprintf("downtrend with %s, sell or stand aside", bearish.Name),
			Pattern:     bearish,
			EntryPrice:  analysis.Float(price),
			StopLoss:    analysis.Float(bearish.StopLoss),
		}
	case !trend.Direction.IsConclusive() && bullish != nil && bullish.Confidence >= strongPatternConfidence:
		return Setup{
			Action:      models.ActionBuy,
			Confidence:  bullish.Confidence * rangeDiscount,
			Description: fmt.Sprintf("ranging market with strong %s, light long", bullish.Name),
			Pattern:     bullish,
			EntryPrice:  analysis.Float(price),
			StopLoss:    analysis.Float(bullish.StopLoss),
			TakeProfit:  target(levels, price*rangeTargetMultiple),
		}
	default:
		return Setup{
			Action:      models.ActionHold,
			Confidence:  holdConfidence,
			Description: ReasonNoSetup,
		}
	}
}

// merge lets a confident setup override the oscillator vote.
func (a *SignalArbitrator) merge(base scoring.OscillatorAdvice, setup Setup) (models.Action, int) {
	if setup.Confidence < overrideConfidence {
		return base.Action, scoring.ClampPosition(base.PositionPct)
	}

	switch setup.Action {
	case models.ActionBuy:
		return models.ActionBuy, scoring.ClampPosition(int(math.Round(setup.Confidence * 100)))
	case models.ActionSell:
		return models.ActionSell, 0
	default:
		pct := math.Max(float64(base.PositionPct)*0.5, minHoldPosition)
		return models.ActionHold, scoring.ClampPosition(int(math.Round(pct)))
	}
}

// reason prepends trend, pattern and level context to the vote's reasons.
func (a *SignalArbitrator) reason(base scoring.OscillatorAdvice, setup Setup, trend patterns.TrendAssessment, levels patterns.SupportResistance) string {
	var parts []string
	if trend.Direction != patterns.TrendUnknown && trend.Description != "" {
		parts = append(parts, trend.Description)
	}
	if setup.Pattern != nil {
		parts = append(parts, setup.Pattern.Description)
	}
	if levels.NearestSupport != nil {
		parts = append(parts, fmt.Sprintf("nearest support %.2f", *levels.NearestSupport))
	}
	if levels.NearestResistance != nil {
		parts = append(parts, fmt.Sprintf("nearest resistance %.2f", *levels.NearestResistance))
	}
	if r := base.Reason(); r != "" {
		parts = append(parts, r)
	}

	if len(parts) == 0 {
		return ReasonWait
	}
	return strings.Join(parts, reasonSeparator)
}

// strongest returns the highest-confidence match of the given polarity; the
// earliest wins a tie.
func strongest(matches []analysis.PatternMatch, polarity analysis.Polarity) *analysis.PatternMatch {
	var best *analysis.PatternMatch
	for i := range matches {
		m := matches[i]
		if m.Polarity != polarity {
			continue
		}
		if best == nil || m.Confidence > best.Confidence {
			best = &m
		}
	}
	return best
}

func target(levels patterns.SupportResistance, fallback float64) *float64 {
	if levels.NearestResistance != nil {
		return analysis.Float(*levels.NearestResistance)
	}
	return analysis.Float(fallback)
}

func nonNil(values []float64) []float64 {
	if values == nil {
		return []float64{}
	}
	return values
}
