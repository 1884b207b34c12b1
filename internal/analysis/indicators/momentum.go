package indicators

import (
	"fmt"

	"peakline/internal/models"
)

// RSI calculates the Relative Strength Index. Average gain and loss are the
// plain means of the last period changes, not Wilder averages.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI_%d", r.period)
}

func (r *RSI) Period() int {
	return r.period
}

func (r *RSI) Calculate(candles []models.Candle) ([]float64, error) {
	if r.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < r.period+1 {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	result := make([]float64, n)
	closes := closePrices(candles)

	gains := make([]float64, n)
	losses := make([]float64, n)

	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	for i := r.period; i < n; i++ {
		window := i - r.period + 1
		result[i] = rsiValue(mean(gains[window:i+1]), mean(losses[window:i+1]))
	}

	return result, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// KDJ calculates the KDJ stochastic oscillator.
//
// RSV is the close's position inside the n-bar high/low range. K and D are
// recursive 1/m smoothings of RSV and K respectively, seeded with the first
// RSV, and J = 3K - 2D. Bars before the first full window report 50.
type KDJ struct {
	n  int
	m1 int
	m2 int
}

// NewKDJ creates a new KDJ indicator, conventionally (9, 3, 3).
func NewKDJ(n, m1, m2 int) *KDJ {
	return &KDJ{n: n, m1: m1, m2: m2}
}

func (k *KDJ) Name() string {
	return fmt.Sprintf("KDJ_%d_%d_%d", k.n, k.m1, k.m2)
}

func (k *KDJ) Period() int {
	return k.n
}

func (k *KDJ) Calculate(candles []models.Candle) (map[string][]float64, error) {
	if k.n <= 0 || k.m1 <= 0 || k.m2 <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < k.n {
		return nil, ErrInsufficientData
	}

	size := len(candles)
	highs := highPrices(candles)
	lows := lowPrices(candles)
	closes := closePrices(candles)

	kLine := make([]float64, size)
	dLine := make([]float64, size)
	jLine := make([]float64, size)

	prevK, prevD := 50.0, 50.0
	for i := 0; i < size; i++ {
		if i < k.n-1 {
			kLine[i], dLine[i], jLine[i] = prevK, prevD, 3*prevK-2*prevD
			continue
		}
		hh := highest(highs[i-k.n+1 : i+1])
		ll := lowest(lows[i-k.n+1 : i+1])

		rsv := 50.0
		if hh != ll {
			rsv = 100 * (closes[i] - ll) / (hh - ll)
		}

		curK, curD := rsv, rsv
		if i > k.n-1 {
			curK = (float64(k.m1-1)*prevK + rsv) / float64(k.m1)
			curD = (float64(k.m2-1)*prevD + curK) / float64(k.m2)
		}
		kLine[i], dLine[i], jLine[i] = curK, curD, 3*curK-2*curD
		prevK, prevD = curK, curD
	}

	return map[string][]float64{
		"k": kLine,
		"d": dLine,
		"j": jLine,
	}, nil
}
