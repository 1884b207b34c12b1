package notify

import (
	"sync"

	"peakline/internal/advisor"
	"peakline/internal/models"
)

// SignalChange is a symbol whose advised action differs from the previous
// scan.
type SignalChange struct {
	Symbol      string
	Previous    models.Action // empty on first sight
	Current     models.Action
	PositionPct int
	Price       float64
	Reason      string
}

// SignalTracker remembers the last action advised per symbol for the life of
// the process.
type SignalTracker struct {
	mu   sync.Mutex
	last map[string]models.Action
}

// NewSignalTracker creates an empty tracker.
func NewSignalTracker() *SignalTracker {
	return &SignalTracker{last: make(map[string]models.Action)}
}

// Update records the scan and returns the changes in result order. A symbol
// seen for the first time counts as a change unless it holds. Failed results
// leave the remembered action untouched.
func (t *SignalTracker) Update(results []advisor.ScanResult) []SignalChange {
	t.mu.Lock()
	defer t.mu.Unlock()

	var changes []SignalChange
	for _, r := range results {
		if r.Advice == nil {
			continue
		}
		current := r.Advice.Action
		previous, seen := t.last[r.Symbol]
		t.last[r.Symbol] = current

		if seen && previous == current {
			continue
		}
		if !seen && current == models.ActionHold {
			continue
		}
		changes = append(changes, SignalChange{
			Symbol:      r.Symbol,
			Previous:    previous,
			Current:     current,
			PositionPct: r.Advice.PositionPct,
			Price:       r.Advice.CurrentPrice,
			Reason:      r.Advice.Reason,
		})
	}
	return changes
}

// Last returns the remembered action for symbol.
func (t *SignalTracker) Last(symbol string) (models.Action, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.last[symbol]
	return a, ok
}
