package store

import (
	"fmt"
	"time"
)

// DataFreshness describes how recently a symbol's candles were synced.
type DataFreshness struct {
	Key         string
	LastUpdated time.Time
	IsFresh     bool
	Age         time.Duration
}

// CheckFreshness reports whether key was synced within maxAge of now.
func CheckFreshness(s CandleStore, key string, maxAge time.Duration, now time.Time) DataFreshness {
	last := s.GetLastSync(key)
	if last.IsZero() {
		return DataFreshness{Key: key}
	}

	age := now.Sub(last)
	return DataFreshness{
		Key:         key,
		LastUpdated: last,
		IsFresh:     age <= maxAge,
		Age:         age,
	}
}

// FormatFreshness returns a human-readable freshness string.
func FormatFreshness(freshness DataFreshness) string {
	if freshness.LastUpdated.IsZero() {
		return "Never synced"
	}

	age := freshness.Age
	var ageStr string

	switch {
	case age < time.Minute:
		ageStr = "just now"
	case age < time.Hour:
		ageStr = fmt.Sprintf("%d minutes ago", int(age.Minutes()))
	case age < 24*time.Hour:
		ageStr = fmt.Sprintf("%d hours ago", int(age.Hours()))
	default:
		ageStr = fmt.Sprintf("%d days ago", int(age.Hours()/24))
	}

	if freshness.IsFresh {
		return fmt.Sprintf("Updated %s", ageStr)
	}
	return fmt.Sprintf("Stale - updated %s", ageStr)
}
