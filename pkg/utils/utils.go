// Package utils provides small generic helpers shared across adapters and
// the cycle controller.
package utils

import (
	"fmt"
	"strings"
	"time"
)

// RetryConfig controls Retry's backoff schedule.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig is exponential backoff starting at 100ms, capped at 5s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// LinearRetryConfig backs off linearly by (attempt+1) seconds, the schedule
// the market-data adapter's contract requires.
func LinearRetryConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Second,
		MaxDelay:     time.Duration(maxAttempts+1) * time.Second,
		Multiplier:   1.0,
	}
}

// Retry retries fn with the given backoff schedule, returning the last
// error wrapped with the attempt count if every attempt fails.
func Retry[T any](config RetryConfig, fn func(attempt int) (T, error)) (T, error) {
	var result T
	var err error
	delay := config.InitialDelay

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		result, err = fn(attempt)
		if err == nil {
			return result, nil
		}
		if attempt == config.MaxAttempts-1 {
			break
		}
		time.Sleep(delay)
		if config.Multiplier == 1.0 {
			delay = time.Duration(attempt+2) * time.Second
		} else {
			delay = time.Duration(float64(delay) * config.Multiplier)
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
		}
	}

	return result, fmt.Errorf("after %d attempts: %w", config.MaxAttempts, err)
}

// FormatDuration renders a duration the way status reports and logs do:
// "1d 2h 3m" style, trimmed to the coarsest non-zero unit.
func FormatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// NormalizeSymbol upper-cases and trims an equity ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// SameCalendarDay reports whether two timestamps fall on the same date in
// the given location.
func SameCalendarDay(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
