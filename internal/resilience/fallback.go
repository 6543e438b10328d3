package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry in a [FallbackGroup] fails or
// has an open circuit breaker.
var ErrAllFailed = errors.New("all providers failed")

// fallbackEntry pairs a provider value with its dedicated circuit breaker.
type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// FallbackGroup wraps a primary and zero or more fallback instances of the
// same provider type. When the primary fails (or its breaker is open), the
// next healthy fallback is tried in registration order.
//
// Register all entries before first use; FallbackGroup is then safe for
// concurrent Execute calls.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	breaker BreakerConfig
}

// NewFallbackGroup creates a group with primary as the first entry. breaker
// is the per-entry breaker template; its Name field is overwritten per entry.
func NewFallbackGroup[T any](primary T, primaryName string, breaker BreakerConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{breaker: breaker}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends a fallback provider, tried after all earlier entries.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	cfg := fg.breaker
	cfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   fallback,
		breaker: NewBreaker(cfg),
	})
}

// Execute tries fn against each entry in order until one succeeds. Entries
// with an open breaker are skipped. Returns [ErrAllFailed] wrapping the last
// error when every entry fails.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	var lastErr error
	for i := range fg.entries {
		entry := &fg.entries[i]
		err := entry.breaker.Execute(func() error {
			return fn(entry.value)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping provider (circuit open)", "provider", entry.name)
		} else {
			slog.Warn("provider failed, trying next", "provider", entry.name, "err", err)
		}
	}
	return fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

// ExecuteWithResult tries fn against each entry until one succeeds,
// returning the result. A package-level function because Go does not support
// method-level type parameters.
func ExecuteWithResult[T, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var result R
	err := fg.Execute(func(v T) error {
		var innerErr error
		result, innerErr = fn(v)
		return innerErr
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return result, nil
}
