package resilience

import (
	"context"
	"fmt"

	"github.com/communage/communage/pkg/provider/stt"
)

// RecognizerFallback implements [stt.Recognizer] with automatic failover
// across multiple recognition backends. Each backend has its own circuit
// breaker.
//
// An absent transcription (empty text, nil error) is a valid answer — it
// means the utterance held no recognisable speech — so it does not trigger
// failover.
type RecognizerFallback struct {
	group *FallbackGroup[stt.Recognizer]
	rate  int
}

var _ stt.Recognizer = (*RecognizerFallback)(nil)

// NewRecognizerFallback creates a fallback with primary as the preferred
// backend.
func NewRecognizerFallback(primary stt.Recognizer, primaryName string, breaker BreakerConfig) *RecognizerFallback {
	return &RecognizerFallback{
		group: NewFallbackGroup(primary, primaryName, breaker),
		rate:  primary.SampleRate(),
	}
}

// AddFallback registers an additional recognizer. All entries must accept
// audio at the primary's sample rate, because the utterance is encoded once
// before the group is consulted.
func (f *RecognizerFallback) AddFallback(name string, recognizer stt.Recognizer) error {
	if got := recognizer.SampleRate(); got != f.rate {
		return fmt.Errorf("resilience: fallback %q wants %d Hz, primary wants %d Hz", name, got, f.rate)
	}
	f.group.AddFallback(name, recognizer)
	return nil
}

// SampleRate implements [stt.Recognizer].
func (f *RecognizerFallback) SampleRate() int { return f.rate }

// Recognize implements [stt.Recognizer], trying each healthy backend in
// order. Context cancellation stops the failover chain immediately.
func (f *RecognizerFallback) Recognize(ctx context.Context, wav []byte) (string, error) {
	return ExecuteWithResult(f.group, func(r stt.Recognizer) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return r.Recognize(ctx, wav)
	})
}
