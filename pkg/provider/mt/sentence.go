package mt

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// defaultRetryBackoff is the pause between sentinel-failure retries. It keeps
// an unbounded patience from hammering the endpoint while still letting
// context cancellation bound shutdown.
const defaultRetryBackoff = 250 * time.Millisecond

// SentenceTranslator resolves the legacy sentinel protocol on top of a
// [Translator]: a result ending in a newline means the backend failed, and
// the translation is retried until a clean result arrives or patience runs
// out. Patience counts retries after the first attempt; -1 retries
// indefinitely (bounded only by the context).
//
// SentenceTranslator is safe for concurrent use as long as the wrapped
// Translator is.
type SentenceTranslator struct {
	translator Translator
	src, dst   string
	patience   int
	backoff    time.Duration
}

// NewSentenceTranslator wraps translator for the src→dst language pair.
func NewSentenceTranslator(translator Translator, src, dst string, patience int) *SentenceTranslator {
	return &SentenceTranslator{
		translator: translator,
		src:        src,
		dst:        dst,
		patience:   patience,
		backoff:    defaultRetryBackoff,
	}
}

// Languages returns the source and destination language codes.
func (s *SentenceTranslator) Languages() (src, dst string) {
	return s.src, s.dst
}

// Translate translates one sentence, absorbing sentinel failures up to the
// configured patience. An empty result with a nil error means the
// translation is absent (empty input, backend failure, or patience
// exhausted). Only context errors are surfaced.
func (s *SentenceTranslator) Translate(ctx context.Context, sentence string) (string, error) {
	if strings.TrimSpace(sentence) == "" {
		return "", nil
	}

	retriesLeft := s.patience
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		out, err := s.translator.Translate(ctx, sentence, s.src, s.dst)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			slog.Debug("translation attempt failed", "attempt", attempt+1, "err", err)
		} else if out != "" && !failedSentinel(out) {
			return out, nil
		}

		// patience >= 0 bounds the retries; -1 keeps going until cancelled.
		if s.patience >= 0 {
			if retriesLeft == 0 {
				return "", nil
			}
			retriesLeft--
		}

		timer := time.NewTimer(s.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
}

// failedSentinel reports whether the backend signalled failure by
// terminating the result with the newline sentinel.
func failedSentinel(text string) bool {
	return strings.HasSuffix(text, "\n")
}
