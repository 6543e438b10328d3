// Package tts defines the Engine interface for text-to-speech backends.
//
// An engine turns one translated sentence into a complete PCM clip. The
// synthesis worker consumes results whole — there is no streaming leg here,
// because playback of a translated utterance only starts once the sentence
// is fully synthesised anyway.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Result is one synthesised clip: mono little-endian int16 PCM and the rate
// it was rendered at. Its lifetime is independent of the text it came from.
type Result struct {
	PCM        []byte
	SampleRate int
}

// Engine is the abstraction over any text-to-speech backend.
type Engine interface {
	// Synthesize renders text in the voice mapped to language (an ISO code).
	// A nil Result with a nil error means synthesis is absent — typically an
	// unmapped language — and the caller drops the item. Errors are reserved
	// for transport failures and context cancellation.
	Synthesize(ctx context.Context, text, language string) (*Result, error)
}
