// Package stt defines the Recognizer interface for speech-to-text backends.
//
// A recognizer wraps a transcription service (the legacy Google speech API,
// OpenAI Whisper, or a local server) and exposes a uniform one-shot
// interface: a complete, already-segmented utterance goes in, text comes out.
// Streaming partial recognition is deliberately not part of this contract —
// the segmenter hands over whole utterances.
//
// Transport failures are a recognizer's own business: implementations retry
// up to their configured attempt budget, swallow per-attempt errors, and
// resolve to an absent result (empty text, nil error) when the budget is
// exhausted. The only errors surfaced to the caller are context cancellation
// and programmer mistakes, so a flaky network can never crash the pipeline.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Recognizer is the abstraction over any speech-to-text backend.
type Recognizer interface {
	// Recognize transcribes one utterance. wav is a WAV container of mono
	// int16 PCM at [Recognizer.SampleRate]. An empty string with a nil error
	// means the service produced no transcription (silence, noise, or all
	// retry attempts failed).
	Recognize(ctx context.Context, wav []byte) (string, error)

	// SampleRate returns the input sample rate in Hz this recognizer
	// requires. The pipeline resamples utterances to this rate before
	// encoding.
	SampleRate() int
}
