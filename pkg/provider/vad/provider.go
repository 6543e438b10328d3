// Package vad defines the Detector interface for voice-activity
// classification backends.
//
// A detector wraps a frame-level speech classifier (an energy model, WebRTC
// VAD, or an ONNX model) and surfaces it as a stateful, per-stream instance.
// Each detector maintains its own internal state (noise floor estimates,
// smoothing history) so that multiple concurrent audio streams can be
// classified independently.
//
// Classification is synchronous by design: IsSpeech returns immediately,
// making it suitable for the capture loop that gates utterance segmentation.
//
// Engines must be safe for concurrent use. A single Detector must not be
// shared across goroutines unless the implementation explicitly documents
// thread safety.
package vad

// Config holds the parameters for a detector instance.
type Config struct {
	// SampleRate is the audio sample rate in Hz. Must match the rate of the
	// PCM frames passed to IsSpeech. Common values: 8000, 16000, 48000.
	SampleRate int

	// FrameSizeMs is the duration of each audio frame in milliseconds. Most
	// classifiers operate on fixed frame sizes (10, 20, or 30 ms). IsSpeech
	// returns an error if the supplied frame does not match this size.
	FrameSizeMs int

	// Aggressiveness tunes how strictly non-speech is filtered, 0 (least
	// aggressive, most frames pass as speech) through 3 (most aggressive).
	// Default 1.
	Aggressiveness int
}

// Detector classifies individual audio frames as voiced or unvoiced for a
// single stream. Detectors are stateful and not goroutine-safe.
type Detector interface {
	// IsSpeech classifies one frame of raw little-endian int16 mono PCM at
	// the configured sample rate and frame size. Returns an error if the
	// frame size is wrong.
	IsSpeech(frame []byte) (bool, error)

	// Reset clears accumulated state (noise floor, smoothing history) without
	// discarding the detector. Use when the audio stream restarts.
	Reset()
}

// Engine is the factory for detectors. It is the top-level interface
// implemented by each classification backend.
type Engine interface {
	// NewDetector creates a detector with the given configuration. Returns an
	// error if the configuration is invalid (unsupported sample rate, frame
	// size, or aggressiveness out of range).
	NewDetector(cfg Config) (Detector, error)
}
