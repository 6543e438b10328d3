// Package segment turns a continuous stream of fixed-duration audio chunks
// into discrete utterances.
//
// The segmenter is a two-state machine (idle, recording) smoothed by two
// ring windows of recent voiced/unvoiced classifications: a short window
// confirms speech start, a window twice as long confirms speech end. While
// idle, incoming chunks are parked in a bounded padding buffer so the
// utterance onset survives the confirmation delay; on trigger the padding is
// flushed into the new utterance.
//
// The segmenter owns no goroutine and is single-threaded with respect to its
// state: the capture loop calls Process once per chunk and forwards the
// returned events.
package segment

import (
	"bytes"
	"fmt"

	"github.com/communage/communage/pkg/provider/vad"
)

// Default timing parameters. The start window span and its doubling for the
// end window are fixed; chunk and padding durations are configurable.
const (
	DefaultChunkMs   = 30
	DefaultPaddingMs = 1500

	startWindowMs = 400

	startThreshold = 0.8
	endThreshold   = 0.9
)

// EventType tags the events emitted by the segmenter.
type EventType int

const (
	// SpeechStarted is emitted when the short window confirms speech onset.
	SpeechStarted EventType = iota

	// SpeechEnded is emitted when the long window confirms speech end.
	SpeechEnded

	// UtteranceReady carries one complete utterance. It always follows a
	// SpeechEnded event for the same utterance.
	UtteranceReady
)

// String returns the human-readable name of the event type.
func (t EventType) String() string {
	switch t {
	case SpeechStarted:
		return "SPEECH_STARTED"
	case SpeechEnded:
		return "SPEECH_ENDED"
	case UtteranceReady:
		return "UTTERANCE_READY"
	default:
		return "UNKNOWN"
	}
}

// Event is one segmentation outcome. Utterance is set only for
// UtteranceReady; ownership of the bytes transfers to the receiver and the
// segmenter retains no reference.
type Event struct {
	Type      EventType
	Utterance []byte
}

// Config holds the segmenter's timing parameters. Zero fields fall back to
// the defaults above.
type Config struct {
	// ChunkMs is the fixed chunk duration fed to Process.
	ChunkMs int

	// PaddingMs is the span of pre-trigger audio retained for utterance
	// onsets.
	PaddingMs int
}

func (c *Config) applyDefaults() {
	if c.ChunkMs == 0 {
		c.ChunkMs = DefaultChunkMs
	}
	if c.PaddingMs == 0 {
		c.PaddingMs = DefaultPaddingMs
	}
}

// Segmenter consumes normalized mono chunks and produces utterances.
// Not safe for concurrent use.
type Segmenter struct {
	detector vad.Detector

	startWin *RingWindow
	endWin   *RingWindow
	padding  *PaddingBuffer

	recording bool
	utterance [][]byte
}

// New creates a Segmenter classifying chunks with detector.
func New(detector vad.Detector, cfg Config) (*Segmenter, error) {
	cfg.applyDefaults()
	if cfg.ChunkMs <= 0 || cfg.ChunkMs > startWindowMs {
		return nil, fmt.Errorf("segment: chunk duration %dms out of range", cfg.ChunkMs)
	}
	startChunks := startWindowMs / cfg.ChunkMs
	return &Segmenter{
		detector: detector,
		startWin: NewRingWindow(startChunks),
		endWin:   NewRingWindow(startChunks * 2),
		padding:  NewPaddingBuffer(cfg.PaddingMs / cfg.ChunkMs),
	}, nil
}

// Recording reports whether the segmenter is inside a speech region.
func (s *Segmenter) Recording() bool { return s.recording }

// Process classifies one chunk and advances the state machine, returning
// zero or more events. A classification error is returned as-is; the chunk
// is not consumed and the state is unchanged.
func (s *Segmenter) Process(chunk []byte) ([]Event, error) {
	voiced, err := s.detector.IsSpeech(chunk)
	if err != nil {
		return nil, err
	}

	// Both windows track every chunk; only the window relevant to the
	// current state is consulted.
	s.startWin.Push(voiced)
	s.endWin.Push(voiced)

	if !s.recording {
		s.padding.Append(chunk)
		if float64(s.startWin.Voiced()) > startThreshold*float64(s.startWin.Cap()) {
			s.recording = true
			s.utterance = s.padding.Flush()
			return []Event{{Type: SpeechStarted}}, nil
		}
		return nil, nil
	}

	s.utterance = append(s.utterance, chunk)
	if float64(s.endWin.Unvoiced()) > endThreshold*float64(s.endWin.Cap()) {
		s.recording = false
		utt := bytes.Join(s.utterance, nil)
		s.utterance = nil
		return []Event{
			{Type: SpeechEnded},
			{Type: UtteranceReady, Utterance: utt},
		}, nil
	}
	return nil, nil
}

// Reset discards any in-flight accumulation and clears all windows and the
// padding buffer. Use when the audio stream restarts.
func (s *Segmenter) Reset() {
	s.recording = false
	s.utterance = nil
	s.startWin.Reset()
	s.endWin.Reset()
	s.padding.Flush()
	s.detector.Reset()
}
