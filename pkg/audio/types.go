package audio

import "time"

// AudioFrame represents a single fixed-duration chunk of PCM audio flowing
// through the pipeline. Frames are the atomic unit of audio transport —
// captured from a device, normalized, classified by VAD, and accumulated
// into utterances. A frame is owned exclusively by the stage that produced
// it until it is handed to the next stage.
type AudioFrame struct {
	// PCM audio data, little-endian int16 samples, channels interleaved.
	Data []byte

	// SampleRate in Hz (e.g., 48000 for a loopback device, 16000 for the
	// detector's working rate).
	SampleRate int

	// Channels: 1 for mono (detector input), 2+ for multi-channel capture.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Samples returns the number of samples per channel contained in the frame.
func (f AudioFrame) Samples() int {
	if f.Channels == 0 {
		return 0
	}
	return len(f.Data) / 2 / f.Channels
}

// Duration returns the playback duration of the frame.
func (f AudioFrame) Duration() time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(f.Samples()) * time.Second / time.Duration(f.SampleRate)
}
