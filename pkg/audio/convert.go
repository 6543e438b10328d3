package audio

import (
	"log/slog"
	"sync"
)

// Normalizer converts captured AudioFrames to mono PCM at the detector's
// working rate. It logs a warning on the first format mismatch and validates
// PCM data alignment. Create one per stream; not designed for shared use
// across goroutines.
type Normalizer struct {
	// TargetRate is the detector's working sample rate in Hz.
	TargetRate int

	warnedMismatch sync.Once
	warnedCorrupt  sync.Once
}

// Normalize converts a frame to mono at the target rate. Down-mixing averages
// across channels; resampling is applied only when the rates differ. If the
// source is already mono at the target rate, the frame is returned unchanged
// (zero allocation).
func (n *Normalizer) Normalize(frame AudioFrame) AudioFrame {
	// Validate: PCM data must align to whole int16 samples across channels.
	if frame.Channels < 1 || len(frame.Data)%(2*max(frame.Channels, 1)) != 0 {
		n.warnedCorrupt.Do(func() {
			slog.Warn("audio normalizer: misaligned PCM data, dropping frame",
				"bytes", len(frame.Data),
				"sampleRate", frame.SampleRate,
				"channels", frame.Channels,
			)
		})
		return AudioFrame{
			Data:       nil,
			SampleRate: n.TargetRate,
			Channels:   1,
			Timestamp:  frame.Timestamp,
		}
	}

	// Fast path: already mono at the working rate.
	if frame.SampleRate == n.TargetRate && frame.Channels == 1 {
		return frame
	}

	n.warnedMismatch.Do(func() {
		slog.Debug("audio normalizer: converting",
			"fromRate", frame.SampleRate,
			"fromChannels", frame.Channels,
			"toRate", n.TargetRate,
		)
	})

	pcm := frame.Data

	// Step 1: down-mix first (avoids resampling every channel).
	if frame.Channels > 1 {
		pcm = MixToMono(pcm, frame.Channels)
	}

	// Step 2: resample only when the rates differ.
	if frame.SampleRate != n.TargetRate {
		pcm = ResampleMono16(pcm, frame.SampleRate, n.TargetRate)
	}

	return AudioFrame{
		Data:       pcm,
		SampleRate: n.TargetRate,
		Channels:   1,
		Timestamp:  frame.Timestamp,
	}
}

// MixToMono down-mixes interleaved int16 PCM to mono by taking the arithmetic
// mean across channels, truncated to int16. Input must be little-endian int16
// PCM with the given channel count. A channel count of 1 returns the input
// unchanged.
func MixToMono(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}
	frames := len(pcm) / (2 * channels)
	out := make([]byte, frames*2)
	for i := range frames {
		var sum int32
		for c := range channels {
			off := (i*channels + c) * 2
			sum += int32(int16(pcm[off]) | int16(pcm[off+1])<<8)
		}
		avg := sum / int32(channels)
		out[i*2] = byte(avg)
		out[i*2+1] = byte(avg >> 8)
	}
	return out
}

// ResampleMono16 resamples 16-bit mono PCM from srcRate to dstRate using
// linear interpolation. The input must be little-endian int16 samples. If
// srcRate == dstRate, the input is returned unchanged.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 {
		return pcm
	}
	if srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := int16(pcm[srcIdx*2]) | int16(pcm[srcIdx*2+1])<<8
		var s1 int16
		if srcIdx+1 < srcSamples {
			s1 = int16(pcm[(srcIdx+1)*2]) | int16(pcm[(srcIdx+1)*2+1])<<8
		} else {
			s1 = s0
		}

		interpolated := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		out[i*2] = byte(interpolated)
		out[i*2+1] = byte(interpolated >> 8)
	}
	return out
}
