// Package energy implements [vad.Engine] with an adaptive RMS-energy
// classifier. It needs no model files and no cgo, which makes it the default
// backend: frame energy is compared against a noise floor tracked with an
// exponential moving average, so steady background hum is learned away while
// speech onsets stay above the floor.
package energy

import (
	"fmt"
	"math"

	"github.com/communage/communage/pkg/provider/vad"
)

// Engine creates adaptive energy detectors. The zero value is ready to use.
type Engine struct{}

var _ vad.Engine = Engine{}

// Aggressiveness level → minimum absolute RMS for speech, and the factor by
// which a frame must exceed the tracked noise floor. Level 0 lets nearly
// everything through; level 3 only clear speech over quiet backgrounds.
var (
	minRMS      = [4]float64{200, 350, 600, 1000}
	floorFactor = [4]float64{1.3, 1.8, 2.5, 3.5}
)

// noiseAlpha is the EMA weight for noise floor updates on unvoiced frames.
const noiseAlpha = 0.05

// NewDetector implements [vad.Engine].
func (Engine) NewDetector(cfg vad.Config) (vad.Detector, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("energy: invalid sample rate %d", cfg.SampleRate)
	}
	if cfg.FrameSizeMs <= 0 {
		return nil, fmt.Errorf("energy: invalid frame size %dms", cfg.FrameSizeMs)
	}
	if cfg.Aggressiveness < 0 || cfg.Aggressiveness > 3 {
		return nil, fmt.Errorf("energy: aggressiveness %d out of range [0,3]", cfg.Aggressiveness)
	}
	return &detector{
		frameBytes: cfg.SampleRate * cfg.FrameSizeMs / 1000 * 2,
		level:      cfg.Aggressiveness,
	}, nil
}

type detector struct {
	frameBytes int
	level      int

	noiseFloor float64
	primed     bool
}

// IsSpeech implements [vad.Detector].
func (d *detector) IsSpeech(frame []byte) (bool, error) {
	if len(frame) != d.frameBytes {
		return false, fmt.Errorf("energy: frame is %d bytes, want %d", len(frame), d.frameBytes)
	}

	rms := rms16(frame)

	if !d.primed {
		d.noiseFloor = rms
		d.primed = true
	}

	voiced := rms >= minRMS[d.level] && rms >= d.noiseFloor*floorFactor[d.level]

	// Track the noise floor on unvoiced frames only, so sustained speech
	// cannot raise the floor and silence itself.
	if !voiced {
		d.noiseFloor = (1-noiseAlpha)*d.noiseFloor + noiseAlpha*rms
	}
	return voiced, nil
}

// Reset implements [vad.Detector].
func (d *detector) Reset() {
	d.noiseFloor = 0
	d.primed = false
}

// rms16 computes the root-mean-square amplitude of little-endian int16 PCM.
func rms16(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(pcm); i += 2 {
		s := float64(int16(pcm[i]) | int16(pcm[i+1])<<8)
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
