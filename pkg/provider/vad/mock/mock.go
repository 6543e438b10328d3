// Package mock provides a scripted [vad.Detector] for unit tests.
package mock

import (
	"sync"

	"github.com/communage/communage/pkg/provider/vad"
)

// Engine is a mock implementation of [vad.Engine] that hands out the
// configured Detector.
type Engine struct {
	// DetectorResult is returned by [Engine.NewDetector].
	DetectorResult vad.Detector

	// NewDetectorError is returned by [Engine.NewDetector].
	NewDetectorError error
}

// NewDetector implements [vad.Engine].
func (e *Engine) NewDetector(vad.Config) (vad.Detector, error) {
	return e.DetectorResult, e.NewDetectorError
}

// Detector is a mock implementation of [vad.Detector] that replays a fixed
// script of voiced/unvoiced flags. Once the script is exhausted it keeps
// returning the last flag (or false for an empty script).
type Detector struct {
	mu sync.Mutex

	// Script is the sequence of classifications to replay.
	Script []bool

	// IsSpeechError is returned by every [Detector.IsSpeech] call when set.
	IsSpeechError error

	// CallCountReset records how many times Reset was called.
	CallCountReset int

	next int
}

// IsSpeech implements [vad.Detector].
func (d *Detector) IsSpeech([]byte) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.IsSpeechError != nil {
		return false, d.IsSpeechError
	}
	if len(d.Script) == 0 {
		return false, nil
	}
	if d.next >= len(d.Script) {
		return d.Script[len(d.Script)-1], nil
	}
	flag := d.Script[d.next]
	d.next++
	return flag, nil
}

// Reset implements [vad.Detector].
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CallCountReset++
	d.next = 0
}
