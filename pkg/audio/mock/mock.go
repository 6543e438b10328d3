// Package mock provides in-memory mock implementations of the [audio.Host],
// [audio.Stream], and [audio.OutputDevice] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	host := &mock.Host{
//	    DefaultInputResult: audio.Device{ID: "mic-0", Name: "Mock Mic", Channels: 1, SampleRate: 16000},
//	    OpenCaptureResult:  mock.NewStream(frames),
//	}
//	src, err := audio.OpenSource(host, audio.DefaultInputStrategy{}, 30)
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/communage/communage/pkg/audio"
)

// ─── Host ─────────────────────────────────────────────────────────────────────

// Host is a mock implementation of [audio.Host].
// Set the exported Result/Error fields before use; inspect the Call* fields
// after.
type Host struct {
	mu sync.Mutex

	// DefaultInputResult is returned by [Host.DefaultInputDevice].
	DefaultInputResult audio.Device

	// DefaultInputError is returned by [Host.DefaultInputDevice].
	DefaultInputError error

	// DefaultOutputResult is returned by [Host.DefaultOutputDevice].
	DefaultOutputResult audio.Device

	// DefaultOutputError is returned by [Host.DefaultOutputDevice].
	DefaultOutputError error

	// LoopbackResult is returned by [Host.LoopbackDevices].
	LoopbackResult []audio.Device

	// LoopbackError is returned by [Host.LoopbackDevices].
	LoopbackError error

	// OpenCaptureResult is returned by [Host.OpenCapture].
	OpenCaptureResult audio.Stream

	// OpenCaptureError is returned by [Host.OpenCapture].
	OpenCaptureError error

	// OpenPlaybackResult is returned by [Host.OpenPlayback].
	OpenPlaybackResult audio.OutputDevice

	// OpenPlaybackError is returned by [Host.OpenPlayback].
	OpenPlaybackError error

	// CallCountOpenCapture records how many times OpenCapture was called.
	CallCountOpenCapture int

	// RecordedOpenDevices holds the devices passed to OpenCapture, in order.
	RecordedOpenDevices []audio.Device
}

// DefaultInputDevice implements [audio.Host].
func (h *Host) DefaultInputDevice() (audio.Device, error) {
	return h.DefaultInputResult, h.DefaultInputError
}

// DefaultOutputDevice implements [audio.Host].
func (h *Host) DefaultOutputDevice() (audio.Device, error) {
	return h.DefaultOutputResult, h.DefaultOutputError
}

// LoopbackDevices implements [audio.Host].
func (h *Host) LoopbackDevices() ([]audio.Device, error) {
	return h.LoopbackResult, h.LoopbackError
}

// OpenCapture implements [audio.Host].
func (h *Host) OpenCapture(dev audio.Device) (audio.Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.CallCountOpenCapture++
	h.RecordedOpenDevices = append(h.RecordedOpenDevices, dev)
	return h.OpenCaptureResult, h.OpenCaptureError
}

// OpenPlayback implements [audio.Host].
func (h *Host) OpenPlayback() (audio.OutputDevice, error) {
	return h.OpenPlaybackResult, h.OpenPlaybackError
}

// ─── Stream ───────────────────────────────────────────────────────────────────

// Stream is a mock implementation of [audio.Stream] fed from a fixed script
// of PCM chunks. Once the script is exhausted, ReadFrame blocks until Close
// (mimicking a silent device) unless EOFOnExhausted is set, in which case it
// returns [io.EOF].
type Stream struct {
	mu sync.Mutex

	// EOFOnExhausted makes ReadFrame return io.EOF once the script runs out.
	EOFOnExhausted bool

	script [][]byte
	next   int
	closed chan struct{}
	once   sync.Once

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

// NewStream creates a Stream that replays the given PCM chunks in order.
func NewStream(chunks [][]byte) *Stream {
	return &Stream{script: chunks, closed: make(chan struct{})}
}

// ReadFrame implements [audio.Stream]. The samples argument is ignored; each
// call returns the next scripted chunk verbatim.
func (s *Stream) ReadFrame(samples int) ([]byte, error) {
	s.mu.Lock()
	if s.next < len(s.script) {
		chunk := s.script[s.next]
		s.next++
		s.mu.Unlock()
		return chunk, nil
	}
	eof := s.EOFOnExhausted
	s.mu.Unlock()

	if eof {
		return nil, io.EOF
	}
	<-s.closed
	return nil, io.EOF
}

// Close implements [audio.Stream].
func (s *Stream) Close() error {
	s.mu.Lock()
	s.CallCountClose++
	s.mu.Unlock()
	s.once.Do(func() { close(s.closed) })
	return nil
}

// ─── OutputDevice ─────────────────────────────────────────────────────────────

// PlayedItem records one Play call on an [OutputDevice].
type PlayedItem struct {
	PCM        []byte
	SampleRate int
}

// OutputDevice is a mock implementation of [audio.OutputDevice] that records
// everything played through it.
type OutputDevice struct {
	mu sync.Mutex

	// DeviceName is returned by [OutputDevice.Name].
	DeviceName string

	// PlayError is returned by [OutputDevice.Play].
	PlayError error

	// Played holds every Play call in order.
	Played []PlayedItem
}

// Name implements [audio.OutputDevice].
func (d *OutputDevice) Name() string { return d.DeviceName }

// Play implements [audio.OutputDevice].
func (d *OutputDevice) Play(_ context.Context, pcm []byte, sampleRate int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.PlayError != nil {
		return d.PlayError
	}
	d.Played = append(d.Played, PlayedItem{PCM: pcm, SampleRate: sampleRate})
	return nil
}

// PlayedCount returns the number of successful Play calls.
func (d *OutputDevice) PlayedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Played)
}
