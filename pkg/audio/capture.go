// Package audio defines the frame types, format conversion, and device
// capture abstractions for the Communage translation pipeline.
//
// The two primary capture abstractions are:
//
//   - [Host] — enumerates the machine's audio devices and opens streams on
//     them. Implementations wrap an OS audio backend (WASAPI, PulseAudio, …)
//     and are supplied by the embedding application; tests use the mock
//     package.
//   - [SelectionStrategy] — picks which device a source captures from. The
//     two shipped strategies mirror the two sides of the translator: the OS
//     default microphone, and the loopback monitor of the default speakers.
//
// This package lives under pkg/ because external code (host backends, GUI
// shells) is expected to implement [Host] and [OutputDevice].
package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
)

// ErrDeviceNotFound is returned by a [SelectionStrategy] when no suitable
// capture device exists. It is fatal at source construction: the caller must
// not silently substitute a different device.
var ErrDeviceNotFound = errors.New("audio: no suitable capture device found")

// Device describes a capture device as reported by the [Host].
type Device struct {
	// ID is the host-specific device identifier.
	ID string

	// Name is the human-readable device name.
	Name string

	// Channels is the number of capture channels the device delivers.
	Channels int

	// SampleRate is the device's native sample rate in Hz.
	SampleRate int

	// Loopback reports whether the device mirrors an output device's signal.
	Loopback bool
}

// Stream is an open capture stream on a single device.
// A Stream is owned by one goroutine; implementations need not be
// goroutine-safe.
type Stream interface {
	// ReadFrame blocks until exactly samples samples per channel have been
	// captured and returns them as interleaved little-endian int16 PCM.
	// Returns an error when the stream is closed or the device disappears.
	ReadFrame(samples int) ([]byte, error)

	// Close releases the stream. Safe to call more than once.
	Close() error
}

// OutputDevice is a playback sink. The playback worker holds the active
// OutputDevice in an atomically swappable reference so the GUI can redirect
// future playback at any time.
type OutputDevice interface {
	// Name returns the human-readable device name.
	Name() string

	// Play writes pcm (little-endian int16 mono) to the device at sampleRate
	// and blocks until playback completes or ctx is cancelled.
	Play(ctx context.Context, pcm []byte, sampleRate int) error
}

// Host enumerates audio devices and opens streams on them.
// Implementations must be safe for concurrent use.
type Host interface {
	// DefaultInputDevice returns the OS default capture device.
	DefaultInputDevice() (Device, error)

	// DefaultOutputDevice returns the OS default playback device, as a
	// Device so loopback capture can be attempted on it.
	DefaultOutputDevice() (Device, error)

	// LoopbackDevices enumerates all loopback-capable capture devices.
	LoopbackDevices() ([]Device, error)

	// OpenCapture opens a capture stream on dev.
	OpenCapture(dev Device) (Stream, error)

	// OpenPlayback opens the OS default playback device as a sink for
	// synthesised clips.
	OpenPlayback() (OutputDevice, error)
}

// SelectionStrategy picks the device a [Source] captures from.
type SelectionStrategy interface {
	SelectDevice(host Host) (Device, error)
}

// DefaultInputStrategy selects the OS default input device, forced to mono
// at 16 kHz — microphones are opened directly at the detector's working
// format so no per-frame conversion is needed on that path.
type DefaultInputStrategy struct{}

// SelectDevice implements [SelectionStrategy].
func (DefaultInputStrategy) SelectDevice(host Host) (Device, error) {
	dev, err := host.DefaultInputDevice()
	if err != nil {
		return Device{}, fmt.Errorf("audio: default input device: %w", err)
	}
	dev.Channels = 1
	dev.SampleRate = 16000
	return dev, nil
}

// LoopbackStrategy selects the loopback monitor of the OS default output
// device, so the pipeline hears what is being played to the user. If the
// default output is not itself loopback-capable, the enumerated loopback
// devices are searched for one whose name contains the output device's name.
// When none matches the selection fails with [ErrDeviceNotFound] — a wrong
// device must never be substituted silently.
type LoopbackStrategy struct{}

// SelectDevice implements [SelectionStrategy].
func (LoopbackStrategy) SelectDevice(host Host) (Device, error) {
	speakers, err := host.DefaultOutputDevice()
	if err != nil {
		return Device{}, fmt.Errorf("audio: default output device: %w", err)
	}
	if speakers.Loopback {
		return speakers, nil
	}

	loopbacks, err := host.LoopbackDevices()
	if err != nil {
		return Device{}, fmt.Errorf("audio: enumerate loopback devices: %w", err)
	}
	for _, lb := range loopbacks {
		if strings.Contains(lb.Name, speakers.Name) {
			return lb, nil
		}
	}

	// Diagnostic only: log the closest-named candidate as a hint. The match
	// is never used as a substitute.
	if hint := closestName(speakers.Name, loopbacks); hint != "" {
		slog.Warn("no loopback device matches the default output",
			"output", speakers.Name,
			"closest", hint,
		)
	}
	return Device{}, fmt.Errorf("%w: no loopback monitor for %q", ErrDeviceNotFound, speakers.Name)
}

// closestName returns the loopback device name most similar to want, or ""
// when the candidate list is empty.
func closestName(want string, devices []Device) string {
	best, bestScore := "", 0.0
	for _, d := range devices {
		if score := matchr.JaroWinkler(want, d.Name, false); score > bestScore {
			best, bestScore = d.Name, score
		}
	}
	return best
}

// Source couples a selected device with an open capture stream and exposes
// blocking frame reads tagged with the device's native format.
type Source struct {
	dev     Device
	stream  Stream
	chunkMs int
	elapsed time.Duration
}

// OpenSource selects a device via strategy and opens a capture stream on it.
// chunkMs is the fixed frame duration the source will deliver.
func OpenSource(host Host, strategy SelectionStrategy, chunkMs int) (*Source, error) {
	dev, err := strategy.SelectDevice(host)
	if err != nil {
		return nil, err
	}
	stream, err := host.OpenCapture(dev)
	if err != nil {
		return nil, fmt.Errorf("audio: open capture on %q: %w", dev.Name, err)
	}
	return &Source{dev: dev, stream: stream, chunkMs: chunkMs}, nil
}

// Device returns the device this source captures from.
func (s *Source) Device() Device { return s.dev }

// ReadFrame blocks until one chunk of audio has been captured and returns it
// as an [AudioFrame] at the device's native rate and channel count.
func (s *Source) ReadFrame() (AudioFrame, error) {
	samples := s.dev.SampleRate * s.chunkMs / 1000
	pcm, err := s.stream.ReadFrame(samples)
	if err != nil {
		return AudioFrame{}, err
	}
	frame := AudioFrame{
		Data:       pcm,
		SampleRate: s.dev.SampleRate,
		Channels:   s.dev.Channels,
		Timestamp:  s.elapsed,
	}
	s.elapsed += time.Duration(s.chunkMs) * time.Millisecond
	return frame, nil
}

// Close releases the capture stream. Safe to call more than once.
func (s *Source) Close() error {
	return s.stream.Close()
}
