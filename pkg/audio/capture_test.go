package audio_test

import (
	"errors"
	"testing"
	"time"

	"github.com/communage/communage/pkg/audio"
	"github.com/communage/communage/pkg/audio/mock"
)

func TestDefaultInputStrategy_ForcesWorkingFormat(t *testing.T) {
	host := &mock.Host{
		DefaultInputResult: audio.Device{ID: "mic-0", Name: "USB Mic", Channels: 2, SampleRate: 48000},
	}
	dev, err := audio.DefaultInputStrategy{}.SelectDevice(host)
	if err != nil {
		t.Fatal(err)
	}
	if dev.Channels != 1 || dev.SampleRate != 16000 {
		t.Errorf("device opened at %d ch/%d Hz, want 1 ch/16000 Hz", dev.Channels, dev.SampleRate)
	}
	if dev.ID != "mic-0" {
		t.Errorf("ID = %q, want mic-0", dev.ID)
	}
}

func TestDefaultInputStrategy_PropagatesHostError(t *testing.T) {
	hostErr := errors.New("no devices")
	host := &mock.Host{DefaultInputError: hostErr}
	if _, err := (audio.DefaultInputStrategy{}).SelectDevice(host); !errors.Is(err, hostErr) {
		t.Fatalf("err = %v, want wrapped host error", err)
	}
}

func TestLoopbackStrategy_PrefersLoopbackCapableOutput(t *testing.T) {
	host := &mock.Host{
		DefaultOutputResult: audio.Device{ID: "spk-0", Name: "Speakers", Loopback: true},
	}
	dev, err := audio.LoopbackStrategy{}.SelectDevice(host)
	if err != nil {
		t.Fatal(err)
	}
	if dev.ID != "spk-0" {
		t.Errorf("selected %q, want the loopback-capable default output", dev.ID)
	}
}

func TestLoopbackStrategy_MatchesMonitorByName(t *testing.T) {
	host := &mock.Host{
		DefaultOutputResult: audio.Device{ID: "spk-0", Name: "Speakers"},
		LoopbackResult: []audio.Device{
			{ID: "lb-1", Name: "Headphones (Loopback)", Loopback: true},
			{ID: "lb-2", Name: "Speakers (Loopback)", Loopback: true},
		},
	}
	dev, err := audio.LoopbackStrategy{}.SelectDevice(host)
	if err != nil {
		t.Fatal(err)
	}
	if dev.ID != "lb-2" {
		t.Errorf("selected %q, want lb-2 (name contains the output's name)", dev.ID)
	}
}

// No loopback device matches the default output: the strategy must fail
// rather than silently substitute a close-but-wrong device.
func TestLoopbackStrategy_NoMatchIsFatal(t *testing.T) {
	host := &mock.Host{
		DefaultOutputResult: audio.Device{ID: "spk-0", Name: "Speakers"},
		LoopbackResult: []audio.Device{
			{ID: "lb-1", Name: "Headphones (Loopback)", Loopback: true},
		},
	}
	_, err := audio.LoopbackStrategy{}.SelectDevice(host)
	if !errors.Is(err, audio.ErrDeviceNotFound) {
		t.Fatalf("err = %v, want ErrDeviceNotFound", err)
	}
}

func TestOpenSource_ReadsTaggedFrames(t *testing.T) {
	chunk := make([]byte, 960)
	host := &mock.Host{
		DefaultInputResult: audio.Device{ID: "mic-0", Name: "Mic", Channels: 1, SampleRate: 16000},
		OpenCaptureResult:  mock.NewStream([][]byte{chunk, chunk}),
	}

	src, err := audio.OpenSource(host, audio.DefaultInputStrategy{}, 30)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	first, err := src.ReadFrame()
	if err != nil {
		t.Fatal(err)
	}
	if first.SampleRate != 16000 || first.Channels != 1 {
		t.Errorf("frame tagged %d Hz/%d ch, want 16000/1", first.SampleRate, first.Channels)
	}
	if first.Timestamp != 0 {
		t.Errorf("first Timestamp = %v, want 0", first.Timestamp)
	}

	second, err := src.ReadFrame()
	if err != nil {
		t.Fatal(err)
	}
	if second.Timestamp != 30*time.Millisecond {
		t.Errorf("second Timestamp = %v, want 30ms", second.Timestamp)
	}
}

func TestOpenSource_SelectionFailureBeforeOpen(t *testing.T) {
	host := &mock.Host{
		DefaultOutputResult: audio.Device{Name: "Speakers"},
	}
	_, err := audio.OpenSource(host, audio.LoopbackStrategy{}, 30)
	if !errors.Is(err, audio.ErrDeviceNotFound) {
		t.Fatalf("err = %v, want ErrDeviceNotFound", err)
	}
	if host.CallCountOpenCapture != 0 {
		t.Errorf("OpenCapture called %d times despite selection failure, want 0", host.CallCountOpenCapture)
	}
}

func TestSource_CloseUnblocksRead(t *testing.T) {
	stream := mock.NewStream(nil)
	host := &mock.Host{
		DefaultInputResult: audio.Device{Name: "Mic", Channels: 1, SampleRate: 16000},
		OpenCaptureResult:  stream,
	}
	src, err := audio.OpenSource(host, audio.DefaultInputStrategy{}, 30)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := src.ReadFrame()
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := src.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Error("ReadFrame returned nil error after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReadFrame still blocked after Close")
	}
}
