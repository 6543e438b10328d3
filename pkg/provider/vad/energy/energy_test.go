package energy

import (
	"math"
	"testing"

	"github.com/communage/communage/pkg/provider/vad"
)

// frame synthesises one 30ms 16 kHz mono frame as a sine wave at the given
// peak amplitude. amplitude 0 yields pure silence.
func frame(amplitude float64) []byte {
	const samples = 480
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		s := int16(amplitude * math.Sin(2*math.Pi*float64(i)/32))
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

func newDetector(t *testing.T, aggressiveness int) vad.Detector {
	t.Helper()
	d, err := Engine{}.NewDetector(vad.Config{
		SampleRate:     16000,
		FrameSizeMs:    30,
		Aggressiveness: aggressiveness,
	})
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDetector_SpeechOverSilence(t *testing.T) {
	d := newDetector(t, 2)

	// Prime the noise floor with silence.
	for i := 0; i < 5; i++ {
		voiced, err := d.IsSpeech(frame(0))
		if err != nil {
			t.Fatal(err)
		}
		if voiced {
			t.Fatal("silence classified as speech")
		}
	}

	voiced, err := d.IsSpeech(frame(20000))
	if err != nil {
		t.Fatal(err)
	}
	if !voiced {
		t.Error("loud tone over a silent floor classified as unvoiced")
	}
}

func TestDetector_QuietHumStaysUnvoiced(t *testing.T) {
	d := newDetector(t, 2)
	// A hum well below the absolute minimum RMS for level 2 (600).
	for i := 0; i < 20; i++ {
		voiced, err := d.IsSpeech(frame(400))
		if err != nil {
			t.Fatal(err)
		}
		if voiced {
			t.Fatalf("quiet hum classified as speech on frame %d", i)
		}
	}
}

func TestDetector_AdaptsToSteadyBackground(t *testing.T) {
	d := newDetector(t, 0)

	// Let the floor learn a loud steady background.
	for i := 0; i < 100; i++ {
		if _, err := d.IsSpeech(frame(8000)); err != nil {
			t.Fatal(err)
		}
	}
	// The same level must now sit inside the adapted floor.
	voiced, err := d.IsSpeech(frame(8000))
	if err != nil {
		t.Fatal(err)
	}
	if voiced {
		t.Error("steady background still classified as speech after adaptation")
	}
}

func TestDetector_RejectsWrongFrameLength(t *testing.T) {
	d := newDetector(t, 1)
	if _, err := d.IsSpeech(make([]byte, 100)); err == nil {
		t.Fatal("undersized frame accepted")
	}
}

func TestDetector_ResetForgetsFloor(t *testing.T) {
	d := newDetector(t, 2)
	for i := 0; i < 50; i++ {
		if _, err := d.IsSpeech(frame(30000)); err != nil {
			t.Fatal(err)
		}
	}
	d.Reset()

	// After reset the first frame primes the floor again; silence then
	// classifies as unvoiced exactly like a fresh detector.
	voiced, err := d.IsSpeech(frame(0))
	if err != nil {
		t.Fatal(err)
	}
	if voiced {
		t.Error("silence classified as speech after Reset")
	}
}

func TestNewDetector_Validation(t *testing.T) {
	cases := []vad.Config{
		{SampleRate: 0, FrameSizeMs: 30, Aggressiveness: 1},
		{SampleRate: 16000, FrameSizeMs: 0, Aggressiveness: 1},
		{SampleRate: 16000, FrameSizeMs: 30, Aggressiveness: -1},
		{SampleRate: 16000, FrameSizeMs: 30, Aggressiveness: 4},
	}
	for _, cfg := range cases {
		if _, err := (Engine{}).NewDetector(cfg); err == nil {
			t.Errorf("NewDetector(%+v) succeeded, want error", cfg)
		}
	}
}
