package audio

import "testing"

func TestAmplify_ScalesSamples(t *testing.T) {
	in := pcm16(100, -200, 0)
	got := samples16(Amplify(in, 2.0))
	want := []int16{200, -400, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestAmplify_ClampsToInt16Range(t *testing.T) {
	in := pcm16(30000, -30000)
	got := samples16(Amplify(in, 2.0))
	if got[0] != 32767 {
		t.Errorf("positive overflow clamped to %d, want 32767", got[0])
	}
	if got[1] != -32768 {
		t.Errorf("negative overflow clamped to %d, want -32768", got[1])
	}
}

func TestNormalizePeak_ScalesQuietAudioUp(t *testing.T) {
	in := pcm16(100, -50, 25)
	got := samples16(NormalizePeak(in, 1.0))
	// Peak 100 scaled to 32767 means a gain of ~327.67.
	if got[0] < 32700 || got[0] > 32767 {
		t.Errorf("peak sample = %d, want ~32767", got[0])
	}
	if got[1] > -16300 || got[1] < -16400 {
		t.Errorf("half-amplitude sample = %d, want ~-16383", got[1])
	}
}

func TestNormalizePeak_SilenceUnchanged(t *testing.T) {
	in := pcm16(0, 0, 0)
	got := NormalizePeak(in, 1.0)
	for _, s := range samples16(got) {
		if s != 0 {
			t.Fatal("silence was altered by peak normalisation")
		}
	}
}

func TestNormalizePeak_NeverAttenuates(t *testing.T) {
	in := pcm16(32000, -32000)
	got := samples16(NormalizePeak(in, 0.5))
	// The peak already exceeds the 0.5 target; scaling down would make
	// speech quieter than the recognizer expects.
	if got[0] != 32000 || got[1] != -32000 {
		t.Errorf("loud audio was attenuated: %v", got)
	}
}

func TestNormalizePeak_InvalidTargetFallsBackToFullScale(t *testing.T) {
	in := pcm16(100)
	for _, peak := range []float64{0, -1, 1.5} {
		got := samples16(NormalizePeak(in, peak))
		if got[0] < 32700 {
			t.Errorf("peak=%v: sample = %d, want full-scale normalisation", peak, got[0])
		}
	}
}
