package config

import (
	"context"
	"errors"
	"testing"

	"github.com/communage/communage/pkg/provider/mt"
	"github.com/communage/communage/pkg/provider/stt"
	"github.com/communage/communage/pkg/provider/vad"
)

func TestRegistry_UnregisteredProvider(t *testing.T) {
	r := NewRegistry()

	if _, err := r.CreateSTT(ProviderEntry{Name: "nope"}, "en"); !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("CreateSTT error = %v", err)
	}
	if _, err := r.CreateMT(ProviderEntry{Name: "nope"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("CreateMT error = %v", err)
	}
	if _, err := r.CreateTTS(TTSParams{Entry: TTSEntry{Name: "nope"}}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("CreateTTS error = %v", err)
	}
	if _, err := r.CreateVAD(VADEntry{Name: "nope"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("CreateVAD error = %v", err)
	}
}

func TestRegistry_CustomFactoryWins(t *testing.T) {
	r := NewRegistry()
	var gotEntry ProviderEntry
	r.RegisterMT("custom", func(entry ProviderEntry) (mt.Translator, error) {
		gotEntry = entry
		return stubTranslator{}, nil
	})

	tr, err := r.CreateMT(ProviderEntry{Name: "custom", BaseURL: "http://example.test"})
	if err != nil {
		t.Fatal(err)
	}
	if tr == nil {
		t.Fatal("factory result lost")
	}
	if gotEntry.BaseURL != "http://example.test" {
		t.Errorf("factory entry = %+v", gotEntry)
	}
}

type stubTranslator struct{}

func (stubTranslator) Translate(context.Context, string, string, string) (string, error) {
	return "", nil
}

// stubRecognizer answers with a fixed result at a fixed rate.
type stubRecognizer struct {
	rate int
	text string
	err  error
}

func (s *stubRecognizer) SampleRate() int { return s.rate }

func (s *stubRecognizer) Recognize(context.Context, []byte) (string, error) {
	return s.text, s.err
}

func TestCreateSTTChain_NoFallbacks(t *testing.T) {
	r := NewRegistry()
	primary := &stubRecognizer{rate: 16000, text: "primary"}
	r.RegisterSTT("stub", func(ProviderEntry, string) (stt.Recognizer, error) {
		return primary, nil
	})

	rec, err := r.CreateSTTChain(STTEntry{ProviderEntry: ProviderEntry{Name: "stub"}}, "en-US")
	if err != nil {
		t.Fatal(err)
	}
	if rec != stt.Recognizer(primary) {
		t.Fatal("single-entry chain must hand back the primary unwrapped")
	}
}

func TestCreateSTTChain_FailsOverToFallback(t *testing.T) {
	r := NewRegistry()
	r.RegisterSTT("flaky", func(ProviderEntry, string) (stt.Recognizer, error) {
		return &stubRecognizer{rate: 16000, err: errors.New("backend down")}, nil
	})
	r.RegisterSTT("steady", func(ProviderEntry, string) (stt.Recognizer, error) {
		return &stubRecognizer{rate: 16000, text: "rescued"}, nil
	})

	rec, err := r.CreateSTTChain(STTEntry{
		ProviderEntry: ProviderEntry{Name: "flaky"},
		Fallbacks:     []ProviderEntry{{Name: "steady"}},
	}, "en-US")
	if err != nil {
		t.Fatal(err)
	}
	if rec.SampleRate() != 16000 {
		t.Fatalf("SampleRate() = %d", rec.SampleRate())
	}

	got, err := rec.Recognize(context.Background(), []byte{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if got != "rescued" {
		t.Fatalf("got %q, want the fallback's answer", got)
	}
}

func TestCreateSTTChain_RejectsRateMismatch(t *testing.T) {
	r := NewRegistry()
	r.RegisterSTT("wide", func(ProviderEntry, string) (stt.Recognizer, error) {
		return &stubRecognizer{rate: 16000}, nil
	})
	r.RegisterSTT("narrow", func(ProviderEntry, string) (stt.Recognizer, error) {
		return &stubRecognizer{rate: 8000}, nil
	})

	_, err := r.CreateSTTChain(STTEntry{
		ProviderEntry: ProviderEntry{Name: "wide"},
		Fallbacks:     []ProviderEntry{{Name: "narrow"}},
	}, "en-US")
	if err == nil {
		t.Fatal("8 kHz fallback accepted behind a 16 kHz primary")
	}
}

func TestCreateSTTChain_UnregisteredFallback(t *testing.T) {
	r := NewRegistry()
	r.RegisterSTT("stub", func(ProviderEntry, string) (stt.Recognizer, error) {
		return &stubRecognizer{rate: 16000}, nil
	})

	_, err := r.CreateSTTChain(STTEntry{
		ProviderEntry: ProviderEntry{Name: "stub"},
		Fallbacks:     []ProviderEntry{{Name: "ghost"}},
	}, "en-US")
	if !errors.Is(err, ErrProviderNotRegistered) {
		t.Fatalf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestDefaultRegistry_BuiltinsResolve(t *testing.T) {
	r := DefaultRegistry()

	if _, err := r.CreateMT(ProviderEntry{Name: "googletrans"}); err != nil {
		t.Errorf("googletrans: %v", err)
	}
	if _, err := r.CreateVAD(VADEntry{Name: "energy"}); err != nil {
		t.Errorf("energy: %v", err)
	}
	if _, err := r.CreateTTS(TTSParams{
		Entry:  TTSEntry{Name: "edge", Gender: GenderFemale},
		Voices: map[string]VoiceConfig{"ru-RU": {Female: "ru-RU-SvetlanaNeural"}},
	}); err != nil {
		t.Errorf("edge: %v", err)
	}
	if _, err := r.CreateSTT(ProviderEntry{Name: "openai", APIKey: "sk-test"}, "en"); err != nil {
		t.Errorf("openai: %v", err)
	}
	if _, err := r.CreateSTT(ProviderEntry{Name: "google", APIKey: "key"}, "en-US"); err != nil {
		t.Errorf("google: %v", err)
	}

	// Factories still enforce their own constructor validation.
	if _, err := r.CreateSTT(ProviderEntry{Name: "openai"}, "en"); err == nil {
		t.Error("openai accepted an empty API key")
	}

	// The default engine classifies frames out of the box.
	eng, err := r.CreateVAD(VADEntry{Name: "energy", Aggressiveness: 2})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.NewDetector(vad.Config{SampleRate: 16000, FrameSizeMs: 30, Aggressiveness: 2}); err != nil {
		t.Errorf("energy detector: %v", err)
	}
}
