package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/communage/communage/internal/observe"
	"github.com/communage/communage/pkg/audio"
	"github.com/communage/communage/pkg/provider/mt"
)

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// fakeRecognizer returns a fixed transcription and captures the WAV it was
// handed.
type fakeRecognizer struct {
	mu      sync.Mutex
	rate    int
	text    string
	err     error
	lastWAV []byte
}

func (f *fakeRecognizer) SampleRate() int { return f.rate }

func (f *fakeRecognizer) Recognize(_ context.Context, wav []byte) (string, error) {
	f.mu.Lock()
	f.lastWAV = wav
	f.mu.Unlock()
	return f.text, f.err
}

// fakeBackend is a mt.Translator returning a fixed result.
type fakeBackend struct {
	result string
	err    error
	calls  int
}

func (f *fakeBackend) Translate(context.Context, string, string, string) (string, error) {
	f.calls++
	return f.result, f.err
}

// recorder captures history writes.
type recorder struct {
	mu      sync.Mutex
	err     error
	entries [][3]string
}

func (r *recorder) Record(_ context.Context, source, original, translated string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, [3]string{source, original, translated})
	return nil
}

func sentenceTranslator(backend mt.Translator) *mt.SentenceTranslator {
	return mt.NewSentenceTranslator(backend, "en-US", "ru-RU", 0)
}

func TestTranslator_PublishesTranslation(t *testing.T) {
	rec := &fakeRecognizer{rate: 16000, text: "hello world"}
	hist := &recorder{}
	synth := make(chan string, 1)

	var gotSource, gotOriginal, gotTranslated string
	tr, err := NewTranslator(TranslatorConfig{
		Source:     "microphone",
		Recognizer: rec,
		Translator: sentenceTranslator(&fakeBackend{result: "привет мир"}),
		Synthesis:  synth,
		OnText: func(source, original, translated string) {
			gotSource, gotOriginal, gotTranslated = source, original, translated
		},
		History: hist,
		Metrics: testMetrics(t),
	})
	if err != nil {
		t.Fatal(err)
	}

	utt := Utterance{Source: "microphone", PCM: []byte{1, 0, 2, 0, 3, 0, 4, 0}, Rate: 16000}
	if err := tr.process(context.Background(), utt); err != nil {
		t.Fatal(err)
	}

	if gotSource != "microphone" || gotOriginal != "hello world" || gotTranslated != "привет мир" {
		t.Errorf("OnText got (%q, %q, %q)", gotSource, gotOriginal, gotTranslated)
	}
	select {
	case s := <-synth:
		if s != "привет мир" {
			t.Errorf("synthesis queue got %q", s)
		}
	default:
		t.Error("translation never reached the synthesis queue")
	}
	if len(hist.entries) != 1 || hist.entries[0] != [3]string{"microphone", "hello world", "привет мир"} {
		t.Errorf("history entries = %v", hist.entries)
	}
}

func TestTranslator_PreprocessResamplesToRecognizerRate(t *testing.T) {
	// Recognizer wants 8 kHz, utterance arrives at 16 kHz: the WAV payload
	// must be half the sample count.
	rec := &fakeRecognizer{rate: 8000, text: "ok"}
	tr, err := NewTranslator(TranslatorConfig{
		Source:     "microphone",
		Recognizer: rec,
		Translator: sentenceTranslator(&fakeBackend{result: "ок"}),
		Metrics:    testMetrics(t),
	})
	if err != nil {
		t.Fatal(err)
	}

	pcm := make([]byte, 320) // 160 samples at 16 kHz
	utt := Utterance{Source: "microphone", PCM: pcm, Rate: 16000}
	if err := tr.process(context.Background(), utt); err != nil {
		t.Fatal(err)
	}

	wav := rec.lastWAV
	if len(wav) != 44+160 {
		t.Fatalf("WAV length = %d, want 44 header + 160 payload bytes", len(wav))
	}
	if string(wav[:4]) != "RIFF" {
		t.Errorf("payload is not a WAV container: % x", wav[:4])
	}
	wantRate := audio.EncodeWAV(nil, 8000)[24:28]
	if string(wav[24:28]) != string(wantRate) {
		t.Errorf("sample rate field = % x, want % x", wav[24:28], wantRate)
	}
}

func TestTranslator_AbsentRecognitionDropsItem(t *testing.T) {
	backend := &fakeBackend{result: "never"}
	synth := make(chan string, 1)
	tr, err := NewTranslator(TranslatorConfig{
		Source:     "speaker",
		Recognizer: &fakeRecognizer{rate: 16000, text: ""},
		Translator: sentenceTranslator(backend),
		Synthesis:  synth,
		Metrics:    testMetrics(t),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := tr.process(context.Background(), Utterance{Source: "speaker", PCM: []byte{0, 0}, Rate: 16000}); err != nil {
		t.Fatal(err)
	}
	if backend.calls != 0 {
		t.Error("translator consulted for an absent transcription")
	}
	if len(synth) != 0 {
		t.Error("absent transcription reached the synthesis queue")
	}
}

func TestTranslator_AbsentTranslationDropsItem(t *testing.T) {
	// The backend keeps answering with the failure sentinel; patience 0 gives
	// up after one attempt and the item is dropped, not failed.
	called := false
	tr, err := NewTranslator(TranslatorConfig{
		Source:     "speaker",
		Recognizer: &fakeRecognizer{rate: 16000, text: "hello"},
		Translator: sentenceTranslator(&fakeBackend{result: "broken\n"}),
		OnText:     func(string, string, string) { called = true },
		Metrics:    testMetrics(t),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := tr.process(context.Background(), Utterance{Source: "speaker", PCM: []byte{0, 0}, Rate: 16000}); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("OnText invoked for an absent translation")
	}
}

func TestTranslator_HistoryFailureIsBestEffort(t *testing.T) {
	synth := make(chan string, 1)
	tr, err := NewTranslator(TranslatorConfig{
		Source:     "microphone",
		Recognizer: &fakeRecognizer{rate: 16000, text: "hello"},
		Translator: sentenceTranslator(&fakeBackend{result: "привет"}),
		Synthesis:  synth,
		History:    &recorder{err: errors.New("disk full")},
		Metrics:    testMetrics(t),
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := tr.process(context.Background(), Utterance{Source: "microphone", PCM: []byte{0, 0}, Rate: 16000}); err != nil {
		t.Fatalf("storage failure failed the item: %v", err)
	}
	if len(synth) != 1 {
		t.Error("translation lost after a history failure")
	}
}

func TestTranslator_TextOnlyWithoutSynthesisQueue(t *testing.T) {
	tr, err := NewTranslator(TranslatorConfig{
		Source:     "speaker",
		Recognizer: &fakeRecognizer{rate: 16000, text: "hello"},
		Translator: sentenceTranslator(&fakeBackend{result: "привет"}),
		Metrics:    testMetrics(t),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.process(context.Background(), Utterance{Source: "speaker", PCM: []byte{0, 0}, Rate: 16000}); err != nil {
		t.Fatal(err)
	}
}

func TestNewTranslator_Validation(t *testing.T) {
	if _, err := NewTranslator(TranslatorConfig{
		Source:     "microphone",
		Translator: sentenceTranslator(&fakeBackend{}),
	}); err == nil {
		t.Error("missing recognizer accepted")
	}
	if _, err := NewTranslator(TranslatorConfig{
		Source:     "microphone",
		Recognizer: &fakeRecognizer{rate: 16000},
	}); err == nil {
		t.Error("missing translator accepted")
	}
}
