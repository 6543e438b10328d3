// Package pipeline implements the concurrent processing stages between the
// segmenter and the loudspeaker: recognize → translate → synthesize → play.
//
// Stages communicate through bounded channels and run as [Worker] loops, one
// goroutine per stage, so a slow translation never stalls audio capture and a
// slow playback never stalls translation. Every stage resolves an absent
// result (silence, unmapped language, exhausted retries) by dropping the item
// and taking the next one; only context cancellation stops a stage.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/communage/communage/internal/observe"
	"github.com/communage/communage/pkg/audio"
	"github.com/communage/communage/pkg/provider/mt"
	"github.com/communage/communage/pkg/provider/stt"
)

// Default preprocessing parameters applied to every utterance before
// recognition. The gain compensates for quiet capture paths; the peak target
// then normalises whatever headroom is left.
const (
	DefaultGain = 2.0
	DefaultPeak = 1.0
)

// Utterance is one complete segmented speech region entering the pipeline.
type Utterance struct {
	// Source names the capture side, "microphone" or "speaker".
	Source string

	// PCM is mono little-endian int16 at Rate.
	PCM []byte

	// Rate is the sample rate of PCM in Hz.
	Rate int
}

// Clip is one synthesised utterance queued for playback.
type Clip struct {
	Source     string
	PCM        []byte
	SampleRate int
}

// HistoryRecorder persists published translations. Implemented by
// history.Store; nil disables persistence.
type HistoryRecorder interface {
	Record(ctx context.Context, source, original, translated string) error
}

// TranslatorConfig wires one direction of the translation pipeline.
type TranslatorConfig struct {
	// Source names the capture side this pipeline serves.
	Source string

	// Gain is the amplification applied before normalisation.
	// Zero means DefaultGain.
	Gain float64

	// Peak is the peak-normalisation target in (0, 1].
	// Zero means DefaultPeak.
	Peak float64

	// Recognizer transcribes preprocessed utterances.
	Recognizer stt.Recognizer

	// Translator translates recognised sentences.
	Translator *mt.SentenceTranslator

	// Synthesis receives translated sentences for voicing. Nil disables the
	// synthesis leg: the direction is text-only.
	Synthesis chan<- string

	// OnText is invoked for every published translation. May be nil.
	OnText func(source, original, translated string)

	// History persists published translations. May be nil.
	History HistoryRecorder

	// Metrics records per-stage instruments. Nil means
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// Translator is the recognize-and-translate stage for one direction.
type Translator struct {
	cfg TranslatorConfig
}

// NewTranslator validates cfg and returns the stage.
func NewTranslator(cfg TranslatorConfig) (*Translator, error) {
	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("pipeline: %s: recognizer is required", cfg.Source)
	}
	if cfg.Translator == nil {
		return nil, fmt.Errorf("pipeline: %s: translator is required", cfg.Source)
	}
	if cfg.Gain == 0 {
		cfg.Gain = DefaultGain
	}
	if cfg.Peak == 0 {
		cfg.Peak = DefaultPeak
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Translator{cfg: cfg}, nil
}

// Worker binds the stage to its utterance queue.
func (t *Translator) Worker(in <-chan Utterance) *Worker[Utterance] {
	return NewWorker("translate/"+t.cfg.Source, in, t.process)
}

func (t *Translator) process(ctx context.Context, utt Utterance) error {
	cfg := t.cfg
	src := observe.Attr("source", cfg.Source)

	wav := t.preprocess(utt)

	start := time.Now()
	text, err := cfg.Recognizer.Recognize(ctx, wav)
	cfg.Metrics.RecognitionDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(src))
	if err != nil {
		return fmt.Errorf("recognize: %w", err)
	}
	if text == "" {
		cfg.Metrics.RecordDrop(ctx, cfg.Source, "recognize")
		return nil
	}

	start = time.Now()
	translated, err := cfg.Translator.Translate(ctx, text)
	cfg.Metrics.TranslationDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(src))
	if err != nil {
		return fmt.Errorf("translate: %w", err)
	}
	if translated == "" {
		cfg.Metrics.RecordDrop(ctx, cfg.Source, "translate")
		cfg.Metrics.RecordTranslation(ctx, cfg.Source, "absent")
		return nil
	}
	cfg.Metrics.RecordTranslation(ctx, cfg.Source, "ok")

	if cfg.OnText != nil {
		cfg.OnText(cfg.Source, text, translated)
	}
	if cfg.History != nil {
		if err := cfg.History.Record(ctx, cfg.Source, text, translated); err != nil && ctx.Err() == nil {
			// Persistence is best-effort: the translation is already
			// published, so a storage failure must not fail the item.
			cfg.Metrics.RecordDrop(ctx, cfg.Source, "history")
		}
	}
	if cfg.Synthesis != nil {
		Send(ctx, cfg.Synthesis, translated)
	}
	return nil
}

// preprocess amplifies, peak-normalises, and resamples the utterance to the
// recognizer's input rate, then wraps it in a WAV container.
func (t *Translator) preprocess(utt Utterance) []byte {
	pcm := audio.Amplify(utt.PCM, t.cfg.Gain)
	pcm = audio.NormalizePeak(pcm, t.cfg.Peak)

	rate := utt.Rate
	if want := t.cfg.Recognizer.SampleRate(); want != rate {
		pcm = audio.ResampleMono16(pcm, rate, want)
		rate = want
	}
	return audio.EncodeWAV(pcm, rate)
}
