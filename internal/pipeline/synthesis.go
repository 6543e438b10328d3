package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/communage/communage/internal/observe"
	"github.com/communage/communage/pkg/provider/tts"
)

// Synthesizer turns translated sentences into playable clips.
type Synthesizer struct {
	source   string
	language string
	engine   tts.Engine
	out      chan<- Clip
	metrics  *observe.Metrics
}

// NewSynthesizer wires engine to render sentences in language (the
// translation's destination language) and queue the clips on out.
func NewSynthesizer(source, language string, engine tts.Engine, out chan<- Clip, m *observe.Metrics) (*Synthesizer, error) {
	if engine == nil {
		return nil, fmt.Errorf("pipeline: %s: synthesis engine is required", source)
	}
	if out == nil {
		return nil, fmt.Errorf("pipeline: %s: playback queue is required", source)
	}
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Synthesizer{
		source:   source,
		language: language,
		engine:   engine,
		out:      out,
		metrics:  m,
	}, nil
}

// Worker binds the stage to its sentence queue.
func (s *Synthesizer) Worker(in <-chan string) *Worker[string] {
	return NewWorker("synthesize/"+s.source, in, s.process)
}

func (s *Synthesizer) process(ctx context.Context, text string) error {
	start := time.Now()
	res, err := s.engine.Synthesize(ctx, text, s.language)
	s.metrics.SynthesisDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("source", s.source)))
	if err != nil {
		s.metrics.RecordProviderError(ctx, "tts", "synthesize")
		return fmt.Errorf("synthesize: %w", err)
	}
	if res == nil {
		s.metrics.RecordDrop(ctx, s.source, "synthesize")
		return nil
	}
	Send(ctx, s.out, Clip{Source: s.source, PCM: res.PCM, SampleRate: res.SampleRate})
	return nil
}
