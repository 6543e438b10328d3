// Package stream ties one capture direction together: an audio source, the
// segmenter, and the pipeline stages, started and stopped as a unit.
//
// A Handler owns exactly one Source + Segmenter + Translator (plus the
// synthesis and playback stages when a voice leg is configured). Start
// launches every loop on its own goroutine under a shared errgroup; Stop
// cancels the shared context, closes the device, and waits — bounded by the
// caller's context — for the loops to exit. In-flight provider calls are
// abandoned by cancellation, never awaited.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/communage/communage/internal/observe"
	"github.com/communage/communage/internal/pipeline"
	"github.com/communage/communage/internal/segment"
	"github.com/communage/communage/pkg/audio"
	"github.com/communage/communage/pkg/provider/mt"
	"github.com/communage/communage/pkg/provider/stt"
	"github.com/communage/communage/pkg/provider/tts"
	"github.com/communage/communage/pkg/provider/vad"
)

// workingRate is the sample rate every captured frame is normalized to
// before voice detection and segmentation.
const workingRate = 16000

// defaultQueueSize bounds each inter-stage channel. Small on purpose: the
// queues exist to decouple stage latencies, not to absorb minutes of backlog.
const defaultQueueSize = 16

// Callbacks is the event surface a Handler exposes outward. All fields are
// optional. Callbacks run on pipeline goroutines and must return quickly.
type Callbacks struct {
	// OnText fires once per published translation.
	OnText func(source, original, translated string)

	// OnSpeechStateChanged fires when the segmenter confirms speech onset
	// (true) or end (false).
	OnSpeechStateChanged func(speaking bool)

	// OnInitialized fires once, after the device stream has produced its
	// first frame.
	OnInitialized func()
}

// Config assembles one capture direction.
type Config struct {
	// Source tags this direction in events, logs, and metrics
	// ("microphone" or "speaker").
	Source string

	// Host enumerates and opens audio devices.
	Host audio.Host

	// Strategy selects the capture device.
	Strategy audio.SelectionStrategy

	// ChunkMs is the capture chunk duration. Zero means
	// [segment.DefaultChunkMs].
	ChunkMs int

	// PaddingMs is the pre-trigger padding span. Zero means
	// [segment.DefaultPaddingMs].
	PaddingMs int

	// VAD creates the voice activity detector for this stream.
	VAD vad.Engine

	// Aggressiveness is the detector's filtering mode, 0 (permissive)
	// through 3 (strict).
	Aggressiveness int

	// Recognizer and Translator drive the text leg.
	Recognizer stt.Recognizer
	Translator *mt.SentenceTranslator

	// Gain and Peak tune utterance preprocessing; zero means the
	// pipeline defaults.
	Gain float64
	Peak float64

	// Synthesis enables the voice leg: translations are rendered and played
	// on OutputDevice. Nil keeps the direction text-only.
	Synthesis tts.Engine

	// OutputDevice is the initial playback sink for the voice leg. May be
	// nil (muted) and swapped later via [Handler.SetOutputDevice].
	OutputDevice audio.OutputDevice

	// History persists published translations. May be nil.
	History pipeline.HistoryRecorder

	// QueueSize bounds each inter-stage channel. Zero means
	// defaultQueueSize.
	QueueSize int

	// Metrics records instruments. Nil means [observe.DefaultMetrics].
	Metrics *observe.Metrics

	Callbacks Callbacks
}

func (c *Config) applyDefaults() {
	if c.ChunkMs == 0 {
		c.ChunkMs = segment.DefaultChunkMs
	}
	if c.PaddingMs == 0 {
		c.PaddingMs = segment.DefaultPaddingMs
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.Metrics == nil {
		c.Metrics = observe.DefaultMetrics()
	}
}

// Handler runs one capture direction. Create with New, then Start and Stop
// at most once each.
type Handler struct {
	cfg    Config
	player *pipeline.Player

	mu      sync.Mutex
	source  *audio.Source
	cancel  context.CancelFunc
	group   *errgroup.Group
	started bool

	initOnce    sync.Once
	initialized bool
	initMu      sync.Mutex
}

// New validates cfg and returns an unstarted Handler.
func New(cfg Config) (*Handler, error) {
	cfg.applyDefaults()
	if cfg.Host == nil || cfg.Strategy == nil {
		return nil, fmt.Errorf("stream: %s: host and strategy are required", cfg.Source)
	}
	if cfg.VAD == nil {
		return nil, fmt.Errorf("stream: %s: vad engine is required", cfg.Source)
	}
	if cfg.Recognizer == nil || cfg.Translator == nil {
		return nil, fmt.Errorf("stream: %s: recognizer and translator are required", cfg.Source)
	}
	h := &Handler{cfg: cfg}
	if cfg.Synthesis != nil {
		h.player = pipeline.NewPlayer(cfg.Source, cfg.OutputDevice, cfg.Metrics)
	}
	return h, nil
}

// Initialized reports whether the device stream has produced at least one
// frame since Start.
func (h *Handler) Initialized() bool {
	h.initMu.Lock()
	defer h.initMu.Unlock()
	return h.initialized
}

// SetOutputDevice redirects future playback of the voice leg. No-op for a
// text-only handler.
func (h *Handler) SetOutputDevice(dev audio.OutputDevice) {
	if h.player != nil {
		h.player.SetOutputDevice(dev)
	}
}

// Start opens the capture device and launches all stage loops. A device
// selection failure is fatal and returned before any goroutine starts.
func (h *Handler) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return fmt.Errorf("stream: %s: already started", h.cfg.Source)
	}

	source, err := audio.OpenSource(h.cfg.Host, h.cfg.Strategy, h.cfg.ChunkMs)
	if err != nil {
		return err
	}

	detector, err := h.cfg.VAD.NewDetector(vad.Config{
		SampleRate:     workingRate,
		FrameSizeMs:    h.cfg.ChunkMs,
		Aggressiveness: h.cfg.Aggressiveness,
	})
	if err != nil {
		source.Close()
		return fmt.Errorf("stream: %s: detector: %w", h.cfg.Source, err)
	}

	segmenter, err := segment.New(detector, segment.Config{
		ChunkMs:   h.cfg.ChunkMs,
		PaddingMs: h.cfg.PaddingMs,
	})
	if err != nil {
		source.Close()
		return fmt.Errorf("stream: %s: segmenter: %w", h.cfg.Source, err)
	}

	utterances := make(chan pipeline.Utterance, h.cfg.QueueSize)

	var sentences chan string
	if h.cfg.Synthesis != nil {
		sentences = make(chan string, h.cfg.QueueSize)
	}

	translator, err := pipeline.NewTranslator(pipeline.TranslatorConfig{
		Source:     h.cfg.Source,
		Gain:       h.cfg.Gain,
		Peak:       h.cfg.Peak,
		Recognizer: h.cfg.Recognizer,
		Translator: h.cfg.Translator,
		Synthesis:  sentences,
		OnText:     h.cfg.Callbacks.OnText,
		History:    h.cfg.History,
		Metrics:    h.cfg.Metrics,
	})
	if err != nil {
		source.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		return h.captureLoop(groupCtx, source, segmenter, utterances)
	})
	group.Go(func() error {
		translator.Worker(utterances).Run(groupCtx)
		return nil
	})

	if h.cfg.Synthesis != nil {
		_, dstLang := h.cfg.Translator.Languages()
		synth, err := pipeline.NewSynthesizer(h.cfg.Source, dstLang, h.cfg.Synthesis,
			h.makeClipQueue(group, groupCtx), h.cfg.Metrics)
		if err != nil {
			cancel()
			source.Close()
			return err
		}
		group.Go(func() error {
			synth.Worker(sentences).Run(groupCtx)
			return nil
		})
	}

	h.source = source
	h.cancel = cancel
	h.group = group
	h.started = true
	h.cfg.Metrics.ActiveStreams.Add(ctx, 1)
	slog.Info("stream started",
		"source", h.cfg.Source,
		"device", source.Device().Name,
		"chunkMs", h.cfg.ChunkMs,
	)
	return nil
}

// makeClipQueue creates the playback queue and launches its worker.
func (h *Handler) makeClipQueue(group *errgroup.Group, ctx context.Context) chan pipeline.Clip {
	clips := make(chan pipeline.Clip, h.cfg.QueueSize)
	group.Go(func() error {
		h.player.Worker(clips).Run(ctx)
		return nil
	})
	return clips
}

// captureLoop reads frames from the device, normalizes them, and feeds the
// segmenter, forwarding its events. Returns when the stream errors or ctx is
// cancelled.
func (h *Handler) captureLoop(ctx context.Context, source *audio.Source, seg *segment.Segmenter, out chan<- pipeline.Utterance) error {
	normalizer := &audio.Normalizer{TargetRate: workingRate}

	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := source.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("stream: %s: capture: %w", h.cfg.Source, err)
		}
		h.markInitialized()

		frame = normalizer.Normalize(frame)
		if len(frame.Data) == 0 {
			continue
		}

		events, err := seg.Process(frame.Data)
		if err != nil {
			slog.Warn("voice detection failed, skipping chunk",
				"source", h.cfg.Source, "err", err)
			continue
		}
		for _, ev := range events {
			switch ev.Type {
			case segment.SpeechStarted:
				h.notifySpeechState(true)
			case segment.SpeechEnded:
				h.notifySpeechState(false)
			case segment.UtteranceReady:
				h.cfg.Metrics.RecordUtterance(ctx, h.cfg.Source)
				pipeline.Send(ctx, out, pipeline.Utterance{
					Source: h.cfg.Source,
					PCM:    ev.Utterance,
					Rate:   workingRate,
				})
			}
		}
	}
}

func (h *Handler) markInitialized() {
	h.initOnce.Do(func() {
		h.initMu.Lock()
		h.initialized = true
		h.initMu.Unlock()
		slog.Debug("stream initialized", "source", h.cfg.Source)
		if h.cfg.Callbacks.OnInitialized != nil {
			h.cfg.Callbacks.OnInitialized()
		}
	})
}

func (h *Handler) notifySpeechState(speaking bool) {
	if h.cfg.Callbacks.OnSpeechStateChanged != nil {
		h.cfg.Callbacks.OnSpeechStateChanged(speaking)
	}
}

// Stop cancels every owned loop, closes the capture device, and waits for
// the loops to exit. The wait is bounded by ctx: in-flight provider calls
// are abandoned through cancellation, so exit is prompt; ctx expiring first
// is reported as its error.
func (h *Handler) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.started {
		return nil
	}
	h.started = false

	h.cancel()
	// Closing the stream unblocks a ReadFrame waiting on the device.
	if err := h.source.Close(); err != nil {
		slog.Warn("closing capture stream", "source", h.cfg.Source, "err", err)
	}

	done := make(chan error, 1)
	go func() { done <- h.group.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = fmt.Errorf("stream: %s: stop: %w", h.cfg.Source, ctx.Err())
	}

	h.cfg.Metrics.ActiveStreams.Add(context.WithoutCancel(ctx), -1)
	slog.Info("stream stopped", "source", h.cfg.Source)
	return err
}
