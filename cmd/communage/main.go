// Command communage runs the bidirectional speech-to-speech translator: it
// captures the microphone and the speaker loopback, segments speech,
// recognises and translates it, and voices the microphone side's
// translations for the other party.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/communage/communage/internal/config"
	"github.com/communage/communage/internal/history"
	"github.com/communage/communage/internal/observe"
	"github.com/communage/communage/internal/pipeline"
	"github.com/communage/communage/internal/stream"
	"github.com/communage/communage/pkg/audio"
	"github.com/communage/communage/pkg/provider/mt"
	"github.com/communage/communage/pkg/provider/tts"
	"github.com/communage/communage/pkg/provider/vad"
)

// stopTimeout bounds the graceful shutdown of both stream handlers.
const stopTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "communage: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "communage: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	slog.SetDefault(newLogger(cfg.Server.LogLevel))

	slog.Info("communage starting",
		"config", *configPath,
		"mine", cfg.Languages.Mine,
		"theirs", cfg.Languages.Theirs,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "communage"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	if addr := cfg.Server.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "err", err)
			}
		}()
		defer srv.Close()
		slog.Info("metrics endpoint listening", "addr", addr)
	}

	// ── Audio host ────────────────────────────────────────────────────────────
	host, err := audio.NewHost(cfg.Audio.Host)
	if err != nil {
		slog.Error("failed to open audio host",
			"backend", cfg.Audio.Host,
			"available", audio.Hosts(),
			"err", err,
		)
		return 1
	}

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.DefaultRegistry()

	translator, err := reg.CreateMT(cfg.Providers.MT)
	if err != nil {
		slog.Error("failed to create translator", "name", cfg.Providers.MT.Name, "err", err)
		return 1
	}

	var synth tts.Engine
	if cfg.Providers.TTS.Name != "" {
		synth, err = reg.CreateTTS(config.TTSParams{
			Entry:  cfg.Providers.TTS,
			Voices: cfg.Languages.Voices,
		})
		if err != nil {
			slog.Error("failed to create synthesis engine", "name", cfg.Providers.TTS.Name, "err", err)
			return 1
		}
	}

	vadName := cfg.Providers.VAD.Name
	if vadName == "" {
		vadName = "energy"
	}
	detector, err := reg.CreateVAD(config.VADEntry{Name: vadName, Aggressiveness: cfg.Providers.VAD.Aggressiveness})
	if err != nil {
		slog.Error("failed to create voice detector", "name", vadName, "err", err)
		return 1
	}

	// ── History ───────────────────────────────────────────────────────────────
	var store *history.Store
	if cfg.History.Path != "" {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			slog.Error("failed to open translation history", "path", cfg.History.Path, "err", err)
			return 1
		}
		defer store.Close()
	}

	// ── Stream handlers ───────────────────────────────────────────────────────
	handlers, err := buildHandlers(cfg, host, reg, detector, translator, synth, store)
	if err != nil {
		slog.Error("failed to assemble streams", "err", err)
		return 1
	}

	started := make([]*stream.Handler, 0, len(handlers))
	for _, h := range handlers {
		if err := h.Start(ctx); err != nil {
			slog.Error("failed to start stream", "err", err)
			stopAll(started)
			return 1
		}
		started = append(started, h)
	}

	slog.Info("translator running — press Ctrl+C to stop")
	<-ctx.Done()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	if !stopAll(started) {
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildHandlers assembles the two capture directions: the microphone
// (my language, voiced back out in theirs) and the speaker loopback (their
// language, published as text in mine).
func buildHandlers(
	cfg *config.Config,
	host audio.Host,
	reg *config.Registry,
	detector vad.Engine,
	translator mt.Translator,
	synth tts.Engine,
	store *history.Store,
) ([]*stream.Handler, error) {
	mine, theirs := cfg.Languages.Mine, cfg.Languages.Theirs

	var hist pipeline.HistoryRecorder
	if store != nil {
		hist = store
	}

	onText := func(source, original, translated string) {
		fmt.Printf("[%s] %s\n  → %s\n", source, original, translated)
	}

	common := stream.Config{
		Host:      host,
		ChunkMs:   cfg.Audio.ChunkMs,
		PaddingMs: cfg.Audio.PaddingMs,
		VAD:       detector,
		Gain:      cfg.Audio.Gain,
		Peak:      cfg.Audio.Peak,
		QueueSize: cfg.Pipeline.QueueSize,
		History:   hist,
		Callbacks: stream.Callbacks{OnText: onText},
	}
	common.Aggressiveness = cfg.Providers.VAD.Aggressiveness

	// Microphone: mine → theirs, voiced on the default output so the other
	// party hears the translation.
	micCfg := common
	micCfg.Source = "microphone"
	micCfg.Strategy = audio.DefaultInputStrategy{}
	micRec, err := reg.CreateSTTChain(cfg.Providers.STT, mine)
	if err != nil {
		return nil, fmt.Errorf("stt for %s: %w", mine, err)
	}
	micCfg.Recognizer = micRec
	micCfg.Translator = mt.NewSentenceTranslator(translator, mine, theirs, cfg.Pipeline.Patience)
	if synth != nil {
		micCfg.Synthesis = synth
		out, err := host.OpenPlayback()
		if err != nil {
			slog.Warn("no playback device, microphone translations will be text-only", "err", err)
		} else {
			micCfg.OutputDevice = out
		}
	}
	mic, err := stream.New(micCfg)
	if err != nil {
		return nil, err
	}

	// Speaker loopback: theirs → mine, text-only.
	spkCfg := common
	spkCfg.Source = "speaker"
	spkCfg.Strategy = audio.LoopbackStrategy{}
	spkRec, err := reg.CreateSTTChain(cfg.Providers.STT, theirs)
	if err != nil {
		return nil, fmt.Errorf("stt for %s: %w", theirs, err)
	}
	spkCfg.Recognizer = spkRec
	spkCfg.Translator = mt.NewSentenceTranslator(translator, theirs, mine, cfg.Pipeline.Patience)
	spk, err := stream.New(spkCfg)
	if err != nil {
		return nil, err
	}

	return []*stream.Handler{mic, spk}, nil
}

// stopAll stops every handler within the shutdown budget and reports
// whether all of them exited cleanly.
func stopAll(handlers []*stream.Handler) bool {
	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	clean := true
	for _, h := range handlers {
		if err := h.Stop(stopCtx); err != nil {
			slog.Error("stream stop error", "err", err)
			clean = false
		}
	}
	return clean
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
