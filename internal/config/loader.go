package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"google", "openai"},
	"mt":  {"googletrans"},
	"tts": {"edge"},
	"vad": {"energy"},
}

// maxChunkMs is the largest chunk duration the segmenter's start window can
// hold.
const maxChunkMs = 400

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Audio
	if cfg.Audio.ChunkMs < 0 || cfg.Audio.ChunkMs > maxChunkMs {
		errs = append(errs, fmt.Errorf("audio.chunk_ms %d is out of range (0, %d]", cfg.Audio.ChunkMs, maxChunkMs))
	}
	if cfg.Audio.PaddingMs < 0 {
		errs = append(errs, fmt.Errorf("audio.padding_ms %d must not be negative", cfg.Audio.PaddingMs))
	}
	if cfg.Audio.Peak < 0 || cfg.Audio.Peak > 1 {
		errs = append(errs, fmt.Errorf("audio.peak %.2f is out of range (0, 1]", cfg.Audio.Peak))
	}

	// Languages
	if cfg.Languages.Mine == "" {
		errs = append(errs, errors.New("languages.mine is required"))
	}
	if cfg.Languages.Theirs == "" {
		errs = append(errs, errors.New("languages.theirs is required"))
	}
	if cfg.Languages.Mine != "" && cfg.Languages.Mine == cfg.Languages.Theirs {
		errs = append(errs, fmt.Errorf("languages.mine and languages.theirs are both %q; nothing to translate", cfg.Languages.Mine))
	}

	// Pipeline
	if cfg.Pipeline.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("pipeline.queue_size %d must not be negative", cfg.Pipeline.QueueSize))
	}
	if cfg.Pipeline.Patience < -1 {
		errs = append(errs, fmt.Errorf("pipeline.patience %d is invalid; use -1 for unbounded retries", cfg.Pipeline.Patience))
	}

	// Providers
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("mt", cfg.Providers.MT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("vad", cfg.Providers.VAD.Name)

	if cfg.Providers.STT.Name == "" {
		errs = append(errs, errors.New("providers.stt.name is required"))
	}
	for i, fb := range cfg.Providers.STT.Fallbacks {
		validateProviderName("stt", fb.Name)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.stt.fallbacks[%d].name is required", i))
		}
	}
	if cfg.Providers.MT.Name == "" {
		errs = append(errs, errors.New("providers.mt.name is required"))
	}
	if cfg.Providers.TTS.Gender != "" && !cfg.Providers.TTS.Gender.IsValid() {
		errs = append(errs, fmt.Errorf("providers.tts.gender %q is invalid; valid values: male, female", cfg.Providers.TTS.Gender))
	}
	if a := cfg.Providers.VAD.Aggressiveness; a < 0 || a > 3 {
		errs = append(errs, fmt.Errorf("providers.vad.aggressiveness %d is out of range [0, 3]", a))
	}

	// Voice availability: the microphone side speaks its translations in
	// the other party's language, so that language needs a voice.
	if cfg.Providers.TTS.Name != "" && cfg.Languages.Theirs != "" {
		if _, ok := cfg.Languages.Voices[cfg.Languages.Theirs]; !ok {
			slog.Warn("no voice mapped for the target language; microphone translations will be text-only",
				"language", cfg.Languages.Theirs)
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
