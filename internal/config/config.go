// Package config provides the configuration schema, loader, and provider
// registry for the Communage translator.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Gender selects which mapped neural voice speaks the translations.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// IsValid reports whether g is a recognised gender value.
func (g Gender) IsValid() bool {
	return g == GenderMale || g == GenderFemale
}

// Config is the root configuration structure, typically loaded from a YAML
// file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Audio     AudioConfig     `yaml:"audio"`
	Languages LanguagesConfig `yaml:"languages"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Providers ProvidersConfig `yaml:"providers"`
	History   HistoryConfig   `yaml:"history"`
}

// ServerConfig holds logging and telemetry settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address the Prometheus /metrics endpoint
	// listens on (e.g., ":9090"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// AudioConfig holds capture and preprocessing settings shared by both
// directions.
type AudioConfig struct {
	// Host selects the registered audio host backend. Empty picks the sole
	// compiled-in backend.
	Host string `yaml:"host"`

	// ChunkMs is the capture chunk duration in milliseconds.
	// Zero means the segmenter default (30).
	ChunkMs int `yaml:"chunk_ms"`

	// PaddingMs is the pre-trigger padding span in milliseconds.
	// Zero means the segmenter default (1500).
	PaddingMs int `yaml:"padding_ms"`

	// Gain is the amplification applied to utterances before recognition.
	// Zero means the pipeline default (2.0).
	Gain float64 `yaml:"gain"`

	// Peak is the peak-normalisation target in (0, 1]. Zero means full scale.
	Peak float64 `yaml:"peak"`
}

// LanguagesConfig names the two sides of the conversation and the voices
// used to speak translations.
type LanguagesConfig struct {
	// Mine is the ISO code of the language spoken into the microphone
	// (e.g., "en-US").
	Mine string `yaml:"mine"`

	// Theirs is the ISO code of the language heard on the speakers.
	Theirs string `yaml:"theirs"`

	// Voices maps an ISO language code to its neural voice pair. A language
	// without a mapping is not voiced; its translations stay text-only.
	Voices map[string]VoiceConfig `yaml:"voices"`
}

// VoiceConfig names the male and female voices for one language.
type VoiceConfig struct {
	Male   string `yaml:"male"`
	Female string `yaml:"female"`
}

// PipelineConfig tunes the stage queues and retry behaviour.
type PipelineConfig struct {
	// QueueSize bounds each inter-stage channel. Zero means the handler
	// default (16).
	QueueSize int `yaml:"queue_size"`

	// Patience is the number of translation retries after the first
	// attempt. -1 retries until the stream stops; 0 means one attempt only.
	Patience int `yaml:"patience"`
}

// ProvidersConfig selects the backend for each pipeline stage. Each Name
// field is looked up in the [Registry].
type ProvidersConfig struct {
	STT STTEntry      `yaml:"stt"`
	MT  ProviderEntry `yaml:"mt"`
	TTS TTSEntry      `yaml:"tts"`
	VAD VADEntry      `yaml:"vad"`
}

// STTEntry configures the recognition backend and its failover chain.
type STTEntry struct {
	ProviderEntry `yaml:",inline"`

	// Fallbacks are additional recognizers tried in order when the primary
	// fails or its circuit breaker is open. Every fallback must accept audio
	// at the primary's sample rate.
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// ProviderEntry is the common configuration block shared by network-backed
// providers.
type ProviderEntry struct {
	// Name selects the registered provider implementation
	// (e.g., "openai", "google").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API, if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "whisper-1").
	Model string `yaml:"model"`

	// Retries is the per-request attempt budget. Zero means the provider's
	// own default.
	Retries int `yaml:"retries"`
}

// TTSEntry configures the synthesis backend.
type TTSEntry struct {
	// Name selects the registered engine (e.g., "edge"). Empty disables the
	// voice leg entirely: translations are published as text only.
	Name string `yaml:"name"`

	// Gender selects which mapped voice speaks, "male" or "female".
	// Empty means male.
	Gender Gender `yaml:"gender"`
}

// VADEntry configures voice activity detection.
type VADEntry struct {
	// Name selects the registered detector engine (e.g., "energy").
	Name string `yaml:"name"`

	// Aggressiveness is the filtering mode, 0 (permissive) through 3
	// (strict).
	Aggressiveness int `yaml:"aggressiveness"`
}

// HistoryConfig controls translation persistence.
type HistoryConfig struct {
	// Path is the SQLite file the translation log is written to.
	// Empty disables persistence.
	Path string `yaml:"path"`
}
