// Package openai provides a speech recognizer backed by the OpenAI audio
// transcription API (Whisper).
package openai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/communage/communage/pkg/provider/stt"
)

// Recognizer implements [stt.Recognizer] using the OpenAI transcription API.
type Recognizer struct {
	client   oai.Client
	model    string
	language string
	rate     int
	retries  int
	timeout  time.Duration
}

var _ stt.Recognizer = (*Recognizer)(nil)

// config holds optional configuration for the recognizer.
type config struct {
	baseURL string
	model   string
	retries int
	timeout time.Duration
}

// Option is a functional option for the Recognizer.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithModel selects the transcription model. Default "whisper-1".
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithRetries sets the per-utterance network attempt budget. Default 3.
func WithRetries(n int) Option {
	return func(c *config) { c.retries = n }
}

// WithTimeout sets the per-attempt request timeout. Default 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New constructs a Recognizer. language is a BCP-47 tag or bare ISO 639-1
// code passed as a recognition hint; empty lets the model auto-detect.
func New(apiKey, language string, opts ...Option) (*Recognizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	cfg := &config{
		model:   "whisper-1",
		retries: 3,
		timeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(cfg)
	}

	// The attempt budget lives here, not in the transport.
	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Recognizer{
		client:   oai.NewClient(clientOpts...),
		model:    cfg.model,
		language: languageCode(language),
		rate:     16000, // Whisper is trained on 16 kHz audio
		retries:  cfg.retries,
		timeout:  cfg.timeout,
	}, nil
}

// languageCode reduces a BCP-47 tag to the bare ISO 639-1 code the
// transcription API expects: "en-US" becomes "en".
func languageCode(tag string) string {
	if i := strings.IndexByte(tag, '-'); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

// SampleRate implements [stt.Recognizer].
func (r *Recognizer) SampleRate() int { return r.rate }

// Recognize implements [stt.Recognizer]. Transport failures are swallowed
// per attempt; an exhausted budget resolves to absent.
func (r *Recognizer) Recognize(ctx context.Context, wav []byte) (string, error) {
	if len(wav) == 0 {
		return "", nil
	}
	for attempt := 0; attempt < r.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		// Rebuilt per attempt: the file reader is consumed by the upload.
		params := oai.AudioTranscriptionNewParams{
			File:  oai.File(bytes.NewReader(wav), "utterance.wav", "audio/wav"),
			Model: oai.AudioModel(r.model),
		}
		if r.language != "" {
			params.Language = oai.String(r.language)
		}
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		resp, err := r.client.Audio.Transcriptions.New(attemptCtx, params)
		cancel()
		if err != nil {
			slog.Debug("transcription attempt failed",
				"attempt", attempt+1, "retries", r.retries, "err", err)
			continue
		}
		return resp.Text, nil
	}
	return "", nil
}
