// Package google provides a speech recognizer backed by the legacy Google
// speech-api v2 endpoint (the one the Chromium browser uses). The endpoint
// takes raw L16 audio and answers with newline-delimited JSON documents, the
// first non-empty of which carries the transcript alternatives.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/communage/communage/pkg/provider/stt"
)

const defaultEndpoint = "http://www.google.com/speech-api/v2/recognize"

// wavHeaderSize is the size of the canonical PCM WAV header produced by the
// pipeline. The endpoint wants bare L16 samples, so the container is
// stripped before upload.
const wavHeaderSize = 44

// Recognizer implements [stt.Recognizer] using the speech-api v2 endpoint.
type Recognizer struct {
	client   *http.Client
	endpoint string
	apiKey   string
	language string
	rate     int
	retries  int
	timeout  time.Duration
}

var _ stt.Recognizer = (*Recognizer)(nil)

// Option is a functional option for the Recognizer.
type Option func(*Recognizer)

// WithEndpoint overrides the default recognition endpoint URL.
func WithEndpoint(url string) Option {
	return func(r *Recognizer) { r.endpoint = url }
}

// WithSampleRate sets the input sample rate the recognizer reports to the
// pipeline. Default 8000 Hz.
func WithSampleRate(rate int) Option {
	return func(r *Recognizer) { r.rate = rate }
}

// WithRetries sets the per-utterance network attempt budget. Default 3.
func WithRetries(n int) Option {
	return func(r *Recognizer) { r.retries = n }
}

// WithTimeout sets the per-attempt request timeout. Default 30s.
func WithTimeout(d time.Duration) Option {
	return func(r *Recognizer) { r.timeout = d }
}

// WithHTTPClient overrides the HTTP client, e.g. for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Recognizer) { r.client = c }
}

// New constructs a Recognizer for the given API key and BCP-47 language tag.
func New(apiKey, language string, opts ...Option) (*Recognizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google: apiKey must not be empty")
	}
	if language == "" {
		return nil, fmt.Errorf("google: language must not be empty")
	}
	r := &Recognizer{
		client:   &http.Client{},
		endpoint: defaultEndpoint,
		apiKey:   apiKey,
		language: language,
		rate:     8000,
		retries:  3,
		timeout:  30 * time.Second,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// SampleRate implements [stt.Recognizer].
func (r *Recognizer) SampleRate() int { return r.rate }

// Recognize implements [stt.Recognizer]. Each attempt failure is swallowed
// and the next attempt tried; an exhausted budget resolves to absent.
func (r *Recognizer) Recognize(ctx context.Context, wav []byte) (string, error) {
	pcm := wav
	if len(pcm) > wavHeaderSize && bytes.HasPrefix(pcm, []byte("RIFF")) {
		pcm = pcm[wavHeaderSize:]
	}
	if len(pcm) == 0 {
		return "", nil
	}

	for attempt := 0; attempt < r.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := r.attempt(ctx, pcm)
		if err != nil {
			slog.Debug("recognition attempt failed",
				"attempt", attempt+1, "retries", r.retries, "err", err)
			continue
		}
		if text != "" {
			return capitalize(text), nil
		}
	}
	return "", nil
}

func (r *Recognizer) attempt(ctx context.Context, pcm []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	u := fmt.Sprintf("%s?client=chromium&lang=%s&key=%s",
		r.endpoint, url.QueryEscape(r.language), url.QueryEscape(r.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(pcm))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", fmt.Sprintf("audio/l16; rate=%d", r.rate))

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return parseResponse(body), nil
}

// response mirrors the newline-delimited JSON documents the endpoint emits.
type response struct {
	Result []struct {
		Alternative []struct {
			Transcript string `json:"transcript"`
		} `json:"alternative"`
	} `json:"result"`
}

// parseResponse scans the newline-delimited body for the first document that
// carries a transcript. Empty documents (the endpoint always sends one) are
// skipped.
func parseResponse(body []byte) string {
	for _, line := range strings.Split(string(body), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var doc response
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			continue
		}
		if len(doc.Result) > 0 && len(doc.Result[0].Alternative) > 0 {
			return doc.Result[0].Alternative[0].Transcript
		}
	}
	return ""
}

// capitalize upper-cases the first letter of s, matching the presentation
// the original service consumers expect.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
