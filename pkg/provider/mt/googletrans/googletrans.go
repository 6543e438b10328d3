// Package googletrans provides a translator backed by the public Google
// Translate web endpoint (the "gtx" client the translate.google.com page
// itself uses). The response is a nested JSON array whose first element
// lists translated segments; the segments' first fields concatenate into the
// full translation.
package googletrans

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/communage/communage/pkg/provider/mt"
)

const defaultEndpoint = "https://translate.googleapis.com/translate_a/single"

// Translator implements [mt.Translator] using the gtx web endpoint.
type Translator struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
}

var _ mt.Translator = (*Translator)(nil)

// Option is a functional option for the Translator.
type Option func(*Translator)

// WithEndpoint overrides the default translation endpoint URL.
func WithEndpoint(url string) Option {
	return func(t *Translator) { t.endpoint = url }
}

// WithTimeout sets the per-request timeout. Default 30s.
func WithTimeout(d time.Duration) Option {
	return func(t *Translator) { t.timeout = d }
}

// WithHTTPClient overrides the HTTP client, e.g. for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Translator) { t.client = c }
}

// New constructs a Translator.
func New(opts ...Option) *Translator {
	t := &Translator{
		client:   &http.Client{},
		endpoint: defaultEndpoint,
		timeout:  30 * time.Second,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Translate implements [mt.Translator].
func (t *Translator) Translate(ctx context.Context, text, src, dst string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", src)
	q.Set("tl", dst)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")
	req.Header.Set("Referer", "https://translate.google.com")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("googletrans: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return parseResponse(body)
}

// parseResponse extracts the translation from the gtx nested-array payload:
// doc[0] is a list of segments, each segment's element 0 is translated text.
func parseResponse(body []byte) (string, error) {
	var doc []json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("googletrans: decode response: %w", err)
	}
	if len(doc) == 0 {
		return "", fmt.Errorf("googletrans: empty response document")
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(doc[0], &segments); err != nil {
		return "", fmt.Errorf("googletrans: decode segments: %w", err)
	}

	var sb strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(seg[0], &part); err != nil {
			continue
		}
		sb.WriteString(part)
	}
	return sb.String(), nil
}
