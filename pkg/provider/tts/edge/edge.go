// Package edge implements tts.Engine against the Microsoft Edge read-aloud
// neural voices.
//
// The service speaks a framed protocol over a single WebSocket: the client
// sends a speech.config JSON document selecting the output format, then one
// SSML document per request; the service answers with text frames
// (turn.start, audio.metadata, turn.end) and binary frames whose payload —
// after a 2-byte big-endian header-length prefix and the header itself —
// carries the audio. Requesting raw-16khz-16bit-mono-pcm keeps the clip
// directly playable without a decoder.
package edge

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/communage/communage/pkg/provider/tts"
)

const (
	defaultBaseURL = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"

	// trustedClientToken is the public token the Edge browser itself uses.
	trustedClientToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"

	// outputFormat is raw PCM so no container/codec handling is needed.
	outputFormat     = "raw-16khz-16bit-mono-pcm"
	outputSampleRate = 16000
)

// Voice names the male and female neural voices for one language.
type Voice struct {
	Male   string `yaml:"male"`
	Female string `yaml:"female"`
}

// Engine implements [tts.Engine] using the Edge read-aloud service.
type Engine struct {
	baseURL string
	voices  map[string]Voice
	gender  string
	timeout time.Duration
}

var _ tts.Engine = (*Engine)(nil)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithBaseURL overrides the service URL. Primarily used in tests to point at
// a local mock server.
func WithBaseURL(url string) Option {
	return func(e *Engine) { e.baseURL = url }
}

// WithGender selects which mapped voice to use, "male" or "female".
// Default "male".
func WithGender(g string) Option {
	return func(e *Engine) { e.gender = g }
}

// WithTimeout bounds a full synthesis round-trip. Default 30s.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// New constructs an Engine with the given language → voice mapping
// (keys are ISO language codes, e.g. "en-US").
func New(voices map[string]Voice, opts ...Option) *Engine {
	e := &Engine{
		baseURL: defaultBaseURL,
		voices:  voices,
		gender:  "male",
		timeout: 30 * time.Second,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Synthesize implements [tts.Engine]. An unmapped language resolves to an
// absent result rather than an error.
func (e *Engine) Synthesize(ctx context.Context, text, language string) (*tts.Result, error) {
	voice := e.voiceFor(language)
	if voice == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	url := fmt.Sprintf("%s?TrustedClientToken=%s&ConnectionId=%s",
		e.baseURL, trustedClientToken, connectionID())
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("edge: dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// Raise the read limit: a long sentence of 16 kHz PCM easily exceeds the
	// 32 KiB default.
	conn.SetReadLimit(1 << 22)

	if err := conn.Write(ctx, websocket.MessageText, speechConfig()); err != nil {
		return nil, fmt.Errorf("edge: send speech.config: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, ssmlRequest(text, language, voice)); err != nil {
		return nil, fmt.Errorf("edge: send ssml: %w", err)
	}

	var pcm []byte
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("edge: read: %w", err)
		}
		switch typ {
		case websocket.MessageText:
			if strings.Contains(string(data), "Path:turn.end") {
				return &tts.Result{PCM: pcm, SampleRate: outputSampleRate}, nil
			}
		case websocket.MessageBinary:
			if payload, ok := audioPayload(data); ok {
				pcm = append(pcm, payload...)
			}
		}
	}
}

// voiceFor resolves the configured voice name for a language, or "".
func (e *Engine) voiceFor(language string) string {
	v, ok := e.voices[language]
	if !ok {
		return ""
	}
	if e.gender == "female" {
		return v.Female
	}
	return v.Male
}

// audioPayload splits a binary frame into header and payload and returns the
// payload when the header routes it to the audio path.
func audioPayload(frame []byte) ([]byte, bool) {
	if len(frame) < 2 {
		return nil, false
	}
	headerLen := int(binary.BigEndian.Uint16(frame[:2]))
	if len(frame) < 2+headerLen {
		return nil, false
	}
	header := string(frame[2 : 2+headerLen])
	if !strings.Contains(header, "Path:audio") {
		return nil, false
	}
	return frame[2+headerLen:], true
}

func speechConfig() []byte {
	return []byte("X-Timestamp:" + timestamp() + "\r\n" +
		"Content-Type:application/json; charset=utf-8\r\n" +
		"Path:speech.config\r\n\r\n" +
		`{"context":{"synthesis":{"audio":{"metadataoptions":{` +
		`"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},` +
		`"outputFormat":"` + outputFormat + `"}}}}`)
}

func ssmlRequest(text, language, voice string) []byte {
	ssml := fmt.Sprintf(
		"<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'>"+
			"<voice name='%s'>%s</voice></speak>",
		language, voice, escapeXML(text))
	return []byte("X-RequestId:" + connectionID() + "\r\n" +
		"Content-Type:application/ssml+xml\r\n" +
		"X-Timestamp:" + timestamp() + "\r\n" +
		"Path:ssml\r\n\r\n" + ssml)
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "'", "&apos;", `"`, "&quot;")
	return r.Replace(s)
}

// connectionID returns a fresh request identifier without dashes, the form
// the service expects.
func connectionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func timestamp() string {
	return time.Now().UTC().Format("Mon Jan 2 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
}
