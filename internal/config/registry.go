package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/communage/communage/internal/resilience"
	"github.com/communage/communage/pkg/provider/mt"
	"github.com/communage/communage/pkg/provider/mt/googletrans"
	"github.com/communage/communage/pkg/provider/stt"
	"github.com/communage/communage/pkg/provider/stt/google"
	"github.com/communage/communage/pkg/provider/stt/openai"
	"github.com/communage/communage/pkg/provider/tts"
	"github.com/communage/communage/pkg/provider/tts/edge"
	"github.com/communage/communage/pkg/provider/vad"
	"github.com/communage/communage/pkg/provider/vad/energy"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory
// has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// TTSParams carries everything a synthesis factory needs beyond its entry.
type TTSParams struct {
	Entry  TTSEntry
	Voices map[string]VoiceConfig
}

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	stt map[string]func(ProviderEntry, string) (stt.Recognizer, error)
	mt  map[string]func(ProviderEntry) (mt.Translator, error)
	tts map[string]func(TTSParams) (tts.Engine, error)
	vad map[string]func(VADEntry) (vad.Engine, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		stt: make(map[string]func(ProviderEntry, string) (stt.Recognizer, error)),
		mt:  make(map[string]func(ProviderEntry) (mt.Translator, error)),
		tts: make(map[string]func(TTSParams) (tts.Engine, error)),
		vad: make(map[string]func(VADEntry) (vad.Engine, error)),
	}
}

// DefaultRegistry returns a [Registry] preloaded with the built-in provider
// implementations.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.RegisterSTT("google", func(entry ProviderEntry, language string) (stt.Recognizer, error) {
		var opts []google.Option
		if entry.BaseURL != "" {
			opts = append(opts, google.WithEndpoint(entry.BaseURL))
		}
		if entry.Retries > 0 {
			opts = append(opts, google.WithRetries(entry.Retries))
		}
		return google.New(entry.APIKey, language, opts...)
	})
	r.RegisterSTT("openai", func(entry ProviderEntry, language string) (stt.Recognizer, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, openai.WithModel(entry.Model))
		}
		if entry.Retries > 0 {
			opts = append(opts, openai.WithRetries(entry.Retries))
		}
		return openai.New(entry.APIKey, language, opts...)
	})

	r.RegisterMT("googletrans", func(entry ProviderEntry) (mt.Translator, error) {
		var opts []googletrans.Option
		if entry.BaseURL != "" {
			opts = append(opts, googletrans.WithEndpoint(entry.BaseURL))
		}
		return googletrans.New(opts...), nil
	})

	r.RegisterTTS("edge", func(p TTSParams) (tts.Engine, error) {
		voices := make(map[string]edge.Voice, len(p.Voices))
		for lang, v := range p.Voices {
			voices[lang] = edge.Voice{Male: v.Male, Female: v.Female}
		}
		var opts []edge.Option
		if p.Entry.Gender != "" {
			opts = append(opts, edge.WithGender(string(p.Entry.Gender)))
		}
		return edge.New(voices, opts...), nil
	})

	r.RegisterVAD("energy", func(VADEntry) (vad.Engine, error) {
		return energy.Engine{}, nil
	})

	return r
}

// RegisterSTT registers a recognizer factory under name. The factory
// receives the provider entry and the utterance language. Subsequent calls
// with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry, string) (stt.Recognizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterMT registers a translator factory under name.
func (r *Registry) RegisterMT(name string, factory func(ProviderEntry) (mt.Translator, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mt[name] = factory
}

// RegisterTTS registers a synthesis engine factory under name.
func (r *Registry) RegisterTTS(name string, factory func(TTSParams) (tts.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterVAD registers a detector engine factory under name.
func (r *Registry) RegisterVAD(name string, factory func(VADEntry) (vad.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vad[name] = factory
}

// CreateSTT instantiates a recognizer for utterances in language using the
// factory registered under entry.Name. Returns [ErrProviderNotRegistered]
// if no factory has been registered for that name.
func (r *Registry) CreateSTT(entry ProviderEntry, language string) (stt.Recognizer, error) {
	r.mu.RLock()
	factory, ok := r.stt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry, language)
}

// CreateSTTChain instantiates the primary recognizer and, when entry lists
// fallbacks, composes them behind it with per-backend circuit breakers.
// Every fallback must accept audio at the primary's sample rate, because the
// utterance is WAV-encoded once before the chain is consulted.
func (r *Registry) CreateSTTChain(entry STTEntry, language string) (stt.Recognizer, error) {
	primary, err := r.CreateSTT(entry.ProviderEntry, language)
	if err != nil {
		return nil, err
	}
	if len(entry.Fallbacks) == 0 {
		return primary, nil
	}

	chain := resilience.NewRecognizerFallback(primary, entry.Name, resilience.BreakerConfig{})
	for i, fb := range entry.Fallbacks {
		rec, err := r.CreateSTT(fb, language)
		if err != nil {
			return nil, fmt.Errorf("config: stt fallback %d (%s): %w", i, fb.Name, err)
		}
		if err := chain.AddFallback(fb.Name, rec); err != nil {
			return nil, fmt.Errorf("config: stt fallback %d (%s): %w", i, fb.Name, err)
		}
	}
	return chain, nil
}

// CreateMT instantiates a translator using the factory registered under
// entry.Name.
func (r *Registry) CreateMT(entry ProviderEntry) (mt.Translator, error) {
	r.mu.RLock()
	factory, ok := r.mt[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: mt/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTTS instantiates a synthesis engine using the factory registered
// under p.Entry.Name.
func (r *Registry) CreateTTS(p TTSParams) (tts.Engine, error) {
	r.mu.RLock()
	factory, ok := r.tts[p.Entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tts/%q", ErrProviderNotRegistered, p.Entry.Name)
	}
	return factory(p)
}

// CreateVAD instantiates a detector engine using the factory registered
// under entry.Name.
func (r *Registry) CreateVAD(entry VADEntry) (vad.Engine, error) {
	r.mu.RLock()
	factory, ok := r.vad[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vad/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
