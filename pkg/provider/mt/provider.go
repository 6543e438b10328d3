// Package mt defines the Translator interface for machine-translation
// backends, plus the SentenceTranslator retry wrapper the pipeline consumes.
//
// A Translator is a thin transport: one text in, one candidate translation
// out, explicit error for transport failure. The quirk of the legacy Google
// endpoint — a failed translation is signalled by the returned text ending in
// a newline sentinel rather than by an error value — is confined to
// [SentenceTranslator], which keeps retrying until a non-sentinel result
// arrives or its patience is exhausted.
//
// Implementations must be safe for concurrent use.
package mt

import "context"

// Translator is the abstraction over any machine-translation backend.
type Translator interface {
	// Translate converts text from src to dst (ISO language codes). An empty
	// result with a nil error means the service produced no translation.
	Translate(ctx context.Context, text, src, dst string) (string, error)
}
