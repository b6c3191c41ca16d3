package core

import "context"

// Synthesizer converts reply text into playable audio. Implementations
// hold only read-only provider configuration; each Synthesize call is
// independent.
type Synthesizer interface {
	// Name identifies the provider in attempt diagnostics and logs.
	Name() string
	// Synthesize returns the audio payload for text or a typed failure.
	// A non-2xx response, a deadline hit or an empty audio body are all
	// failures; it never returns empty audio as success.
	Synthesize(ctx context.Context, text string) (AudioPayload, *ProviderError)
}

// SynthesisAttempt records the outcome of one provider attempt within a
// single orchestrator call. Transient, never persisted; used to decide
// whether to try the next provider and to carry diagnostics on failure.
type SynthesisAttempt struct {
	Provider string
	Err      *ProviderError
}
