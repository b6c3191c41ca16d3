package core

import "context"

// LLMService produces a persona-grounded reply for one user turn.
// Implementations issue exactly one network call per Generate: the
// coordinator never retries a language-model failure automatically.
type LLMService interface {
	// Generate builds a single prompt from the persona system prompt, the
	// ordered history snapshot and the new user utterance, and returns
	// the generated reply text or a typed failure. The call respects the
	// deadline on ctx in addition to the service's own configured timeout.
	Generate(ctx context.Context, system string, history []Turn, userText string) (string, *ProviderError)
}
