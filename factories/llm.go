package factories

import (
	"errors"

	"personakit/core"
	geminillm "personakit/services/gemini/llm"
)

// LLMFactoryConfig holds provider-specific configs for LLM service
// construction. Set exactly one provider config; the rest should be
// left nil. All providers use the OpenAI-compatible protocol and are
// implemented via the same service with a custom base URL.
type LLMFactoryConfig struct {
	GeminiConfig *geminillm.Config `json:"gemini,omitempty"`
	OpenAIConfig *geminillm.Config `json:"openai,omitempty"`
	GroqConfig   *geminillm.Config `json:"groq,omitempty"`
}

// Default base URLs and models for OpenAI-compatible providers.
const (
	openaiBaseURL = "https://api.openai.com/v1"
	groqBaseURL   = "https://api.groq.com/openai/v1"
)

// BuildLLMService constructs an LLM service from the given factory
// config. Exactly one provider config must be non-nil.
func BuildLLMService(config LLMFactoryConfig, logger *core.Logger) (core.LLMService, error) {
	if config.GeminiConfig != nil {
		return geminillm.NewGeminiLLMService(*config.GeminiConfig, logger), nil
	}
	if config.OpenAIConfig != nil {
		return buildOpenAICompatible(*config.OpenAIConfig, openaiBaseURL, "gpt-4o-mini", logger), nil
	}
	if config.GroqConfig != nil {
		return buildOpenAICompatible(*config.GroqConfig, groqBaseURL, "llama-3.3-70b-versatile", logger), nil
	}
	return nil, errors.New("LLMFactoryConfig: no provider config specified")
}

// buildOpenAICompatible creates an OpenAI-compatible LLM service,
// applying default base URL and model if not explicitly set in the config.
func buildOpenAICompatible(cfg geminillm.Config, defaultBaseURL, defaultModel string, logger *core.Logger) *geminillm.GeminiLLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return geminillm.NewGeminiLLMService(cfg, logger)
}
