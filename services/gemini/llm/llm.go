package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"personakit/core"
	"personakit/utils/httpx"

	"github.com/sashabaranov/go-openai"
)

// Config holds the configuration for the Gemini LLM service. Gemini is
// reached through its OpenAI-compatible endpoint, so any other
// OpenAI-compatible provider works by overriding BaseURL and Model.
type Config struct {
	APIKey      string  `json:"api_key"`
	BaseURL     string  `json:"base_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`

	// TimeoutSeconds bounds each Generate call.
	TimeoutSeconds int `json:"timeout_seconds"`
	// ProxyAddr routes outbound calls through a SOCKS5 proxy when set.
	ProxyAddr string `json:"proxy_addr,omitempty"`
}

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// GeminiLLMService implements core.LLMService against an
// OpenAI-compatible chat completion endpoint.
type GeminiLLMService struct {
	config Config
	client *openai.Client
	logger *core.Logger
}

// NewGeminiLLMService creates a new Gemini LLM service with the provided config.
func NewGeminiLLMService(config Config, logger *core.Logger) *GeminiLLMService {
	if config.BaseURL == "" {
		config.BaseURL = geminiBaseURL
	}
	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 2048
	}
	if config.Temperature == 0 {
		config.Temperature = 0.9
	}
	if config.TopP == 0 {
		config.TopP = 1
	}
	if config.TimeoutSeconds == 0 {
		config.TimeoutSeconds = 30
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	httpClient, err := httpx.NewClient(time.Duration(config.TimeoutSeconds)*time.Second, config.ProxyAddr)
	if err != nil {
		logger.With(map[string]any{"error": err, "proxy": config.ProxyAddr}).Warn("invalid proxy address, using direct connection")
		httpClient = &http.Client{Timeout: time.Duration(config.TimeoutSeconds) * time.Second}
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = config.BaseURL
	clientConfig.HTTPClient = httpClient

	return &GeminiLLMService{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger.With(map[string]any{"service": "gemini-llm"}),
	}
}

// Generate issues one chat completion call combining the persona system
// prompt, the history snapshot and the new user utterance. It never
// retries; a failed call surfaces as a typed error for the coordinator
// to map to a user-visible message.
func (s *GeminiLLMService) Generate(ctx context.Context, system string, historyTurns []core.Turn, userText string) (string, *core.ProviderError) {
	if s.config.APIKey == "" {
		return "", core.NewProviderError(core.ErrKindAuth, "gemini api key is not configured")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(historyTurns)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, turn := range historyTurns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    roleFor(turn.Role),
			Content: turn.Text,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userText,
	})

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.config.TimeoutSeconds)*time.Second)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Messages:    messages,
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
		TopP:        s.config.TopP,
	})
	if err != nil {
		return "", s.classifyError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", core.NewProviderError(core.ErrKindUpstream, "empty completion from %s", s.config.Model)
	}

	return resp.Choices[0].Message.Content, nil
}

// classifyError maps transport and API errors onto the error taxonomy.
func (s *GeminiLLMService) classifyError(err error) *core.ProviderError {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.NewProviderError(core.ErrKindTimeout, "completion exceeded %ds deadline", s.config.TimeoutSeconds)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return core.NewProviderError(core.ErrKindTimeout, "completion exceeded %ds deadline", s.config.TimeoutSeconds)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden {
			return core.NewProviderError(core.ErrKindAuth, "credentials rejected: %v", apiErr.Message)
		}
		return core.NewProviderError(core.ErrKindUpstream, "api error (status %d): %v", apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusUnauthorized || reqErr.HTTPStatusCode == http.StatusForbidden {
			return core.NewProviderError(core.ErrKindAuth, "credentials rejected: %v", reqErr.Err)
		}
		return core.NewProviderError(core.ErrKindUpstream, "request failed (status %d): %v", reqErr.HTTPStatusCode, reqErr.Err)
	}

	return core.NewProviderError(core.ErrKindUpstream, "completion call failed: %v", err)
}

var _ core.LLMService = (*GeminiLLMService)(nil)

func roleFor(role core.Role) string {
	if role == core.RoleAssistant {
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}
