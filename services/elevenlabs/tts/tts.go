package tts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"personakit/core"
	"personakit/utils/httpx"

	"github.com/bytedance/sonic"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Config holds configuration for the ElevenLabs TTS service. ElevenLabs
// is the higher-quality, credit-metered tier, so it serves as the
// fallback behind the free primary provider and caches synthesized
// audio by text to avoid burning credits on repeats.
type Config struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	VoiceID string `json:"voice_id"`
	ModelID string `json:"model_id"`

	// Voice settings
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`

	// CacheSize is the number of synthesized clips kept in the LRU cache.
	CacheSize int `json:"cache_size"`
	// TimeoutSeconds bounds each synthesis call.
	TimeoutSeconds int `json:"timeout_seconds"`
	// ProxyAddr routes outbound calls through a SOCKS5 proxy when set.
	ProxyAddr string `json:"proxy_addr,omitempty"`
}

// ElevenLabsTTS implements core.Synthesizer using the ElevenLabs HTTP
// text-to-speech API.
type ElevenLabsTTS struct {
	config     Config
	logger     *core.Logger
	httpClient *http.Client
	cache      *lru.Cache[string, []byte]
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// NewElevenLabsTTS creates a new ElevenLabs TTS service with the provided config.
func NewElevenLabsTTS(config Config, logger *core.Logger) *ElevenLabsTTS {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.elevenlabs.io/v1/text-to-speech"
	}
	if config.VoiceID == "" {
		config.VoiceID = "xnx6sPTtvU635ocDt2j7"
	}
	if config.ModelID == "" {
		config.ModelID = "eleven_multilingual_v2"
	}
	if config.Stability == 0 {
		config.Stability = 0.75
	}
	if config.SimilarityBoost == 0 {
		config.SimilarityBoost = 0.75
	}
	if config.CacheSize == 0 {
		config.CacheSize = 128
	}
	if config.TimeoutSeconds == 0 {
		config.TimeoutSeconds = 15
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	httpClient, err := httpx.NewClient(time.Duration(config.TimeoutSeconds)*time.Second, config.ProxyAddr)
	if err != nil {
		logger.With(map[string]any{"error": err, "proxy": config.ProxyAddr}).Warn("invalid proxy address, using direct connection")
		httpClient = &http.Client{Timeout: time.Duration(config.TimeoutSeconds) * time.Second}
	}

	cache, _ := lru.New[string, []byte](config.CacheSize)

	return &ElevenLabsTTS{
		config:     config,
		logger:     logger.With(map[string]any{"service": "elevenlabs-tts"}),
		httpClient: httpClient,
		cache:      cache,
	}
}

// Name identifies the provider in attempt diagnostics.
func (e *ElevenLabsTTS) Name() string {
	return "elevenlabs"
}

// Synthesize returns MP3 audio for text, serving repeats from the LRU
// cache without a network call.
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text string) (core.AudioPayload, *core.ProviderError) {
	if e.config.APIKey == "" {
		return core.AudioPayload{}, core.NewProviderError(core.ErrKindAuth, "elevenlabs api key is not configured")
	}

	if data, ok := e.cache.Get(text); ok {
		return core.AudioPayload{
			Data:     data,
			MIMEType: "audio/mpeg",
			Provider: e.Name(),
		}, nil
	}

	payload, err := sonic.Marshal(synthesisRequest{
		Text:    text,
		ModelID: e.config.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       e.config.Stability,
			SimilarityBoost: e.config.SimilarityBoost,
		},
	})
	if err != nil {
		return core.AudioPayload{}, core.NewProviderError(core.ErrKindUpstream, "marshal request: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(e.config.TimeoutSeconds)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.BaseURL+"/"+e.config.VoiceID, bytes.NewReader(payload))
	if err != nil {
		return core.AudioPayload{}, core.NewProviderError(core.ErrKindUpstream, "build request: %v", err)
	}
	req.Header.Set("xi-api-key", e.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return core.AudioPayload{}, core.NewProviderError(core.ErrKindTimeout, "synthesis exceeded %ds deadline", e.config.TimeoutSeconds)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return core.AudioPayload{}, core.NewProviderError(core.ErrKindTimeout, "synthesis exceeded %ds deadline", e.config.TimeoutSeconds)
		}
		return core.AudioPayload{}, core.NewProviderError(core.ErrKindUpstream, "synthesis call failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return core.AudioPayload{}, core.NewProviderError(core.ErrKindAuth, "credentials rejected (status %d)", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return core.AudioPayload{}, core.NewProviderError(core.ErrKindUpstream, "unexpected status %d: %s", resp.StatusCode, body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.AudioPayload{}, core.NewProviderError(core.ErrKindUpstream, "read audio body: %v", err)
	}
	if len(data) == 0 {
		return core.AudioPayload{}, core.NewProviderError(core.ErrKindUpstream, "empty audio body")
	}

	e.cache.Add(text, data)

	return core.AudioPayload{
		Data:     data,
		MIMEType: "audio/mpeg",
		Provider: e.Name(),
	}, nil
}

var _ core.Synthesizer = (*ElevenLabsTTS)(nil)
