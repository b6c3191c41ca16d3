package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"personakit/core"
	"personakit/utils/httpx"
)

// Config holds the configuration for the StreamElements TTS service.
// The endpoint is unauthenticated and optimized for latency, which is
// why it serves as the primary synthesis tier.
type Config struct {
	BaseURL string `json:"base_url"`
	Voice   string `json:"voice"`

	// TimeoutSeconds bounds each synthesis call.
	TimeoutSeconds int `json:"timeout_seconds"`
	// ProxyAddr routes outbound calls through a SOCKS5 proxy when set.
	ProxyAddr string `json:"proxy_addr,omitempty"`
}

// StreamElementsTTS implements core.Synthesizer using the
// StreamElements speech endpoint.
type StreamElementsTTS struct {
	config     Config
	logger     *core.Logger
	httpClient *http.Client
}

// NewStreamElementsTTS creates a new StreamElements TTS service with the provided config.
func NewStreamElementsTTS(config Config, logger *core.Logger) *StreamElementsTTS {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.streamelements.com/kappa/v2/speech"
	}
	if config.Voice == "" {
		config.Voice = "Brian"
	}
	if config.TimeoutSeconds == 0 {
		config.TimeoutSeconds = 10
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	httpClient, err := httpx.NewClient(time.Duration(config.TimeoutSeconds)*time.Second, config.ProxyAddr)
	if err != nil {
		logger.With(map[string]any{"error": err, "proxy": config.ProxyAddr}).Warn("invalid proxy address, using direct connection")
		httpClient = &http.Client{Timeout: time.Duration(config.TimeoutSeconds) * time.Second}
	}

	return &StreamElementsTTS{
		config:     config,
		logger:     logger.With(map[string]any{"service": "streamelements-tts"}),
		httpClient: httpClient,
	}
}

// Name identifies the provider in attempt diagnostics.
func (t *StreamElementsTTS) Name() string {
	return "streamelements"
}

// Synthesize fetches MP3 audio for text with a bounded timeout.
func (t *StreamElementsTTS) Synthesize(ctx context.Context, text string) (core.AudioPayload, *core.ProviderError) {
	params := url.Values{}
	params.Set("voice", t.config.Voice)
	params.Set("text", text)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(t.config.TimeoutSeconds)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.config.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return core.AudioPayload{}, core.NewProviderError(core.ErrKindUpstream, "build request: %v", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return core.AudioPayload{}, core.NewProviderError(core.ErrKindTimeout, "synthesis exceeded %ds deadline", t.config.TimeoutSeconds)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return core.AudioPayload{}, core.NewProviderError(core.ErrKindTimeout, "synthesis exceeded %ds deadline", t.config.TimeoutSeconds)
		}
		return core.AudioPayload{}, core.NewProviderError(core.ErrKindUpstream, "synthesis call failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
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

	t.logger.Debug(fmt.Sprintf("synthesized %d bytes", len(data)))
	return core.AudioPayload{
		Data:     data,
		MIMEType: "audio/mpeg",
		Provider: t.Name(),
	}, nil
}

var _ core.Synthesizer = (*StreamElementsTTS)(nil)
