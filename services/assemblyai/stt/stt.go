package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"personakit/core"
	"personakit/utils/audio"
	"personakit/utils/httpx"

	"github.com/bytedance/sonic"
)

// Config holds the configuration for the AssemblyAI STT service.
type Config struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`

	// MaxAudioBytes rejects oversized uploads before any network call.
	MaxAudioBytes int `json:"max_audio_bytes"`
	// TimeoutSeconds bounds the whole upload + transcribe + poll flow.
	TimeoutSeconds int `json:"timeout_seconds"`
	// PollIntervalMillis is the delay between transcript status polls.
	PollIntervalMillis int `json:"poll_interval_millis"`
	// ProxyAddr routes outbound calls through a SOCKS5 proxy when set.
	ProxyAddr string `json:"proxy_addr,omitempty"`
}

// AssemblyAISTTService implements core.STTService using AssemblyAI's
// v2 file transcription API: upload the audio, create a transcript job,
// poll until it completes.
type AssemblyAISTTService struct {
	config     Config
	logger     *core.Logger
	httpClient *http.Client
}

// NewAssemblyAISTTService creates a new AssemblyAI STT service with the provided config.
func NewAssemblyAISTTService(config Config, logger *core.Logger) *AssemblyAISTTService {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.assemblyai.com/v2"
	}
	if config.MaxAudioBytes == 0 {
		config.MaxAudioBytes = 10 << 20 // 10 MiB
	}
	if config.TimeoutSeconds == 0 {
		config.TimeoutSeconds = 60
	}
	if config.PollIntervalMillis == 0 {
		config.PollIntervalMillis = 500
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	httpClient, err := httpx.NewClient(time.Duration(config.TimeoutSeconds)*time.Second, config.ProxyAddr)
	if err != nil {
		logger.With(map[string]any{"error": err, "proxy": config.ProxyAddr}).Warn("invalid proxy address, using direct connection")
		httpClient = &http.Client{Timeout: time.Duration(config.TimeoutSeconds) * time.Second}
	}

	return &AssemblyAISTTService{
		config:     config,
		logger:     logger.With(map[string]any{"service": "assemblyai-stt"}),
		httpClient: httpClient,
	}
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL string `json:"audio_url"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"` // queued | processing | completed | error
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe validates the payload and runs it through the AssemblyAI
// transcription flow. Validation failures are invalid_audio and never
// reach the network.
func (s *AssemblyAISTTService) Transcribe(ctx context.Context, audioBytes []byte, mimeType string) (string, *core.ProviderError) {
	if s.config.APIKey == "" {
		return "", core.NewProviderError(core.ErrKindAuth, "assemblyai api key is not configured")
	}

	prepared, perr := s.prepare(audioBytes, mimeType)
	if perr != nil {
		return "", perr
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.config.TimeoutSeconds)*time.Second)
	defer cancel()

	uploadURL, perr := s.upload(ctx, prepared)
	if perr != nil {
		return "", perr
	}

	id, perr := s.createTranscript(ctx, uploadURL)
	if perr != nil {
		return "", perr
	}

	return s.poll(ctx, id)
}

// prepare validates the payload and converts raw µ-law telephony audio
// into a WAV container the upstream accepts.
func (s *AssemblyAISTTService) prepare(audioBytes []byte, mimeType string) ([]byte, *core.ProviderError) {
	if len(audioBytes) == 0 {
		return nil, core.NewProviderError(core.ErrKindInvalidAudio, "empty audio payload")
	}
	if len(audioBytes) > s.config.MaxAudioBytes {
		return nil, core.NewProviderError(core.ErrKindInvalidAudio, "audio payload of %d bytes exceeds %d byte limit", len(audioBytes), s.config.MaxAudioBytes)
	}

	if mimeType == audio.MIMEULaw {
		wavBytes, err := audio.ULawToWAV(audioBytes)
		if err != nil {
			return nil, core.NewProviderError(core.ErrKindInvalidAudio, "µ-law decode failed: %v", err)
		}
		return wavBytes, nil
	}

	detected := audio.DetectMIMEType(audioBytes)
	if detected == "" {
		return nil, core.NewProviderError(core.ErrKindInvalidAudio, "unrecognized audio format")
	}
	if detected == audio.MIMEWAV {
		if _, err := audio.ValidateWAV(audioBytes); err != nil {
			return nil, core.NewProviderError(core.ErrKindInvalidAudio, "malformed wav: %v", err)
		}
	}
	return audioBytes, nil
}

// upload POSTs the raw audio bytes and returns the hosted URL.
func (s *AssemblyAISTTService) upload(ctx context.Context, audioBytes []byte) (string, *core.ProviderError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/upload", bytes.NewReader(audioBytes))
	if err != nil {
		return "", core.NewProviderError(core.ErrKindUpstream, "build upload request: %v", err)
	}
	req.Header.Set("Authorization", s.config.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	body, perr := s.do(req, "upload")
	if perr != nil {
		return "", perr
	}

	var resp uploadResponse
	if err := sonic.Unmarshal(body, &resp); err != nil || resp.UploadURL == "" {
		return "", core.NewProviderError(core.ErrKindUpstream, "malformed upload response")
	}
	return resp.UploadURL, nil
}

// createTranscript submits a transcription job for the uploaded audio.
func (s *AssemblyAISTTService) createTranscript(ctx context.Context, audioURL string) (string, *core.ProviderError) {
	payload, err := sonic.Marshal(transcriptRequest{AudioURL: audioURL})
	if err != nil {
		return "", core.NewProviderError(core.ErrKindUpstream, "marshal transcript request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/transcript", bytes.NewReader(payload))
	if err != nil {
		return "", core.NewProviderError(core.ErrKindUpstream, "build transcript request: %v", err)
	}
	req.Header.Set("Authorization", s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	body, perr := s.do(req, "transcript")
	if perr != nil {
		return "", perr
	}

	var resp transcriptResponse
	if err := sonic.Unmarshal(body, &resp); err != nil || resp.ID == "" {
		return "", core.NewProviderError(core.ErrKindUpstream, "malformed transcript response")
	}
	return resp.ID, nil
}

// poll queries the transcript job until it completes, fails, or the
// deadline expires.
func (s *AssemblyAISTTService) poll(ctx context.Context, id string) (string, *core.ProviderError) {
	interval := time.Duration(s.config.PollIntervalMillis) * time.Millisecond

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.BaseURL+"/transcript/"+id, nil)
		if err != nil {
			return "", core.NewProviderError(core.ErrKindUpstream, "build poll request: %v", err)
		}
		req.Header.Set("Authorization", s.config.APIKey)

		body, perr := s.do(req, "poll")
		if perr != nil {
			return "", perr
		}

		var resp transcriptResponse
		if err := sonic.Unmarshal(body, &resp); err != nil {
			return "", core.NewProviderError(core.ErrKindUpstream, "malformed poll response")
		}

		switch resp.Status {
		case "completed":
			return resp.Text, nil
		case "error":
			return "", core.NewProviderError(core.ErrKindUpstream, "transcription failed: %s", resp.Error)
		}

		select {
		case <-ctx.Done():
			return "", core.NewProviderError(core.ErrKindTimeout, "transcription exceeded %ds deadline", s.config.TimeoutSeconds)
		case <-time.After(interval):
		}
	}
}

// do executes the request and maps failures onto the error taxonomy.
func (s *AssemblyAISTTService) do(req *http.Request, stage string) ([]byte, *core.ProviderError) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, core.NewProviderError(core.ErrKindTimeout, "%s exceeded %ds deadline", stage, s.config.TimeoutSeconds)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, core.NewProviderError(core.ErrKindTimeout, "%s exceeded %ds deadline", stage, s.config.TimeoutSeconds)
		}
		return nil, core.NewProviderError(core.ErrKindUpstream, "%s call failed: %v", stage, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewProviderError(core.ErrKindUpstream, "%s read response: %v", stage, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, core.NewProviderError(core.ErrKindAuth, "%s credentials rejected (status %d)", stage, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, core.NewProviderError(core.ErrKindUpstream, "%s unexpected status %d: %s", stage, resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("%s...", b[:n])
}

var _ core.STTService = (*AssemblyAISTTService)(nil)
