package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"personakit/coordinator"
	"personakit/core"
	"personakit/history"
	"personakit/persona"
	"personakit/protocol"
	"personakit/synthesis"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	fn func(ctx context.Context, system string, turns []core.Turn, userText string) (string, *core.ProviderError)
}

func (s *stubLLM) Generate(ctx context.Context, system string, turns []core.Turn, userText string) (string, *core.ProviderError) {
	return s.fn(ctx, system, turns, userText)
}

type stubSTT struct {
	fn func(ctx context.Context, audio []byte, mimeType string) (string, *core.ProviderError)
}

func (s *stubSTT) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, *core.ProviderError) {
	return s.fn(ctx, audio, mimeType)
}

type stubSynth struct {
	name string
	fn   func(ctx context.Context, text string) (core.AudioPayload, *core.ProviderError)
}

func (s *stubSynth) Name() string {
	return s.name
}

func (s *stubSynth) Synthesize(ctx context.Context, text string) (core.AudioPayload, *core.ProviderError) {
	return s.fn(ctx, text)
}

func silentLogger() *core.Logger {
	return core.NewLogger(func(level, msg string, attrs map[string]interface{}) {})
}

func newTestServer(t *testing.T, llm core.LLMService, stt core.STTService, synth core.Synthesizer) (*httptest.Server, *history.Store) {
	t.Helper()
	orch := synthesis.NewOrchestrator(synth, nil, silentLogger())
	coord := coordinator.New(coordinator.DefaultConfig(), persona.Fallback(), llm, stt, orch, silentLogger())
	sessions := history.NewStore(20)

	mux := http.NewServeMux()
	NewServer(coord, sessions, silentLogger()).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, sessions
}

func echoLLM() *stubLLM {
	return &stubLLM{fn: func(ctx context.Context, system string, turns []core.Turn, userText string) (string, *core.ProviderError) {
		return "reply to: " + userText, nil
	}}
}

func okSynth() *stubSynth {
	return &stubSynth{name: "fast", fn: func(ctx context.Context, text string) (core.AudioPayload, *core.ProviderError) {
		return core.AudioPayload{Data: []byte("mp3"), MIMEType: "audio/mpeg", Provider: "fast"}, nil
	}}
}

func downSynth() *stubSynth {
	return &stubSynth{name: "fast", fn: func(ctx context.Context, text string) (core.AudioPayload, *core.ProviderError) {
		return core.AudioPayload{}, core.NewProviderError(core.ErrKindUpstream, "down")
	}}
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := sonic.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeChat(t *testing.T, resp *http.Response) protocol.ChatResponse {
	t.Helper()
	defer resp.Body.Close()
	var out protocol.ChatResponse
	require.NoError(t, sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestChat_Success(t *testing.T) {
	srv, _ := newTestServer(t, echoLLM(), nil, okSynth())

	resp := postJSON(t, srv.URL+"/chat", protocol.ChatRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeChat(t, resp)
	assert.Equal(t, "reply to: hello", out.Response)
	assert.Equal(t, protocol.StatusSuccess, out.Status)
	assert.NotEmpty(t, out.SessionID)

	audio, err := base64.StdEncoding.DecodeString(out.Audio)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), audio)
}

func TestChat_SessionIDIsSticky(t *testing.T) {
	srv, sessions := newTestServer(t, echoLLM(), nil, okSynth())

	first := decodeChat(t, postJSON(t, srv.URL+"/chat", protocol.ChatRequest{Message: "one"}))
	second := decodeChat(t, postJSON(t, srv.URL+"/chat", protocol.ChatRequest{Message: "two", SessionID: first.SessionID}))

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 1, sessions.Len())

	sess, ok := sessions.Get(first.SessionID)
	require.True(t, ok)
	assert.Equal(t, 4, sess.History.Len())
}

func TestChat_SessionIDFromHeader(t *testing.T) {
	srv, sessions := newTestServer(t, echoLLM(), nil, okSynth())

	body, _ := sonic.Marshal(protocol.ChatRequest{Message: "hi"})
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/chat", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Session-ID", "header-session")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	out := decodeChat(t, resp)
	assert.Equal(t, "header-session", out.SessionID)
	_, ok := sessions.Get("header-session")
	assert.True(t, ok)
}

func TestChat_EmptyMessageRejected(t *testing.T) {
	srv, _ := newTestServer(t, echoLLM(), nil, okSynth())

	resp := postJSON(t, srv.URL+"/chat", protocol.ChatRequest{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChat_SynthesisFailureReportsAudioError(t *testing.T) {
	srv, _ := newTestServer(t, echoLLM(), nil, downSynth())

	out := decodeChat(t, postJSON(t, srv.URL+"/chat", protocol.ChatRequest{Message: "hello"}))

	assert.Equal(t, protocol.StatusAudioError, out.Status)
	assert.Equal(t, "reply to: hello", out.Response)
	assert.Empty(t, out.Audio)
	assert.Contains(t, out.Errors, string(core.ErrKindAllProvidersFailed))
}

func TestChat_GenerationFailureReportsAPIError(t *testing.T) {
	llm := &stubLLM{fn: func(ctx context.Context, system string, turns []core.Turn, userText string) (string, *core.ProviderError) {
		return "", core.NewProviderError(core.ErrKindUpstream, "quota exceeded")
	}}
	srv, _ := newTestServer(t, llm, nil, okSynth())

	out := decodeChat(t, postJSON(t, srv.URL+"/chat", protocol.ChatRequest{Message: "hello"}))

	assert.Equal(t, protocol.StatusAPIError, out.Status)
	assert.NotEmpty(t, out.Response)
	assert.Empty(t, out.Audio)
}

func TestIndex_ServesIntroduction(t *testing.T) {
	srv, _ := newTestServer(t, echoLLM(), nil, okSynth())

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	out := decodeChat(t, resp)

	assert.Equal(t, protocol.StatusSuccess, out.Status)
	assert.NotEmpty(t, out.Response)
	assert.NotEmpty(t, out.Audio)
}

func multipartAudio(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestVoiceChat_Success(t *testing.T) {
	stt := &stubSTT{fn: func(ctx context.Context, audio []byte, mimeType string) (string, *core.ProviderError) {
		return "spoken question", nil
	}}
	srv, _ := newTestServer(t, echoLLM(), stt, okSynth())

	body, contentType := multipartAudio(t, "audio", "clip.wav", []byte("RIFFxxxxWAVEdata"))
	resp, err := http.Post(srv.URL+"/voice_chat", contentType, body)
	require.NoError(t, err)

	out := decodeChat(t, resp)
	assert.Equal(t, protocol.StatusSuccess, out.Status)
	assert.Equal(t, "spoken question", out.Transcript)
	assert.Equal(t, "reply to: spoken question", out.Response)
}

func TestVoiceChat_TranscriptionFailure(t *testing.T) {
	stt := &stubSTT{fn: func(ctx context.Context, audio []byte, mimeType string) (string, *core.ProviderError) {
		return "", core.NewProviderError(core.ErrKindInvalidAudio, "undecodable")
	}}
	srv, _ := newTestServer(t, echoLLM(), stt, okSynth())

	body, contentType := multipartAudio(t, "audio", "clip.wav", []byte("junk"))
	resp, err := http.Post(srv.URL+"/voice_chat", contentType, body)
	require.NoError(t, err)

	out := decodeChat(t, resp)
	assert.Equal(t, protocol.StatusError, out.Status)
	assert.Contains(t, out.Errors, string(core.ErrKindInvalidAudio))
}

func TestTranscribe_Success(t *testing.T) {
	stt := &stubSTT{fn: func(ctx context.Context, audio []byte, mimeType string) (string, *core.ProviderError) {
		return "just the words", nil
	}}
	srv, _ := newTestServer(t, echoLLM(), stt, okSynth())

	resp, err := http.Post(srv.URL+"/transcribe_audio", "audio/wav", strings.NewReader("RIFFxxxxWAVEdata"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out protocol.TranscribeResponse
	require.NoError(t, sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "just the words", out.Transcript)
	assert.Equal(t, protocol.StatusSuccess, out.Status)
}

func TestTranscribe_InvalidAudioIsBadRequest(t *testing.T) {
	stt := &stubSTT{fn: func(ctx context.Context, audio []byte, mimeType string) (string, *core.ProviderError) {
		return "", core.NewProviderError(core.ErrKindInvalidAudio, "not audio")
	}}
	srv, _ := newTestServer(t, echoLLM(), stt, okSynth())

	resp, err := http.Post(srv.URL+"/transcribe_audio", "audio/wav", strings.NewReader("junk"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTranscribe_EmptyBody(t *testing.T) {
	srv, _ := newTestServer(t, echoLLM(), nil, okSynth())

	resp, err := http.Post(srv.URL+"/transcribe_audio", "audio/wav", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAudioRoute_StreamsBytes(t *testing.T) {
	srv, _ := newTestServer(t, echoLLM(), nil, okSynth())

	resp, err := http.Get(srv.URL + "/audio/say%20this")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
}

func TestAudioRoute_SynthesisFailure(t *testing.T) {
	srv, _ := newTestServer(t, echoLLM(), nil, downSynth())

	resp, err := http.Get(srv.URL + "/audio/say%20this")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
