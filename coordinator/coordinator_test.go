package coordinator

import (
	"context"
	"strings"
	"testing"

	"personakit/core"
	"personakit/history"
	"personakit/persona"
	"personakit/synthesis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	calls int
	fn    func(ctx context.Context, system string, turns []core.Turn, userText string) (string, *core.ProviderError)
}

var _ core.LLMService = (*stubLLM)(nil)

func (s *stubLLM) Generate(ctx context.Context, system string, turns []core.Turn, userText string) (string, *core.ProviderError) {
	s.calls++
	return s.fn(ctx, system, turns, userText)
}

type stubSTT struct {
	calls int
	fn    func(ctx context.Context, audio []byte, mimeType string) (string, *core.ProviderError)
}

var _ core.STTService = (*stubSTT)(nil)

func (s *stubSTT) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, *core.ProviderError) {
	s.calls++
	return s.fn(ctx, audio, mimeType)
}

type stubSynth struct {
	name  string
	calls int
	fn    func(ctx context.Context, text string) (core.AudioPayload, *core.ProviderError)
}

var _ core.Synthesizer = (*stubSynth)(nil)

func (s *stubSynth) Name() string {
	return s.name
}

func (s *stubSynth) Synthesize(ctx context.Context, text string) (core.AudioPayload, *core.ProviderError) {
	s.calls++
	return s.fn(ctx, text)
}

func echoLLM() *stubLLM {
	return &stubLLM{fn: func(ctx context.Context, system string, turns []core.Turn, userText string) (string, *core.ProviderError) {
		return "reply to: " + userText, nil
	}}
}

func okSynth(name string) *stubSynth {
	return &stubSynth{name: name, fn: func(ctx context.Context, text string) (core.AudioPayload, *core.ProviderError) {
		return core.AudioPayload{Data: []byte("mp3"), MIMEType: "audio/mpeg", Provider: name}, nil
	}}
}

func downSynth(name string) *stubSynth {
	return &stubSynth{name: name, fn: func(ctx context.Context, text string) (core.AudioPayload, *core.ProviderError) {
		return core.AudioPayload{}, core.NewProviderError(core.ErrKindUpstream, "%s unavailable", name)
	}}
}

func silentLogger() *core.Logger {
	return core.NewLogger(func(level, msg string, attrs map[string]interface{}) {})
}

func newTestCoordinator(llm core.LLMService, stt core.STTService, primary, secondary core.Synthesizer) *Coordinator {
	orch := synthesis.NewOrchestrator(primary, secondary, silentLogger())
	return New(DefaultConfig(), persona.Fallback(), llm, stt, orch, silentLogger())
}

func TestHandleTextTurn_Success(t *testing.T) {
	llm := echoLLM()
	primary := okSynth("fast")
	c := newTestCoordinator(llm, nil, primary, nil)
	sess := history.NewStore(10).GetOrCreate("s1")

	reply := c.HandleTextTurn(context.Background(), sess, "what do you do?")

	assert.True(t, reply.Ok())
	assert.False(t, reply.Aborted)
	assert.Equal(t, "reply to: what do you do?", reply.Text)
	require.NotNil(t, reply.Audio)
	assert.Equal(t, "fast", reply.Audio.Provider)

	snap := sess.History.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, core.RoleUser, snap[0].Role)
	assert.Equal(t, core.RoleAssistant, snap[1].Role)
}

func TestHandleTextTurn_PromptCarriesPriorHistoryOnly(t *testing.T) {
	var sawTurns []core.Turn
	var sawUser string
	llm := &stubLLM{fn: func(ctx context.Context, system string, turns []core.Turn, userText string) (string, *core.ProviderError) {
		sawTurns = turns
		sawUser = userText
		return "ok", nil
	}}
	c := newTestCoordinator(llm, nil, okSynth("fast"), nil)
	sess := history.NewStore(10).GetOrCreate("s1")

	c.HandleTextTurn(context.Background(), sess, "first")
	c.HandleTextTurn(context.Background(), sess, "second")

	// Second call: the prompt history holds the first exchange only; the
	// new utterance travels as userText, not duplicated in the turns.
	assert.Equal(t, "second", sawUser)
	require.Len(t, sawTurns, 2)
	assert.Equal(t, "first", sawTurns[0].Text)
	assert.Equal(t, "ok", sawTurns[1].Text)
}

func TestHandleTextTurn_TruncatesLongInput(t *testing.T) {
	var sawUser string
	llm := &stubLLM{fn: func(ctx context.Context, system string, turns []core.Turn, userText string) (string, *core.ProviderError) {
		sawUser = userText
		return "ok", nil
	}}
	c := newTestCoordinator(llm, nil, okSynth("fast"), nil)
	sess := history.NewStore(10).GetOrCreate("s1")

	c.HandleTextTurn(context.Background(), sess, strings.Repeat("a", 2000))

	assert.Len(t, sawUser, 503)
	assert.True(t, strings.HasSuffix(sawUser, "..."))
}

func TestHandleTextTurn_GenerationFailureAbortsTurn(t *testing.T) {
	llm := &stubLLM{fn: func(ctx context.Context, system string, turns []core.Turn, userText string) (string, *core.ProviderError) {
		return "", core.NewProviderError(core.ErrKindTimeout, "deadline exceeded")
	}}
	primary := okSynth("fast")
	c := newTestCoordinator(llm, nil, primary, nil)
	sess := history.NewStore(10).GetOrCreate("s1")

	reply := c.HandleTextTurn(context.Background(), sess, "hello")

	assert.True(t, reply.Aborted)
	assert.Equal(t, []core.ErrorKind{core.ErrKindTimeout}, reply.Errors)
	assert.Equal(t, UserMessage(core.ErrKindTimeout), reply.Text)
	assert.Nil(t, reply.Audio)
	// Synthesis is never attempted for an aborted turn.
	assert.Equal(t, 0, primary.calls)
	// The user turn is recorded, the assistant turn is not.
	snap := sess.History.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, core.RoleUser, snap[0].Role)
}

func TestHandleTextTurn_SynthesisFailureDegradesToTextOnly(t *testing.T) {
	c := newTestCoordinator(echoLLM(), nil, downSynth("fast"), downSynth("quality"))
	sess := history.NewStore(10).GetOrCreate("s1")

	reply := c.HandleTextTurn(context.Background(), sess, "hello")

	assert.False(t, reply.Aborted)
	assert.Equal(t, "reply to: hello", reply.Text)
	assert.Nil(t, reply.Audio)
	assert.Equal(t, []core.ErrorKind{core.ErrKindAllProvidersFailed}, reply.Errors)
	// The assistant turn is recorded even though audio failed.
	assert.Equal(t, 2, sess.History.Len())
}

func TestHandleTextTurn_FallbackIsTransparent(t *testing.T) {
	// The same question answered via the fallback provider yields the
	// same text; only the audio provenance differs.
	ask := func(secondaryUp bool) *Reply {
		primary := downSynth("fast")
		var secondary core.Synthesizer
		if secondaryUp {
			secondary = okSynth("quality")
		} else {
			secondary = downSynth("quality")
		}
		c := newTestCoordinator(echoLLM(), nil, primary, secondary)
		sess := history.NewStore(10).GetOrCreate("s1")
		return c.HandleTextTurn(context.Background(), sess, "tell me about your projects")
	}

	withFallback := ask(true)
	withoutAudio := ask(false)

	assert.Equal(t, withFallback.Text, withoutAudio.Text)
	require.NotNil(t, withFallback.Audio)
	assert.Equal(t, "quality", withFallback.Audio.Provider)
	assert.Nil(t, withoutAudio.Audio)
}

func TestHandleVoiceTurn_Success(t *testing.T) {
	stt := &stubSTT{fn: func(ctx context.Context, audio []byte, mimeType string) (string, *core.ProviderError) {
		return "spoken words", nil
	}}
	c := newTestCoordinator(echoLLM(), stt, okSynth("fast"), nil)
	sess := history.NewStore(10).GetOrCreate("s1")

	reply := c.HandleVoiceTurn(context.Background(), sess, []byte("wav"), "audio/wav")

	assert.True(t, reply.Ok())
	assert.Equal(t, "spoken words", reply.Transcript)
	assert.Equal(t, "reply to: spoken words", reply.Text)
	assert.Equal(t, 1, stt.calls)
	assert.Equal(t, 2, sess.History.Len())
}

func TestHandleVoiceTurn_TranscriptionFailureShortCircuits(t *testing.T) {
	stt := &stubSTT{fn: func(ctx context.Context, audio []byte, mimeType string) (string, *core.ProviderError) {
		return "", core.NewProviderError(core.ErrKindInvalidAudio, "not decodable")
	}}
	llm := echoLLM()
	primary := okSynth("fast")
	c := newTestCoordinator(llm, stt, primary, nil)
	sess := history.NewStore(10).GetOrCreate("s1")

	reply := c.HandleVoiceTurn(context.Background(), sess, []byte("junk"), "audio/wav")

	assert.True(t, reply.Aborted)
	assert.Equal(t, []core.ErrorKind{core.ErrKindInvalidAudio}, reply.Errors)
	assert.Equal(t, 0, llm.calls)
	assert.Equal(t, 0, primary.calls)
	assert.Equal(t, 0, sess.History.Len())
}

func TestHandleVoiceTurn_STTNotConfigured(t *testing.T) {
	c := newTestCoordinator(echoLLM(), nil, okSynth("fast"), nil)
	sess := history.NewStore(10).GetOrCreate("s1")

	reply := c.HandleVoiceTurn(context.Background(), sess, []byte("wav"), "audio/wav")

	assert.True(t, reply.Aborted)
	assert.Equal(t, []core.ErrorKind{core.ErrKindUpstream}, reply.Errors)
	assert.Equal(t, 0, sess.History.Len())
}

func TestIntroduction(t *testing.T) {
	c := newTestCoordinator(echoLLM(), nil, okSynth("fast"), nil)

	reply := c.Introduction(context.Background())

	assert.NotEmpty(t, reply.Text)
	require.NotNil(t, reply.Audio)
	assert.True(t, reply.Ok())
}

func TestUserMessage_CoversAllKinds(t *testing.T) {
	kinds := []core.ErrorKind{
		core.ErrKindInvalidAudio,
		core.ErrKindAuth,
		core.ErrKindTimeout,
		core.ErrKindUpstream,
		core.ErrKindAllProvidersFailed,
	}
	seen := make(map[string]bool)
	for _, kind := range kinds {
		msg := UserMessage(kind)
		assert.NotEmpty(t, msg)
		seen[msg] = true
	}
	assert.Len(t, seen, len(kinds))
}
