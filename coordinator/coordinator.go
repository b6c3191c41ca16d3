// Package coordinator sequences one inbound message through
// transcription, language-model generation and speech synthesis.
// Transcription and generation are hard dependencies: their failure
// aborts the turn. Synthesis is soft: its failure degrades the reply to
// text-only, because the textual reply remains independently useful.
package coordinator

import (
	"context"
	"time"

	"personakit/core"
	"personakit/history"
	"personakit/persona"
	"personakit/synthesis"
	"personakit/utils/text"
)

// Reply is the outcome of one turn. Errors preserves the order in which
// failures occurred; an empty slice means a fully successful turn.
type Reply struct {
	Transcript string
	Text       string
	Audio      *core.AudioPayload
	Errors     []core.ErrorKind
	// Aborted marks a hard-dependency failure (transcription or
	// generation): the turn produced no assistant reply. Soft synthesis
	// failures leave Aborted false and degrade to text-only.
	Aborted bool
}

// Ok reports whether the turn produced a reply with no errors at all.
func (r *Reply) Ok() bool {
	return len(r.Errors) == 0
}

// Config tunes coordinator behavior.
type Config struct {
	// MaxUserChars truncates incoming messages to bound token usage.
	MaxUserChars int `json:"max_user_chars"`
	// AudioBudgetSeconds bounds the synthesis step of a turn.
	AudioBudgetSeconds int `json:"audio_budget_seconds"`
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		MaxUserChars:       500,
		AudioBudgetSeconds: 10,
	}
}

// Coordinator is the façade over the persona store, the per-session
// history, and the three external-call components.
type Coordinator struct {
	config  Config
	profile *persona.Profile
	system  string
	llm     core.LLMService
	stt     core.STTService // nil disables voice turns
	synth   *synthesis.Orchestrator
	logger  *core.Logger
}

// New builds a coordinator. stt may be nil when transcription is not
// configured; voice turns then fail without touching history.
func New(config Config, profile *persona.Profile, llm core.LLMService, stt core.STTService, synth *synthesis.Orchestrator, logger *core.Logger) *Coordinator {
	if config.MaxUserChars == 0 {
		config.MaxUserChars = DefaultConfig().MaxUserChars
	}
	if config.AudioBudgetSeconds == 0 {
		config.AudioBudgetSeconds = DefaultConfig().AudioBudgetSeconds
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Coordinator{
		config:  config,
		profile: profile,
		system:  profile.SystemPrompt(),
		llm:     llm,
		stt:     stt,
		synth:   synth,
		logger:  logger.With(map[string]any{"component": "coordinator"}),
	}
}

// HandleTextTurn runs one text turn against a session. The session's
// turn lock is held for the whole sequence so concurrent turns for the
// same session cannot interleave history appends.
func (c *Coordinator) HandleTextTurn(ctx context.Context, sess *history.Session, userText string) *Reply {
	sess.Lock()
	defer sess.Unlock()
	return c.runTurn(ctx, sess, userText)
}

// HandleVoiceTurn transcribes the audio and then runs the text path.
// A transcription failure short-circuits: the language model and the
// synthesizers are never invoked and history is left untouched so the
// user can simply re-record.
func (c *Coordinator) HandleVoiceTurn(ctx context.Context, sess *history.Session, audioBytes []byte, mimeType string) *Reply {
	transcript, perr := c.Transcribe(ctx, audioBytes, mimeType)
	if perr != nil {
		return &Reply{Errors: []core.ErrorKind{perr.Kind}, Aborted: true}
	}

	reply := c.HandleTextTurn(ctx, sess, transcript)
	reply.Transcript = transcript
	return reply
}

// Transcribe exposes the bare speech-to-text step for clients that
// handle the chat round-trip themselves.
func (c *Coordinator) Transcribe(ctx context.Context, audioBytes []byte, mimeType string) (string, *core.ProviderError) {
	if c.stt == nil {
		return "", core.NewProviderError(core.ErrKindUpstream, "speech-to-text is not configured")
	}
	transcript, perr := c.stt.Transcribe(ctx, audioBytes, mimeType)
	if perr != nil {
		c.logger.With(map[string]any{"error": perr.Error()}).Warn("transcription failed")
		return "", perr
	}
	return transcript, nil
}

// Introduction returns the persona greeting with best-effort audio. A
// synthesis failure degrades to text-only exactly like a chat turn.
func (c *Coordinator) Introduction(ctx context.Context) *Reply {
	intro := c.profile.Introduction()
	reply := &Reply{Text: intro}
	c.attachAudio(ctx, reply)
	return reply
}

// Synthesize runs reply text through the fallback orchestrator without
// touching any session state.
func (c *Coordinator) Synthesize(ctx context.Context, replyText string) (core.AudioPayload, *core.ProviderError) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.config.AudioBudgetSeconds)*time.Second)
	defer cancel()

	res, perr := c.synth.Synthesize(ctx, text.NormalizeForSpeech(replyText))
	if perr != nil {
		return core.AudioPayload{}, perr
	}
	return res.Audio, nil
}

// runTurn is the shared turn body; the caller holds the session lock.
func (c *Coordinator) runTurn(ctx context.Context, sess *history.Session, userText string) *Reply {
	userText = text.Truncate(userText, c.config.MaxUserChars)

	// Snapshot before appending: the prompt carries the prior history
	// plus the new utterance, and the user turn is recorded even when
	// generation fails so context is not lost for the next attempt.
	prior := sess.History.Snapshot()
	sess.History.Append(core.RoleUser, userText)

	replyText, perr := c.llm.Generate(ctx, c.system, prior, userText)
	if perr != nil {
		c.logger.With(map[string]any{"session": sess.ID(), "error": perr.Error()}).Error("generation failed")
		return &Reply{
			Text:    UserMessage(perr.Kind),
			Errors:  []core.ErrorKind{perr.Kind},
			Aborted: true,
		}
	}

	sess.History.Append(core.RoleAssistant, replyText)

	reply := &Reply{Text: replyText}
	c.attachAudio(ctx, reply)
	return reply
}

// attachAudio runs synthesis and annotates failure without failing the turn.
func (c *Coordinator) attachAudio(ctx context.Context, reply *Reply) {
	audio, perr := c.Synthesize(ctx, reply.Text)
	if perr != nil {
		reply.Errors = append(reply.Errors, perr.Kind)
		return
	}
	reply.Audio = &audio
}

// UserMessage maps an error kind to the message shown to the user.
func UserMessage(kind core.ErrorKind) string {
	switch kind {
	case core.ErrKindInvalidAudio:
		return "I couldn't make out that recording. Please try recording again."
	case core.ErrKindAuth:
		return "I'm sorry, the assistant is misconfigured and can't reach its AI service right now."
	case core.ErrKindTimeout:
		return "I'm sorry, that took too long to process. Please try again."
	case core.ErrKindAllProvidersFailed:
		return "I couldn't generate audio for that reply, but the text is above."
	default:
		return "I'm sorry, I encountered an error processing your request. This might be due to API quota limitations. Please try again with a shorter message."
	}
}
