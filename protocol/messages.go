package protocol

import "encoding/json"

// Turn statuses reported to clients.
const (
	StatusSuccess    = "success"     // reply text and audio
	StatusNoAudio    = "no_audio"    // reply text, synthesis produced nothing
	StatusAudioError = "audio_error" // reply text, synthesis failed
	StatusAPIError   = "api_error"   // generation failed, turn aborted
	StatusError      = "error"       // transcription or validation failed
)

// MessageType enumerates the WebSocket envelope types.
type MessageType string

const (
	// Client -> server
	MsgTextTurn  MessageType = "text_turn"
	MsgVoiceTurn MessageType = "voice_turn"

	// Server -> client
	MsgReply MessageType = "reply"
	MsgError MessageType = "error"
)

// Envelope is the outer JSON wrapper for all WebSocket messages.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- HTTP payloads ---

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is returned by /chat, /voice_chat and the landing route.
// Audio is base64-encoded MP3; empty when synthesis was unavailable.
type ChatResponse struct {
	Response   string   `json:"response"`
	Audio      string   `json:"audio,omitempty"`
	Transcript string   `json:"transcript,omitempty"`
	Status     string   `json:"status"`
	SessionID  string   `json:"session_id,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// TranscribeResponse is the body of POST /transcribe_audio responses.
type TranscribeResponse struct {
	Transcript string `json:"transcript"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// --- WebSocket payloads ---

// TextTurnPayload carries a typed user message.
type TextTurnPayload struct {
	Text string `json:"text"`
}

// VoiceTurnPayload carries base64-encoded recorded audio.
type VoiceTurnPayload struct {
	Audio    string `json:"audio"`
	MIMEType string `json:"mime_type,omitempty"`
}

// ReplyPayload mirrors ChatResponse for the streaming transport.
type ReplyPayload struct {
	Transcript string   `json:"transcript,omitempty"`
	Text       string   `json:"text"`
	Audio      string   `json:"audio,omitempty"`
	Status     string   `json:"status"`
	Errors     []string `json:"errors,omitempty"`
}

// ErrorPayload reports a malformed or unprocessable client message.
type ErrorPayload struct {
	Message string `json:"message"`
}
