// Package httpapi exposes the assistant over a JSON HTTP API. The
// browser front-end (presentation, microphone capture) lives elsewhere;
// this surface only accepts text or recorded audio and returns reply
// text plus base64 audio.
package httpapi

import (
	"encoding/base64"
	"io"
	"net/http"

	"personakit/coordinator"
	"personakit/core"
	"personakit/history"
	"personakit/protocol"

	"github.com/bytedance/sonic"
)

// maxUploadBytes caps inbound request bodies; the STT client enforces
// its own tighter payload limit.
const maxUploadBytes = 12 << 20

// Server wires the request coordinator to HTTP routes.
type Server struct {
	coord    *coordinator.Coordinator
	sessions *history.Store
	logger   *core.Logger
}

// NewServer creates the HTTP API server.
func NewServer(coord *coordinator.Coordinator, sessions *history.Store, logger *core.Logger) *Server {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Server{
		coord:    coord,
		sessions: sessions,
		logger:   logger.With(map[string]any{"component": "httpapi"}),
	}
}

// Register mounts all routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /voice_chat", s.handleVoiceChat)
	mux.HandleFunc("POST /transcribe_audio", s.handleTranscribe)
	mux.HandleFunc("GET /audio/{text}", s.handleAudio)
}

// handleIndex serves the persona introduction with best-effort audio.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	reply := s.coord.Introduction(r.Context())
	s.writeJSON(w, http.StatusOK, chatResponseFor(reply, ""))
}

// handleChat runs one text turn.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, protocol.ChatResponse{Status: protocol.StatusError})
		return
	}

	var req protocol.ChatRequest
	if err := sonic.Unmarshal(body, &req); err != nil || req.Message == "" {
		s.writeJSON(w, http.StatusBadRequest, protocol.ChatResponse{Status: protocol.StatusError})
		return
	}

	sess := s.sessions.GetOrCreate(sessionID(r, req.SessionID))
	reply := s.coord.HandleTextTurn(r.Context(), sess, req.Message)
	s.writeJSON(w, http.StatusOK, chatResponseFor(reply, sess.ID()))
}

// handleVoiceChat runs one full voice turn: transcription, generation,
// synthesis.
func (s *Server) handleVoiceChat(w http.ResponseWriter, r *http.Request) {
	audio, mimeType, ok := s.readAudio(w, r)
	if !ok {
		return
	}

	sess := s.sessions.GetOrCreate(sessionID(r, r.FormValue("session_id")))
	reply := s.coord.HandleVoiceTurn(r.Context(), sess, audio, mimeType)
	s.writeJSON(w, http.StatusOK, chatResponseFor(reply, sess.ID()))
}

// handleTranscribe exposes the bare transcription step for clients that
// drive the chat round-trip themselves.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	audio, mimeType, ok := s.readAudio(w, r)
	if !ok {
		return
	}

	transcript, perr := s.coord.Transcribe(r.Context(), audio, mimeType)
	if perr != nil {
		status := http.StatusInternalServerError
		if perr.Kind == core.ErrKindInvalidAudio {
			status = http.StatusBadRequest
		}
		s.writeJSON(w, status, protocol.TranscribeResponse{
			Status: protocol.StatusError,
			Error:  perr.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, protocol.TranscribeResponse{
		Transcript: transcript,
		Status:     protocol.StatusSuccess,
	})
}

// handleAudio synthesizes arbitrary text and streams the audio bytes.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	audio, perr := s.coord.Synthesize(r.Context(), r.PathValue("text"))
	if perr != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to generate audio"})
		return
	}
	w.Header().Set("Content-Type", audio.MIMEType)
	w.WriteHeader(http.StatusOK)
	w.Write(audio.Data)
}

// readAudio extracts recorded audio from a multipart "audio" field or a
// raw request body.
func (s *Server) readAudio(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	contentType := r.Header.Get("Content-Type")
	if file, header, err := r.FormFile("audio"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, protocol.TranscribeResponse{Status: protocol.StatusError, Error: "unreadable audio upload"})
			return nil, "", false
		}
		return data, header.Header.Get("Content-Type"), true
	}

	data, err := io.ReadAll(r.Body)
	if err != nil || len(data) == 0 {
		s.writeJSON(w, http.StatusBadRequest, protocol.TranscribeResponse{Status: protocol.StatusError, Error: "no audio provided"})
		return nil, "", false
	}
	return data, contentType, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	data, err := sonic.Marshal(payload)
	if err != nil {
		s.logger.With(map[string]any{"error": err}).Error("failed to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// sessionID resolves the session identifier from the request body field
// or the X-Session-ID header; empty means a fresh session.
func sessionID(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return r.Header.Get("X-Session-ID")
}

// chatResponseFor maps a coordinator reply onto the wire shape.
func chatResponseFor(reply *coordinator.Reply, sessID string) protocol.ChatResponse {
	resp := protocol.ChatResponse{
		Response:   reply.Text,
		Transcript: reply.Transcript,
		Status:     statusFor(reply),
		SessionID:  sessID,
	}
	if reply.Audio != nil {
		resp.Audio = base64.StdEncoding.EncodeToString(reply.Audio.Data)
	}
	for _, kind := range reply.Errors {
		resp.Errors = append(resp.Errors, string(kind))
	}
	return resp
}

func statusFor(reply *coordinator.Reply) string {
	switch {
	case reply.Aborted && reply.Text == "":
		return protocol.StatusError
	case reply.Aborted:
		return protocol.StatusAPIError
	case len(reply.Errors) > 0:
		return protocol.StatusAudioError
	case reply.Audio == nil:
		return protocol.StatusNoAudio
	default:
		return protocol.StatusSuccess
	}
}
