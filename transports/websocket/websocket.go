// Package websocket exposes the assistant over a streaming transport:
// one connection maps to one conversation session, messages are JSON
// envelopes with base64 audio. Suits browser clients that keep the
// microphone round-trip on a single connection.
package websocket

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"

	"personakit/coordinator"
	"personakit/core"
	"personakit/history"
	"personakit/protocol"

	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests and serves the envelope protocol.
type Handler struct {
	coord    *coordinator.Coordinator
	sessions *history.Store
	logger   *core.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a WebSocket transport handler.
func NewHandler(coord *coordinator.Coordinator, sessions *history.Store, logger *core.Logger) *Handler {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Handler{
		coord:    coord,
		sessions: sessions,
		logger:   logger.With(map[string]any{"component": "websocket"}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The browser front-end is served from elsewhere.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and runs the read loop until the
// client disconnects.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.With(map[string]any{"error": err}).Warn("websocket upgrade failed")
		return
	}

	sess := h.sessions.GetOrCreate(r.Header.Get("X-Session-ID"))
	client := &client{
		conn:   conn,
		sess:   sess,
		logger: h.logger.With(map[string]any{"session": sess.ID()}),
	}
	client.logger.Info("client connected")
	h.serve(client)
	client.logger.Info("client disconnected")
	conn.Close()
}

// client is one connected peer. The write mutex guards concurrent
// writes; gorilla/websocket allows at most one concurrent writer.
type client struct {
	conn    *websocket.Conn
	sess    *history.Session
	writeMu sync.Mutex
	logger  *core.Logger
}

func (h *Handler) serve(c *client) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			c.sendError("expected JSON text message")
			continue
		}

		envType, raw, err := protocol.Unmarshal(data)
		if err != nil {
			c.sendError("malformed envelope")
			continue
		}

		switch envType {
		case protocol.MsgTextTurn:
			payload, err := protocol.UnmarshalPayload[protocol.TextTurnPayload](raw)
			if err != nil || payload.Text == "" {
				c.sendError("malformed text_turn payload")
				continue
			}
			reply := h.coord.HandleTextTurn(context.Background(), c.sess, payload.Text)
			c.sendReply(reply)

		case protocol.MsgVoiceTurn:
			payload, err := protocol.UnmarshalPayload[protocol.VoiceTurnPayload](raw)
			if err != nil {
				c.sendError("malformed voice_turn payload")
				continue
			}
			audio, err := base64.StdEncoding.DecodeString(payload.Audio)
			if err != nil {
				c.sendError("audio is not valid base64")
				continue
			}
			reply := h.coord.HandleVoiceTurn(context.Background(), c.sess, audio, payload.MIMEType)
			c.sendReply(reply)

		default:
			c.sendError("unknown message type")
		}
	}
}

func (c *client) sendReply(reply *coordinator.Reply) {
	payload := protocol.ReplyPayload{
		Transcript: reply.Transcript,
		Text:       reply.Text,
		Status:     statusFor(reply),
	}
	if reply.Audio != nil {
		payload.Audio = base64.StdEncoding.EncodeToString(reply.Audio.Data)
	}
	for _, kind := range reply.Errors {
		payload.Errors = append(payload.Errors, string(kind))
	}
	c.send(protocol.MsgReply, payload)
}

func (c *client) sendError(message string) {
	c.send(protocol.MsgError, protocol.ErrorPayload{Message: message})
}

func (c *client) send(msgType protocol.MessageType, payload interface{}) {
	data, err := protocol.Marshal(msgType, payload)
	if err != nil {
		c.logger.With(map[string]any{"error": err}).Error("failed to marshal envelope")
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.With(map[string]any{"error": err}).Warn("write failed")
	}
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
