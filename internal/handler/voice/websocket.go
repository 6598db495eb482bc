package voice

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/chironlab/chiron/backend/internal/handler/completion"
	"github.com/chironlab/chiron/backend/internal/model/chat"
	"github.com/chironlab/chiron/backend/internal/model/guide"
	chatservice "github.com/chironlab/chiron/backend/internal/service/chat"
	speechsvc "github.com/chironlab/chiron/backend/internal/service/speech"
	"github.com/chironlab/chiron/backend/pkg/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Handler runs the live voice channel: text frames in, reply deltas and
// synthesized audio frames out. The same normalize/sentinel/stream pipeline
// as the completion endpoint, over one long-lived connection.
type Handler struct {
	gen     completion.Generator
	chatSvc *chatservice.Service
	synth   speechsvc.Synthesizer
	profile guide.Profile
}

// New creates the voice channel handler.
func New(gen completion.Generator, chatSvc *chatservice.Service, synth speechsvc.Synthesizer, profile guide.Profile) *Handler {
	return &Handler{gen: gen, chatSvc: chatSvc, synth: synth, profile: profile}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/voice/{sessionID}", h.handleChannel)
}

// Frame is one JSON message on the channel, in either direction. Audio goes
// out as separate binary frames.
type Frame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) handleChannel(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}
	if session.Mode != chat.ModeVoice {
		utils.RespondError(w, http.StatusBadRequest, "session is not in voice mode")
		return
	}
	if h.gen == nil {
		utils.RespondError(w, http.StatusInternalServerError, "model service not configured")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[voice] upgrade failed for session=%s: %v", sessionID, err)
		return
	}
	defer conn.Close()

	h.greet(r.Context(), conn, sessionID)

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[voice] read failed for session=%s: %v", sessionID, err)
			}
			return
		}
		if frame.Type != "message" {
			continue
		}

		h.handleTurn(r.Context(), conn, sessionID, frame.Content)
	}
}

// greet opens a fresh session with the scripted greeting, spoken. Sessions
// that already carry a transcript reconnect silently.
func (h *Handler) greet(ctx context.Context, conn *websocket.Conn, sessionID string) {
	if h.profile.Greeting == "" {
		return
	}
	transcript, err := h.chatSvc.LoadTranscript(ctx, sessionID)
	if err != nil || len(transcript) > 0 {
		return
	}

	h.writeFrame(conn, Frame{Type: "message", Content: h.profile.Greeting})

	if err := h.chatSvc.SaveMessage(ctx, sessionID, chat.Message{Role: chat.RoleAssistant, Text: h.profile.Greeting}); err != nil {
		log.Printf("[voice] failed to save greeting for session=%s: %v", sessionID, err)
	}

	if h.synth != nil {
		audio, err := h.synth.Synthesize(ctx, h.profile.Greeting)
		if err != nil {
			log.Printf("[voice] greeting synthesis failed for session=%s: %v", sessionID, err)
		} else if err := conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
			log.Printf("[voice] failed to write greeting audio for session=%s: %v", sessionID, err)
		}
	}
}

// handleTurn runs one exchange: persist the user message, stream the reply,
// speak it.
func (h *Handler) handleTurn(ctx context.Context, conn *websocket.Conn, sessionID, content string) {
	transcript, err := h.chatSvc.LoadTranscript(ctx, sessionID)
	if err != nil {
		h.writeError(conn, "session not found")
		return
	}

	incoming := make([]chat.Incoming, 0, len(transcript)+1)
	for _, msg := range transcript {
		incoming = append(incoming, chat.Incoming{Role: msg.Role, Content: msg.Text})
	}
	incoming = append(incoming, chat.Incoming{Role: chat.RoleUser, Content: content})

	history, _ := chat.PrepareForModel(incoming)
	if len(history) == 0 {
		h.writeError(conn, "no message content")
		return
	}

	// The sentinel trigger never reaches the stored transcript.
	if err := h.chatSvc.SaveMessage(ctx, sessionID, chat.Message{Role: chat.RoleUser, Text: content}); err != nil {
		log.Printf("[voice] failed to save user message for session=%s: %v", sessionID, err)
	}

	genCtx, cancel := context.WithTimeout(ctx, h.gen.GenerationTimeout())
	defer cancel()

	h.writeFrame(conn, Frame{Type: "start"})

	reply, err := h.generate(genCtx, conn, history)
	if err != nil {
		log.Printf("[voice] generation failed for session=%s: %v", sessionID, err)
		h.writeError(conn, "generation failed")
		return
	}

	h.writeFrame(conn, Frame{Type: "message", Content: reply.Content})

	if err := h.chatSvc.SaveMessage(ctx, sessionID, chat.Message{Role: chat.RoleAssistant, Text: reply.Content}); err != nil {
		log.Printf("[voice] failed to save assistant message for session=%s: %v", sessionID, err)
	}

	// Speech output is best effort; a failed synthesis never breaks the turn.
	if h.synth != nil {
		audio, err := h.synth.Synthesize(genCtx, reply.Content)
		if err != nil {
			log.Printf("[voice] synthesis failed for session=%s: %v", sessionID, err)
		} else if err := conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
			log.Printf("[voice] failed to write audio frame for session=%s: %v", sessionID, err)
		}
	}

	h.writeFrame(conn, Frame{Type: "end"})
}

func (h *Handler) generate(ctx context.Context, conn *websocket.Conn, history []chat.Message) (*schema.Message, error) {
	if !h.gen.StreamingEnabled() {
		return h.gen.Generate(ctx, history)
	}

	stream, err := h.gen.Stream(ctx, history)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return nil, recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			h.writeFrame(conn, Frame{Type: "delta", Content: chunk.Content})
		}
	}

	return schema.ConcatMessages(chunks)
}

func (h *Handler) writeFrame(conn *websocket.Conn, frame Frame) {
	if err := conn.WriteJSON(frame); err != nil {
		log.Printf("[voice] failed to write frame: %v", err)
	}
}

func (h *Handler) writeError(conn *websocket.Conn, msg string) {
	h.writeFrame(conn, Frame{Type: "error", Error: msg})
}
