package completion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"github.com/chironlab/chiron/backend/internal/model/chat"
	"github.com/chironlab/chiron/backend/pkg/utils"
)

// Generator abstracts the hosted text-generation service so the handler can
// be exercised with a fake in tests.
type Generator interface {
	StreamingEnabled() bool
	GenerationTimeout() time.Duration
	Generate(ctx context.Context, history []chat.Message) (*schema.Message, error)
	Stream(ctx context.Context, history []chat.Message) (*schema.StreamReader[*schema.Message], error)
}

// Handler serves the completion endpoint: normalize the incoming message
// list, apply the sentinel protocol, stream the model reply.
type Handler struct {
	gen     Generator
	flights *inflight
}

// New creates the completion handler. A nil generator marks the model
// credential as missing: requests fail fast with 500 before any outbound
// call.
func New(gen Generator) *Handler {
	return &Handler{gen: gen, flights: newInflight()}
}

// RegisterRoutes mounts the completion endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleCompletion)
}

type completionRequest struct {
	SessionID string          `json:"sessionId,omitempty"`
	Messages  []chat.Incoming `json:"messages"`
}

// StreamFrame is one SSE frame of the streamed reply.
type StreamFrame struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) handleCompletion(w http.ResponseWriter, r *http.Request) {
	if h.gen == nil {
		utils.RespondError(w, http.StatusInternalServerError, "model service not configured")
		return
	}

	var payload completionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(payload.Messages) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "messages are required")
		return
	}
	for _, msg := range payload.Messages {
		if !chat.ValidRole(msg.Role) {
			utils.RespondError(w, http.StatusBadRequest, "message role must be user or assistant")
			return
		}
	}

	history, _ := chat.PrepareForModel(payload.Messages)
	if len(history) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "no message content")
		return
	}

	// One outstanding generation per session.
	if payload.SessionID != "" {
		if !h.flights.begin(payload.SessionID) {
			utils.RespondError(w, http.StatusConflict, "a generation is already in flight for this session")
			return
		}
		defer h.flights.end(payload.SessionID)
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.gen.GenerationTimeout())
	defer cancel()

	utils.SetupSSEHeaders(w)
	sendFrame(w, flusher, StreamFrame{Event: "start", SessionID: payload.SessionID})

	if payload.SessionID != "" {
		h.flights.streaming(payload.SessionID)
	}

	response, err := h.dispatch(ctx, w, flusher, payload.SessionID, history)
	if err != nil {
		log.Printf("[completion] generation failed for session=%s: %v", payload.SessionID, err)
		sendFrame(w, flusher, StreamFrame{Event: "error", SessionID: payload.SessionID, Error: "generation failed"})
		return
	}

	sendFrame(w, flusher, StreamFrame{Event: "message", SessionID: payload.SessionID, Content: response.Content})
	sendFrame(w, flusher, StreamFrame{Event: "end", SessionID: payload.SessionID, Finished: true})
}

func (h *Handler) dispatch(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID string, history []chat.Message) (*schema.Message, error) {
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
			sendFrame(w, flusher, StreamFrame{Event: "delta", SessionID: sessionID, Content: chunk.Content})
		}
	}

	return schema.ConcatMessages(chunks)
}

func sendFrame(w http.ResponseWriter, flusher http.Flusher, frame StreamFrame) {
	utils.SendSSEChunk(w, flusher, frame)
}
