package speech

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	speechsvc "github.com/chironlab/chiron/backend/internal/service/speech"
	"github.com/chironlab/chiron/backend/pkg/utils"
)

// Handler serves the speech synthesis endpoint.
type Handler struct {
	synth speechsvc.Synthesizer
}

// New creates the speech handler. A nil synthesizer marks the speech
// credentials as missing: requests fail with 500 before any provider call.
func New(synth speechsvc.Synthesizer) *Handler {
	return &Handler{synth: synth}
}

// RegisterRoutes mounts the speech endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/tts", h.handleSynthesize)
}

func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Text == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	if h.synth == nil {
		utils.RespondError(w, http.StatusInternalServerError, "speech service not configured")
		return
	}

	audio, err := h.synth.Synthesize(r.Context(), payload.Text)
	if err != nil {
		log.Printf("[speech] synthesis failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to generate speech")
		return
	}

	// Synthesis output for identical text never changes; cache aggressively.
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(audio); err != nil {
		log.Printf("[speech] failed to write audio response: %v", err)
	}
}
