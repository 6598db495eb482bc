package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chironlab/chiron/backend/internal/model/chat"
	chatservice "github.com/chironlab/chiron/backend/internal/service/chat"
	"github.com/chironlab/chiron/backend/pkg/utils"
)

// Handler exposes the non-research conversational flow: pick a mode, chat.
type Handler struct {
	chatSvc *chatservice.Service
}

// New creates the session handler.
func New(chatSvc *chatservice.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes mounts the session endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/session", func(sr chi.Router) {
		sr.Post("/", h.handleCreateSession)
		sr.Post("/{sessionID}/messages", h.handleSaveMessage)
		sr.Get("/{sessionID}/messages", h.handleLoadTranscript)
		sr.Post("/{sessionID}/end", h.handleEndSession)
	})
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Mode      string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.SessionID, payload.Mode)
	if err != nil {
		switch {
		case errors.Is(err, chatservice.ErrInvalidMode):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, chatservice.ErrSessionExists):
			utils.RespondError(w, http.StatusConflict, err.Error())
		default:
			utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		}
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleSaveMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Role      string `json:"role"`
		Content   string `json:"content"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := chat.Message{Role: payload.Role, Text: payload.Content}
	if payload.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, payload.Timestamp); err == nil {
			message.Timestamp = ts
		}
	}

	if err := h.chatSvc.SaveMessage(r.Context(), sessionID, message); err != nil {
		switch {
		case errors.Is(err, chatservice.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, chatservice.ErrSessionClosed):
			utils.RespondError(w, http.StatusConflict, err.Error())
		default:
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *Handler) handleLoadTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.chatSvc.EndSession(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": chat.StatusCompleted})
}
