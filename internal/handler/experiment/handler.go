package experiment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	expmodel "github.com/chironlab/chiron/backend/internal/model/experiment"
	expservice "github.com/chironlab/chiron/backend/internal/service/experiment"
	"github.com/chironlab/chiron/backend/internal/service/transcript"
	"github.com/chironlab/chiron/backend/pkg/utils"
)

// Handler exposes the experiment flow over HTTP. Each endpoint drives one
// transition of the state machine.
type Handler struct {
	svc   *expservice.Service
	store transcript.Store
}

// New creates the experiment handler. The store is used for research export
// only; the flow itself goes through the service.
func New(svc *expservice.Service, store transcript.Store) *Handler {
	return &Handler{svc: svc, store: store}
}

// RegisterRoutes mounts the experiment endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/experiment", func(er chi.Router) {
		er.Post("/consent", h.handleConsent)
		er.Post("/pre-survey", h.handlePreSurvey)
		er.Post("/group", h.handleGroup)
		er.Post("/message", h.handleMessage)
		er.Post("/finish", h.handleFinish)
		er.Post("/post-survey", h.handlePostSurvey)
		er.Get("/records", h.handleRecords)
		er.Get("/{participantID}/step", h.handleStep)
	})
}

func (h *Handler) handleConsent(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ParticipantID string `json:"participantId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	step, err := h.svc.Consent(r.Context(), payload.ParticipantID)
	if err != nil {
		respondFlowError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"step": string(step)})
}

func (h *Handler) handlePreSurvey(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ParticipantID string `json:"participantId"`
		Age           int    `json:"age"`
		SUDs          int    `json:"suds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	step, err := h.svc.SubmitPreSurvey(r.Context(), payload.ParticipantID, payload.Age, payload.SUDs)
	if err != nil {
		respondFlowError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"step": string(step)})
}

func (h *Handler) handleGroup(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ParticipantID string `json:"participantId"`
		Group         string `json:"group"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	step, err := h.svc.ChooseGroup(r.Context(), payload.ParticipantID, expmodel.Group(payload.Group))
	if err != nil {
		respondFlowError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"step": string(step)})
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ParticipantID string `json:"participantId"`
		Role          string `json:"role"`
		Content       string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.RecordMessage(r.Context(), payload.ParticipantID, payload.Role, payload.Content); err != nil {
		respondFlowError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *Handler) handleFinish(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ParticipantID string `json:"participantId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	step, err := h.svc.FinishChat(r.Context(), payload.ParticipantID)
	if err != nil {
		respondFlowError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"step": string(step)})
}

func (h *Handler) handlePostSurvey(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ParticipantID string `json:"participantId"`
		SUDs          int    `json:"suds"`
		CognitiveLoad int    `json:"cognitiveLoad"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	step, err := h.svc.SubmitPostSurvey(r.Context(), payload.ParticipantID, payload.SUDs, payload.CognitiveLoad)
	if err != nil {
		respondFlowError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"step": string(step)})
}

func (h *Handler) handleStep(w http.ResponseWriter, r *http.Request) {
	participantID := chi.URLParam(r, "participantID")

	step, err := h.svc.Step(r.Context(), participantID)
	if err != nil {
		respondFlowError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"step": string(step)})
}

// handleRecords exports completed records for research analysis.
func (h *Handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListCompleted(r.Context(), 0)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		fields := rec.Fields
		fields["chat_log"] = rec.Entries
		out = append(out, fields)
	}
	utils.RespondJSON(w, http.StatusOK, out)
}

func respondFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, expservice.ErrUnknownParticipant):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, expservice.ErrInvalidTransition):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, expservice.ErrParticipantRequired),
		errors.Is(err, expservice.ErrInvalidSurvey),
		errors.Is(err, expservice.ErrInvalidGroup),
		errors.Is(err, expservice.ErrInvalidRole):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
