package experiment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/chironlab/chiron/backend/internal/model/chat"
	"github.com/chironlab/chiron/backend/internal/model/experiment"
	"github.com/chironlab/chiron/backend/internal/service/transcript"
)

var (
	ErrParticipantRequired = errors.New("participant id is required")
	ErrUnknownParticipant  = errors.New("participant not found")
	ErrInvalidTransition   = errors.New("invalid step transition")
	ErrInvalidSurvey       = errors.New("survey values out of range")
	ErrInvalidGroup        = errors.New("group must be text or voice")
	ErrInvalidRole         = errors.New("role must be user or assistant")
)

type state struct {
	step   experiment.Step
	record experiment.Record
	log    []transcript.Entry
}

// Service drives the linear experiment flow: consent, pre-survey, group
// assignment, chat, post-survey. State lives in memory for the lifetime of
// one run; the transcript store holds the durable projection and is never
// read back by this flow. No transition is reversible.
type Service struct {
	mu       sync.RWMutex
	states   map[string]*state
	recorder *transcript.Recorder
}

// NewService wires the flow to its persistence collaborator.
func NewService(recorder *transcript.Recorder) *Service {
	return &Service{
		states:   make(map[string]*state),
		recorder: recorder,
	}
}

// Consent acknowledges the consent screen and opens the pre-survey. The
// participant id is generated client-side and registers the run here.
func (s *Service) Consent(_ context.Context, participantID string) (experiment.Step, error) {
	if participantID == "" {
		return "", ErrParticipantRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.states[participantID]; ok {
		return "", ErrInvalidTransition
	}

	s.states[participantID] = &state{
		step: experiment.StepPreSurvey,
		record: experiment.Record{
			ParticipantID: participantID,
			ConsentGiven:  true,
		},
	}
	return experiment.StepPreSurvey, nil
}

// SubmitPreSurvey captures the baseline measures. SUDs below the inclusion
// threshold routes to the terminal excluded step; the boundary is inclusive
// at the threshold itself.
func (s *Service) SubmitPreSurvey(_ context.Context, participantID string, age, suds int) (experiment.Step, error) {
	if suds < 0 || suds > 100 || age < 0 {
		return "", ErrInvalidSurvey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.stateAt(participantID, experiment.StepPreSurvey)
	if err != nil {
		return "", err
	}

	if suds < experiment.InclusionThreshold {
		st.step = experiment.StepExcluded
		return experiment.StepExcluded, nil
	}

	st.record.PreTest = experiment.PreTest{Age: age, SUDs: suds}
	st.record.Timestamp = time.Now().UTC()
	st.record.Status = experiment.StatusStarted
	st.step = experiment.StepGroupSelection
	return experiment.StepGroupSelection, nil
}

// ChooseGroup assigns the interaction condition and writes the full pre-chat
// record. This is the only awaited persistence call: it gates entry to chat,
// so a failed write keeps the participant on the selection screen.
func (s *Service) ChooseGroup(ctx context.Context, participantID string, group experiment.Group) (experiment.Step, error) {
	if !experiment.ValidGroup(group) {
		return "", ErrInvalidGroup
	}

	s.mu.Lock()
	st, err := s.stateAt(participantID, experiment.StepGroupSelection)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}

	st.record.Group = group

	fields := map[string]any{
		"participant_id": st.record.ParticipantID,
		"group":          string(group),
		"consent_given":  st.record.ConsentGiven,
		"pre_test": map[string]any{
			"age":  st.record.PreTest.Age,
			"suds": st.record.PreTest.SUDs,
		},
		"chat_log":  []transcript.Entry{},
		"timestamp": st.record.Timestamp.Format(time.RFC3339),
		"status":    st.record.Status,
	}
	s.mu.Unlock()

	// Awaited without the lock: a slow store write must not block other
	// participants' transitions.
	if err := s.recorder.Create(ctx, participantID, fields); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err = s.stateAt(participantID, experiment.StepGroupSelection)
	if err != nil {
		return "", err
	}
	st.step = experiment.StepChat
	return experiment.StepChat, nil
}

// RecordMessage appends one exchanged message to the audit log, best effort.
// The sentinel trigger and blank messages are never logged.
func (s *Service) RecordMessage(ctx context.Context, participantID, role, content string) error {
	if !chat.ValidRole(role) {
		return ErrInvalidRole
	}
	if chat.IsSentinel(content) || strings.TrimSpace(content) == "" {
		return nil
	}

	s.mu.Lock()
	st, err := s.stateAt(participantID, experiment.StepChat)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	entry := transcript.Entry{Role: role, Content: content}
	st.log = append(st.log, entry)
	s.mu.Unlock()

	s.recorder.Append(ctx, participantID, entry)
	return nil
}

// FinishChat closes the chat phase on the explicit end-session action. The
// model never drives this transition.
func (s *Service) FinishChat(_ context.Context, participantID string) (experiment.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.stateAt(participantID, experiment.StepChat)
	if err != nil {
		return "", err
	}

	st.step = experiment.StepPostSurvey
	return experiment.StepPostSurvey, nil
}

// SubmitPostSurvey captures the outcome measures and completes the record.
// The completion write is fire-and-forget; the participant is thanked either
// way.
func (s *Service) SubmitPostSurvey(ctx context.Context, participantID string, suds, cognitiveLoad int) (experiment.Step, error) {
	if suds < 0 || suds > 100 || cognitiveLoad < 1 || cognitiveLoad > 5 {
		return "", ErrInvalidSurvey
	}

	s.mu.Lock()
	st, err := s.stateAt(participantID, experiment.StepPostSurvey)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}

	st.record.PostTest = &experiment.PostTest{SUDs: suds, CognitiveLoad: cognitiveLoad}
	st.record.Status = experiment.StatusCompleted
	st.step = experiment.StepThankYou
	s.mu.Unlock()

	s.recorder.Update(ctx, participantID, map[string]any{
		"post_test": map[string]any{
			"suds":           suds,
			"cognitive_load": cognitiveLoad,
		},
		"status":       experiment.StatusCompleted,
		"completed_at": time.Now().UTC().Format(time.RFC3339),
	})
	return experiment.StepThankYou, nil
}

// Step reports the participant's current screen.
func (s *Service) Step(_ context.Context, participantID string) (experiment.Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[participantID]
	if !ok {
		return "", ErrUnknownParticipant
	}
	return st.step, nil
}

// Record returns a snapshot of the in-memory record and message log.
func (s *Service) Record(_ context.Context, participantID string) (experiment.Record, []transcript.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[participantID]
	if !ok {
		return experiment.Record{}, nil, ErrUnknownParticipant
	}

	log := make([]transcript.Entry, len(st.log))
	copy(log, st.log)
	return st.record, log, nil
}

// stateAt fetches a participant's state and enforces the expected step.
// Callers hold the lock.
func (s *Service) stateAt(participantID string, want experiment.Step) (*state, error) {
	st, ok := s.states[participantID]
	if !ok {
		return nil, ErrUnknownParticipant
	}
	if st.step != want {
		return nil, ErrInvalidTransition
	}
	return st, nil
}
