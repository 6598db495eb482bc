package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chironlab/chiron/backend/internal/model/chat"
	"github.com/chironlab/chiron/backend/internal/service/transcript"
)

var (
	ErrInvalidMode     = errors.New("mode must be text or voice")
	ErrSessionExists   = errors.New("session already exists")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session already completed")
)

// Service manages the non-research conversational flow: one mode selection,
// then chat. Sessions live in memory for the page lifetime; the transcript
// store keeps the durable copy.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
	recorder *transcript.Recorder
}

// NewService bootstraps the in-memory session service.
func NewService(recorder *transcript.Recorder) *Service {
	return &Service{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
		recorder: recorder,
	}
}

// CreateSession registers a session under the client-generated identifier and
// writes the initial store record. An empty id gets a server-generated one.
func (s *Service) CreateSession(ctx context.Context, sessionID, mode string) (chat.Session, error) {
	if !chat.ValidMode(mode) {
		return chat.Session{}, ErrInvalidMode
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	session := chat.Session{
		ID:        sessionID,
		Mode:      mode,
		Status:    chat.StatusActive,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	if _, ok := s.sessions[sessionID]; ok {
		s.mu.Unlock()
		return chat.Session{}, ErrSessionExists
	}
	s.sessions[sessionID] = session
	s.messages[sessionID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	err := s.recorder.Create(ctx, sessionID, map[string]any{
		"session_id": sessionID,
		"mode":       mode,
		"status":     chat.StatusActive,
		"messages":   []transcript.Entry{},
		"created_at": session.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		delete(s.messages, sessionID)
		s.mu.Unlock()
		return chat.Session{}, err
	}

	return session, nil
}

// SaveMessage appends a message to the session history and mirrors it to the
// store, best effort. The sentinel trigger and blank messages are dropped.
func (s *Service) SaveMessage(ctx context.Context, sessionID string, message chat.Message) error {
	if !chat.ValidRole(message.Role) {
		return errors.New("role must be user or assistant")
	}
	if chat.IsSentinel(message.Text) || strings.TrimSpace(message.Text) == "" {
		return nil
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	if session.Status != chat.StatusActive {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.messages[sessionID] = append(s.messages[sessionID], message)
	s.mu.Unlock()

	s.recorder.Append(ctx, sessionID, transcript.Entry{
		Role:      message.Role,
		Content:   message.Text,
		Timestamp: message.Timestamp.Format(time.RFC3339),
	})
	s.recorder.Update(ctx, sessionID, map[string]any{
		"last_updated": message.Timestamp.Format(time.RFC3339),
	})
	return nil
}

// EndSession marks the session completed. Further messages are rejected.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	session.Status = chat.StatusCompleted
	s.sessions[sessionID] = session
	s.mu.Unlock()

	s.recorder.Update(ctx, sessionID, map[string]any{
		"status":       chat.StatusCompleted,
		"last_updated": time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// LoadTranscript returns a copy of the in-memory messages for the session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}
