package transcript

import (
	"context"
	"errors"
)

var ErrRecordNotFound = errors.New("record not found")

// Entry is one persisted exchange in a record's message array.
type Entry struct {
	Role      string `json:"role" firestore:"role"`
	Content   string `json:"content" firestore:"content"`
	Timestamp string `json:"timestamp,omitempty" firestore:"timestamp,omitempty"`
}

// Record is the durable projection of a session as read back from the store.
type Record struct {
	Fields  map[string]any
	Entries []Entry
}

// Store is the append-only document persistence used for research logging.
// It is an audit log, not the source of truth for conversation context: the
// in-memory message list held by the client drives the model.
//
// A Store instance is bound to one collection and one message-array field, so
// the same contract serves both the research records (experiments/chat_log)
// and the plain conversational sessions (sessions/messages).
type Store interface {
	// CreateRecord writes the full pre-chat record under the given id.
	CreateRecord(ctx context.Context, id string, fields map[string]any) error
	// AppendMessage atomically adds one entry to the record's message array.
	// No read-modify-write over the document is permitted.
	AppendMessage(ctx context.Context, id string, entry Entry) error
	// UpdateRecord merges the given fields into an existing record.
	UpdateRecord(ctx context.Context, id string, fields map[string]any) error
	// GetRecord reads a record back, mainly for verification tooling.
	GetRecord(ctx context.Context, id string) (Record, error)
	// ListCompleted returns completed records in timestamp order, for
	// research export. A non-positive limit means no limit.
	ListCompleted(ctx context.Context, limit int) ([]Record, error)
}
