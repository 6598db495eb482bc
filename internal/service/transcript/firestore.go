package transcript

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Collections and array fields for the two persisted document shapes.
const (
	ExperimentsCollection = "experiments"
	ExperimentsLogField   = "chat_log"
	SessionsCollection    = "sessions"
	SessionsLogField      = "messages"
)

// FirestoreStore persists records in a Cloud Firestore collection. The client
// is constructed once at startup and injected; the store never owns it.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	logField   string
}

// NewFirestoreStore binds a store to one collection and message-array field.
func NewFirestoreStore(client *firestore.Client, collection, logField string) *FirestoreStore {
	return &FirestoreStore{client: client, collection: collection, logField: logField}
}

func (s *FirestoreStore) doc(id string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(id)
}

// CreateRecord writes the full initial document.
func (s *FirestoreStore) CreateRecord(ctx context.Context, id string, fields map[string]any) error {
	if _, err := s.doc(id).Set(ctx, fields); err != nil {
		return fmt.Errorf("firestore CreateRecord: %w", err)
	}
	return nil
}

// AppendMessage adds one entry to the message array. ArrayUnion is an atomic
// server-side add, so rapid successive sends never race over the document.
func (s *FirestoreStore) AppendMessage(ctx context.Context, id string, entry Entry) error {
	_, err := s.doc(id).Update(ctx, []firestore.Update{
		{Path: s.logField, Value: firestore.ArrayUnion(entry)},
	})
	if err != nil {
		return fmt.Errorf("firestore AppendMessage: %w", err)
	}
	return nil
}

// UpdateRecord merges fields into the existing document.
func (s *FirestoreStore) UpdateRecord(ctx context.Context, id string, fields map[string]any) error {
	if _, err := s.doc(id).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("firestore UpdateRecord: %w", err)
	}
	return nil
}

// GetRecord reads the document back, splitting the message array out of the
// flat field map.
func (s *FirestoreStore) GetRecord(ctx context.Context, id string) (Record, error) {
	snap, err := s.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, fmt.Errorf("firestore GetRecord: %w", err)
	}

	return s.recordFromFields(snap.Data()), nil
}

// ListCompleted queries completed records ordered by timestamp, for export.
func (s *FirestoreStore) ListCompleted(ctx context.Context, limit int) ([]Record, error) {
	q := s.client.Collection(s.collection).
		Where("status", "==", "completed").
		OrderBy("timestamp", firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []Record
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore ListCompleted: %w", err)
		}
		out = append(out, s.recordFromFields(snap.Data()))
	}
	return out, nil
}

func (s *FirestoreStore) recordFromFields(fields map[string]any) Record {
	record := Record{Fields: fields}

	raw, ok := fields[s.logField]
	if !ok {
		return record
	}
	delete(fields, s.logField)

	items, ok := raw.([]any)
	if !ok {
		return record
	}

	record.Entries = make([]Entry, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		entry := Entry{}
		if v, ok := m["role"].(string); ok {
			entry.Role = v
		}
		if v, ok := m["content"].(string); ok {
			entry.Content = v
		}
		if v, ok := m["timestamp"].(string); ok {
			entry.Timestamp = v
		}
		record.Entries = append(record.Entries, entry)
	}

	return record
}
