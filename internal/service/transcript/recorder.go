package transcript

import (
	"context"
	"log"
	"time"
)

// Recorder wraps a Store with the persistence policy of the conversational
// flow: record creation is awaited because it gates entry to chat, while
// appends and updates are fire-and-forget. Write failures are logged and
// never surfaced; conversation continuity wins over data completeness.
type Recorder struct {
	store Store
	sync  bool
}

// NewRecorder returns the production recorder with asynchronous writes.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// NewSyncRecorder performs every write inline. Used by tests that assert on
// store contents.
func NewSyncRecorder(store Store) *Recorder {
	return &Recorder{store: store, sync: true}
}

// Create writes the initial record and reports the result to the caller.
func (r *Recorder) Create(ctx context.Context, id string, fields map[string]any) error {
	return r.store.CreateRecord(ctx, id, fields)
}

// Append adds one entry to the record's message array, best effort.
func (r *Recorder) Append(ctx context.Context, id string, entry Entry) {
	r.dispatch(ctx, func(ctx context.Context) error {
		return r.store.AppendMessage(ctx, id, entry)
	}, "append", id)
}

// Update merges fields into the record, best effort.
func (r *Recorder) Update(ctx context.Context, id string, fields map[string]any) {
	r.dispatch(ctx, func(ctx context.Context) error {
		return r.store.UpdateRecord(ctx, id, fields)
	}, "update", id)
}

func (r *Recorder) dispatch(_ context.Context, write func(context.Context) error, op, id string) {
	if r.sync {
		if err := write(context.Background()); err != nil {
			log.Printf("[transcript] %s failed for record=%s: %v", op, id, err)
		}
		return
	}

	// Detached from the request context: the write must survive the response.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := write(ctx); err != nil {
			log.Printf("[transcript] %s failed for record=%s: %v", op, id, err)
		}
	}()
}
