package chat

import "time"

// Interaction modes selected once per session, never concurrently active.
const (
	ModeText  = "text"
	ModeVoice = "voice"
)

// Session statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Session captures one anonymous conversation in the non-research chat flow.
// The identifier is generated by the client before any server interaction and
// is the sole correlation key with the persisted transcript record.
type Session struct {
	ID        string    `json:"sessionId"`
	Mode      string    `json:"mode"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// ValidMode reports whether the mode is one of the two interaction modes.
func ValidMode(mode string) bool {
	return mode == ModeText || mode == ModeVoice
}
