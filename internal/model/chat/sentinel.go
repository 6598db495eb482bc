package chat

import "strings"

// Sentinel is the reserved control string a fresh session sends as its first
// request. It triggers the scripted opening and is never rendered, persisted
// or forwarded as real conversational content.
const Sentinel = "START_SESSION"

// IsSentinel reports whether the normalized text is the session trigger.
func IsSentinel(text string) bool {
	return text == Sentinel
}

// PrepareForModel normalizes the raw message list and builds the history that
// goes to the model: sentinel-equal and empty-after-trim entries are dropped.
// If the filtered list ends up empty and the original input carried a
// sentinel, a single synthetic user sentinel message is re-injected so the
// model still receives the trigger framing.
func PrepareForModel(in []Incoming) (history []Message, hadSentinel bool) {
	history = make([]Message, 0, len(in))
	for _, raw := range in {
		msg := Normalize(raw)
		if IsSentinel(msg.Text) {
			hadSentinel = true
			continue
		}
		if strings.TrimSpace(msg.Text) == "" {
			continue
		}
		history = append(history, msg)
	}

	if len(history) == 0 && hadSentinel {
		history = append(history, Message{Role: RoleUser, Text: Sentinel})
	}

	return history, hadSentinel
}
