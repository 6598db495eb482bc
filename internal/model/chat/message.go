package chat

import "time"

// Roles accepted on the wire. Anything else is rejected at the handler boundary.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is the uniform role+text record every layer works with.
// Immutable once created; the role is fixed at creation.
type Message struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Part is a single typed content fragment of an incoming UI message.
type Part struct {
	Text string `json:"text,omitempty"`
}

// Incoming mirrors the heterogeneous message shapes the front-end emits:
// either a flat content string or a list of typed parts.
type Incoming struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
	Parts   []Part `json:"parts,omitempty"`
}

// Normalize flattens an incoming message into a Message. Fragment texts are
// concatenated in order with no separator, fragments without text are
// skipped, and a message with neither parts nor content normalizes to "".
func Normalize(in Incoming) Message {
	if len(in.Parts) > 0 {
		var text string
		for _, p := range in.Parts {
			text += p.Text
		}
		return Message{Role: in.Role, Text: text}
	}
	return Message{Role: in.Role, Text: in.Content}
}

// ValidRole reports whether the role is one this service accepts.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
