package experiment

import "time"

// Group is the assigned interaction condition.
type Group string

const (
	GroupText  Group = "text"
	GroupVoice Group = "voice"
)

// Record statuses. A record moves started -> completed exactly once.
const (
	StatusStarted   = "started"
	StatusCompleted = "completed"
)

// InclusionThreshold is the minimum self-reported SUDs score (0-100) required
// to continue past the pre-survey. Boundary inclusive: 20 continues, 19 is
// excluded.
const InclusionThreshold = 20

// PreTest holds the baseline measures captured before group assignment.
type PreTest struct {
	Age  int `json:"age" firestore:"age"`
	SUDs int `json:"suds" firestore:"suds"`
}

// PostTest holds the outcome measures captured after the chat phase.
type PostTest struct {
	SUDs          int `json:"suds" firestore:"suds"`
	CognitiveLoad int `json:"cognitive_load" firestore:"cognitive_load"`
}

// Record is the research variant of a session: everything persisted about one
// participant run. PreTest exists before a group is chosen; PostTest only
// after the chat phase ends. The message log only grows.
type Record struct {
	ParticipantID string    `json:"participant_id"`
	Group         Group     `json:"group"`
	ConsentGiven  bool      `json:"consent_given"`
	PreTest       PreTest   `json:"pre_test"`
	PostTest      *PostTest `json:"post_test,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Status        string    `json:"status"`
}

// Step identifies a screen in the linear experiment flow.
type Step string

const (
	StepConsent        Step = "consent"
	StepPreSurvey      Step = "pre-survey"
	StepGroupSelection Step = "group-selection"
	StepChat           Step = "chat"
	StepPostSurvey     Step = "post-survey"
	StepThankYou       Step = "thank-you"
	StepExcluded       Step = "excluded"
)

// Terminal reports whether no further transition can leave the step.
func (s Step) Terminal() bool {
	return s == StepThankYou || s == StepExcluded
}

// ValidGroup reports whether the group names one of the two conditions.
func ValidGroup(g Group) bool {
	return g == GroupText || g == GroupVoice
}
