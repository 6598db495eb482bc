package completion

import "sync"

type flightStatus int

// Per-session generation status: idle -> submitted -> streaming -> idle.
const (
	flightIdle flightStatus = iota
	flightSubmitted
	flightStreaming
)

// inflight tracks the single active generation allowed per session. A second
// submission while one is submitted or streaming is rejected.
type inflight struct {
	mu     sync.Mutex
	states map[string]flightStatus
}

func newInflight() *inflight {
	return &inflight{states: make(map[string]flightStatus)}
}

// begin moves the session from idle to submitted. Reports false when a
// generation is already in flight.
func (f *inflight) begin(sessionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.states[sessionID] != flightIdle {
		return false
	}
	f.states[sessionID] = flightSubmitted
	return true
}

// streaming marks the first chunk of the reply on the wire.
func (f *inflight) streaming(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.states[sessionID] == flightSubmitted {
		f.states[sessionID] = flightStreaming
	}
}

// end returns the session to idle.
func (f *inflight) end(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, sessionID)
}
