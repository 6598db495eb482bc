package completion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"github.com/chironlab/chiron/backend/internal/model/chat"
)

type fakeGenerator struct {
	streaming  bool
	chunks     []string
	reply      string
	gotHistory []chat.Message
	calls      int
	started    chan struct{}
	release    chan struct{}
}

func (f *fakeGenerator) StreamingEnabled() bool { return f.streaming }

func (f *fakeGenerator) GenerationTimeout() time.Duration { return 5 * time.Second }

func (f *fakeGenerator) Generate(_ context.Context, history []chat.Message) (*schema.Message, error) {
	f.calls++
	f.gotHistory = history
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.release != nil {
		<-f.release
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeGenerator) Stream(_ context.Context, history []chat.Message) (*schema.StreamReader[*schema.Message], error) {
	f.calls++
	f.gotHistory = history
	msgs := make([]*schema.Message, 0, len(f.chunks))
	for _, chunk := range f.chunks {
		msgs = append(msgs, schema.AssistantMessage(chunk, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

func newTestRouter(gen Generator) *chi.Mux {
	r := chi.NewRouter()
	New(gen).RegisterRoutes(r)
	return r
}

func postChat(t *testing.T, r http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func parseFrames(t *testing.T, body string) []StreamFrame {
	t.Helper()
	var frames []StreamFrame
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var frame StreamFrame
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame); err != nil {
			t.Fatalf("unmarshal frame %q: %v", line, err)
		}
		frames = append(frames, frame)
	}
	return frames
}

func TestMissingCredentialFailsFast(t *testing.T) {
	r := newTestRouter(nil)

	resp := postChat(t, r, map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "merhaba"}},
	})

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
}

func TestInvalidBody(t *testing.T) {
	r := newTestRouter(&fakeGenerator{})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestEmptyMessages(t *testing.T) {
	r := newTestRouter(&fakeGenerator{})

	resp := postChat(t, r, map[string]any{"messages": []map[string]string{}})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestUnknownRoleRejected(t *testing.T) {
	gen := &fakeGenerator{}
	r := newTestRouter(gen)

	resp := postChat(t, r, map[string]any{
		"messages": []map[string]string{{"role": "system", "content": "x"}},
	})

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if gen.calls != 0 {
		t.Fatalf("generator must not be called, got %d calls", gen.calls)
	}
}

func TestSentinelOnlyRequestRebuildsTrigger(t *testing.T) {
	gen := &fakeGenerator{reply: "Merhaba. Seni dinliyorum."}
	r := newTestRouter(gen)

	resp := postChat(t, r, map[string]any{
		"messages": []map[string]string{{"role": "user", "content": chat.Sentinel}},
	})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if len(gen.gotHistory) != 1 {
		t.Fatalf("expected rebuilt history of length 1, got %d", len(gen.gotHistory))
	}
	if gen.gotHistory[0].Text != chat.Sentinel {
		t.Fatalf("expected sentinel trigger, got %q", gen.gotHistory[0].Text)
	}

	frames := parseFrames(t, resp.Body.String())
	var sawMessage, sawEnd bool
	for _, frame := range frames {
		if frame.Event == "message" && frame.Content == gen.reply {
			sawMessage = true
		}
		if frame.Event == "end" && frame.Finished {
			sawEnd = true
		}
	}
	if !sawMessage || !sawEnd {
		t.Fatalf("expected message and end frames, got %+v", frames)
	}
}

func TestStreamingDeltas(t *testing.T) {
	gen := &fakeGenerator{streaming: true, chunks: []string{"Mer", "haba"}}
	r := newTestRouter(gen)

	resp := postChat(t, r, map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "selam"}},
	})

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	frames := parseFrames(t, resp.Body.String())
	var deltas []string
	var final string
	for _, frame := range frames {
		switch frame.Event {
		case "delta":
			deltas = append(deltas, frame.Content)
		case "message":
			final = frame.Content
		}
	}
	if len(deltas) != 2 || deltas[0] != "Mer" || deltas[1] != "haba" {
		t.Fatalf("unexpected deltas: %v", deltas)
	}
	if final != "Merhaba" {
		t.Fatalf("unexpected assembled reply: %q", final)
	}
}

func TestSentinelNeverEchoedInFrames(t *testing.T) {
	gen := &fakeGenerator{streaming: true, chunks: []string{"Merhaba."}}
	r := newTestRouter(gen)

	resp := postChat(t, r, map[string]any{
		"messages": []map[string]string{
			{"role": "user", "content": chat.Sentinel},
			{"role": "user", "content": "kaygılıyım"},
		},
	})

	for _, frame := range parseFrames(t, resp.Body.String()) {
		if strings.Contains(frame.Content, chat.Sentinel) {
			t.Fatalf("sentinel leaked into stream: %+v", frame)
		}
	}
	for _, msg := range gen.gotHistory {
		if msg.Text == chat.Sentinel {
			t.Fatalf("sentinel leaked into model history: %+v", gen.gotHistory)
		}
	}
}

func TestSecondSubmissionRejectedWhileInFlight(t *testing.T) {
	gen := &fakeGenerator{
		reply:   "yanıt",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	r := newTestRouter(gen)

	started := gen.started
	body := map[string]any{
		"sessionId": "s1",
		"messages":  []map[string]string{{"role": "user", "content": "ilk"}},
	}

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- postChat(t, r, body)
	}()

	<-started

	second := postChat(t, r, body)
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409 while generation in flight, got %d", second.Code)
	}

	close(gen.release)
	first := <-done
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request to finish with 200, got %d", first.Code)
	}

	// Back to idle: a new submission is accepted.
	third := postChat(t, r, body)
	if third.Code != http.StatusOK {
		t.Fatalf("expected 200 after flight ended, got %d", third.Code)
	}
}
