package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chironlab/chiron/backend/internal/config"
)

func TestGoogleClientSynthesize(t *testing.T) {
	audio := []byte("mp3-bytes")

	var gotKey string
	var gotBody googleSynthesizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString(audio),
		})
	}))
	defer srv.Close()

	cfg := config.SpeechConfig{
		APIKey:        "test-key",
		SynthEndpoint: srv.URL,
		Voice:         "tr-TR-Wavenet-D",
		Language:      "tr-TR",
		SpeakingRate:  0.95,
	}
	client := newGoogleClient(cfg, srv.Client())

	out, err := client.Synthesize(context.Background(), "Merhaba")
	if err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}
	if string(out) != string(audio) {
		t.Fatalf("unexpected audio: %q", out)
	}
	if gotKey != "test-key" {
		t.Fatalf("unexpected api key: %q", gotKey)
	}
	if gotBody.Input.Text != "Merhaba" {
		t.Fatalf("unexpected input text: %q", gotBody.Input.Text)
	}
	if gotBody.Voice.Name != "tr-TR-Wavenet-D" || gotBody.Voice.LanguageCode != "tr-TR" {
		t.Fatalf("unexpected voice: %+v", gotBody.Voice)
	}
	if gotBody.AudioConfig.AudioEncoding != "MP3" || gotBody.AudioConfig.SpeakingRate != 0.95 {
		t.Fatalf("unexpected audio config: %+v", gotBody.AudioConfig)
	}
}

func TestGoogleClientProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"API key not valid"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	client := newGoogleClient(config.SpeechConfig{SynthEndpoint: srv.URL}, srv.Client())

	_, err := client.Synthesize(context.Background(), "Merhaba")
	if err == nil {
		t.Fatal("expected an error for non-200 provider response")
	}
	if strings.Contains(err.Error(), "API key not valid") {
		t.Fatalf("provider detail leaked into error: %v", err)
	}
}

func TestTokenClientSynthesizeAndCache(t *testing.T) {
	var tokenCalls int
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "sub-key" {
			t.Errorf("missing subscription key header")
		}
		fmt.Fprint(w, "issued-token\n")
	}))
	defer tokenSrv.Close()

	var gotAuth, gotSSML string
	synthSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotSSML = string(body)
		w.Write([]byte("mp3-bytes"))
	}))
	defer synthSrv.Close()

	cfg := config.SpeechConfig{
		APIKey:        "sub-key",
		TokenEndpoint: tokenSrv.URL,
		SynthEndpoint: synthSrv.URL,
		Voice:         "tr-TR-EmelNeural",
		Language:      "tr-TR",
		SpeakingRate:  0.95,
	}
	client, err := newTokenClient(cfg, &http.Client{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("newTokenClient err: %v", err)
	}

	out, err := client.Synthesize(context.Background(), `Merhaba <dünya> & "sen"`)
	if err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}
	if string(out) != "mp3-bytes" {
		t.Fatalf("unexpected audio: %q", out)
	}
	if gotAuth != "Bearer issued-token" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if !strings.Contains(gotSSML, "&lt;dünya&gt; &amp; &quot;sen&quot;") {
		t.Fatalf("markup not escaped: %q", gotSSML)
	}
	if !strings.Contains(gotSSML, `voice name="tr-TR-EmelNeural"`) {
		t.Fatalf("voice missing from markup: %q", gotSSML)
	}

	// Second synthesis reuses the cached token.
	if _, err := client.Synthesize(context.Background(), "tekrar"); err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}
	if tokenCalls != 1 {
		t.Fatalf("expected 1 token issuance, got %d", tokenCalls)
	}
}

func TestTokenClientRequiresEndpoints(t *testing.T) {
	if _, err := newTokenClient(config.SpeechConfig{}, http.DefaultClient); err == nil {
		t.Fatal("expected an error without endpoints")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	if _, err := New(config.SpeechConfig{}); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	synth, err := New(config.SpeechConfig{Enabled: true, APIKey: "k"})
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	if _, ok := synth.(*GoogleClient); !ok {
		t.Fatalf("expected google backend, got %T", synth)
	}

	synth, err = New(config.SpeechConfig{
		Enabled:       true,
		Provider:      config.SpeechProviderToken,
		APIKey:        "k",
		TokenEndpoint: "https://example.com/token",
		SynthEndpoint: "https://example.com/synth",
	})
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	if _, ok := synth.(*TokenClient); !ok {
		t.Fatalf("expected token backend, got %T", synth)
	}
}
