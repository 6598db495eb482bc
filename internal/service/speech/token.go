package speech

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chironlab/chiron/backend/internal/config"
)

// TokenClient implements the token-issuance-then-markup-synthesis provider
// flow: a short-lived bearer token is issued from the subscription key, then
// SSML markup is posted for synthesis. Output contract is identical to the
// plain backend.
type TokenClient struct {
	cfg    config.SpeechConfig
	client *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// Issued tokens are valid for ten minutes; refresh with a margin.
const tokenLifetime = 9 * time.Minute

func newTokenClient(cfg config.SpeechConfig, client *http.Client) (*TokenClient, error) {
	if cfg.TokenEndpoint == "" || cfg.SynthEndpoint == "" {
		return nil, fmt.Errorf("token provider requires TTS_TOKEN_ENDPOINT and TTS_SYNTH_ENDPOINT")
	}
	return &TokenClient{cfg: cfg, client: client}, nil
}

// Synthesize produces MP3 bytes for the text.
func (c *TokenClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	token, err := c.issueToken(ctx)
	if err != nil {
		return nil, err
	}

	ssml := fmt.Sprintf(
		`<speak version="1.0" xml:lang=%q><voice name=%q><prosody rate="%.2f">%s</prosody></voice></speak>`,
		c.cfg.Language, c.cfg.Voice, c.cfg.SpeakingRate, escapeSSML(text),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SynthEndpoint, strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("build synthesize request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", "audio-16khz-128kbitrate-mono-mp3")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesize call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Printf("[speech] synthesis failed: status=%d body=%s", resp.StatusCode, body)
		return nil, fmt.Errorf("synthesis provider returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (c *TokenClient) issueToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenEndpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Printf("[speech] token issuance failed: status=%d body=%s", resp.StatusCode, body)
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	token, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}

	c.token = strings.TrimSpace(string(token))
	c.tokenExp = time.Now().Add(tokenLifetime)
	return c.token, nil
}

func escapeSSML(text string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
	return r.Replace(text)
}
