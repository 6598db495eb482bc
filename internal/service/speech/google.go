package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/chironlab/chiron/backend/internal/config"
)

const defaultGoogleEndpoint = "https://texttospeech.googleapis.com/v1/text:synthesize"

// GoogleClient calls the Cloud Text-to-Speech REST endpoint directly: one
// synthesis request, base64 audio in the JSON reply.
type GoogleClient struct {
	cfg      config.SpeechConfig
	endpoint string
	client   *http.Client
}

func newGoogleClient(cfg config.SpeechConfig, client *http.Client) *GoogleClient {
	endpoint := cfg.SynthEndpoint
	if endpoint == "" {
		endpoint = defaultGoogleEndpoint
	}
	return &GoogleClient{cfg: cfg, endpoint: endpoint, client: client}
}

type googleSynthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
		SSMLGender   string `json:"ssmlGender"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate"`
		Pitch         float64 `json:"pitch"`
		VolumeGainDB  float64 `json:"volumeGainDb"`
	} `json:"audioConfig"`
}

type googleSynthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize produces MP3 bytes for the text.
func (c *GoogleClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var reqBody googleSynthesizeRequest
	reqBody.Input.Text = text
	reqBody.Voice.LanguageCode = c.cfg.Language
	reqBody.Voice.Name = c.cfg.Voice
	reqBody.Voice.SSMLGender = "FEMALE"
	reqBody.AudioConfig.AudioEncoding = "MP3"
	reqBody.AudioConfig.SpeakingRate = c.cfg.SpeakingRate

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal synthesize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?key="+c.cfg.APIKey, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build synthesize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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

	var out googleSynthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode synthesize response: %w", err)
	}
	if out.AudioContent == "" {
		return nil, fmt.Errorf("no audio content in response")
	}

	audio, err := base64.StdEncoding.DecodeString(out.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}
	return audio, nil
}
