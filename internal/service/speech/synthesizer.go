package speech

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/chironlab/chiron/backend/internal/config"
)

var ErrNotConfigured = errors.New("speech credentials not configured")

// Synthesizer converts model text output to spoken audio. Both backends
// produce the same contract: MP3 bytes for the given text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// New selects the provider backend from configuration.
func New(cfg config.SpeechConfig) (Synthesizer, error) {
	if !cfg.Enabled {
		return nil, ErrNotConfigured
	}

	client := &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}

	switch cfg.Provider {
	case config.SpeechProviderToken:
		return newTokenClient(cfg, client)
	default:
		return newGoogleClient(cfg, client), nil
	}
}
