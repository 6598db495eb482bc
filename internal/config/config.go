package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config aggregates every configuration group of the service.
type Config struct {
	Server    ServerConfig
	Model     ModelConfig
	Speech    SpeechConfig
	Firestore FirestoreConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	model, err := loadModelConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	firestore := loadFirestoreConfig()

	return &Config{Server: server, Model: model, Speech: speech, Firestore: firestore}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ModelConfig describes the hosted text-generation service.
type ModelConfig struct {
	APIKey            string
	Model             string
	BaseURL           string
	Temperature       *float64
	TopP              *float64
	MaxTokens         *int
	StreamResponse    bool
	GenerationTimeout int // seconds; bounds a single generation end to end
	SystemPromptFile  string
}

// Enabled reports whether the required model credential and name are present.
// When false the completion endpoints fail fast with 500 before any outbound
// call.
func (c ModelConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

func loadModelConfig() (ModelConfig, error) {
	temperature, err := parseOptionalFloatEnv("MODEL_TEMPERATURE")
	if err != nil {
		return ModelConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("MODEL_TOP_P")
	if err != nil {
		return ModelConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("MODEL_MAX_TOKENS")
	if err != nil {
		return ModelConfig{}, err
	}

	stream, err := parseBoolEnv("MODEL_STREAM", true)
	if err != nil {
		return ModelConfig{}, err
	}

	timeout := 120
	if override, err := parseOptionalIntEnv("GENERATION_TIMEOUT"); err != nil {
		return ModelConfig{}, err
	} else if override != nil && *override > 0 {
		timeout = *override
	}

	return ModelConfig{
		APIKey:            strings.TrimSpace(os.Getenv("MODEL_API_KEY")),
		Model:             strings.TrimSpace(os.Getenv("MODEL_NAME")),
		BaseURL:           getEnvOrDefault("MODEL_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Temperature:       temperature,
		TopP:              topP,
		MaxTokens:         maxTokens,
		StreamResponse:    stream,
		GenerationTimeout: timeout,
		SystemPromptFile:  strings.TrimSpace(os.Getenv("SYSTEM_PROMPT_FILE")),
	}, nil
}

// Speech synthesis providers.
const (
	SpeechProviderGoogle = "google"
	SpeechProviderToken  = "token"
)

// SpeechConfig describes the text-to-speech provider.
type SpeechConfig struct {
	Provider      string
	APIKey        string
	TokenEndpoint string
	SynthEndpoint string
	Voice         string
	Language      string
	SpeakingRate  float64
	Timeout       int // seconds
	Enabled       bool
}

func loadSpeechConfig() (SpeechConfig, error) {
	provider := getEnvOrDefault("TTS_PROVIDER", SpeechProviderGoogle)
	if provider != SpeechProviderGoogle && provider != SpeechProviderToken {
		return SpeechConfig{}, fmt.Errorf("invalid TTS_PROVIDER value: %q", provider)
	}

	rate, err := parseOptionalFloatEnv("TTS_SPEAKING_RATE")
	if err != nil {
		return SpeechConfig{}, err
	}
	var speakingRate float64
	if rate != nil {
		speakingRate = *rate
	}

	timeout := 30
	if override, err := parseOptionalIntEnv("TTS_TIMEOUT"); err != nil {
		return SpeechConfig{}, err
	} else if override != nil && *override > 0 {
		timeout = *override
	}

	apiKey := strings.TrimSpace(os.Getenv("TTS_API_KEY"))

	return SpeechConfig{
		Provider:      provider,
		APIKey:        apiKey,
		TokenEndpoint: getEnvOrDefault("TTS_TOKEN_ENDPOINT", ""),
		SynthEndpoint: getEnvOrDefault("TTS_SYNTH_ENDPOINT", ""),
		// Voice, Language and SpeakingRate are left empty when unset; the
		// guide profile supplies the defaults at startup.
		Voice:        strings.TrimSpace(os.Getenv("TTS_VOICE")),
		Language:     strings.TrimSpace(os.Getenv("TTS_LANGUAGE")),
		SpeakingRate: speakingRate,
		Timeout:       timeout,
		Enabled:       apiKey != "",
	}, nil
}

// FirestoreConfig carries the six document-store project fields. Only the
// project id is consumed server-side; the rest are held so one .env serves
// both the web client and this service.
type FirestoreConfig struct {
	APIKey            string
	AuthDomain        string
	ProjectID         string
	StorageBucket     string
	MessagingSenderID string
	AppID             string
}

// Enabled reports whether the document store can be reached.
func (c FirestoreConfig) Enabled() bool {
	return c.ProjectID != ""
}

func loadFirestoreConfig() FirestoreConfig {
	return FirestoreConfig{
		APIKey:            strings.TrimSpace(os.Getenv("FIREBASE_API_KEY")),
		AuthDomain:        strings.TrimSpace(os.Getenv("FIREBASE_AUTH_DOMAIN")),
		ProjectID:         strings.TrimSpace(os.Getenv("FIREBASE_PROJECT_ID")),
		StorageBucket:     strings.TrimSpace(os.Getenv("FIREBASE_STORAGE_BUCKET")),
		MessagingSenderID: strings.TrimSpace(os.Getenv("FIREBASE_MESSAGING_SENDER_ID")),
		AppID:             strings.TrimSpace(os.Getenv("FIREBASE_APP_ID")),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
