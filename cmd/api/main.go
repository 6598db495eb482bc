package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/joho/godotenv"

	"github.com/chironlab/chiron/backend/internal/config"
	"github.com/chironlab/chiron/backend/internal/handler"
	"github.com/chironlab/chiron/backend/internal/model/guide"
	aiservice "github.com/chironlab/chiron/backend/internal/service/ai"
	chatservice "github.com/chironlab/chiron/backend/internal/service/chat"
	experimentservice "github.com/chironlab/chiron/backend/internal/service/experiment"
	speechservice "github.com/chironlab/chiron/backend/internal/service/speech"
	"github.com/chironlab/chiron/backend/internal/service/transcript"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	profile := guide.Default()
	if cfg.Model.SystemPromptFile != "" {
		raw, err := os.ReadFile(cfg.Model.SystemPromptFile)
		if err != nil {
			log.Fatalf("failed to read system prompt file: %v", err)
		}
		profile.SystemPrompt = string(raw)
	}

	// The guide profile supplies the voice defaults; TTS_* variables override.
	if cfg.Speech.Voice == "" {
		cfg.Speech.Voice = profile.VoiceName
	}
	if cfg.Speech.Language == "" {
		cfg.Speech.Language = profile.Language
	}
	if cfg.Speech.SpeakingRate == 0 {
		cfg.Speech.SpeakingRate = profile.SpeakingRate
	}

	// The document store is the research record; refusing to start without it
	// beats silently collecting nothing.
	if !cfg.Firestore.Enabled() {
		log.Fatal("FIREBASE_PROJECT_ID is required")
	}
	fsClient, err := firestore.NewClient(ctx, cfg.Firestore.ProjectID)
	if err != nil {
		log.Fatalf("failed to create firestore client: %v", err)
	}
	defer fsClient.Close()

	experimentsStore := transcript.NewFirestoreStore(fsClient, transcript.ExperimentsCollection, transcript.ExperimentsLogField)
	sessionsStore := transcript.NewFirestoreStore(fsClient, transcript.SessionsCollection, transcript.SessionsLogField)

	expSvc := experimentservice.NewService(transcript.NewRecorder(experimentsStore))
	chatSvc := chatservice.NewService(transcript.NewRecorder(sessionsStore))

	var aiSvc *aiservice.Service
	if cfg.Model.Enabled() {
		aiSvc, err = aiservice.NewService(ctx, profile, cfg.Model)
		if err != nil {
			log.Printf("warning: failed to initialize model service: %v", err)
			log.Println("continuing without completion functionality")
		} else {
			log.Println("model service initialized successfully")
		}
	} else {
		log.Println("model credential not configured, completion endpoints will fail fast")
	}

	var synth speechservice.Synthesizer
	if cfg.Speech.Enabled {
		synth, err = speechservice.New(cfg.Speech)
		if err != nil {
			log.Printf("warning: failed to initialize speech service: %v", err)
			synth = nil
		} else {
			log.Printf("speech service initialized with %s provider", cfg.Speech.Provider)
		}
	} else {
		log.Println("speech credential not configured, synthesis endpoint will fail fast")
	}

	router := handler.NewRouter(aiSvc, chatSvc, expSvc, experimentsStore, synth, profile)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Chiron backend listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
