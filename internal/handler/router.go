package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chironlab/chiron/backend/internal/handler/completion"
	experimenthandler "github.com/chironlab/chiron/backend/internal/handler/experiment"
	sessionhandler "github.com/chironlab/chiron/backend/internal/handler/session"
	speechhandler "github.com/chironlab/chiron/backend/internal/handler/speech"
	voicehandler "github.com/chironlab/chiron/backend/internal/handler/voice"
	middlewarePkg "github.com/chironlab/chiron/backend/internal/middleware"
	"github.com/chironlab/chiron/backend/internal/model/guide"
	aiservice "github.com/chironlab/chiron/backend/internal/service/ai"
	chatservice "github.com/chironlab/chiron/backend/internal/service/chat"
	experimentservice "github.com/chironlab/chiron/backend/internal/service/experiment"
	speechservice "github.com/chironlab/chiron/backend/internal/service/speech"
	"github.com/chironlab/chiron/backend/internal/service/transcript"
)

// NewRouter wires HTTP routes to core services. aiSvc and synth may be nil
// when their credentials are not configured; the affected endpoints then fail
// fast without outbound calls.
func NewRouter(
	aiSvc *aiservice.Service,
	chatSvc *chatservice.Service,
	expSvc *experimentservice.Service,
	expStore transcript.Store,
	synth speechservice.Synthesizer,
	profile guide.Profile,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	// A typed nil must not leak into the interface value.
	var gen completion.Generator
	if aiSvc != nil {
		gen = aiSvc
	}

	completionHandler := completion.New(gen)
	experimentHandler := experimenthandler.New(expSvc, expStore)
	sessionHandler := sessionhandler.New(chatSvc)
	speechHandler := speechhandler.New(synth)
	voiceHandler := voicehandler.New(gen, chatSvc, synth, profile)

	r.Route("/api", func(api chi.Router) {
		completionHandler.RegisterRoutes(api)
		experimentHandler.RegisterRoutes(api)
		sessionHandler.RegisterRoutes(api)
		speechHandler.RegisterRoutes(api)
		voiceHandler.RegisterRoutes(api)
	})

	return r
}
