package match

import (
	"github.com/go-chi/chi/v5"

	"github.com/soundmate/soundmate/internal/auth"
)

// Registrar ties the match service into the HTTP router.
type Registrar struct {
	service *Service
	authn   *auth.Authenticator
}

func NewRegistrar(service *Service, authn *auth.Authenticator) *Registrar {
	return &Registrar{service: service, authn: authn}
}

// Register mounts the engine's routes. Everything requires a session.
func (r *Registrar) Register(router chi.Router) {
	router.Route("/api/match", func(router chi.Router) {
		router.Use(r.authn.Middleware)

		router.Get("/feed", r.service.HandleFeed)
		router.Post("/swipe", r.service.HandleSwipe)
		router.Get("/matches", r.service.HandleMatches)
		router.Get("/likes/count", r.service.HandleLikeCount)
		router.Post("/matches/{id}/unmatch", r.service.HandleUnmatch)
	})
}
