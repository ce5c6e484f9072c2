package matchrouter

import (
	matchhandlers "github.com/Black-And-White-Club/club-ladder/app/modules/match/infrastructure/handlers"
	"github.com/go-chi/chi/v5"
)

// Register mounts the open-match API. r must already run the bearer auth
// middleware.
func Register(r chi.Router, h *matchhandlers.MatchHandlers) {
	r.Route("/api/matches", func(r chi.Router) {
		r.Post("/", h.CreateMatch)
		r.Route("/{matchID}", func(r chi.Router) {
			r.Get("/", h.GetMatch)
			r.Post("/join", h.JoinMatch)
			r.Post("/participants/{playerID}/accept", h.AcceptParticipant)
			r.Post("/score", h.SubmitScore)
			r.Post("/verify", h.VerifyScore)
		})
	})
	r.Get("/api/ratings/{playerID}", h.GetRating)
}
