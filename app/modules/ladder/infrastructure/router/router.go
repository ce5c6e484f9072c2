package ladderrouter

import (
	ladderhandlers "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/infrastructure/handlers"
	"github.com/go-chi/chi/v5"
)

// Register mounts the ladder API under /api/ladder. r must already run the
// bearer auth middleware.
func Register(r chi.Router, h *ladderhandlers.LadderHandlers) {
	r.Route("/api/ladder", func(r chi.Router) {
		r.Post("/teams", h.RegisterTeam)
		r.Get("/teams/{teamID}/history", h.GetTeamHistory)

		r.Get("/pools/{clubID}/{tier}/standings", h.GetStandings)
		r.Get("/pools/{clubID}/{tier}/standings.xlsx", h.ExportStandings)
		r.Get("/pools/{clubID}/{tier}/standings.png", h.StandingsChart)

		r.Route("/challenges", func(r chi.Router) {
			r.Post("/", h.CreateChallenge)
			r.Route("/{challengeID}", func(r chi.Router) {
				r.Get("/", h.GetChallenge)
				r.Post("/accept", h.AcceptChallenge)
				r.Post("/decline", h.DeclineChallenge)
				r.Post("/respond", h.RespondChallenge)
				r.Post("/score", h.SubmitScore)
				r.Post("/verify", h.VerifyScore)
			})
		})
	})
}
