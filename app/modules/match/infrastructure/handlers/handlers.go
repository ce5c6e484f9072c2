package matchhandlers

import (
	"log/slog"
	"net/http"

	authhandlers "github.com/Black-And-White-Club/club-ladder/app/modules/auth/infrastructure/handlers"
	matchservice "github.com/Black-And-White-Club/club-ladder/app/modules/match/application"
	matchdomain "github.com/Black-And-White-Club/club-ladder/app/modules/match/domain"
	"github.com/Black-And-White-Club/club-ladder/app/shared/httpx"
	"github.com/google/uuid"
)

// MatchHandlers serves the /api/matches and /api/ratings routes.
type MatchHandlers struct {
	service matchservice.Service
	logger  *slog.Logger
}

func NewMatchHandlers(service matchservice.Service, logger *slog.Logger) *MatchHandlers {
	return &MatchHandlers{service: service, logger: logger}
}

type verifyRequest struct {
	Action string `json:"action"`
}

func (h *MatchHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(w, r, h.logger, err)
}

// CreateMatch handles POST /api/matches.
func (h *MatchHandlers) CreateMatch(w http.ResponseWriter, r *http.Request) {
	callerID, err := authhandlers.CallerID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req matchservice.CreateMatchRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.service.CreateMatch(r.Context(), callerID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, view)
}

// GetMatch handles GET /api/matches/{matchID}.
func (h *MatchHandlers) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := httpx.UUIDParam(r, "matchID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.service.GetMatch(r.Context(), matchID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

// JoinMatch handles POST /api/matches/{matchID}/join.
func (h *MatchHandlers) JoinMatch(w http.ResponseWriter, r *http.Request) {
	callerID, matchID, ok := h.matchCaller(w, r)
	if !ok {
		return
	}
	view, err := h.service.JoinMatch(r.Context(), callerID, matchID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

// AcceptParticipant handles POST /api/matches/{matchID}/participants/{playerID}/accept.
func (h *MatchHandlers) AcceptParticipant(w http.ResponseWriter, r *http.Request) {
	callerID, matchID, ok := h.matchCaller(w, r)
	if !ok {
		return
	}
	playerID, err := httpx.UUIDParam(r, "playerID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.service.AcceptParticipant(r.Context(), callerID, matchID, playerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

// SubmitScore handles POST /api/matches/{matchID}/score.
func (h *MatchHandlers) SubmitScore(w http.ResponseWriter, r *http.Request) {
	callerID, matchID, ok := h.matchCaller(w, r)
	if !ok {
		return
	}
	var req matchservice.SubmitMatchScoreRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.service.SubmitMatchScore(r.Context(), callerID, matchID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

// VerifyScore handles POST /api/matches/{matchID}/verify.
func (h *MatchHandlers) VerifyScore(w http.ResponseWriter, r *http.Request) {
	callerID, matchID, ok := h.matchCaller(w, r)
	if !ok {
		return
	}
	var req verifyRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	action, err := matchdomain.ParseVerifyAction(req.Action)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.service.VerifyMatchScore(r.Context(), callerID, matchID, action)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

// GetRating handles GET /api/ratings/{playerID}.
func (h *MatchHandlers) GetRating(w http.ResponseWriter, r *http.Request) {
	playerID, err := httpx.UUIDParam(r, "playerID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rating, err := h.service.GetRating(r.Context(), playerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rating)
}

func (h *MatchHandlers) matchCaller(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	callerID, err := authhandlers.CallerID(r)
	if err != nil {
		h.fail(w, r, err)
		return uuid.Nil, uuid.Nil, false
	}
	matchID, err := httpx.UUIDParam(r, "matchID")
	if err != nil {
		h.fail(w, r, err)
		return uuid.Nil, uuid.Nil, false
	}
	return callerID, matchID, true
}
