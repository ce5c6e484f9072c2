package ladderhandlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	authhandlers "github.com/Black-And-White-Club/club-ladder/app/modules/auth/infrastructure/handlers"
	ladderservice "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/application"
	ladderdomain "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/domain"
	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
	"github.com/Black-And-White-Club/club-ladder/app/shared/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const defaultHistoryLimit = 50

// LadderHandlers serves the /api/ladder routes.
type LadderHandlers struct {
	service ladderservice.Service
	logger  *slog.Logger
}

// NewLadderHandlers creates LadderHandlers.
func NewLadderHandlers(service ladderservice.Service, logger *slog.Logger) *LadderHandlers {
	return &LadderHandlers{service: service, logger: logger}
}

type actionRequest struct {
	Action string `json:"action"`
}

type scoreRequest struct {
	Scores []ladderdomain.SetScore `json:"scores"`
}

func (h *LadderHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(w, r, h.logger, err)
}

// RegisterTeam handles POST /teams.
func (h *LadderHandlers) RegisterTeam(w http.ResponseWriter, r *http.Request) {
	callerID, err := authhandlers.CallerID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req ladderservice.RegisterTeamRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	team, err := h.service.RegisterTeam(r.Context(), callerID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, team)
}

// CreateChallenge handles POST /challenges.
func (h *LadderHandlers) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	callerID, err := authhandlers.CallerID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req ladderservice.CreateChallengeRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.DefenderTeamID == uuid.Nil {
		h.fail(w, r, apperrors.Validation("defender_team_id is required"))
		return
	}

	out, err := h.service.CreateChallenge(r.Context(), callerID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, out)
}

// GetChallenge handles GET /challenges/{challengeID}.
func (h *LadderHandlers) GetChallenge(w http.ResponseWriter, r *http.Request) {
	challengeID, err := httpx.UUIDParam(r, "challengeID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	challenge, err := h.service.GetChallenge(r.Context(), challengeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, challenge)
}

// AcceptChallenge handles POST /challenges/{challengeID}/accept.
func (h *LadderHandlers) AcceptChallenge(w http.ResponseWriter, r *http.Request) {
	h.challengeAction(w, r, h.service.AcceptChallenge)
}

// DeclineChallenge handles POST /challenges/{challengeID}/decline.
func (h *LadderHandlers) DeclineChallenge(w http.ResponseWriter, r *http.Request) {
	h.challengeAction(w, r, h.service.DeclineChallenge)
}

// RespondChallenge handles POST /challenges/{challengeID}/respond.
func (h *LadderHandlers) RespondChallenge(w http.ResponseWriter, r *http.Request) {
	callerID, challengeID, ok := h.challengeCaller(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	action, err := ladderdomain.ParseRespondAction(req.Action)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out, err := h.service.RespondChallenge(r.Context(), callerID, challengeID, action)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// SubmitScore handles POST /challenges/{challengeID}/score.
func (h *LadderHandlers) SubmitScore(w http.ResponseWriter, r *http.Request) {
	callerID, challengeID, ok := h.challengeCaller(w, r)
	if !ok {
		return
	}
	var req scoreRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	out, err := h.service.SubmitScore(r.Context(), callerID, challengeID, req.Scores)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// VerifyScore handles POST /challenges/{challengeID}/verify.
func (h *LadderHandlers) VerifyScore(w http.ResponseWriter, r *http.Request) {
	callerID, challengeID, ok := h.challengeCaller(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	action, err := ladderdomain.ParseVerifyAction(req.Action)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out, err := h.service.VerifyScore(r.Context(), callerID, challengeID, action)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// GetStandings handles GET /pools/{clubID}/{tier}/standings.
func (h *LadderHandlers) GetStandings(w http.ResponseWriter, r *http.Request) {
	pool, err := poolParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	standings, err := h.service.GetStandings(r.Context(), pool)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, standings)
}

// ExportStandings handles GET /pools/{clubID}/{tier}/standings.xlsx.
func (h *LadderHandlers) ExportStandings(w http.ResponseWriter, r *http.Request) {
	pool, err := poolParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := h.service.ExportStandingsXLSX(r.Context(), pool)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="standings-`+url.PathEscape(pool.Tier)+`.xlsx"`)
	writeBinary(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// StandingsChart handles GET /pools/{clubID}/{tier}/standings.png.
func (h *LadderHandlers) StandingsChart(w http.ResponseWriter, r *http.Request) {
	pool, err := poolParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := h.service.RenderStandingsChart(r.Context(), pool)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeBinary(w, "image/png", data)
}

// GetTeamHistory handles GET /teams/{teamID}/history?limit=N.
func (h *LadderHandlers) GetTeamHistory(w http.ResponseWriter, r *http.Request) {
	teamID, err := httpx.UUIDParam(r, "teamID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := httpx.IntQuery(r, "limit", defaultHistoryLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := h.service.GetTeamHistory(r.Context(), teamID, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entries)
}

type challengeOp func(ctx context.Context, callerID, challengeID uuid.UUID) (*ladderservice.ChallengeOutcome, error)

func (h *LadderHandlers) challengeAction(w http.ResponseWriter, r *http.Request, op challengeOp) {
	callerID, challengeID, ok := h.challengeCaller(w, r)
	if !ok {
		return
	}
	out, err := op(r.Context(), callerID, challengeID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *LadderHandlers) challengeCaller(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	callerID, err := authhandlers.CallerID(r)
	if err != nil {
		h.fail(w, r, err)
		return uuid.Nil, uuid.Nil, false
	}
	challengeID, err := httpx.UUIDParam(r, "challengeID")
	if err != nil {
		h.fail(w, r, err)
		return uuid.Nil, uuid.Nil, false
	}
	return callerID, challengeID, true
}

func poolParam(r *http.Request) (ladderdomain.PoolKey, error) {
	clubID, err := httpx.UUIDParam(r, "clubID")
	if err != nil {
		return ladderdomain.PoolKey{}, err
	}
	tier, err := url.PathUnescape(chi.URLParam(r, "tier"))
	if err != nil || tier == "" {
		return ladderdomain.PoolKey{}, apperrors.Validation("tier is required")
	}
	return ladderdomain.PoolKey{ClubID: clubID, Tier: tier}, nil
}

func writeBinary(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
