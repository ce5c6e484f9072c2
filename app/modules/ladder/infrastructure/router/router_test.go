package ladderrouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	authhandlers "github.com/Black-And-White-Club/club-ladder/app/modules/auth/infrastructure/handlers"
	ladderservice "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/application"
	ladderdomain "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/domain"
	ladderhandlers "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/infrastructure/handlers"
	ladderdb "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/infrastructure/repositories"
	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
	"github.com/Black-And-White-Club/club-ladder/app/shared/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FakeLadderService records calls and returns canned results. Func fields
// override single operations.
type FakeLadderService struct {
	trace []string

	RegisterTeamFunc     func(ctx context.Context, callerID uuid.UUID, req ladderservice.RegisterTeamRequest) (*ladderdb.Team, error)
	CreateChallengeFunc  func(ctx context.Context, callerID uuid.UUID, req ladderservice.CreateChallengeRequest) (*ladderservice.ChallengeOutcome, error)
	RespondChallengeFunc func(ctx context.Context, callerID, challengeID uuid.UUID, action ladderdomain.RespondAction) (*ladderservice.ChallengeOutcome, error)
	SubmitScoreFunc      func(ctx context.Context, callerID, challengeID uuid.UUID, scores []ladderdomain.SetScore) (*ladderservice.ChallengeOutcome, error)
	VerifyScoreFunc      func(ctx context.Context, callerID, challengeID uuid.UUID, action ladderdomain.VerifyAction) (*ladderservice.ChallengeOutcome, error)
	GetStandingsFunc     func(ctx context.Context, pool ladderdomain.PoolKey) ([]ladderservice.Standing, error)
	GetTeamHistoryFunc   func(ctx context.Context, teamID uuid.UUID, limit int) ([]ladderdb.ChallengeHistoryEntry, error)
	AcceptChallengeErr   error
}

func (f *FakeLadderService) record(step string) { f.trace = append(f.trace, step) }

func outcome(id uuid.UUID) *ladderservice.ChallengeOutcome {
	return &ladderservice.ChallengeOutcome{Challenge: &ladderdb.Challenge{ID: id}}
}

func (f *FakeLadderService) RegisterTeam(ctx context.Context, callerID uuid.UUID, req ladderservice.RegisterTeamRequest) (*ladderdb.Team, error) {
	f.record("RegisterTeam")
	if f.RegisterTeamFunc != nil {
		return f.RegisterTeamFunc(ctx, callerID, req)
	}
	return &ladderdb.Team{ID: uuid.New(), Name: req.Name}, nil
}

func (f *FakeLadderService) GetStandings(ctx context.Context, pool ladderdomain.PoolKey) ([]ladderservice.Standing, error) {
	f.record("GetStandings")
	if f.GetStandingsFunc != nil {
		return f.GetStandingsFunc(ctx, pool)
	}
	return []ladderservice.Standing{}, nil
}

func (f *FakeLadderService) GetTeamHistory(ctx context.Context, teamID uuid.UUID, limit int) ([]ladderdb.ChallengeHistoryEntry, error) {
	f.record("GetTeamHistory")
	if f.GetTeamHistoryFunc != nil {
		return f.GetTeamHistoryFunc(ctx, teamID, limit)
	}
	return nil, nil
}

func (f *FakeLadderService) ExportStandingsXLSX(ctx context.Context, pool ladderdomain.PoolKey) ([]byte, error) {
	f.record("ExportStandingsXLSX")
	return []byte("PK\x03\x04"), nil
}

func (f *FakeLadderService) RenderStandingsChart(ctx context.Context, pool ladderdomain.PoolKey) ([]byte, error) {
	f.record("RenderStandingsChart")
	return []byte("\x89PNG"), nil
}

func (f *FakeLadderService) CreateChallenge(ctx context.Context, callerID uuid.UUID, req ladderservice.CreateChallengeRequest) (*ladderservice.ChallengeOutcome, error) {
	f.record("CreateChallenge")
	if f.CreateChallengeFunc != nil {
		return f.CreateChallengeFunc(ctx, callerID, req)
	}
	return outcome(uuid.New()), nil
}

func (f *FakeLadderService) GetChallenge(ctx context.Context, challengeID uuid.UUID) (*ladderdb.Challenge, error) {
	f.record("GetChallenge")
	return &ladderdb.Challenge{ID: challengeID}, nil
}

func (f *FakeLadderService) AcceptChallenge(ctx context.Context, callerID, challengeID uuid.UUID) (*ladderservice.ChallengeOutcome, error) {
	f.record("AcceptChallenge")
	if f.AcceptChallengeErr != nil {
		return nil, f.AcceptChallengeErr
	}
	return outcome(challengeID), nil
}

func (f *FakeLadderService) DeclineChallenge(ctx context.Context, callerID, challengeID uuid.UUID) (*ladderservice.ChallengeOutcome, error) {
	f.record("DeclineChallenge")
	return outcome(challengeID), nil
}

func (f *FakeLadderService) RespondChallenge(ctx context.Context, callerID, challengeID uuid.UUID, action ladderdomain.RespondAction) (*ladderservice.ChallengeOutcome, error) {
	f.record("RespondChallenge")
	if f.RespondChallengeFunc != nil {
		return f.RespondChallengeFunc(ctx, callerID, challengeID, action)
	}
	return outcome(challengeID), nil
}

func (f *FakeLadderService) SubmitScore(ctx context.Context, callerID, challengeID uuid.UUID, scores []ladderdomain.SetScore) (*ladderservice.ChallengeOutcome, error) {
	f.record("SubmitScore")
	if f.SubmitScoreFunc != nil {
		return f.SubmitScoreFunc(ctx, callerID, challengeID, scores)
	}
	return outcome(challengeID), nil
}

func (f *FakeLadderService) VerifyScore(ctx context.Context, callerID, challengeID uuid.UUID, action ladderdomain.VerifyAction) (*ladderservice.ChallengeOutcome, error) {
	f.record("VerifyScore")
	if f.VerifyScoreFunc != nil {
		return f.VerifyScoreFunc(ctx, callerID, challengeID, action)
	}
	return outcome(challengeID), nil
}

var _ ladderservice.Service = (*FakeLadderService)(nil)

// newTestRouter mounts the ladder routes behind a stub auth layer that
// trusts the X-Player header.
func newTestRouter(svc ladderservice.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if id, err := uuid.Parse(req.Header.Get("X-Player")); err == nil {
				req = req.WithContext(authhandlers.WithPlayerID(req.Context(), id))
			}
			next.ServeHTTP(w, req)
		})
	})
	Register(r, ladderhandlers.NewLadderHandlers(svc, slog.New(slog.NewTextHandler(io.Discard, nil))))
	return r
}

func do(t *testing.T, h http.Handler, method, path string, player uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if player != uuid.Nil {
		req.Header.Set("X-Player", player.String())
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) httpx.ErrorResponse {
	t.Helper()
	var body httpx.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestLadderRoutes_StatusMapping(t *testing.T) {
	player := uuid.New()
	challengeID := uuid.New()

	tests := []struct {
		name       string
		svcErr     error
		wantStatus int
		wantKind   string
	}{
		{name: "success", wantStatus: http.StatusOK},
		{name: "authorization", svcErr: apperrors.Authorization("only the defending team can answer a challenge"), wantStatus: http.StatusForbidden, wantKind: "authorization_error"},
		{name: "not found", svcErr: apperrors.NotFound("challenge not found"), wantStatus: http.StatusNotFound, wantKind: "not_found"},
		{name: "invalid state", svcErr: apperrors.InvalidState("accepted", "challenge is not pending"), wantStatus: http.StatusBadRequest, wantKind: "invalid_state"},
		{name: "conflict", svcErr: apperrors.Conflict("ranks changed concurrently"), wantStatus: http.StatusConflict, wantKind: "conflict"},
		{name: "infrastructure", svcErr: errors.New("pq: connection refused"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &FakeLadderService{AcceptChallengeErr: tt.svcErr}
			rec := do(t, newTestRouter(svc), http.MethodPost, "/api/ladder/challenges/"+challengeID.String()+"/accept", player, "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, []string{"AcceptChallenge"}, svc.trace)
			if tt.wantStatus == http.StatusOK {
				return
			}
			body := errorBody(t, rec)
			assert.Equal(t, tt.wantKind, body.Kind)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", body.Error)
			} else {
				assert.Equal(t, tt.svcErr.Error(), body.Error)
			}
		})
	}
}

func TestLadderRoutes_Requests(t *testing.T) {
	player := uuid.New()
	challengeID := uuid.New()
	clubID := uuid.New()
	base := "/api/ladder/challenges/" + challengeID.String()

	t.Run("no caller is 401", func(t *testing.T) {
		svc := &FakeLadderService{}
		rec := do(t, newTestRouter(svc), http.MethodPost, base+"/decline", uuid.Nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, svc.trace)
	})

	t.Run("bad challenge id is 400", func(t *testing.T) {
		svc := &FakeLadderService{}
		rec := do(t, newTestRouter(svc), http.MethodPost, "/api/ladder/challenges/nope/accept", player, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.trace)
	})

	t.Run("create challenge", func(t *testing.T) {
		defender := uuid.New()
		var got ladderservice.CreateChallengeRequest
		svc := &FakeLadderService{
			CreateChallengeFunc: func(ctx context.Context, callerID uuid.UUID, req ladderservice.CreateChallengeRequest) (*ladderservice.ChallengeOutcome, error) {
				assert.Equal(t, player, callerID)
				got = req
				return outcome(uuid.New()), nil
			},
		}
		body := `{"defender_team_id":"` + defender.String() + `","scheduled_date":"next friday","venue":"Court 2"}`
		rec := do(t, newTestRouter(svc), http.MethodPost, "/api/ladder/challenges", player, body)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, defender, got.DefenderTeamID)
		require.NotNil(t, got.ScheduledDate)
		assert.Equal(t, "next friday", *got.ScheduledDate)
	})

	t.Run("create challenge without defender", func(t *testing.T) {
		svc := &FakeLadderService{}
		rec := do(t, newTestRouter(svc), http.MethodPost, "/api/ladder/challenges", player, `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.trace)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		svc := &FakeLadderService{}
		rec := do(t, newTestRouter(svc), http.MethodPost, base+"/verify", player, `{"action":"confirm","extra":1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, errorBody(t, rec).Error, "unknown key")
	})

	t.Run("respond action parsed", func(t *testing.T) {
		var got ladderdomain.RespondAction
		svc := &FakeLadderService{
			RespondChallengeFunc: func(ctx context.Context, callerID, id uuid.UUID, action ladderdomain.RespondAction) (*ladderservice.ChallengeOutcome, error) {
				got = action
				return outcome(id), nil
			},
		}
		rec := do(t, newTestRouter(svc), http.MethodPost, base+"/respond", player, `{"action":"forfeit"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ladderdomain.RespondForfeit, got)
	})

	t.Run("unknown respond action", func(t *testing.T) {
		svc := &FakeLadderService{}
		rec := do(t, newTestRouter(svc), http.MethodPost, base+"/respond", player, `{"action":"surrender"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, svc.trace)
	})

	t.Run("verify action parsed", func(t *testing.T) {
		var got ladderdomain.VerifyAction
		svc := &FakeLadderService{
			VerifyScoreFunc: func(ctx context.Context, callerID, id uuid.UUID, action ladderdomain.VerifyAction) (*ladderservice.ChallengeOutcome, error) {
				got = action
				return outcome(id), nil
			},
		}
		rec := do(t, newTestRouter(svc), http.MethodPost, base+"/verify", player, `{"action":"dispute"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ladderdomain.VerifyDispute, got)
	})

	t.Run("score payload", func(t *testing.T) {
		var got []ladderdomain.SetScore
		svc := &FakeLadderService{
			SubmitScoreFunc: func(ctx context.Context, callerID, id uuid.UUID, scores []ladderdomain.SetScore) (*ladderservice.ChallengeOutcome, error) {
				got = scores
				return outcome(id), nil
			},
		}
		rec := do(t, newTestRouter(svc), http.MethodPost, base+"/score", player, `{"scores":[{"team_a":6,"team_b":4},{"team_a":6,"team_b":2}]}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []ladderdomain.SetScore{{TeamA: 6, TeamB: 4}, {TeamA: 6, TeamB: 2}}, got)
	})

	t.Run("standings pool from path", func(t *testing.T) {
		var got ladderdomain.PoolKey
		svc := &FakeLadderService{
			GetStandingsFunc: func(ctx context.Context, pool ladderdomain.PoolKey) ([]ladderservice.Standing, error) {
				got = pool
				return []ladderservice.Standing{{Rank: 1}}, nil
			},
		}
		rec := do(t, newTestRouter(svc), http.MethodGet, "/api/ladder/pools/"+clubID.String()+"/mixed%20b/standings", player, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, ladderdomain.PoolKey{ClubID: clubID, Tier: "mixed b"}, got)
	})

	t.Run("standings exports", func(t *testing.T) {
		svc := &FakeLadderService{}
		h := newTestRouter(svc)

		xlsx := do(t, h, http.MethodGet, "/api/ladder/pools/"+clubID.String()+"/a/standings.xlsx", player, "")
		assert.Equal(t, http.StatusOK, xlsx.Code)
		assert.Contains(t, xlsx.Header().Get("Content-Type"), "spreadsheetml")
		assert.Contains(t, xlsx.Header().Get("Content-Disposition"), "standings-a.xlsx")

		png := do(t, h, http.MethodGet, "/api/ladder/pools/"+clubID.String()+"/a/standings.png", player, "")
		assert.Equal(t, http.StatusOK, png.Code)
		assert.Equal(t, "image/png", png.Header().Get("Content-Type"))

		assert.Equal(t, []string{"ExportStandingsXLSX", "RenderStandingsChart"}, svc.trace)
	})

	t.Run("history limit", func(t *testing.T) {
		teamID := uuid.New()
		var gotLimit int
		svc := &FakeLadderService{
			GetTeamHistoryFunc: func(ctx context.Context, id uuid.UUID, limit int) ([]ladderdb.ChallengeHistoryEntry, error) {
				assert.Equal(t, teamID, id)
				gotLimit = limit
				return nil, nil
			},
		}
		h := newTestRouter(svc)

		rec := do(t, h, http.MethodGet, "/api/ladder/teams/"+teamID.String()+"/history?limit=5", player, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 5, gotLimit)

		rec = do(t, h, http.MethodGet, "/api/ladder/teams/"+teamID.String()+"/history?limit=-1", player, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
