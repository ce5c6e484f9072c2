package ladderservice

import (
	"context"

	directorydomain "github.com/Black-And-White-Club/club-ladder/app/modules/directory/domain"
	ladderdomain "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/domain"
	ladderdb "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/infrastructure/repositories"
	"github.com/google/uuid"
)

// Service is the ladder application surface consumed by the HTTP handlers.
type Service interface {
	RegisterTeam(ctx context.Context, callerID uuid.UUID, req RegisterTeamRequest) (*ladderdb.Team, error)
	GetStandings(ctx context.Context, pool ladderdomain.PoolKey) ([]Standing, error)
	GetTeamHistory(ctx context.Context, teamID uuid.UUID, limit int) ([]ladderdb.ChallengeHistoryEntry, error)
	ExportStandingsXLSX(ctx context.Context, pool ladderdomain.PoolKey) ([]byte, error)
	RenderStandingsChart(ctx context.Context, pool ladderdomain.PoolKey) ([]byte, error)

	CreateChallenge(ctx context.Context, callerID uuid.UUID, req CreateChallengeRequest) (*ChallengeOutcome, error)
	GetChallenge(ctx context.Context, challengeID uuid.UUID) (*ladderdb.Challenge, error)
	AcceptChallenge(ctx context.Context, callerID, challengeID uuid.UUID) (*ChallengeOutcome, error)
	DeclineChallenge(ctx context.Context, callerID, challengeID uuid.UUID) (*ChallengeOutcome, error)
	RespondChallenge(ctx context.Context, callerID, challengeID uuid.UUID, action ladderdomain.RespondAction) (*ChallengeOutcome, error)
	SubmitScore(ctx context.Context, callerID, challengeID uuid.UUID, scores []ladderdomain.SetScore) (*ChallengeOutcome, error)
	VerifyScore(ctx context.Context, callerID, challengeID uuid.UUID, action ladderdomain.VerifyAction) (*ChallengeOutcome, error)
}

var _ Service = (*LadderService)(nil)

// RegisterTeamRequest enters the caller and a partner into a pool.
type RegisterTeamRequest struct {
	ClubID    uuid.UUID `json:"club_id"`
	Tier      string    `json:"tier"`
	Name      string    `json:"name"`
	PartnerID uuid.UUID `json:"partner_id"`
}

// CreateChallengeRequest issues a challenge from the caller's team.
// ScheduledDate accepts YYYY-MM-DD or natural language ("next friday").
type CreateChallengeRequest struct {
	DefenderTeamID uuid.UUID `json:"defender_team_id"`
	ScheduledDate  *string   `json:"scheduled_date,omitempty"`
	ScheduledTime  *string   `json:"scheduled_time,omitempty"`
	Venue          *string   `json:"venue,omitempty"`
}

// ChallengeOutcome is the challenge and both teams after an operation.
// History is set when the operation completed the challenge.
type ChallengeOutcome struct {
	Challenge  *ladderdb.Challenge             `json:"challenge"`
	Challenger *ladderdb.Team                  `json:"challenger"`
	Defender   *ladderdb.Team                  `json:"defender"`
	History    *ladderdb.ChallengeHistoryEntry `json:"history,omitempty"`
}

// Standing is one row of a pool's standings.
type Standing struct {
	Rank          int                      `json:"rank"`
	TeamID        uuid.UUID                `json:"team_id"`
	Name          string                   `json:"name"`
	Points        int                      `json:"points"`
	Status        ladderdomain.TeamStatus  `json:"status"`
	MatchesPlayed int                      `json:"matches_played"`
	MatchesWon    int                      `json:"matches_won"`
	Players       []directorydomain.Player `json:"players"`
}
