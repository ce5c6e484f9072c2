package matchservice

import (
	"context"
	"time"

	matchdomain "github.com/Black-And-White-Club/club-ladder/app/modules/match/domain"
	matchdb "github.com/Black-And-White-Club/club-ladder/app/modules/match/infrastructure/repositories"
	"github.com/google/uuid"
)

// Service is the open-match surface consumed by the HTTP handlers and the
// auto-verify job.
type Service interface {
	CreateMatch(ctx context.Context, callerID uuid.UUID, req CreateMatchRequest) (*MatchView, error)
	GetMatch(ctx context.Context, matchID uuid.UUID) (*MatchView, error)
	JoinMatch(ctx context.Context, callerID, matchID uuid.UUID) (*MatchView, error)
	AcceptParticipant(ctx context.Context, callerID, matchID, playerID uuid.UUID) (*MatchView, error)
	GetRating(ctx context.Context, playerID uuid.UUID) (*matchdb.PlayerRating, error)

	SubmitMatchScore(ctx context.Context, callerID, matchID uuid.UUID, req SubmitMatchScoreRequest) (*MatchView, error)
	VerifyMatchScore(ctx context.Context, callerID, matchID uuid.UUID, action matchdomain.VerifyAction) (*MatchView, error)

	// AutoVerifyDue finalizes every score still pending verification after
	// the auto-verify window, each in its own transaction.
	AutoVerifyDue(ctx context.Context, now time.Time) (*SweepReport, error)
}

var _ Service = (*MatchService)(nil)

// CreateMatchRequest opens a match hosted by the caller.
type CreateMatchRequest struct {
	MaxPlayers  int        `json:"max_players"`
	SkillMin    float64    `json:"skill_min"`
	SkillMax    float64    `json:"skill_max"`
	Venue       *string    `json:"venue,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// TeamAssignment lists the two players on each side.
type TeamAssignment struct {
	A []uuid.UUID `json:"a"`
	B []uuid.UUID `json:"b"`
}

// SubmitMatchScoreRequest is the host's result for a full match.
type SubmitMatchScoreRequest struct {
	Scores []matchdomain.SetScore `json:"scores"`
	Teams  TeamAssignment         `json:"teams"`
}

// MatchView is a match with its participants. Ratings is set when the
// operation verified the result.
type MatchView struct {
	Match        *matchdb.Match             `json:"match"`
	Participants []matchdb.MatchParticipant `json:"participants"`
	Ratings      []matchdomain.RatingUpdate `json:"ratings,omitempty"`
}

// SweepReport summarizes one auto-verify pass.
type SweepReport struct {
	Due      int         `json:"due"`
	Verified []uuid.UUID `json:"verified"`
	Skipped  int         `json:"skipped"`
	Failed   int         `json:"failed"`
}
