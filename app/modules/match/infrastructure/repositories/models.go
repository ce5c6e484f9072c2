package matchdb

import (
	"time"

	matchdomain "github.com/Black-And-White-Club/club-ladder/app/modules/match/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Match is an ad-hoc doubles game hosted by one player.
type Match struct {
	bun.BaseModel `bun:"table:matches,alias:m"`

	ID               uuid.UUID                 `bun:"id,pk,type:uuid" json:"id"`
	CreatorID        uuid.UUID                 `bun:"creator_id,type:uuid,notnull" json:"creator_id"`
	MaxPlayers       int                       `bun:"max_players,notnull" json:"max_players"`
	CurrentPlayers   int                       `bun:"current_players,notnull" json:"current_players"`
	SkillMin         float64                   `bun:"skill_min,notnull" json:"skill_min"`
	SkillMax         float64                   `bun:"skill_max,notnull" json:"skill_max"`
	Venue            *string                   `bun:"venue" json:"venue,omitempty"`
	ScheduledAt      *time.Time                `bun:"scheduled_at" json:"scheduled_at,omitempty"`
	Status           matchdomain.MatchStatus   `bun:"status,notnull" json:"status"`
	ResultStatus     *matchdomain.ResultStatus `bun:"result_status" json:"result_status,omitempty"`
	Scores           []matchdomain.SetScore    `bun:"scores,type:jsonb" json:"scores,omitempty"`
	ScoreSubmittedAt *time.Time                `bun:"score_submitted_at" json:"score_submitted_at,omitempty"`
	VerifiedBy       *uuid.UUID                `bun:"verified_by,type:uuid" json:"verified_by,omitempty"`
	VerifiedAt       *time.Time                `bun:"verified_at" json:"verified_at,omitempty"`
	CreatedAt        time.Time                 `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time                 `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// State is the pair of columns every match compare-and-set checks.
type State struct {
	Status matchdomain.MatchStatus
	Result *matchdomain.ResultStatus
}

func (m *Match) State() State {
	return State{Status: m.Status, Result: m.ResultStatus}
}

// ResultLabel names the result status, "none" before a score is submitted.
func (m *Match) ResultLabel() string {
	if m.ResultStatus == nil {
		return "none"
	}
	return string(*m.ResultStatus)
}

// MatchParticipant is one player's membership in a match.
type MatchParticipant struct {
	bun.BaseModel `bun:"table:match_participants,alias:mp"`

	MatchID         uuid.UUID                     `bun:"match_id,pk,type:uuid" json:"match_id"`
	PlayerID        uuid.UUID                     `bun:"player_id,pk,type:uuid" json:"player_id"`
	Status          matchdomain.ParticipantStatus `bun:"status,notnull" json:"status"`
	Team            *matchdomain.Team             `bun:"team" json:"team,omitempty"`
	ResultConfirmed *bool                         `bun:"result_confirmed" json:"result_confirmed,omitempty"`
	JoinedAt        time.Time                     `bun:"joined_at,nullzero,notnull,default:current_timestamp" json:"joined_at"`
}

// PlayerRating is a player's open-match rating record.
type PlayerRating struct {
	bun.BaseModel `bun:"table:player_ratings,alias:pr"`

	PlayerID              uuid.UUID `bun:"player_id,pk,type:uuid" json:"player_id"`
	SkillLevel            float64   `bun:"skill_level,notnull" json:"skill_level"`
	MatchesPlayed         int       `bun:"matches_played,notnull,default:0" json:"matches_played"`
	MatchesWon            int       `bun:"matches_won,notnull,default:0" json:"matches_won"`
	ReliabilityPercentage int       `bun:"reliability_percentage,notnull,default:0" json:"reliability_percentage"`
	UpdatedAt             time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}
