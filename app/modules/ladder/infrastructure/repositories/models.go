package ladderdb

import (
	"time"

	ladderdomain "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Team is a two-player ladder entry ranked inside one (club, tier) pool.
type Team struct {
	bun.BaseModel `bun:"table:ladder_teams,alias:lt"`

	ID            uuid.UUID               `bun:"id,pk,type:uuid" json:"id"`
	ClubID        uuid.UUID               `bun:"club_id,type:uuid,notnull" json:"club_id"`
	Tier          string                  `bun:"tier,notnull" json:"tier"`
	Name          string                  `bun:"name,notnull" json:"name"`
	Rank          int                     `bun:"rank,notnull" json:"rank"`
	Points        int                     `bun:"points,notnull,default:0" json:"points"`
	Status        ladderdomain.TeamStatus `bun:"status,notnull,default:'active'" json:"status"`
	MatchesPlayed int                     `bun:"matches_played,notnull,default:0" json:"matches_played"`
	MatchesWon    int                     `bun:"matches_won,notnull,default:0" json:"matches_won"`
	Player1ID     uuid.UUID               `bun:"player1_id,type:uuid,notnull" json:"player1_id"`
	Player2ID     uuid.UUID               `bun:"player2_id,type:uuid,notnull" json:"player2_id"`
	CreatedAt     time.Time               `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time               `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

func (t *Team) Pool() ladderdomain.PoolKey {
	return ladderdomain.PoolKey{ClubID: t.ClubID, Tier: t.Tier}
}

// HasPlayer reports whether playerID is one of the team's two players.
func (t *Team) HasPlayer(playerID uuid.UUID) bool {
	return t.Player1ID == playerID || t.Player2ID == playerID
}

// Challenge is a lower-ranked team's request to play a higher-ranked team.
type Challenge struct {
	bun.BaseModel `bun:"table:ladder_challenges,alias:lc"`

	ID               uuid.UUID                    `bun:"id,pk,type:uuid" json:"id"`
	ClubID           uuid.UUID                    `bun:"club_id,type:uuid,notnull" json:"club_id"`
	Tier             string                       `bun:"tier,notnull" json:"tier"`
	ChallengerTeamID uuid.UUID                    `bun:"challenger_team_id,type:uuid,notnull" json:"challenger_team_id"`
	DefenderTeamID   uuid.UUID                    `bun:"defender_team_id,type:uuid,notnull" json:"defender_team_id"`
	ChallengerRank   int                          `bun:"challenger_rank,notnull" json:"challenger_rank"`
	DefenderRank     int                          `bun:"defender_rank,notnull" json:"defender_rank"`
	Status           ladderdomain.ChallengeStatus `bun:"status,notnull" json:"status"`
	Result           *ladderdomain.Result         `bun:"result" json:"result,omitempty"`
	Scores           []ladderdomain.SetScore      `bun:"scores,type:jsonb" json:"scores"`
	ScheduledDate    *time.Time                   `bun:"scheduled_date,type:date" json:"scheduled_date,omitempty"`
	ScheduledTime    *string                      `bun:"scheduled_time" json:"scheduled_time,omitempty"`
	Venue            *string                      `bun:"venue" json:"venue,omitempty"`
	SubmittedBy      *uuid.UUID                   `bun:"submitted_by,type:uuid" json:"submitted_by,omitempty"`
	CompletedAt      *time.Time                   `bun:"completed_at" json:"completed_at,omitempty"`
	CreatedAt        time.Time                    `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time                    `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

func (c *Challenge) Pool() ladderdomain.PoolKey {
	return ladderdomain.PoolKey{ClubID: c.ClubID, Tier: c.Tier}
}

// ChallengeHistoryEntry is written once when a challenge completes and is
// never updated.
type ChallengeHistoryEntry struct {
	bun.BaseModel `bun:"table:ladder_challenge_history,alias:lh"`

	ID                   int64                   `bun:"id,pk,autoincrement" json:"id"`
	ChallengeID          uuid.UUID               `bun:"challenge_id,type:uuid,notnull,unique" json:"challenge_id"`
	ClubID               uuid.UUID               `bun:"club_id,type:uuid,notnull" json:"club_id"`
	Tier                 string                  `bun:"tier,notnull" json:"tier"`
	ChallengerTeamID     uuid.UUID               `bun:"challenger_team_id,type:uuid,notnull" json:"challenger_team_id"`
	DefenderTeamID       uuid.UUID               `bun:"defender_team_id,type:uuid,notnull" json:"defender_team_id"`
	Result               ladderdomain.Result     `bun:"result,notnull" json:"result"`
	Forfeit              bool                    `bun:"forfeit,notnull,default:false" json:"forfeit"`
	ChallengerRankBefore int                     `bun:"challenger_rank_before,notnull" json:"challenger_rank_before"`
	ChallengerRankAfter  int                     `bun:"challenger_rank_after,notnull" json:"challenger_rank_after"`
	DefenderRankBefore   int                     `bun:"defender_rank_before,notnull" json:"defender_rank_before"`
	DefenderRankAfter    int                     `bun:"defender_rank_after,notnull" json:"defender_rank_after"`
	Scores               []ladderdomain.SetScore `bun:"scores,type:jsonb,notnull" json:"scores"`
	RecordedAt           time.Time               `bun:"recorded_at,nullzero,notnull,default:current_timestamp" json:"recorded_at"`
}
