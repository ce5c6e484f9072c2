package ladderdb

import (
	"context"

	ladderdomain "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines ladder persistence. Every method takes the handle to run
// on so services can pass a transaction.
type Repository interface {
	// AcquirePoolLock takes a pg_advisory_xact_lock on the pool.
	// Must be called within a transaction.
	AcquirePoolLock(ctx context.Context, db bun.IDB, pool ladderdomain.PoolKey) error

	GetTeam(ctx context.Context, db bun.IDB, teamID uuid.UUID) (*Team, error)

	// GetPoolTeams returns every team in the pool ordered by rank.
	GetPoolTeams(ctx context.Context, db bun.IDB, pool ladderdomain.PoolKey) ([]Team, error)

	// FindPlayerTeamInPool returns the team playerID plays on inside pool.
	FindPlayerTeamInPool(ctx context.Context, db bun.IDB, pool ladderdomain.PoolKey, playerID uuid.UUID) (*Team, error)

	InsertTeam(ctx context.Context, db bun.IDB, team *Team) error

	// UpdateTeamStatus moves a team from one status to another, returning
	// ErrStatusConflict when the team is no longer in from.
	UpdateTeamStatus(ctx context.Context, db bun.IDB, teamID uuid.UUID, from, to ladderdomain.TeamStatus) error

	// SetTeamRanks applies rank changes inside pool in the given order.
	SetTeamRanks(ctx context.Context, db bun.IDB, pool ladderdomain.PoolKey, changes []ladderdomain.RankChange) error

	// RecordTeamResult bumps matches_played and adds points; won also bumps
	// matches_won.
	RecordTeamResult(ctx context.Context, db bun.IDB, teamID uuid.UUID, won bool, points int) error

	InsertChallenge(ctx context.Context, db bun.IDB, challenge *Challenge) error

	GetChallenge(ctx context.Context, db bun.IDB, challengeID uuid.UUID) (*Challenge, error)

	// HasOpenChallenge reports whether the team is on either side of a
	// pending, accepted or pending_verification challenge.
	HasOpenChallenge(ctx context.Context, db bun.IDB, teamID uuid.UUID) (bool, error)

	// UpdateChallenge persists challenge if its stored status still equals
	// expected, returning ErrStatusConflict otherwise.
	UpdateChallenge(ctx context.Context, db bun.IDB, challenge *Challenge, expected ladderdomain.ChallengeStatus) error

	InsertHistory(ctx context.Context, db bun.IDB, entry *ChallengeHistoryEntry) error

	// ListTeamHistory returns the team's completed challenges, newest first.
	ListTeamHistory(ctx context.Context, db bun.IDB, teamID uuid.UUID, limit int) ([]ChallengeHistoryEntry, error)
}
