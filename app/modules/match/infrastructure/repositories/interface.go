package matchdb

import (
	"context"
	"time"

	matchdomain "github.com/Black-And-White-Club/club-ladder/app/modules/match/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines open-match persistence. Every method takes the handle to
// run on so services can pass a transaction.
type Repository interface {
	InsertMatch(ctx context.Context, db bun.IDB, match *Match) error

	GetMatch(ctx context.Context, db bun.IDB, matchID uuid.UUID) (*Match, error)

	// LockMatch reads the match with SELECT ... FOR UPDATE. Must be called
	// within a transaction.
	LockMatch(ctx context.Context, db bun.IDB, matchID uuid.UUID) (*Match, error)

	// UpdateMatch persists match if its stored status and result status still
	// equal expected, returning ErrStatusConflict otherwise.
	UpdateMatch(ctx context.Context, db bun.IDB, match *Match, expected State) error

	// ListDueForAutoVerify returns matches whose score has been waiting for
	// verification since before cutoff, oldest first.
	ListDueForAutoVerify(ctx context.Context, db bun.IDB, cutoff time.Time, limit int) ([]uuid.UUID, error)

	ListParticipants(ctx context.Context, db bun.IDB, matchID uuid.UUID) ([]MatchParticipant, error)

	InsertParticipant(ctx context.Context, db bun.IDB, participant *MatchParticipant) error

	// AcceptParticipant moves a pending participant to accepted, returning
	// ErrStatusConflict when the row is no longer pending.
	AcceptParticipant(ctx context.Context, db bun.IDB, matchID, playerID uuid.UUID) error

	// AssignTeams stores each player's team and clears every participant's
	// result_confirmed.
	AssignTeams(ctx context.Context, db bun.IDB, matchID uuid.UUID, teams map[uuid.UUID]matchdomain.Team) error

	// RecordResponse sets result_confirmed for an accepted participant whose
	// response is still NULL, returning ErrStatusConflict otherwise.
	RecordResponse(ctx context.Context, db bun.IDB, matchID, playerID uuid.UUID, confirmed bool) error

	// GetRatings returns the rating records that exist among playerIDs.
	GetRatings(ctx context.Context, db bun.IDB, playerIDs []uuid.UUID) ([]PlayerRating, error)

	// LockRatings reads the existing records among playerIDs with
	// SELECT ... FOR UPDATE in player_id order. Must be called within a
	// transaction.
	LockRatings(ctx context.Context, db bun.IDB, playerIDs []uuid.UUID) ([]PlayerRating, error)

	// SeedRatings inserts starting records, leaving existing rows untouched.
	SeedRatings(ctx context.Context, db bun.IDB, ratings []PlayerRating) error

	UpsertRatings(ctx context.Context, db bun.IDB, ratings []PlayerRating) error
}
