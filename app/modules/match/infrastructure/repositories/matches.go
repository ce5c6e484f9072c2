package matchdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	matchdomain "github.com/Black-And-White-Club/club-ladder/app/modules/match/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Impl implements Repository using Bun.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a match repository that falls back to db when a
// method is called with a nil handle.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) InsertMatch(ctx context.Context, db bun.IDB, match *Match) error {
	db = r.resolveDB(db)
	if match.ID == uuid.Nil {
		match.ID = uuid.New()
	}
	if _, err := db.NewInsert().Model(match).Exec(ctx); err != nil {
		return fmt.Errorf("matchdb.InsertMatch: %w", err)
	}
	return nil
}

func (r *Impl) GetMatch(ctx context.Context, db bun.IDB, matchID uuid.UUID) (*Match, error) {
	return r.selectMatch(ctx, db, matchID, false)
}

func (r *Impl) LockMatch(ctx context.Context, db bun.IDB, matchID uuid.UUID) (*Match, error) {
	return r.selectMatch(ctx, db, matchID, true)
}

func (r *Impl) selectMatch(ctx context.Context, db bun.IDB, matchID uuid.UUID, lock bool) (*Match, error) {
	db = r.resolveDB(db)
	match := new(Match)
	q := db.NewSelect().Model(match).Where("id = ?", matchID)
	if lock {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("matchdb.GetMatch: %w", err)
	}
	return match, nil
}

func (r *Impl) UpdateMatch(ctx context.Context, db bun.IDB, match *Match, expected State) error {
	db = r.resolveDB(db)
	match.UpdatedAt = time.Now().UTC()
	q := db.NewUpdate().
		Model(match).
		Column("current_players", "status", "result_status", "scores", "score_submitted_at",
			"verified_by", "verified_at", "updated_at").
		WherePK().
		Where("status = ?", expected.Status)
	if expected.Result == nil {
		q = q.Where("result_status IS NULL")
	} else {
		q = q.Where("result_status = ?", *expected.Result)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("matchdb.UpdateMatch: %w", err)
	}
	return expectOneRow(res, "matchdb.UpdateMatch")
}

func (r *Impl) ListDueForAutoVerify(ctx context.Context, db bun.IDB, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	db = r.resolveDB(db)
	var ids []uuid.UUID
	err := db.NewSelect().
		Model((*Match)(nil)).
		Column("id").
		Where("result_status = ?", matchdomain.ResultPendingVerification).
		Where("score_submitted_at <= ?", cutoff).
		Order("score_submitted_at ASC").
		Limit(limit).
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("matchdb.ListDueForAutoVerify: %w", err)
	}
	return ids, nil
}

func (r *Impl) ListParticipants(ctx context.Context, db bun.IDB, matchID uuid.UUID) ([]MatchParticipant, error) {
	db = r.resolveDB(db)
	var participants []MatchParticipant
	err := db.NewSelect().
		Model(&participants).
		Where("match_id = ?", matchID).
		Order("joined_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("matchdb.ListParticipants: %w", err)
	}
	return participants, nil
}

func (r *Impl) InsertParticipant(ctx context.Context, db bun.IDB, participant *MatchParticipant) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(participant).Exec(ctx); err != nil {
		return fmt.Errorf("matchdb.InsertParticipant: %w", err)
	}
	return nil
}

func (r *Impl) AcceptParticipant(ctx context.Context, db bun.IDB, matchID, playerID uuid.UUID) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*MatchParticipant)(nil)).
		Set("status = ?", matchdomain.ParticipantAccepted).
		Where("match_id = ?", matchID).
		Where("player_id = ?", playerID).
		Where("status = ?", matchdomain.ParticipantPending).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("matchdb.AcceptParticipant: %w", err)
	}
	return expectOneRow(res, "matchdb.AcceptParticipant")
}

func (r *Impl) AssignTeams(ctx context.Context, db bun.IDB, matchID uuid.UUID, teams map[uuid.UUID]matchdomain.Team) error {
	db = r.resolveDB(db)
	if _, err := db.NewUpdate().
		Model((*MatchParticipant)(nil)).
		Set("team = NULL").
		Set("result_confirmed = NULL").
		Where("match_id = ?", matchID).
		Exec(ctx); err != nil {
		return fmt.Errorf("matchdb.AssignTeams: reset: %w", err)
	}
	for playerID, team := range teams {
		res, err := db.NewUpdate().
			Model((*MatchParticipant)(nil)).
			Set("team = ?", team).
			Where("match_id = ?", matchID).
			Where("player_id = ?", playerID).
			Where("status = ?", matchdomain.ParticipantAccepted).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("matchdb.AssignTeams: %w", err)
		}
		if err := expectOneRow(res, "matchdb.AssignTeams"); err != nil {
			return err
		}
	}
	return nil
}

func (r *Impl) RecordResponse(ctx context.Context, db bun.IDB, matchID, playerID uuid.UUID, confirmed bool) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*MatchParticipant)(nil)).
		Set("result_confirmed = ?", confirmed).
		Where("match_id = ?", matchID).
		Where("player_id = ?", playerID).
		Where("status = ?", matchdomain.ParticipantAccepted).
		Where("result_confirmed IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("matchdb.RecordResponse: %w", err)
	}
	return expectOneRow(res, "matchdb.RecordResponse")
}

func (r *Impl) GetRatings(ctx context.Context, db bun.IDB, playerIDs []uuid.UUID) ([]PlayerRating, error) {
	if len(playerIDs) == 0 {
		return nil, nil
	}
	db = r.resolveDB(db)
	var ratings []PlayerRating
	err := db.NewSelect().
		Model(&ratings).
		Where("player_id IN (?)", bun.In(playerIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("matchdb.GetRatings: %w", err)
	}
	return ratings, nil
}

func (r *Impl) LockRatings(ctx context.Context, db bun.IDB, playerIDs []uuid.UUID) ([]PlayerRating, error) {
	if len(playerIDs) == 0 {
		return nil, nil
	}
	db = r.resolveDB(db)
	var ratings []PlayerRating
	err := db.NewSelect().
		Model(&ratings).
		Where("player_id IN (?)", bun.In(playerIDs)).
		Order("player_id ASC").
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("matchdb.LockRatings: %w", err)
	}
	return ratings, nil
}

func (r *Impl) SeedRatings(ctx context.Context, db bun.IDB, ratings []PlayerRating) error {
	if len(ratings) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	sort.Slice(ratings, func(i, j int) bool {
		return ratings[i].PlayerID.String() < ratings[j].PlayerID.String()
	})
	_, err := db.NewInsert().
		Model(&ratings).
		On("CONFLICT (player_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("matchdb.SeedRatings: %w", err)
	}
	return nil
}

func (r *Impl) UpsertRatings(ctx context.Context, db bun.IDB, ratings []PlayerRating) error {
	if len(ratings) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	now := time.Now().UTC()
	for i := range ratings {
		ratings[i].UpdatedAt = now
	}
	_, err := db.NewInsert().
		Model(&ratings).
		On("CONFLICT (player_id) DO UPDATE").
		Set("skill_level = EXCLUDED.skill_level").
		Set("matches_played = EXCLUDED.matches_played").
		Set("matches_won = EXCLUDED.matches_won").
		Set("reliability_percentage = EXCLUDED.reliability_percentage").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("matchdb.UpsertRatings: %w", err)
	}
	return nil
}

func expectOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrStatusConflict
	}
	return nil
}
