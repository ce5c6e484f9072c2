package ladderdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	ladderdomain "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var openChallengeStatuses = []ladderdomain.ChallengeStatus{
	ladderdomain.ChallengeStatusPending,
	ladderdomain.ChallengeStatusAccepted,
	ladderdomain.ChallengeStatusPendingVerification,
}

// Impl implements Repository using Bun.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a ladder repository that falls back to db when a
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

func (r *Impl) AcquirePoolLock(ctx context.Context, db bun.IDB, pool ladderdomain.PoolKey) error {
	db = r.resolveDB(db)
	_, err := db.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", "ladder:"+pool.String()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("ladderdb.AcquirePoolLock: %w", err)
	}
	return nil
}

func (r *Impl) GetTeam(ctx context.Context, db bun.IDB, teamID uuid.UUID) (*Team, error) {
	db = r.resolveDB(db)
	team := new(Team)
	err := db.NewSelect().
		Model(team).
		Where("id = ?", teamID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ladderdb.GetTeam: %w", err)
	}
	return team, nil
}

func (r *Impl) GetPoolTeams(ctx context.Context, db bun.IDB, pool ladderdomain.PoolKey) ([]Team, error) {
	db = r.resolveDB(db)
	var teams []Team
	err := db.NewSelect().
		Model(&teams).
		Where("club_id = ?", pool.ClubID).
		Where("tier = ?", pool.Tier).
		Order("rank ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("ladderdb.GetPoolTeams: %w", err)
	}
	return teams, nil
}

func (r *Impl) FindPlayerTeamInPool(ctx context.Context, db bun.IDB, pool ladderdomain.PoolKey, playerID uuid.UUID) (*Team, error) {
	db = r.resolveDB(db)
	team := new(Team)
	err := db.NewSelect().
		Model(team).
		Where("club_id = ?", pool.ClubID).
		Where("tier = ?", pool.Tier).
		Where("player1_id = ? OR player2_id = ?", playerID, playerID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ladderdb.FindPlayerTeamInPool: %w", err)
	}
	return team, nil
}

func (r *Impl) InsertTeam(ctx context.Context, db bun.IDB, team *Team) error {
	db = r.resolveDB(db)
	if team.ID == uuid.Nil {
		team.ID = uuid.New()
	}
	if _, err := db.NewInsert().Model(team).Exec(ctx); err != nil {
		return fmt.Errorf("ladderdb.InsertTeam: %w", err)
	}
	return nil
}

func (r *Impl) UpdateTeamStatus(ctx context.Context, db bun.IDB, teamID uuid.UUID, from, to ladderdomain.TeamStatus) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Team)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", teamID).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ladderdb.UpdateTeamStatus: %w", err)
	}
	return expectOneRow(res, "ladderdb.UpdateTeamStatus")
}

func (r *Impl) SetTeamRanks(ctx context.Context, db bun.IDB, pool ladderdomain.PoolKey, changes []ladderdomain.RankChange) error {
	db = r.resolveDB(db)
	now := time.Now().UTC()
	for _, c := range changes {
		res, err := db.NewUpdate().
			Model((*Team)(nil)).
			Set("rank = ?", c.NewRank).
			Set("updated_at = ?", now).
			Where("id = ?", c.TeamID).
			Where("club_id = ?", pool.ClubID).
			Where("tier = ?", pool.Tier).
			Where("rank = ?", c.OldRank).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("ladderdb.SetTeamRanks: %w", err)
		}
		if err := expectOneRow(res, "ladderdb.SetTeamRanks"); err != nil {
			return err
		}
	}
	return nil
}

func (r *Impl) RecordTeamResult(ctx context.Context, db bun.IDB, teamID uuid.UUID, won bool, points int) error {
	db = r.resolveDB(db)
	wonIncrement := 0
	if won {
		wonIncrement = 1
	}
	res, err := db.NewUpdate().
		Model((*Team)(nil)).
		Set("matches_played = matches_played + 1").
		Set("matches_won = matches_won + ?", wonIncrement).
		Set("points = points + ?", points).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", teamID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ladderdb.RecordTeamResult: %w", err)
	}
	return expectOneRow(res, "ladderdb.RecordTeamResult")
}

func (r *Impl) InsertChallenge(ctx context.Context, db bun.IDB, challenge *Challenge) error {
	db = r.resolveDB(db)
	if challenge.ID == uuid.Nil {
		challenge.ID = uuid.New()
	}
	if _, err := db.NewInsert().Model(challenge).Exec(ctx); err != nil {
		return fmt.Errorf("ladderdb.InsertChallenge: %w", err)
	}
	return nil
}

func (r *Impl) GetChallenge(ctx context.Context, db bun.IDB, challengeID uuid.UUID) (*Challenge, error) {
	db = r.resolveDB(db)
	challenge := new(Challenge)
	err := db.NewSelect().
		Model(challenge).
		Where("id = ?", challengeID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ladderdb.GetChallenge: %w", err)
	}
	return challenge, nil
}

func (r *Impl) HasOpenChallenge(ctx context.Context, db bun.IDB, teamID uuid.UUID) (bool, error) {
	db = r.resolveDB(db)
	exists, err := db.NewSelect().
		Model((*Challenge)(nil)).
		Where("challenger_team_id = ? OR defender_team_id = ?", teamID, teamID).
		Where("status IN (?)", bun.In(openChallengeStatuses)).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("ladderdb.HasOpenChallenge: %w", err)
	}
	return exists, nil
}

func (r *Impl) UpdateChallenge(ctx context.Context, db bun.IDB, challenge *Challenge, expected ladderdomain.ChallengeStatus) error {
	db = r.resolveDB(db)
	challenge.UpdatedAt = time.Now().UTC()
	res, err := db.NewUpdate().
		Model(challenge).
		Column("status", "result", "scores", "submitted_by", "completed_at", "updated_at").
		WherePK().
		Where("status = ?", expected).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("ladderdb.UpdateChallenge: %w", err)
	}
	return expectOneRow(res, "ladderdb.UpdateChallenge")
}

func (r *Impl) InsertHistory(ctx context.Context, db bun.IDB, entry *ChallengeHistoryEntry) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("ladderdb.InsertHistory: %w", err)
	}
	return nil
}

func (r *Impl) ListTeamHistory(ctx context.Context, db bun.IDB, teamID uuid.UUID, limit int) ([]ChallengeHistoryEntry, error) {
	db = r.resolveDB(db)
	var entries []ChallengeHistoryEntry
	q := db.NewSelect().
		Model(&entries).
		Where("challenger_team_id = ? OR defender_team_id = ?", teamID, teamID).
		Order("recorded_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("ladderdb.ListTeamHistory: %w", err)
	}
	return entries, nil
}

func expectOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrStatusConflict)
	}
	return nil
}
