package directorydb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrNotFound indicates the requested player does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines player directory persistence.
type Repository interface {
	GetPlayer(ctx context.Context, db bun.IDB, id uuid.UUID) (*Player, error)
	GetPlayers(ctx context.Context, db bun.IDB, ids []uuid.UUID) ([]Player, error)
	UpsertPlayer(ctx context.Context, db bun.IDB, player *Player) error
}

type Impl struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) GetPlayer(ctx context.Context, db bun.IDB, id uuid.UUID) (*Player, error) {
	db = r.resolveDB(db)
	player := new(Player)
	err := db.NewSelect().Model(player).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("directorydb.GetPlayer: %w", err)
	}
	return player, nil
}

func (r *Impl) GetPlayers(ctx context.Context, db bun.IDB, ids []uuid.UUID) ([]Player, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	db = r.resolveDB(db)
	var players []Player
	err := db.NewSelect().
		Model(&players).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("directorydb.GetPlayers: %w", err)
	}
	return players, nil
}

func (r *Impl) UpsertPlayer(ctx context.Context, db bun.IDB, player *Player) error {
	db = r.resolveDB(db)
	player.UpdatedAt = time.Now().UTC()
	_, err := db.NewInsert().
		Model(player).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("rating = EXCLUDED.rating").
		Set("avatar_url = EXCLUDED.avatar_url").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("directorydb.UpsertPlayer: %w", err)
	}
	return nil
}
