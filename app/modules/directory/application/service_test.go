package directoryservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	directorydomain "github.com/Black-And-White-Club/club-ladder/app/modules/directory/domain"
	directorydb "github.com/Black-And-White-Club/club-ladder/app/modules/directory/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type FakeDirectoryRepo struct {
	players   map[uuid.UUID]directorydb.Player
	upserted  []directorydb.Player
	failLoads bool
}

func (f *FakeDirectoryRepo) GetPlayer(_ context.Context, _ bun.IDB, id uuid.UUID) (*directorydb.Player, error) {
	if f.failLoads {
		return nil, errors.New("connection refused")
	}
	p, ok := f.players[id]
	if !ok {
		return nil, directorydb.ErrNotFound
	}
	return &p, nil
}

func (f *FakeDirectoryRepo) GetPlayers(_ context.Context, _ bun.IDB, ids []uuid.UUID) ([]directorydb.Player, error) {
	if f.failLoads {
		return nil, errors.New("connection refused")
	}
	var out []directorydb.Player
	for _, id := range ids {
		if p, ok := f.players[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *FakeDirectoryRepo) UpsertPlayer(_ context.Context, _ bun.IDB, p *directorydb.Player) error {
	f.upserted = append(f.upserted, *p)
	return nil
}

var _ directorydb.Repository = (*FakeDirectoryRepo)(nil)

func TestGetPlayer(t *testing.T) {
	known := uuid.New()
	repo := &FakeDirectoryRepo{players: map[uuid.UUID]directorydb.Player{
		known: {ID: known, Name: "Ana Ruiz", Rating: 3.5},
	}}
	svc := NewDirectoryService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	p, err := svc.GetPlayer(context.Background(), known)
	require.NoError(t, err)
	assert.Equal(t, "Ana Ruiz", p.Name)

	_, err = svc.GetPlayer(context.Background(), uuid.New())
	assert.ErrorIs(t, err, directorydomain.ErrPlayerNotFound)

	repo.failLoads = true
	_, err = svc.GetPlayer(context.Background(), known)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, directorydomain.ErrPlayerNotFound)
}

func TestGetPlayersSkipsUnknown(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	repo := &FakeDirectoryRepo{players: map[uuid.UUID]directorydb.Player{
		a: {ID: a, Name: "Ana"},
		b: {ID: b, Name: "Ben"},
	}}
	svc := NewDirectoryService(repo, nil, nil)

	players, err := svc.GetPlayers(context.Background(), []uuid.UUID{a, uuid.New(), b})
	require.NoError(t, err)
	index := directorydomain.Index(players)
	assert.Len(t, index, 2)
	assert.Equal(t, "Ben", index[b].Name)
}

func TestRegisterPlayer(t *testing.T) {
	repo := &FakeDirectoryRepo{}
	svc := NewDirectoryService(repo, nil, nil)

	assert.Error(t, svc.RegisterPlayer(context.Background(), directorydomain.Player{Name: "no id"}))

	id := uuid.New()
	require.NoError(t, svc.RegisterPlayer(context.Background(), directorydomain.Player{ID: id, Name: "Cleo", Rating: 4}))
	require.Len(t, repo.upserted, 1)
	assert.Equal(t, id, repo.upserted[0].ID)
}
