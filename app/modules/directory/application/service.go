package directoryservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	directorydomain "github.com/Black-And-White-Club/club-ladder/app/modules/directory/domain"
	directorydb "github.com/Black-And-White-Club/club-ladder/app/modules/directory/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DirectoryService serves player lookups to the ladder and match modules.
type DirectoryService struct {
	repo   directorydb.Repository
	logger *slog.Logger
	db     bun.IDB
}

func NewDirectoryService(repo directorydb.Repository, logger *slog.Logger, db bun.IDB) *DirectoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryService{repo: repo, logger: logger, db: db}
}

func (s *DirectoryService) GetPlayer(ctx context.Context, id uuid.UUID) (*directorydomain.Player, error) {
	row, err := s.repo.GetPlayer(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, directorydb.ErrNotFound) {
			return nil, directorydomain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	p := toDomain(*row)
	return &p, nil
}

func (s *DirectoryService) GetPlayers(ctx context.Context, ids []uuid.UUID) ([]directorydomain.Player, error) {
	rows, err := s.repo.GetPlayers(ctx, s.db, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	if len(rows) < len(ids) {
		s.logger.DebugContext(ctx, "Directory lookup missed players",
			slog.Int("requested", len(ids)),
			slog.Int("found", len(rows)),
		)
	}
	out := make([]directorydomain.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomain(row))
	}
	return out, nil
}

// RegisterPlayer creates or updates a directory entry.
func (s *DirectoryService) RegisterPlayer(ctx context.Context, p directorydomain.Player) error {
	if p.ID == uuid.Nil {
		return errors.New("player id is required")
	}
	return s.repo.UpsertPlayer(ctx, s.db, &directorydb.Player{
		ID:        p.ID,
		Name:      p.Name,
		Rating:    p.Rating,
		AvatarURL: p.AvatarURL,
	})
}

func toDomain(row directorydb.Player) directorydomain.Player {
	return directorydomain.Player{
		ID:        row.ID,
		Name:      row.Name,
		Rating:    row.Rating,
		AvatarURL: row.AvatarURL,
	}
}

var _ directorydomain.Directory = (*DirectoryService)(nil)
