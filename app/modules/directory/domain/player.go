package directorydomain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrPlayerNotFound is returned by GetPlayer for unknown ids.
var ErrPlayerNotFound = errors.New("player not found")

// Player is the public profile the club directory exposes.
type Player struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Rating    float64   `json:"rating"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
}

// Directory looks players up by id.
type Directory interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (*Player, error)

	// GetPlayers returns the players that exist among ids, in no particular
	// order. Unknown ids are skipped.
	GetPlayers(ctx context.Context, ids []uuid.UUID) ([]Player, error)
}

// Index maps players by id.
func Index(players []Player) map[uuid.UUID]Player {
	out := make(map[uuid.UUID]Player, len(players))
	for _, p := range players {
		out[p.ID] = p
	}
	return out
}
