package directorydb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Player is a row of the club's player directory.
type Player struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Name      string    `bun:"name,notnull"`
	Rating    float64   `bun:"rating,notnull,default:0"`
	AvatarURL *string   `bun:"avatar_url"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
