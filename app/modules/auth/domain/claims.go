package authdomain

import (
	"time"

	"github.com/google/uuid"
)

// Claims identifies the player behind a bearer token.
type Claims struct {
	PlayerID  uuid.UUID
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// IsExpired checks if the claims have expired at now.
func (c *Claims) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}
