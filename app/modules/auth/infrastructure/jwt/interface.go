package authjwt

import (
	"time"

	authdomain "github.com/Black-And-White-Club/club-ladder/app/modules/auth/domain"
	"github.com/google/uuid"
)

// Provider signs and verifies player bearer tokens.
type Provider interface {
	// GenerateToken creates a signed HS256 token for the player.
	GenerateToken(playerID uuid.UUID, ttl time.Duration) (string, error)

	// ValidateToken validates a token and returns its claims.
	ValidateToken(tokenString string) (*authdomain.Claims, error)
}
