package authservice

import (
	"context"
	"time"

	authdomain "github.com/Black-And-White-Club/club-ladder/app/modules/auth/domain"
	"github.com/google/uuid"
)

// Service issues and checks player bearer tokens.
type Service interface {
	// IssueToken mints a bearer token for the player. ttl <= 0 uses the
	// configured default.
	IssueToken(ctx context.Context, playerID uuid.UUID, ttl time.Duration) (string, error)

	// Authenticate validates a bearer token and returns its claims. Every
	// failure is an authentication error.
	Authenticate(ctx context.Context, token string) (*authdomain.Claims, error)
}
