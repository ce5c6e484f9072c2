package auth

import (
	"context"
	"log/slog"
	"net/http"

	authservice "github.com/Black-And-White-Club/club-ladder/app/modules/auth/application"
	authhandlers "github.com/Black-And-White-Club/club-ladder/app/modules/auth/infrastructure/handlers"
	authjwt "github.com/Black-And-White-Club/club-ladder/app/modules/auth/infrastructure/jwt"
	"github.com/Black-And-White-Club/club-ladder/app/observability"
	"github.com/Black-And-White-Club/club-ladder/app/shared/httpx"
	"github.com/Black-And-White-Club/club-ladder/config"
	"github.com/go-chi/chi/v5"
)

// Request budgets. The address budget is charged before authentication,
// the player budget after it.
const (
	addressRequestsPerSecond = 20
	addressBurst             = 40
	playerRequestsPerSecond  = 10
	playerBurst              = 20
)

// Module owns bearer authentication and the edge middleware every API route
// runs behind.
type Module struct {
	service       authservice.Service
	addressLimits *authhandlers.KeyedRateLimiter
	playerLimits  *authhandlers.KeyedRateLimiter
	origins       []string
	logger        *slog.Logger
}

// NewModule creates the auth module.
func NewModule(ctx context.Context, cfg *config.Config, obs observability.Observability) *Module {
	logger := obs.Logger
	logger.InfoContext(ctx, "Initializing auth module")

	jwtProvider := authjwt.NewProvider(cfg.JWT.Secret, cfg.JWT.Issuer)
	service := authservice.NewService(jwtProvider, authservice.Config{DefaultTTL: cfg.JWT.DefaultTTL}, logger, obs.Tracer)

	return &Module{
		service:       service,
		addressLimits: authhandlers.NewKeyedRateLimiter(addressRequestsPerSecond, addressBurst),
		playerLimits:  authhandlers.NewKeyedRateLimiter(playerRequestsPerSecond, playerBurst),
		origins:       cfg.HTTP.AllowedOrigins,
		logger:        logger,
	}
}

// CORS returns the cross-origin middleware. It must wrap the root router so
// preflight requests are answered before routing.
func (m *Module) CORS() func(http.Handler) http.Handler {
	return authhandlers.CORSMiddleware(m.origins)
}

// Protect installs rate limiting and bearer authentication on r.
func (m *Module) Protect(r chi.Router) {
	r.Use(authhandlers.RateLimitMiddleware(m.addressLimits, authhandlers.ClientIP))
	r.Use(authhandlers.BearerAuth(m.service, m.logger))
	r.Use(authhandlers.RateLimitMiddleware(m.playerLimits, authhandlers.PlayerOrIP))
}

// RegisterRoutes mounts the authenticated /api/auth endpoints.
func (m *Module) RegisterRoutes(r chi.Router) {
	r.Get("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		playerID, _ := authhandlers.PlayerIDFromContext(r.Context())
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"player_id": playerID.String()})
	})
}

// GetService returns the auth service for use by other modules.
func (m *Module) GetService() authservice.Service {
	return m.service
}
