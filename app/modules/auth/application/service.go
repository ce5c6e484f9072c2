package authservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	authdomain "github.com/Black-And-White-Club/club-ladder/app/modules/auth/domain"
	authjwt "github.com/Black-And-White-Club/club-ladder/app/modules/auth/infrastructure/jwt"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the configuration for the auth service.
type Config struct {
	DefaultTTL time.Duration
}

// DefaultTokenTTL applies when Config.DefaultTTL is unset.
const DefaultTokenTTL = 24 * time.Hour

// service implements the Service interface.
type service struct {
	jwtProvider authjwt.Provider
	config      Config
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewService creates a new auth service.
func NewService(
	jwtProvider authjwt.Provider,
	config Config,
	logger *slog.Logger,
	tracer trace.Tracer,
) Service {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = DefaultTokenTTL
	}
	return &service{
		jwtProvider: jwtProvider,
		config:      config,
		logger:      logger,
		tracer:      tracer,
	}
}

func (s *service) IssueToken(ctx context.Context, playerID uuid.UUID, ttl time.Duration) (string, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.IssueToken")
	defer span.End()

	if ttl <= 0 {
		ttl = s.config.DefaultTTL
	}
	token, err := s.jwtProvider.GenerateToken(playerID, ttl)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "Issued bearer token",
		slog.String("player_id", playerID.String()),
		slog.Duration("ttl", ttl),
	)
	return token, nil
}

func (s *service) Authenticate(ctx context.Context, token string) (*authdomain.Claims, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Authenticate")
	defer span.End()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := s.jwtProvider.ValidateToken(token)
	if err != nil {
		s.logger.WarnContext(ctx, "Bearer token rejected", slog.String("error", err.Error()))
		if errors.Is(err, authjwt.ErrExpiredToken) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	return claims, nil
}
