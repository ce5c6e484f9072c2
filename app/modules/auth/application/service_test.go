package authservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	authdomain "github.com/Black-And-White-Club/club-ladder/app/modules/auth/domain"
	authjwt "github.com/Black-And-White-Club/club-ladder/app/modules/auth/infrastructure/jwt"
	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestService(p authjwt.Provider, ttl time.Duration) Service {
	return NewService(p, Config{DefaultTTL: ttl}, slog.New(slog.NewTextHandler(io.Discard, nil)), noop.NewTracerProvider().Tracer("test"))
}

func TestService_IssueToken(t *testing.T) {
	playerID := uuid.New()

	tests := []struct {
		name    string
		ttl     time.Duration
		fakeErr error
		wantTTL time.Duration
		wantErr bool
	}{
		{name: "explicit ttl", ttl: time.Hour, wantTTL: time.Hour},
		{name: "default ttl", wantTTL: 12 * time.Hour},
		{name: "provider failure", ttl: time.Hour, fakeErr: errors.New("sign"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotTTL time.Duration
			fake := &FakeJWTProvider{
				GenerateTokenFunc: func(id uuid.UUID, ttl time.Duration) (string, error) {
					assert.Equal(t, playerID, id)
					gotTTL = ttl
					return "signed", tt.fakeErr
				},
			}
			svc := newTestService(fake, 12*time.Hour)

			token, err := svc.IssueToken(context.Background(), playerID, tt.ttl)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "signed", token)
			assert.Equal(t, tt.wantTTL, gotTTL)
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	playerID := uuid.New()

	tests := []struct {
		name      string
		token     string
		validate  func(string) (*authdomain.Claims, error)
		wantErr   error
		wantCalls int
	}{
		{
			name:  "valid",
			token: "good",
			validate: func(string) (*authdomain.Claims, error) {
				return &authdomain.Claims{PlayerID: playerID}, nil
			},
			wantCalls: 1,
		},
		{name: "blank", token: "  ", wantErr: ErrMissingToken},
		{
			name:      "expired",
			token:     "old",
			validate:  func(string) (*authdomain.Claims, error) { return nil, authjwt.ErrExpiredToken },
			wantErr:   ErrExpiredToken,
			wantCalls: 1,
		},
		{
			name:      "bad signature",
			token:     "forged",
			validate:  func(string) (*authdomain.Claims, error) { return nil, authjwt.ErrInvalidSignature },
			wantErr:   ErrInvalidToken,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &FakeJWTProvider{ValidateTokenFunc: tt.validate}
			svc := newTestService(fake, 0)

			claims, err := svc.Authenticate(context.Background(), tt.token)
			assert.Len(t, fake.Trace(), tt.wantCalls)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, apperrors.Is(err, apperrors.KindAuthentication))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, playerID, claims.PlayerID)
		})
	}
}

func TestService_RoundTripWithRealProvider(t *testing.T) {
	svc := newTestService(authjwt.NewProvider("test-secret-at-least-32-chars-long!!", "club-ladder"), time.Hour)
	playerID := uuid.New()

	token, err := svc.IssueToken(context.Background(), playerID, 0)
	require.NoError(t, err)

	claims, err := svc.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, playerID, claims.PlayerID)
}
