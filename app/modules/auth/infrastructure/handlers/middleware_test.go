package authhandlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authservice "github.com/Black-And-White-Club/club-ladder/app/modules/auth/application"
	authdomain "github.com/Black-And-White-Club/club-ladder/app/modules/auth/domain"
	"github.com/Black-And-White-Club/club-ladder/app/shared/httpx"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	tokens map[string]uuid.UUID
	seen   []string
}

func (f *fakeAuth) IssueToken(ctx context.Context, playerID uuid.UUID, ttl time.Duration) (string, error) {
	return "", nil
}

func (f *fakeAuth) Authenticate(ctx context.Context, token string) (*authdomain.Claims, error) {
	f.seen = append(f.seen, token)
	if token == "" {
		return nil, authservice.ErrMissingToken
	}
	id, ok := f.tokens[token]
	if !ok {
		return nil, authservice.ErrInvalidToken
	}
	return &authdomain.Claims{PlayerID: id}, nil
}

func TestBearerAuth(t *testing.T) {
	playerID := uuid.New()
	auth := &fakeAuth{tokens: map[string]uuid.UUID{"good": playerID}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var gotID uuid.UUID
	handler := BearerAuth(auth, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := PlayerIDFromContext(r.Context())
		require.True(t, ok)
		gotID = id
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantToken  string
	}{
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusNoContent, wantToken: "good"},
		{name: "lowercase scheme", header: "bearer good", wantStatus: http.StatusNoContent, wantToken: "good"},
		{name: "missing header", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic Zm9vOmJhcg==", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer forged", wantStatus: http.StatusUnauthorized, wantToken: "forged"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID = uuid.Nil
			auth.seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/ladder/challenges/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			require.Len(t, auth.seen, 1)
			assert.Equal(t, tt.wantToken, auth.seen[0])
			if tt.wantStatus == http.StatusNoContent {
				assert.Equal(t, playerID, gotID)
				return
			}
			var body httpx.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "authentication_error", body.Kind)
			assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestPlayerIDFromContext_Missing(t *testing.T) {
	_, ok := PlayerIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = PlayerIDFromContext(WithPlayerID(context.Background(), uuid.Nil))
	assert.False(t, ok)
}

func TestRateLimitMiddleware(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	request := func(addr string, player uuid.UUID) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		if player != uuid.Nil {
			req = req.WithContext(WithPlayerID(req.Context(), player))
		}
		return req
	}

	tests := []struct {
		name string
		key  KeyFunc
		reqs []*http.Request
		want []int
	}{
		{
			name: "by address",
			key:  ClientIP,
			reqs: []*http.Request{
				request("10.0.0.1:5555", uuid.Nil),
				request("10.0.0.1:6666", uuid.Nil),
				request("10.0.0.1:7777", uuid.Nil),
				request("10.0.0.2:5555", uuid.Nil),
			},
			want: []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusOK},
		},
		{
			name: "players sharing an address",
			key:  PlayerOrIP,
			reqs: []*http.Request{
				request("10.0.0.1:5555", alice),
				request("10.0.0.1:5555", alice),
				request("10.0.0.1:5555", alice),
				request("10.0.0.1:5555", bob),
			},
			want: []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusOK},
		},
		{
			name: "anonymous falls back to address",
			key:  PlayerOrIP,
			reqs: []*http.Request{
				request("10.0.0.9", uuid.Nil),
				request("10.0.0.9", uuid.Nil),
				request("10.0.0.9", uuid.Nil),
			},
			want: []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewKeyedRateLimiter(0, 2)
			handler := RateLimitMiddleware(limiter, tt.key)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			codes := make([]int, 0, len(tt.reqs))
			for _, req := range tt.reqs {
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
				codes = append(codes, rec.Code)
				if rec.Code == http.StatusTooManyRequests {
					assert.Equal(t, "1", rec.Header().Get("Retry-After"))
				}
			}
			assert.Equal(t, tt.want, codes)
		})
	}
}

func TestKeyedRateLimiter_PrunesIdleKeys(t *testing.T) {
	limiter := NewKeyedRateLimiter(1, 1)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i <= cleanupThreshold; i++ {
		limiter.Allow(uuid.NewString(), start)
	}
	require.Equal(t, cleanupThreshold+1, limiter.Len())

	assert.True(t, limiter.Allow("fresh", start.Add(maxIdleAge+time.Second)))
	assert.Equal(t, 1, limiter.Len())
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware([]string{"https://club.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("allowed origin preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/matches", nil)
		req.Header.Set("Origin", "https://club.example")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://club.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("foreign origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/matches", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
