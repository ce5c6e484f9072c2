package authhandlers

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	authservice "github.com/Black-And-White-Club/club-ladder/app/modules/auth/application"
	"github.com/Black-And-White-Club/club-ladder/app/shared/httpx"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// cleanupThreshold is the minimum map size before a cleanup pass runs.
	cleanupThreshold = 500
	// maxIdleAge is how long a key may go unused before cleanup drops it.
	maxIdleAge = 10 * time.Minute
)

// KeyFunc names the bucket a request is charged to.
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by remote address.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// PlayerOrIP keys authenticated requests by player so players behind one
// address get separate budgets. Anonymous requests fall back to ClientIP.
func PlayerOrIP(r *http.Request) string {
	if id, ok := PlayerIDFromContext(r.Context()); ok {
		return "player:" + id.String()
	}
	return "ip:" + ClientIP(r)
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter holds one token bucket per key and prunes idle keys inline.
type KeyedRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	r       rate.Limit
	b       int
}

func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{buckets: make(map[string]*bucket), r: r, b: b}
}

// Allow spends one token from key's bucket.
func (l *KeyedRateLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.buckets) > cleanupThreshold {
		cutoff := now.Add(-maxIdleAge)
		for k, e := range l.buckets {
			if e.lastSeen.Before(cutoff) {
				delete(l.buckets, k)
			}
		}
	}

	e, ok := l.buckets[key]
	if !ok {
		e = &bucket{limiter: rate.NewLimiter(l.r, l.b)}
		l.buckets[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Len reports how many keys are tracked.
func (l *KeyedRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimitMiddleware answers 429 once key(r) has spent its budget.
func RateLimitMiddleware(limiter *KeyedRateLimiter, key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(key(r), time.Now()) {
				w.Header().Set("Retry-After", "1")
				httpx.WriteJSON(w, http.StatusTooManyRequests, httpx.ErrorResponse{Error: "rate limit exceeded, retry shortly"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware sets CORS headers for the configured origins and answers
// preflight requests.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				if _, ok := origins[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type playerIDKey struct{}

// WithPlayerID stores the authenticated player id on ctx.
func WithPlayerID(ctx context.Context, playerID uuid.UUID) context.Context {
	return context.WithValue(ctx, playerIDKey{}, playerID)
}

// PlayerIDFromContext returns the player id set by BearerAuth.
func PlayerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(playerIDKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// CallerID returns the authenticated player or an authentication error.
func CallerID(r *http.Request) (uuid.UUID, error) {
	id, ok := PlayerIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, authservice.ErrMissingToken
	}
	return id, nil
}

// BearerAuth requires an "Authorization: Bearer <jwt>" header and puts the
// token's player id on the request context. Rejections are 401.
func BearerAuth(auth authservice.Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := auth.Authenticate(r.Context(), bearerToken(r))
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="club-ladder"`)
				httpx.WriteError(w, r, logger, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPlayerID(r.Context(), claims.PlayerID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
