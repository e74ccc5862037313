package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"finboard-service/internal/infrastructure/apiclient"
	"finboard-service/internal/infrastructure/config"
	"finboard-service/internal/infrastructure/logging"
	"finboard-service/internal/infrastructure/metrics"
	"finboard-service/internal/infrastructure/web/respond"
)

const limitedPrefix = "/api/"

type clientLimiter struct {
	limiter  *apiclient.RateLimiter
	lastSeen time.Time
}

// RateLimitMiddleware applies a per-client sliding window to /api/ routes
type RateLimitMiddleware struct {
	mu          sync.Mutex
	clients     map[string]*clientLimiter
	maxRequests int
	window      time.Duration
	enabled     bool
	lastSweep   time.Time
	now         func() time.Time
}

// NewRateLimitMiddleware creates the inbound limiter from configuration
func NewRateLimitMiddleware(cfg config.RateLimitConfig) *RateLimitMiddleware {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &RateLimitMiddleware{
		clients:     make(map[string]*clientLimiter),
		maxRequests: cfg.MaxRequests,
		window:      cfg.Window,
		enabled:     cfg.Enabled,
		now:         time.Now,
	}
}

// Handler returns the HTTP middleware handler
func (rlm *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rlm.enabled || !strings.HasPrefix(r.URL.Path, limitedPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		clientID := ClientIP(r)
		limiter := rlm.limiterFor(clientID)
		allowed, wait := limiter.TryAcquire()
		metrics.RecordInboundRateLimit(allowed)

		if !allowed {
			logging.Warn(r.Context(), "Rate limit exceeded", logging.Fields{
				"client_id":   clientID,
				"http_path":   r.URL.Path,
				"http_method": r.Method,
			})
			seconds := int(math.Ceil(wait.Seconds()))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			respond.Error(r.Context(), w, http.StatusTooManyRequests, respond.CodeRateLimited,
				"Rate limit exceeded. Please wait "+strconv.Itoa(seconds)+" seconds before making another request.")
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Stats().Remaining))
		next.ServeHTTP(w, r)
	})
}

// limiterFor returns the client's window and drops clients idle for more
// than a window
func (rlm *RateLimitMiddleware) limiterFor(clientID string) *apiclient.RateLimiter {
	rlm.mu.Lock()
	defer rlm.mu.Unlock()

	now := rlm.now()
	if now.Sub(rlm.lastSweep) > rlm.window {
		for id, c := range rlm.clients {
			if now.Sub(c.lastSeen) > rlm.window {
				delete(rlm.clients, id)
			}
		}
		rlm.lastSweep = now
	}

	c, ok := rlm.clients[clientID]
	if !ok {
		c = &clientLimiter{
			limiter: apiclient.NewRateLimiter(rlm.maxRequests, rlm.window, apiclient.WithLimiterClock(rlm.now)),
		}
		rlm.clients[clientID] = c
	}
	c.lastSeen = now
	return c.limiter
}

// Clients returns the number of tracked clients
func (rlm *RateLimitMiddleware) Clients() int {
	rlm.mu.Lock()
	defer rlm.mu.Unlock()
	return len(rlm.clients)
}
