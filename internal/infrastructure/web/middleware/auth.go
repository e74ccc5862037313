package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"finboard-service/internal/infrastructure/config"
	"finboard-service/internal/infrastructure/logging"
	"finboard-service/internal/infrastructure/web/respond"
)

// AuthMiddleware checks an API key on mutating requests. Reads stay open so
// the dashboard can render without credentials.
type AuthMiddleware struct {
	config config.AuthConfig
}

// NewAuthMiddleware creates a new auth middleware instance
func NewAuthMiddleware(cfg config.AuthConfig) *AuthMiddleware {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-API-Key"
	}
	return &AuthMiddleware{config: cfg}
}

// Handler wraps the given handler with API key authentication
func (am *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !am.config.Enabled || !isMutating(r.Method) || am.isUnauthenticatedPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get(am.config.HeaderName)
		if apiKey == "" {
			am.respondWithAuthError(w, r, "API key missing", "API_KEY_MISSING")
			return
		}
		if !am.isValidAPIKey(apiKey) {
			am.respondWithAuthError(w, r, "Invalid API key", "API_KEY_INVALID")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

// isUnauthenticatedPath matches exact paths and prefixes
func (am *AuthMiddleware) isUnauthenticatedPath(path string) bool {
	for _, unauthPath := range am.config.UnauthPaths {
		if path == unauthPath || strings.HasPrefix(path, unauthPath+"/") {
			return true
		}
	}
	return false
}

func (am *AuthMiddleware) isValidAPIKey(providedKey string) bool {
	return subtle.ConstantTimeCompare([]byte(providedKey), []byte(am.config.APIKey)) == 1
}

func (am *AuthMiddleware) respondWithAuthError(w http.ResponseWriter, r *http.Request, message, reason string) {
	logging.Warn(r.Context(), "API key authentication failed", logging.Fields{
		"http_path":   r.URL.Path,
		"http_method": r.Method,
		"remote_ip":   ClientIP(r),
		"reason":      reason,
	})

	w.Header().Set("WWW-Authenticate", `ApiKey realm="finboard"`)
	respond.Error(r.Context(), w, http.StatusUnauthorized, respond.CodeUnauthorized, message)
}
