package httpapi

import (
	"net/http"
	"strings"

	"github.com/nasindex/nasindex/internal/config"
)

// AuthGuard is a chi-compatible middleware validating a flat bearer token
// against the configured auth token. When the configured token equals
// config.DefaultAuthToken (the well-known dev-mode placeholder), every
// request is let through unauthenticated, matching the specification's
// documented dev-mode bypass.
//
// Grounded on marmos91-dittofs's pkg/api/middleware.JWTAuth (Bearer-header
// extraction, 401 on missing/invalid token) with the JWT validation itself
// dropped in favor of a single configured shared secret, since the
// specification calls for a flat bearer token rather than a signed claim.
func AuthGuard(token string) func(http.Handler) http.Handler {
	devMode := token == config.DefaultAuthToken
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if devMode {
				next.ServeHTTP(w, r)
				return
			}
			provided, ok := extractBearerToken(r)
			if !ok || provided != token {
				writeJSON(w, http.StatusUnauthorized, Response{Status: "error", Error: "missing or invalid bearer token"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
