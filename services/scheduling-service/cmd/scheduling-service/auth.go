package main

import (
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/callbook/libs/auth"
	"github.com/md-rashed-zaman/callbook/libs/httpx"
)

const (
	scopeAvailability = "availability"
	scopeSMS          = "sms"
)

// requireAgent accepts either a bearer HS256 token carrying scope, or an
// X-Api-Key matching the bcrypt hash. With neither secret configured the
// check is off.
func requireAgent(next http.Handler, scope, jwtSecret, apiKeyHash string) http.Handler {
	if jwtSecret == "" && apiKeyHash == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := strings.TrimSpace(r.Header.Get("X-Api-Key")); key != "" && apiKeyHash != "" {
			if err := auth.VerifyAPIKey(apiKeyHash, key); err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if jwtSecret == "" || !strings.HasPrefix(authHeader, "Bearer ") || len(strings.TrimSpace(authHeader)) <= len("Bearer ") {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid credentials")
			return
		}
		claims, err := auth.ParseAndVerifyHS256(strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")), jwtSecret)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		if !claims.HasScope(scope) {
			httpx.WriteError(w, http.StatusForbidden, "forbidden", "token lacks scope "+scope)
			return
		}
		next.ServeHTTP(w, r)
	})
}
