package middleware

import (
	"net/http"
	"strings"

	"summer-miles/ledger/internal/auth"
	"summer-miles/ledger/internal/logging"
)

// AuthMiddleware resolves the acting user. A bearer token is verified when a secret is configured;
// requests without one act as the demo user.
func AuthMiddleware(jwtSecret, demoUserID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")

			var claims auth.UserClaims
			switch {
			case strings.HasPrefix(authHeader, "Bearer ") && jwtSecret != "":
				parsed, err := auth.ParseToken(jwtSecret, strings.TrimPrefix(authHeader, "Bearer "))
				if err != nil {
					logging.Debug("Rejected bearer token", "error", err)
					http.Error(w, "Unauthorized. Invalid token", http.StatusUnauthorized)
					return
				}
				claims = parsed
			default:
				claims = &auth.DemoClaims{DemoUserID: demoUserID}
			}

			ctx := auth.SetUserClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
