package middleware

import (
	"net/http"
	"time"

	"summer-miles/ledger/internal/auth"
	"summer-miles/ledger/internal/logging"
)

// Logging writes one structured line per completed request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lw, r)

		userID := ""
		if claims := auth.GetUserClaims(r.Context()); claims != nil {
			userID = claims.UserID()
		}
		logging.WithRequest(GetRequestID(r.Context()), userID, routePattern(r)).Infow("HTTP request completed",
			"method", r.Method,
			"status_code", lw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
