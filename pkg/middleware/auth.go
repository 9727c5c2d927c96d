package middleware

import (
	"net/http"
	"strings"

	"bookwell/pkg/auth"
	"bookwell/pkg/logger"
)

// Authenticate verifies the bearer token and stores the resulting
// principal in the request context. Every route behind it can assume a
// verified identity; role and tenant checks stay with auth.Authorize at
// the service boundary.
func Authenticate(secret []byte, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				rejectUnauthorized(w, log, r, "missing token")
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				rejectUnauthorized(w, log, r, "invalid token format")
				return
			}

			principal, err := auth.ParseToken(secret, tokenString)
			if err != nil {
				rejectUnauthorized(w, log, r, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}

func rejectUnauthorized(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Request rejected",
		"request_id", requestIDFrom(r),
		"reason", reason,
		"path", r.URL.Path,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
}
