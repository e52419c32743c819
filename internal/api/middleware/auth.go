package middleware

import (
	"crypto/subtle"
	"net/http"
)

// RequireSecret guards trigger endpoints with a shared secret, accepted via
// the ?secret= query parameter (cron-friendly) or the X-Sync-Secret header.
// An empty configured secret rejects every request rather than opening the
// endpoints.
func RequireSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Trigger secret not configured")
				return
			}

			provided := r.URL.Query().Get("secret")
			if provided == "" {
				provided = r.Header.Get("X-Sync-Secret")
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Invalid secret")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
