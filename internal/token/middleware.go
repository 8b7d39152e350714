package token

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/homefind/usersvc/internal/platform/httpx"
)

// bearerToken extracts the credential from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth rejects requests without a verifiable bearer credential.
// Repository code never runs behind this middleware unauthenticated.
func RequireAuth(v *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "bearer credential required")
				return
			}
			identity, err := v.Verify(r.Context(), raw)
			if err != nil {
				if logger != nil {
					logger.Warn("token rejected", slog.String("reason", err.Error()), slog.String("path", r.URL.Path))
				}
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalAuth verifies a credential when one is presented but lets anonymous
// requests through. A presented-but-invalid credential is still rejected.
func OptionalAuth(v *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			identity, err := v.Verify(r.Context(), raw)
			if err != nil {
				if logger != nil {
					logger.Warn("token rejected", slog.String("reason", err.Error()), slog.String("path", r.URL.Path))
				}
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}
