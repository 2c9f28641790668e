package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/fieldops/internal/auth"
	"github.com/gosuda/fieldops/internal/metrics"
	"github.com/gosuda/fieldops/internal/store/postgres"
)

const unauthorizedBody = `{"title":"Unauthorized","status":401,"detail":"unauthorized"}`

// Auth validates the bearer access token and stores the caller's tenant
// schema, uid and username in the request context. A token without a usable
// schema claim is rejected rather than served against an empty schema.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractBearer(r)
			if tok == "" {
				unauthorized(w)
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, tok)
			if err != nil || !claims.IsAccess() {
				unauthorized(w)
				return
			}

			id, err := claims.Identity()
			if err != nil {
				unauthorized(w)
				return
			}

			if !postgres.ValidSchema(id.Schema) {
				metrics.TenantRejected()
				log.Warn().Int64("uid", id.UID).Str("schema", id.Schema).Msg("auth: token carries no usable schema")
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(unauthorizedBody))
}
