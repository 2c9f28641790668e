package middleware

import (
	"net/http"

	"github.com/gosuda/fieldops/internal/metrics"
)

// RequireSchema guards handlers mounted without Auth in front of them.
func RequireSchema() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := SchemaFromContext(r.Context()); !ok {
				metrics.TenantRejected()
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
