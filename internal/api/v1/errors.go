package v1

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/fieldops/internal/domain"
	"github.com/gosuda/fieldops/internal/server/middleware"
)

// tenantSchema returns the caller's schema as stored by the auth middleware.
func tenantSchema(ctx context.Context) (string, error) {
	schema, ok := middleware.SchemaFromContext(ctx)
	if !ok {
		return "", huma.Error401Unauthorized("unauthorized")
	}
	return schema, nil
}

// storeError maps a repository error onto the HTTP taxonomy. Storage
// failures are logged and reported as "failed to <verb> <resource>" without
// the underlying cause.
func storeError(err error, verb, resource string) error {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound(resource + " not found")
	case errors.As(err, &verr):
		return huma.Error400BadRequest(verr.Error())
	case errors.Is(err, domain.ErrValidation):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, domain.ErrConflict):
		return huma.Error409Conflict(resource + " already exists")
	case errors.Is(err, domain.ErrUnauthorized):
		return huma.Error401Unauthorized("unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		return huma.Error403Forbidden("forbidden")
	}

	log.Error().Err(err).Str("op", verb).Str("resource", resource).Msg("api: request failed")
	return huma.Error500InternalServerError("failed to " + verb + " " + resource)
}
