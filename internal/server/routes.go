package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/fieldops/internal/api/v1"
	"github.com/gosuda/fieldops/internal/config"
	"github.com/gosuda/fieldops/internal/server/middleware"
)

func apiConfig(title string) huma.Config {
	c := huma.DefaultConfig(title, "1.0.0")
	c.Servers = []*huma.Server{{URL: "/api/v1"}}
	return c
}

func middlewareRateLimitByIP(ctx context.Context, cfg *config.Config) func(http.Handler) http.Handler {
	return middleware.RateLimitByIP(ctx, cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
}

// protectedMiddleware is the chain in front of every authenticated route:
// bearer validation, then the schema gate, then the per-tenant limiter.
func protectedMiddleware(ctx context.Context, cfg *config.Config) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.Auth(cfg.JWT.Secret),
		middleware.RequireSchema(),
		middleware.RateLimit(ctx, cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
	}
}

func registerPublicRoutes(r chi.Router, authSvc v1.AuthService) {
	api := humachi.New(r, apiConfig("Fieldops Auth API"))
	v1.RegisterAuthRoutes(api, authSvc)
}

func registerProtectedRoutes(r chi.Router, deps Deps, opts v1.Options) {
	c := apiConfig("Fieldops API")
	c.OpenAPIPath = ""
	c.DocsPath = ""
	c.SchemasPath = ""
	api := humachi.New(r, c)

	v1.RegisterResourceRoutes(api, deps.Store, opts)
	v1.RegisterUserRoutes(api, deps.Store, opts)
	v1.RegisterPhotoRoutes(api, deps.Uploader, opts)
	v1.RegisterAccountRoutes(api, deps.Auth)
}
