package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/fieldops/internal/auth"
	"github.com/gosuda/fieldops/internal/domain"
	"github.com/gosuda/fieldops/internal/server/middleware"
)

// companyField names the tenant schema in auth payloads.
const companyField = "company"

type LoginInput struct {
	Body struct {
		Username string `json:"username" minLength:"1" maxLength:"255" doc:"Login name"`
		Password string `json:"password" minLength:"1" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
		Company  string `json:"company" minLength:"1" maxLength:"63" doc:"Tenant schema"`
		UID      *int64 `json:"uid,omitempty" doc:"External user ID; must match the account"`
	}
}

type TokenPairOutput struct {
	Body struct {
		AccessToken  string `json:"accessToken"`  //nolint:gosec // G117: auth response DTO
		RefreshToken string `json:"refreshToken"` //nolint:gosec // G117: auth response DTO
	}
}

type RegisterInput struct {
	Body domain.Record
}

type RefreshInput struct {
	Body struct {
		RefreshToken string `json:"refreshToken" minLength:"1" doc:"Refresh token"` //nolint:gosec // G117: token refresh DTO
		Company      string `json:"company,omitempty" maxLength:"63" doc:"Tenant schema"`
	}
}

type ResetPasswordInput struct {
	Body struct {
		Username string `json:"username" minLength:"1" maxLength:"255" doc:"Login name"`
		Password string `json:"password" minLength:"1" maxLength:"72" doc:"New password"` //nolint:gosec // G117: credential DTO
		Company  string `json:"company" minLength:"1" maxLength:"63" doc:"Tenant schema"`
	}
}

type MessageOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

func tokenPairOutput(pair *auth.TokenPair) *TokenPairOutput {
	out := &TokenPairOutput{}
	out.Body.AccessToken = pair.AccessToken
	out.Body.RefreshToken = pair.RefreshToken
	return out
}

// authError maps auth service failures. Every credential or token problem
// is the same 401 so callers cannot tell which part was wrong.
func authError(err error, verb string) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return huma.Error401Unauthorized("unauthorized")
	case errors.Is(err, auth.ErrUserAlreadyExists):
		return huma.Error409Conflict("user already exists")
	}
	return storeError(err, verb, "user")
}

// RegisterAuthRoutes mounts the unauthenticated auth endpoints.
func RegisterAuthRoutes(api huma.API, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Login with username and password",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *LoginInput) (*TokenPairOutput, error) {
		pair, err := authSvc.Login(ctx, input.Body.Company, input.Body.Username, input.Body.Password, input.Body.UID)
		if err != nil {
			return nil, authError(err, "login")
		}
		return tokenPairOutput(pair), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register a new user",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *RegisterInput) (*RecordOutput, error) {
		company, _ := input.Body.String(companyField)
		if company == "" {
			return nil, huma.Error400BadRequest("company: company is required")
		}

		user, err := authSvc.Register(ctx, company, input.Body.Without(companyField))
		if err != nil {
			return nil, authError(err, "register")
		}
		log.Info().Str("schema", company).Msg("auth: user registered")
		return &RecordOutput{Body: user}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh-token",
		Method:      http.MethodPost,
		Path:        "/auth/refresh-token",
		Summary:     "Exchange a refresh token for a new token pair",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *RefreshInput) (*TokenPairOutput, error) {
		pair, err := authSvc.Refresh(ctx, input.Body.RefreshToken, input.Body.Company)
		if err != nil {
			return nil, authError(err, "refresh")
		}
		return tokenPairOutput(pair), nil
	})
}

// RegisterAccountRoutes mounts auth endpoints that need a signed-in caller.
func RegisterAccountRoutes(api huma.API, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID: "reset-password",
		Method:      http.MethodPost,
		Path:        "/auth/reset-password",
		Summary:     "Set a new password for the signed-in user",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *ResetPasswordInput) (*MessageOutput, error) {
		caller, ok := middleware.IdentityFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("unauthorized")
		}

		err := authSvc.ResetPassword(ctx, caller, input.Body.Company, input.Body.Username, input.Body.Password)
		if err != nil {
			return nil, authError(err, "reset password for")
		}

		out := &MessageOutput{}
		out.Body.Message = "password updated"
		return out, nil
	})
}
