package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/metisguard/metis/internal/auth"
)

type IssueTokenInput struct {
	Body struct {
		Password string `json:"password" minLength:"1" maxLength:"128" doc:"Admin password"` //nolint:gosec // G117: login credential DTO
	}
}

type IssueTokenOutput struct {
	Body struct {
		AccessToken string `json:"access_token"` //nolint:gosec // G117: auth response DTO
	}
}

func RegisterAuthRoutes(api huma.API, issuer TokenIssuer) {
	huma.Register(api, huma.Operation{
		OperationID: "issue-token",
		Method:      http.MethodPost,
		Path:        "/auth/token",
		Summary:     "Exchange the admin password for a bearer token",
		Tags:        []string{"Auth"},
	}, func(_ context.Context, input *IssueTokenInput) (*IssueTokenOutput, error) {
		token, err := issuer.IssueToken(input.Body.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return nil, huma.Error401Unauthorized("invalid credentials")
			}
			return nil, huma.Error500InternalServerError("failed to issue token", err)
		}

		out := &IssueTokenOutput{}
		out.Body.AccessToken = token
		return out, nil
	})
}
