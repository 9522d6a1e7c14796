package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/metisguard/metis/internal/domain"
)

type ReportActionInput struct {
	Body struct {
		AgentID    string         `json:"agent_id" minLength:"1" maxLength:"255" doc:"Acting agent identifier"`
		ActionType string         `json:"action_type" minLength:"1" maxLength:"255" doc:"Action type token"`
		Details    map[string]any `json:"details,omitempty" doc:"Free-form action context"`
	}
}

type ReportActionOutput struct {
	Body struct {
		Stored    bool              `json:"stored"`
		Violation *domain.Violation `json:"violation,omitempty"`
	}
}

func RegisterActionRoutes(api huma.API, engine GovernanceEngine) {
	huma.Register(api, huma.Operation{
		OperationID: "report-action",
		Method:      http.MethodPost,
		Path:        "/actions",
		Summary:     "Report an agent action for evaluation",
		Tags:        []string{"Actions"},
	}, func(ctx context.Context, input *ReportActionInput) (*ReportActionOutput, error) {
		outcome, err := engine.ReportAction(ctx, input.Body.AgentID, input.Body.ActionType, input.Body.Details)
		if err != nil {
			if errors.Is(err, domain.ErrValidation) {
				return nil, huma.Error400BadRequest(err.Error())
			}
			return nil, huma.Error500InternalServerError("failed to record action", err)
		}

		out := &ReportActionOutput{}
		out.Body.Stored = outcome.Stored
		out.Body.Violation = outcome.Violation
		return out, nil
	})
}
