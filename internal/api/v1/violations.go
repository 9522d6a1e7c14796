package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/metisguard/metis/internal/domain"
)

type ListViolationsInput struct {
	Limit int `query:"limit" minimum:"1" maximum:"500" default:"100" doc:"Max results, most recent first"`
}

type ListViolationsOutput struct {
	Body []*domain.Violation
}

type ReportViolationInput struct {
	Body struct {
		AgentID    string         `json:"agent_id" minLength:"1" maxLength:"255" doc:"Offending agent identifier"`
		ActionType string         `json:"action_type" minLength:"1" maxLength:"255" doc:"Action type the detection concerns"`
		Severity   string         `json:"severity" enum:"LOW,MEDIUM,HIGH,CRITICAL" doc:"Severity tier"`
		Reason     string         `json:"reason" minLength:"1" doc:"Human-readable explanation"`
		Details    map[string]any `json:"details,omitempty" doc:"Free-form detection context"`
	}
}

type ReportViolationOutput struct {
	Body *domain.Violation
}

func RegisterViolationRoutes(api huma.API, engine GovernanceEngine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-violations",
		Method:      http.MethodGet,
		Path:        "/violations",
		Summary:     "List recent violations, most recent first",
		Tags:        []string{"Violations"},
	}, func(ctx context.Context, input *ListViolationsInput) (*ListViolationsOutput, error) {
		violations, err := engine.ListViolations(ctx, input.Limit)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list violations", err)
		}

		return &ListViolationsOutput{Body: violations}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "report-violation",
		Method:      http.MethodPost,
		Path:        "/violations",
		Summary:     "Ingest an externally detected violation",
		Tags:        []string{"Violations"},
	}, func(ctx context.Context, input *ReportViolationInput) (*ReportViolationOutput, error) {
		v := &domain.Violation{
			AgentID:    input.Body.AgentID,
			ActionType: input.Body.ActionType,
			Severity:   domain.Severity(input.Body.Severity),
			Reason:     input.Body.Reason,
			Details:    input.Body.Details,
		}

		if err := engine.ReportViolation(ctx, v); err != nil {
			if errors.Is(err, domain.ErrValidation) {
				return nil, huma.Error400BadRequest(err.Error())
			}
			return nil, huma.Error500InternalServerError("failed to record violation", err)
		}

		return &ReportViolationOutput{Body: v}, nil
	})
}
