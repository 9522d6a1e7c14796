package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/metisguard/metis/internal/domain"
)

type UpsertAgentInput struct {
	Body struct {
		AgentID     string   `json:"agent_id" minLength:"1" maxLength:"255" doc:"Agent identifier"`
		Name        string   `json:"name" maxLength:"255" doc:"Display name (defaults to the agent ID)"`
		Permissions []string `json:"permissions" doc:"Complete permission set; replaces any existing set"`
	}
}

type UpsertAgentOutput struct {
	Body *domain.Agent
}

type GetAgentInput struct {
	ID string `path:"id" maxLength:"255" doc:"Agent identifier"`
}

type GetAgentOutput struct {
	Body *domain.Agent
}

type ListAgentActionsInput struct {
	ID    string `path:"id" maxLength:"255" doc:"Agent identifier"`
	Limit int    `query:"limit" minimum:"1" maximum:"500" default:"100" doc:"Max results, most recent first"`
}

type ListAgentActionsOutput struct {
	Body []*domain.Action
}

func RegisterAgentRoutes(api huma.API, engine GovernanceEngine) {
	huma.Register(api, huma.Operation{
		OperationID: "upsert-agent",
		Method:      http.MethodPost,
		Path:        "/agents",
		Summary:     "Register an agent or replace its permission set",
		Tags:        []string{"Agents"},
	}, func(ctx context.Context, input *UpsertAgentInput) (*UpsertAgentOutput, error) {
		agent, err := engine.UpsertAgent(ctx, input.Body.AgentID, input.Body.Name, input.Body.Permissions)
		if err != nil {
			if errors.Is(err, domain.ErrValidation) {
				return nil, huma.Error400BadRequest(err.Error())
			}
			return nil, huma.Error500InternalServerError("failed to upsert agent", err)
		}

		return &UpsertAgentOutput{Body: agent}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-agent",
		Method:      http.MethodGet,
		Path:        "/agents/{id}",
		Summary:     "Get an agent and its declared permissions",
		Tags:        []string{"Agents"},
	}, func(ctx context.Context, input *GetAgentInput) (*GetAgentOutput, error) {
		agent, err := engine.GetAgent(ctx, input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("agent not found")
			}
			return nil, huma.Error500InternalServerError("failed to get agent", err)
		}

		return &GetAgentOutput{Body: agent}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-agent-actions",
		Method:      http.MethodGet,
		Path:        "/agents/{id}/actions",
		Summary:     "List an agent's recorded actions, most recent first",
		Tags:        []string{"Agents"},
	}, func(ctx context.Context, input *ListAgentActionsInput) (*ListAgentActionsOutput, error) {
		actions, err := engine.ListAgentActions(ctx, input.ID, input.Limit)
		if err != nil {
			if errors.Is(err, domain.ErrValidation) {
				return nil, huma.Error400BadRequest(err.Error())
			}
			return nil, huma.Error500InternalServerError("failed to list actions", err)
		}

		return &ListAgentActionsOutput{Body: actions}, nil
	})
}
