package v1_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/metisguard/metis/internal/api/v1"
	"github.com/metisguard/metis/internal/domain"
	"github.com/metisguard/metis/internal/governance"
)

func newActionTestAPI(t *testing.T) (humatest.TestAPI, *mockEngine) {
	t.Helper()

	_, api := humatest.New(t)
	engine := &mockEngine{}

	v1.RegisterActionRoutes(api, engine)

	return api, engine
}

func TestReportAction(t *testing.T) {
	t.Parallel()

	t.Run("clean_action", func(t *testing.T) {
		t.Parallel()

		api, engine := newActionTestAPI(t)

		engine.reportActionFunc = func(_ context.Context, agentID, actionType string, details map[string]any) (*governance.Outcome, error) {
			assert.Equal(t, "agent-smith", agentID)
			assert.Equal(t, "read_database", actionType)
			assert.Equal(t, "users", details["table"])
			return &governance.Outcome{Stored: true}, nil
		}

		resp := api.Post("/actions", map[string]any{
			"agent_id":    "agent-smith",
			"action_type": "read_database",
			"details":     map[string]any{"table": "users"},
		})

		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Stored    bool              `json:"stored"`
			Violation *domain.Violation `json:"violation"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.True(t, body.Stored)
		assert.Nil(t, body.Violation)
	})

	t.Run("denied_action_returns_violation", func(t *testing.T) {
		t.Parallel()

		api, engine := newActionTestAPI(t)

		engine.reportActionFunc = func(_ context.Context, agentID, actionType string, _ map[string]any) (*governance.Outcome, error) {
			return &governance.Outcome{
				Stored:    true,
				Violation: makeViolation(agentID, actionType, domain.SeverityHigh),
			}, nil
		}

		resp := api.Post("/actions", map[string]any{
			"agent_id":    "agent-smith",
			"action_type": "access_financial_data",
		})

		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Stored    bool              `json:"stored"`
			Violation *domain.Violation `json:"violation"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		require.NotNil(t, body.Violation)
		assert.Equal(t, domain.SeverityHigh, body.Violation.Severity)
		assert.Equal(t, "access_financial_data", body.Violation.ActionType)
	})

	t.Run("validation_error_maps_to_400", func(t *testing.T) {
		t.Parallel()

		api, engine := newActionTestAPI(t)

		engine.reportActionFunc = func(_ context.Context, _, _ string, _ map[string]any) (*governance.Outcome, error) {
			return nil, fmt.Errorf("agent id is required: %w", domain.ErrValidation)
		}

		resp := api.Post("/actions", map[string]any{
			"agent_id":    "x",
			"action_type": "y",
		})

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}
