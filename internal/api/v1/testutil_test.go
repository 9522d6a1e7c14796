package v1_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/metisguard/metis/internal/domain"
	"github.com/metisguard/metis/internal/governance"
)

// ---------------------------------------------------------------------------
// Mock GovernanceEngine
// ---------------------------------------------------------------------------

type mockEngine struct {
	upsertAgentFunc     func(ctx context.Context, id, name string, permissions []string) (*domain.Agent, error)
	getAgentFunc        func(ctx context.Context, id string) (*domain.Agent, error)
	reportActionFunc    func(ctx context.Context, agentID, actionType string, details map[string]any) (*governance.Outcome, error)
	reportViolationFunc func(ctx context.Context, v *domain.Violation) error
	listViolationsFunc  func(ctx context.Context, limit int) ([]*domain.Violation, error)
	listActionsFunc     func(ctx context.Context, agentID string, limit int) ([]*domain.Action, error)
}

func (m *mockEngine) UpsertAgent(ctx context.Context, id, name string, permissions []string) (*domain.Agent, error) {
	return m.upsertAgentFunc(ctx, id, name, permissions)
}

func (m *mockEngine) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	return m.getAgentFunc(ctx, id)
}

func (m *mockEngine) ReportAction(ctx context.Context, agentID, actionType string, details map[string]any) (*governance.Outcome, error) {
	return m.reportActionFunc(ctx, agentID, actionType, details)
}

func (m *mockEngine) ReportViolation(ctx context.Context, v *domain.Violation) error {
	return m.reportViolationFunc(ctx, v)
}

func (m *mockEngine) ListViolations(ctx context.Context, limit int) ([]*domain.Violation, error) {
	return m.listViolationsFunc(ctx, limit)
}

func (m *mockEngine) ListAgentActions(ctx context.Context, agentID string, limit int) ([]*domain.Action, error) {
	return m.listActionsFunc(ctx, agentID, limit)
}

// ---------------------------------------------------------------------------
// Mock TokenIssuer / ObserverCounter
// ---------------------------------------------------------------------------

type mockIssuer struct {
	issueTokenFunc func(password string) (string, error)
}

func (m *mockIssuer) IssueToken(password string) (string, error) {
	return m.issueTokenFunc(password)
}

type mockObservers struct {
	count int
}

func (m *mockObservers) Observers() int { return m.count }

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func makeViolation(agentID, actionType string, severity domain.Severity) *domain.Violation {
	return &domain.Violation{
		ID:         1,
		AgentID:    agentID,
		AgentName:  agentID,
		ActionType: actionType,
		Severity:   severity,
		Reason:     "Action '" + actionType + "' not in permitted actions: []",
		Details:    map[string]any{},
		CreatedAt:  time.Now().UTC(),
	}
}

// parseErrorBody decodes the RFC 9457 problem detail from the response body.
func parseErrorBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
