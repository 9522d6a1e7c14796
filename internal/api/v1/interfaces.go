package v1

import (
	"context"

	"github.com/metisguard/metis/internal/domain"
	"github.com/metisguard/metis/internal/governance"
)

// GovernanceEngine abstracts the evaluation pipeline for handler testing.
// *governance.Engine satisfies this interface.
type GovernanceEngine interface {
	UpsertAgent(ctx context.Context, id, name string, permissions []string) (*domain.Agent, error)
	GetAgent(ctx context.Context, id string) (*domain.Agent, error)
	ReportAction(ctx context.Context, agentID, actionType string, details map[string]any) (*governance.Outcome, error)
	ReportViolation(ctx context.Context, v *domain.Violation) error
	ListViolations(ctx context.Context, limit int) ([]*domain.Violation, error)
	ListAgentActions(ctx context.Context, agentID string, limit int) ([]*domain.Action, error)
}

// TokenIssuer abstracts credential exchange for handler testing.
// *auth.Service satisfies this interface.
type TokenIssuer interface {
	IssueToken(password string) (string, error)
}

// ObserverCounter reports how many live stream subscribers are attached.
// *hub.Hub satisfies this interface.
type ObserverCounter interface {
	Observers() int
}
