package domain

import (
	"context"
	"time"
)

// Agent is an external autonomous actor whose actions are governed.
// The ID is an opaque identifier chosen by the reporting side; the engine
// never creates agents implicitly -- an unknown ID reporting an action is
// itself a meaningful (and denied) event.
type Agent struct {
	ID          string
	Name        string
	Permissions []string
	CreatedAt   time.Time
}

// HasPermission reports whether the token is present in the agent's
// permission set. Tokens are opaque and compared by exact equality.
func (a *Agent) HasPermission(token string) bool {
	for _, p := range a.Permissions {
		if p == token {
			return true
		}
	}
	return false
}

type AgentRepository interface {
	// Upsert replaces the whole agent record. Concurrent upserts for the
	// same ID resolve last-write-wins; there are no merge semantics.
	Upsert(ctx context.Context, a *Agent) error
	GetByID(ctx context.Context, id string) (*Agent, error)
}
