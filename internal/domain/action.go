package domain

import (
	"context"
	"time"
)

// Action is a single reported agent action. Actions are append-only: once
// accepted they are never mutated or deleted, forming the audit substrate
// the anomaly detector queries.
type Action struct {
	ID         int64
	AgentID    string
	ActionType string
	Details    map[string]any
	CreatedAt  time.Time
}

type ActionRepository interface {
	Create(ctx context.Context, a *Action) error
	// CountSince returns how many actions the agent has reported with the
	// given action type at or after the cutoff, inclusive of anything
	// already stored for the current call.
	CountSince(ctx context.Context, agentID, actionType string, cutoff time.Time) (int, error)
	ListByAgent(ctx context.Context, agentID string, limit int) ([]*Action, error)
}
