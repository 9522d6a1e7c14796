package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/metisguard/metis/internal/domain"
)

type ActionRepo struct {
	pool *pgxpool.Pool
}

func NewActionRepo(pool *pgxpool.Pool) *ActionRepo {
	return &ActionRepo{pool: pool}
}

// Create appends the action and fills in its assigned ID and timestamp.
// No foreign key constrains agent_id: actions from unknown agents must be
// recordable so the unknown-agent denial path has an audit trail.
func (r *ActionRepo) Create(ctx context.Context, a *domain.Action) error {
	details, err := json.Marshal(a.Details)
	if err != nil {
		return fmt.Errorf("actionRepo.Create: marshal details: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO actions (agent_id, action_type, details, created_at)
		 VALUES ($1, $2, $3, now())
		 RETURNING id, created_at`,
		a.AgentID, a.ActionType, details,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("actionRepo.Create: %w", err)
	}

	return nil
}

func (r *ActionRepo) CountSince(ctx context.Context, agentID, actionType string, cutoff time.Time) (int, error) {
	var count int

	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM actions
		 WHERE agent_id = $1 AND action_type = $2 AND created_at >= $3`,
		agentID, actionType, cutoff,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("actionRepo.CountSince: %w", err)
	}

	return count, nil
}

func (r *ActionRepo) ListByAgent(ctx context.Context, agentID string, limit int) ([]*domain.Action, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, agent_id, action_type, details, created_at
		 FROM actions WHERE agent_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		agentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("actionRepo.ListByAgent: %w", err)
	}
	defer rows.Close()

	return scanActions(rows, "actionRepo.ListByAgent")
}

func scanActions(rows pgx.Rows, caller string) ([]*domain.Action, error) {
	var actions []*domain.Action
	for rows.Next() {
		var (
			a       domain.Action
			details []byte
		)

		if err := rows.Scan(&a.ID, &a.AgentID, &a.ActionType, &details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return nil, fmt.Errorf("%s: unmarshal details: %w", caller, err)
		}
		actions = append(actions, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return actions, nil
}
