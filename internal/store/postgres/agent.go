package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/metisguard/metis/internal/domain"
)

type AgentRepo struct {
	pool *pgxpool.Pool
}

func NewAgentRepo(pool *pgxpool.Pool) *AgentRepo {
	return &AgentRepo{pool: pool}
}

// Upsert replaces the whole agent record. Last write wins for concurrent
// upserts of the same ID.
func (r *AgentRepo) Upsert(ctx context.Context, a *domain.Agent) error {
	permissions, err := json.Marshal(a.Permissions)
	if err != nil {
		return fmt.Errorf("agentRepo.Upsert: marshal permissions: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO agents (id, name, permissions, created_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, permissions = EXCLUDED.permissions`,
		a.ID, a.Name, permissions,
	)
	if err != nil {
		return fmt.Errorf("agentRepo.Upsert: %w", err)
	}

	return nil
}

func (r *AgentRepo) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	var (
		a           domain.Agent
		permissions []byte
	)

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, permissions, created_at FROM agents WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.Name, &permissions, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("agentRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("agentRepo.GetByID: %w", err)
	}

	if err := json.Unmarshal(permissions, &a.Permissions); err != nil {
		return nil, fmt.Errorf("agentRepo.GetByID: unmarshal permissions: %w", err)
	}

	return &a, nil
}
