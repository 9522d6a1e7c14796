package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/metisguard/metis/internal/domain"
)

type ViolationRepo struct {
	pool *pgxpool.Pool
}

func NewViolationRepo(pool *pgxpool.Pool) *ViolationRepo {
	return &ViolationRepo{pool: pool}
}

func (r *ViolationRepo) Create(ctx context.Context, v *domain.Violation) error {
	details, err := json.Marshal(v.Details)
	if err != nil {
		return fmt.Errorf("violationRepo.Create: marshal details: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO violations (agent_id, action_type, severity, reason, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 RETURNING id, created_at`,
		v.AgentID, v.ActionType, string(v.Severity), v.Reason, details,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return fmt.Errorf("violationRepo.Create: %w", err)
	}

	return nil
}

// ListRecent joins the agent display name for read convenience; violations
// from unregistered agents come back with an empty name.
func (r *ViolationRepo) ListRecent(ctx context.Context, limit int) ([]*domain.Violation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT v.id, v.agent_id, coalesce(a.name, ''), v.action_type, v.severity, v.reason, v.details, v.created_at
		 FROM violations v
		 LEFT JOIN agents a ON v.agent_id = a.id
		 ORDER BY v.created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("violationRepo.ListRecent: %w", err)
	}
	defer rows.Close()

	var violations []*domain.Violation
	for rows.Next() {
		var (
			v        domain.Violation
			severity string
			details  []byte
		)

		if err := rows.Scan(&v.ID, &v.AgentID, &v.AgentName, &v.ActionType, &severity, &v.Reason, &details, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("violationRepo.ListRecent: scan: %w", err)
		}
		v.Severity = domain.Severity(severity)
		if err := json.Unmarshal(details, &v.Details); err != nil {
			return nil, fmt.Errorf("violationRepo.ListRecent: unmarshal details: %w", err)
		}
		violations = append(violations, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("violationRepo.ListRecent: rows: %w", err)
	}

	return violations, nil
}
