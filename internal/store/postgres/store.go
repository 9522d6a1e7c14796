package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/metisguard/metis/internal/domain"
)

type Store struct {
	pool       *pgxpool.Pool
	agents     *AgentRepo
	actions    *ActionRepo
	violations *ViolationRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:       pool,
		agents:     NewAgentRepo(pool),
		actions:    NewActionRepo(pool),
		violations: NewViolationRepo(pool),
	}, nil
}

// Migrate creates the three audit relations when they do not exist yet.
// actions.agent_id carries no foreign key on purpose: reports from
// unregistered agents must still land in the audit trail.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id          text PRIMARY KEY,
			name        text NOT NULL,
			permissions jsonb NOT NULL DEFAULT '[]',
			created_at  timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS actions (
			id          bigserial PRIMARY KEY,
			agent_id    text NOT NULL,
			action_type text NOT NULL,
			details     jsonb NOT NULL DEFAULT '{}',
			created_at  timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS actions_agent_type_time_idx
			ON actions (agent_id, action_type, created_at)`,
		`CREATE TABLE IF NOT EXISTS violations (
			id          bigserial PRIMARY KEY,
			agent_id    text NOT NULL,
			action_type text NOT NULL,
			severity    text NOT NULL,
			reason      text NOT NULL,
			details     jsonb NOT NULL DEFAULT '{}',
			created_at  timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS violations_time_idx ON violations (created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres.Store.Migrate: %w", err)
		}
	}

	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Agents() domain.AgentRepository         { return s.agents }
func (s *Store) Actions() domain.ActionRepository       { return s.actions }
func (s *Store) Violations() domain.ViolationRepository { return s.violations }
