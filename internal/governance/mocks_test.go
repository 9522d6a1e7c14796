package governance_test

import (
	"context"
	"time"

	"github.com/metisguard/metis/internal/domain"
)

// ---------------------------------------------------------------------------
// hand-rolled repository mocks
// ---------------------------------------------------------------------------

type mockAgentRepo struct {
	upsertFunc  func(ctx context.Context, a *domain.Agent) error
	getByIDFunc func(ctx context.Context, id string) (*domain.Agent, error)
}

func (m *mockAgentRepo) Upsert(ctx context.Context, a *domain.Agent) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, a)
	}
	return nil
}

func (m *mockAgentRepo) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

type mockActionRepo struct {
	createFunc     func(ctx context.Context, a *domain.Action) error
	countSinceFunc func(ctx context.Context, agentID, actionType string, cutoff time.Time) (int, error)

	created []*domain.Action
}

func (m *mockActionRepo) Create(ctx context.Context, a *domain.Action) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, a)
	}
	a.ID = int64(len(m.created) + 1)
	a.CreatedAt = time.Now()
	m.created = append(m.created, a)
	return nil
}

func (m *mockActionRepo) CountSince(ctx context.Context, agentID, actionType string, cutoff time.Time) (int, error) {
	if m.countSinceFunc != nil {
		return m.countSinceFunc(ctx, agentID, actionType, cutoff)
	}
	return 0, nil
}

func (m *mockActionRepo) ListByAgent(_ context.Context, agentID string, limit int) ([]*domain.Action, error) {
	var out []*domain.Action
	for _, a := range m.created {
		if a.AgentID == agentID && len(out) < limit {
			out = append(out, a)
		}
	}
	return out, nil
}

type mockViolationRepo struct {
	createFunc     func(ctx context.Context, v *domain.Violation) error
	listRecentFunc func(ctx context.Context, limit int) ([]*domain.Violation, error)

	created []*domain.Violation
}

func (m *mockViolationRepo) Create(ctx context.Context, v *domain.Violation) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, v)
	}
	v.ID = int64(len(m.created) + 1)
	v.CreatedAt = time.Now()
	m.created = append(m.created, v)
	return nil
}

func (m *mockViolationRepo) ListRecent(ctx context.Context, limit int) ([]*domain.Violation, error) {
	if m.listRecentFunc != nil {
		return m.listRecentFunc(ctx, limit)
	}
	if limit > len(m.created) {
		limit = len(m.created)
	}
	out := make([]*domain.Violation, 0, limit)
	for i := len(m.created) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.created[i])
	}
	return out, nil
}

type mockBroadcaster struct {
	broadcastFunc func(ctx context.Context, v *domain.Violation) error

	sent []*domain.Violation
}

func (m *mockBroadcaster) Broadcast(ctx context.Context, v *domain.Violation) error {
	if m.broadcastFunc != nil {
		return m.broadcastFunc(ctx, v)
	}
	m.sent = append(m.sent, v)
	return nil
}

// fixedClock returns a clock function pinned to t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
