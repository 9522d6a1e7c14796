package governance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/metisguard/metis/internal/domain"
)

// Broadcaster fans a detected violation out to attached observers.
// Delivery is at-least-once best-effort; a broadcast failure never fails
// the report that produced the violation.
type Broadcaster interface {
	Broadcast(ctx context.Context, v *domain.Violation) error
}

// Outcome is the result of a reported action.
type Outcome struct {
	Stored    bool
	Violation *domain.Violation // nil when the action is clean
}

// Engine orchestrates the report path: persist the action, evaluate
// permissions, run the behavioral detector on allowed actions, classify and
// persist any violation, and hand it to the broadcaster. Both self-reported
// actions and intercepted network calls feed this single entry point.
type Engine struct {
	agents      domain.AgentRepository
	actions     domain.ActionRepository
	violations  domain.ViolationRepository
	detector    *Detector
	broadcaster Broadcaster
	backlog     int
}

// NewEngine wires the engine. broadcaster may be nil for deployments with
// no attached observers. backlog bounds ListViolations when the caller asks
// for no explicit limit; zero means the default of 100.
func NewEngine(agents domain.AgentRepository, actions domain.ActionRepository, violations domain.ViolationRepository, detector *Detector, broadcaster Broadcaster, backlog int) *Engine {
	if backlog <= 0 {
		backlog = 100
	}
	return &Engine{
		agents:      agents,
		actions:     actions,
		violations:  violations,
		detector:    detector,
		broadcaster: broadcaster,
		backlog:     backlog,
	}
}

// ReportAction records the action and evaluates it. The action is persisted
// unconditionally before any policy check; a storage failure there aborts
// the whole call. A storage failure while persisting a detected violation
// is degraded to a log entry because the verdict itself is the primary
// contract.
func (e *Engine) ReportAction(ctx context.Context, agentID, actionType string, details map[string]any) (*Outcome, error) {
	if agentID == "" || actionType == "" {
		return nil, fmt.Errorf("governance.Engine.ReportAction: agent id and action type are required: %w", domain.ErrValidation)
	}
	if details == nil {
		details = map[string]any{}
	}

	action := &domain.Action{
		AgentID:    agentID,
		ActionType: actionType,
		Details:    details,
	}
	if err := e.actions.Create(ctx, action); err != nil {
		return nil, fmt.Errorf("governance.Engine.ReportAction: store action: %w", err)
	}

	violation, err := e.detect(ctx, agentID, actionType, details)
	if err != nil {
		return nil, fmt.Errorf("governance.Engine.ReportAction: %w", err)
	}

	if violation != nil {
		e.emit(ctx, violation)
	}

	return &Outcome{Stored: true, Violation: violation}, nil
}

// detect runs the permission evaluator and, for allowed actions, the
// behavioral detector. Returns nil when the action is clean.
func (e *Engine) detect(ctx context.Context, agentID, actionType string, details map[string]any) (*domain.Violation, error) {
	agent, err := e.agents.GetByID(ctx, agentID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup agent: %w", err)
	}

	if agent == nil {
		// Unregistered identity: deny regardless of action type. This path
		// bypasses the classifier; an unknown actor is high severity no
		// matter what it attempted.
		return &domain.Violation{
			AgentID:    agentID,
			ActionType: actionType,
			Severity:   domain.SeverityHigh,
			Reason:     "Unknown agent attempting action",
			Details:    details,
		}, nil
	}

	if decision := Evaluate(agent, actionType, details); !decision.Allowed {
		return &domain.Violation{
			AgentID:    agentID,
			ActionType: actionType,
			Severity:   Classify(actionType),
			Reason:     fmt.Sprintf("Action '%s' not in permitted actions: [%s]", actionType, strings.Join(agent.Permissions, ", ")),
			Details:    details,
		}, nil
	}

	behavioral, err := e.detector.Check(ctx, agentID, actionType, details)
	if err != nil {
		return nil, err
	}
	return behavioral, nil
}

// emit persists and broadcasts a violation. Both steps are soft failures:
// the verdict has already been computed and belongs to the caller.
func (e *Engine) emit(ctx context.Context, v *domain.Violation) {
	if err := e.violations.Create(ctx, v); err != nil {
		log.Warn().Err(err).
			Str("agent_id", v.AgentID).
			Str("action_type", v.ActionType).
			Msg("violation verdict returned but not persisted")
	}

	log.Info().
		Str("agent_id", v.AgentID).
		Str("action_type", v.ActionType).
		Str("severity", string(v.Severity)).
		Msg("violation detected")

	if e.broadcaster == nil {
		return
	}
	if err := e.broadcaster.Broadcast(ctx, v); err != nil {
		log.Warn().Err(err).Str("agent_id", v.AgentID).Msg("violation broadcast failed")
	}
}

// ReportViolation ingests an externally-detected violation (for example
// from a remote traffic monitor) without running the evaluator. The record
// is persisted best-effort and always broadcast.
func (e *Engine) ReportViolation(ctx context.Context, v *domain.Violation) error {
	if v.AgentID == "" || v.ActionType == "" {
		return fmt.Errorf("governance.Engine.ReportViolation: agent id and action type are required: %w", domain.ErrValidation)
	}
	if !v.Severity.Valid() {
		return fmt.Errorf("governance.Engine.ReportViolation: severity %q: %w", v.Severity, domain.ErrValidation)
	}
	if v.Reason == "" {
		return fmt.Errorf("governance.Engine.ReportViolation: reason is required: %w", domain.ErrValidation)
	}

	e.emit(ctx, v)
	return nil
}

// UpsertAgent assigns an agent's display name and permission set, replacing
// any previous record whole. An empty name defaults to the agent ID.
func (e *Engine) UpsertAgent(ctx context.Context, id, name string, permissions []string) (*domain.Agent, error) {
	if id == "" || permissions == nil {
		return nil, fmt.Errorf("governance.Engine.UpsertAgent: agent id and permissions are required: %w", domain.ErrValidation)
	}
	if name == "" {
		name = id
	}

	agent := &domain.Agent{ID: id, Name: name, Permissions: permissions}
	if err := e.agents.Upsert(ctx, agent); err != nil {
		return nil, fmt.Errorf("governance.Engine.UpsertAgent: %w", err)
	}

	return agent, nil
}

func (e *Engine) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := e.agents.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("governance.Engine.GetAgent: %w", err)
	}
	return agent, nil
}

// ListAgentActions returns an agent's audit trail, most recent first. A
// non-positive limit falls back to the configured backlog size.
func (e *Engine) ListAgentActions(ctx context.Context, agentID string, limit int) ([]*domain.Action, error) {
	if agentID == "" {
		return nil, fmt.Errorf("governance.Engine.ListAgentActions: agent id is required: %w", domain.ErrValidation)
	}
	if limit <= 0 {
		limit = e.backlog
	}
	actions, err := e.actions.ListByAgent(ctx, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("governance.Engine.ListAgentActions: %w", err)
	}
	return actions, nil
}

// ListViolations returns up to limit violations, most recent first. A
// non-positive limit falls back to the configured backlog size.
func (e *Engine) ListViolations(ctx context.Context, limit int) ([]*domain.Violation, error) {
	if limit <= 0 {
		limit = e.backlog
	}
	violations, err := e.violations.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("governance.Engine.ListViolations: %w", err)
	}
	return violations, nil
}
