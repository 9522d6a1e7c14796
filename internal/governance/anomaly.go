package governance

import (
	"context"
	"fmt"
	"time"

	"github.com/metisguard/metis/internal/domain"
)

// BehaviorConfig tunes the behavioral anomaly checks.
type BehaviorConfig struct {
	// RapidThreshold is the window count above which repeated actions are
	// flagged. Defaults to 10.
	RapidThreshold int
	// RapidWindow is the trailing window for the rapid-action count.
	// Defaults to 5 minutes.
	RapidWindow time.Duration
	// BusinessStartHour and BusinessEndHour bound the business day,
	// inclusive, in the deployment's local time. Defaults 9 and 18.
	BusinessStartHour int
	BusinessEndHour   int
}

func (c BehaviorConfig) withDefaults() BehaviorConfig {
	if c.RapidThreshold <= 0 {
		c.RapidThreshold = 10
	}
	if c.RapidWindow <= 0 {
		c.RapidWindow = 5 * time.Minute
	}
	if c.BusinessStartHour == 0 && c.BusinessEndHour == 0 {
		c.BusinessStartHour = 9
		c.BusinessEndHour = 18
	}
	return c
}

// Detector runs time-windowed checks over the audit trail to catch
// allowed-but-suspicious activity. It only sees actions that already passed
// the permission evaluator.
type Detector struct {
	actions domain.ActionRepository
	cfg     BehaviorConfig
	now     func() time.Time
}

// NewDetector creates a Detector. now may be nil, in which case wall-clock
// time is used; tests inject a fixed clock.
func NewDetector(actions domain.ActionRepository, cfg BehaviorConfig, now func() time.Time) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{actions: actions, cfg: cfg.withDefaults(), now: now}
}

// Check runs the behavioral checks in fixed order (rapid-action first) and
// returns at most one violation: the first check that fires short-circuits
// the rest. A nil violation with nil error means the action is clean.
//
// The rapid-action count is recomputed against the store on every call. Two
// concurrent reports from the same agent can both read the window before
// either lands, letting the threshold be exceeded by a small bounded margin;
// the next report still trips the check, so this is accepted rather than
// serialized behind a lock.
func (d *Detector) Check(ctx context.Context, agentID, actionType string, details map[string]any) (*domain.Violation, error) {
	now := d.now()

	count, err := d.actions.CountSince(ctx, agentID, actionType, now.Add(-d.cfg.RapidWindow))
	if err != nil {
		return nil, fmt.Errorf("governance.Detector.Check: %w", err)
	}

	if count > d.cfg.RapidThreshold {
		return &domain.Violation{
			AgentID:    agentID,
			ActionType: actionType,
			Severity:   domain.SeverityHigh,
			Reason:     "rapid successive actions detected - possible automation attack",
			Details:    tagPattern(details, "rapid_actions"),
		}, nil
	}

	if !d.withinBusinessHours(now) && Sensitive(actionType) {
		return &domain.Violation{
			AgentID:    agentID,
			ActionType: actionType,
			Severity:   domain.SeverityMedium,
			Reason:     "sensitive action performed outside business hours",
			Details:    tagPattern(details, "off_hours"),
		}, nil
	}

	return nil, nil
}

func (d *Detector) withinBusinessHours(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	hour := t.Hour()
	return hour >= d.cfg.BusinessStartHour && hour <= d.cfg.BusinessEndHour
}

// tagPattern copies the details payload and annotates it with the detected
// pattern. The caller's map is never mutated.
func tagPattern(details map[string]any, pattern string) map[string]any {
	tagged := make(map[string]any, len(details)+1)
	for k, v := range details {
		tagged[k] = v
	}
	tagged["pattern"] = pattern
	return tagged
}
