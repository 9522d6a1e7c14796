package domain

import (
	"context"
	"time"
)

// Severity is the ordinal risk tier of a violation.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// severityRank orders tiers for threshold comparisons. Unknown values rank
// below LOW so malformed input never passes an alerting threshold.
func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether s is at or above the given tier.
func (s Severity) AtLeast(min Severity) bool {
	return s.rank() >= min.rank()
}

// Valid reports whether s is one of the fixed severity tiers.
func (s Severity) Valid() bool {
	return s.rank() > 0
}

// Violation records a denied or anomalous action. It is derived from exactly
// one evaluated action (or a directly-reported external detection) and is
// never edited after creation.
type Violation struct {
	ID         int64
	AgentID    string
	AgentName  string // denormalized display name, populated on reads
	ActionType string
	Severity   Severity
	Reason     string
	Details    map[string]any
	CreatedAt  time.Time
}

type ViolationRepository interface {
	Create(ctx context.Context, v *Violation) error
	// ListRecent returns up to limit violations, most recent first, with
	// the owning agent's display name joined in where one exists.
	ListRecent(ctx context.Context, limit int) ([]*Violation, error)
}
