// Package hub fans detected violations out to attached observers in real
// time. Fan-out rides the shared event bus so subscriber iteration never
// blocks the report path; each subscription gets an independent buffered
// channel and a slow consumer loses messages instead of stalling the hub.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/metisguard/metis/internal/domain"
	redisstore "github.com/metisguard/metis/internal/store/redis"
)

// EventBus is the transport underneath the hub. *redis.PubSub satisfies it;
// tests use an in-memory implementation.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Event is the wire form of a violation pushed to observers. Field names
// match the persisted relation so dashboards read one shape everywhere.
type Event struct {
	ID         int64          `json:"id"`
	AgentID    string         `json:"agent_id"`
	AgentName  string         `json:"agent_name,omitempty"`
	ActionType string         `json:"action_type"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason"`
	Details    map[string]any `json:"details"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Encode renders a violation as its observer wire form.
func Encode(v *domain.Violation) ([]byte, error) {
	payload, err := json.Marshal(Event{
		ID:         v.ID,
		AgentID:    v.AgentID,
		AgentName:  v.AgentName,
		ActionType: v.ActionType,
		Severity:   string(v.Severity),
		Reason:     v.Reason,
		Details:    v.Details,
		Timestamp:  v.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("hub.Encode: %w", err)
	}
	return payload, nil
}

// Subscription is one attached observer. Backlog holds the most recent
// violations at attach time, newest first; Events streams everything
// broadcast afterwards as encoded payloads.
type Subscription struct {
	ID      uuid.UUID
	Backlog []*domain.Violation
	Events  <-chan []byte

	once    sync.Once
	cleanup func()
}

// Close detaches the observer. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cleanup)
}

// Hub broadcasts violation events and hands new observers their initial
// backlog. The connected-observer count is explicit hub state, surfaced for
// the status endpoint rather than kept as an ambient global.
type Hub struct {
	bus        EventBus
	violations domain.ViolationRepository
	backlog    int

	mu        sync.Mutex
	observers int
}

// New creates a Hub. backlog bounds the initial snapshot handed to each new
// observer; zero means the default of 100.
func New(bus EventBus, violations domain.ViolationRepository, backlog int) *Hub {
	if backlog <= 0 {
		backlog = 100
	}
	return &Hub{bus: bus, violations: violations, backlog: backlog}
}

// Attach registers an observer: it loads the violation backlog, subscribes
// to the violations channel, and returns the combined subscription. The
// subscription lives until Close is called or ctx is cancelled.
func (h *Hub) Attach(ctx context.Context) (*Subscription, error) {
	backlog, err := h.violations.ListRecent(ctx, h.backlog)
	if err != nil {
		return nil, fmt.Errorf("hub.Attach: backlog: %w", err)
	}

	events, cleanup, err := h.bus.Subscribe(ctx, redisstore.ChannelViolations)
	if err != nil {
		return nil, fmt.Errorf("hub.Attach: subscribe: %w", err)
	}

	h.mu.Lock()
	h.observers++
	h.mu.Unlock()

	return &Subscription{
		ID:      uuid.New(),
		Backlog: backlog,
		Events:  events,
		cleanup: func() {
			cleanup()
			h.mu.Lock()
			h.observers--
			h.mu.Unlock()
		},
	}, nil
}

// Broadcast pushes a violation to every attached observer. Per-subscriber
// delivery order matches broadcast order; cross-subscriber timing is not
// synchronized.
func (h *Hub) Broadcast(ctx context.Context, v *domain.Violation) error {
	payload, err := Encode(v)
	if err != nil {
		return fmt.Errorf("hub.Broadcast: %w", err)
	}
	if err := h.bus.Publish(ctx, redisstore.ChannelViolations, payload); err != nil {
		return fmt.Errorf("hub.Broadcast: %w", err)
	}
	return nil
}

// Observers returns the number of currently attached observers.
func (h *Hub) Observers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.observers
}
