package governance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metisguard/metis/internal/domain"
	"github.com/metisguard/metis/internal/governance"
)

var (
	// 2026-08-25 is a Tuesday, 2026-08-29 a Saturday.
	tuesdayAfternoon = time.Date(2026, time.August, 25, 14, 0, 0, 0, time.UTC)
	saturdayNight    = time.Date(2026, time.August, 29, 3, 0, 0, 0, time.UTC)
)

func TestDetector_RapidActions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		count int
		fires bool
	}{
		{"below threshold", 5, false},
		{"at threshold", 10, false},
		{"above threshold", 11, true},
		{"far above threshold", 200, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			actions := &mockActionRepo{
				countSinceFunc: func(_ context.Context, agentID, actionType string, cutoff time.Time) (int, error) {
					assert.Equal(t, "worker-1", agentID)
					assert.Equal(t, "ping", actionType)
					assert.Equal(t, tuesdayAfternoon.Add(-5*time.Minute), cutoff)
					return tt.count, nil
				},
			}
			detector := governance.NewDetector(actions, governance.BehaviorConfig{}, fixedClock(tuesdayAfternoon))

			v, err := detector.Check(context.Background(), "worker-1", "ping", map[string]any{"seq": 1})
			require.NoError(t, err)

			if !tt.fires {
				assert.Nil(t, v)
				return
			}

			require.NotNil(t, v)
			assert.Equal(t, domain.SeverityHigh, v.Severity)
			assert.Equal(t, "rapid_actions", v.Details["pattern"])
			assert.Equal(t, "rapid successive actions detected - possible automation attack", v.Reason)
		})
	}
}

func TestDetector_OffHours(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		now        time.Time
		actionType string
		fires      bool
	}{
		{"sensitive action on saturday night", saturdayNight, "delete_data", true},
		{"sensitive action on tuesday afternoon", tuesdayAfternoon, "delete_data", false},
		{"non-sensitive action on saturday night", saturdayNight, "ping", false},
		{"sensitive action before opening", time.Date(2026, time.August, 25, 8, 59, 0, 0, time.UTC), "access_personal_data", true},
		{"sensitive action at opening", time.Date(2026, time.August, 25, 9, 0, 0, 0, time.UTC), "access_personal_data", false},
		{"sensitive action at close hour", time.Date(2026, time.August, 25, 18, 30, 0, 0, time.UTC), "access_personal_data", false},
		{"sensitive action late evening", time.Date(2026, time.August, 25, 19, 0, 0, 0, time.UTC), "access_personal_data", true},
		{"sensitive action on sunday noon", time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC), "delete_data", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			detector := governance.NewDetector(&mockActionRepo{}, governance.BehaviorConfig{}, fixedClock(tt.now))

			v, err := detector.Check(context.Background(), "worker-1", tt.actionType, nil)
			require.NoError(t, err)

			if !tt.fires {
				assert.Nil(t, v)
				return
			}

			require.NotNil(t, v)
			assert.Equal(t, domain.SeverityMedium, v.Severity)
			assert.Equal(t, "off_hours", v.Details["pattern"])
			assert.Equal(t, "sensitive action performed outside business hours", v.Reason)
		})
	}
}

// The rapid check runs first and short-circuits: a sensitive action flooding
// in off-hours yields the rapid-action violation only.
func TestDetector_RapidCheckWinsOverOffHours(t *testing.T) {
	t.Parallel()

	actions := &mockActionRepo{
		countSinceFunc: func(context.Context, string, string, time.Time) (int, error) {
			return 50, nil
		},
	}
	detector := governance.NewDetector(actions, governance.BehaviorConfig{}, fixedClock(saturdayNight))

	v, err := detector.Check(context.Background(), "worker-1", "delete_data", nil)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "rapid_actions", v.Details["pattern"])
	assert.Equal(t, domain.SeverityHigh, v.Severity)
}

func TestDetector_DoesNotMutateCallerDetails(t *testing.T) {
	t.Parallel()

	details := map[string]any{"customer": "CUST_1"}
	detector := governance.NewDetector(&mockActionRepo{}, governance.BehaviorConfig{}, fixedClock(saturdayNight))

	v, err := detector.Check(context.Background(), "worker-1", "delete_data", details)
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, map[string]any{"customer": "CUST_1"}, details, "caller's payload must stay untouched")
	assert.Equal(t, "CUST_1", v.Details["customer"], "violation payload keeps the original fields")
}

func TestDetector_CountQueryError(t *testing.T) {
	t.Parallel()

	actions := &mockActionRepo{
		countSinceFunc: func(context.Context, string, string, time.Time) (int, error) {
			return 0, errors.New("connection reset")
		},
	}
	detector := governance.NewDetector(actions, governance.BehaviorConfig{}, fixedClock(tuesdayAfternoon))

	v, err := detector.Check(context.Background(), "worker-1", "ping", nil)
	assert.Nil(t, v)
	assert.ErrorContains(t, err, "connection reset")
}

func TestDetector_ConfigurableThresholdAndWindow(t *testing.T) {
	t.Parallel()

	actions := &mockActionRepo{
		countSinceFunc: func(_ context.Context, _, _ string, cutoff time.Time) (int, error) {
			assert.Equal(t, tuesdayAfternoon.Add(-time.Minute), cutoff)
			return 3, nil
		},
	}
	detector := governance.NewDetector(actions, governance.BehaviorConfig{
		RapidThreshold: 2,
		RapidWindow:    time.Minute,
	}, fixedClock(tuesdayAfternoon))

	v, err := detector.Check(context.Background(), "worker-1", "ping", nil)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "rapid_actions", v.Details["pattern"])
}
