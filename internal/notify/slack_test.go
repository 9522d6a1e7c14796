package notify_test

import (
	"context"
	"errors"
	"testing"

	slacklib "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metisguard/metis/internal/domain"
	"github.com/metisguard/metis/internal/notify"
)

type mockSlackAPI struct {
	postFunc func(channelID string, options ...slacklib.MsgOption) (string, string, error)
	posts    []string
}

func (m *mockSlackAPI) PostMessage(channelID string, options ...slacklib.MsgOption) (string, string, error) {
	if m.postFunc != nil {
		return m.postFunc(channelID, options...)
	}
	m.posts = append(m.posts, channelID)
	return channelID, "1700000000.000100", nil
}

func makeViolation(severity domain.Severity) *domain.Violation {
	return &domain.Violation{
		AgentID:    "worker-1",
		ActionType: "delete_data",
		Severity:   severity,
		Reason:     "Action 'delete_data' not in permitted actions: [ping]",
	}
}

func TestSlackAlerter_SeverityThreshold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		severity domain.Severity
		posted   bool
	}{
		{domain.SeverityLow, false},
		{domain.SeverityMedium, false},
		{domain.SeverityHigh, true},
		{domain.SeverityCritical, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			t.Parallel()

			api := &mockSlackAPI{}
			alerter := notify.NewSlackAlerter(api, "#governance-alerts", domain.SeverityHigh)

			require.NoError(t, alerter.Broadcast(context.Background(), makeViolation(tt.severity)))

			if tt.posted {
				require.Len(t, api.posts, 1)
				assert.Equal(t, "#governance-alerts", api.posts[0])
			} else {
				assert.Empty(t, api.posts)
			}
		})
	}
}

func TestSlackAlerter_DefaultThresholdIsHigh(t *testing.T) {
	t.Parallel()

	api := &mockSlackAPI{}
	alerter := notify.NewSlackAlerter(api, "#alerts", "")

	require.NoError(t, alerter.Broadcast(context.Background(), makeViolation(domain.SeverityMedium)))
	assert.Empty(t, api.posts)

	require.NoError(t, alerter.Broadcast(context.Background(), makeViolation(domain.SeverityHigh)))
	assert.Len(t, api.posts, 1)
}

func TestSlackAlerter_PostFailure(t *testing.T) {
	t.Parallel()

	api := &mockSlackAPI{
		postFunc: func(string, ...slacklib.MsgOption) (string, string, error) {
			return "", "", errors.New("rate limited")
		},
	}
	alerter := notify.NewSlackAlerter(api, "#alerts", domain.SeverityHigh)

	err := alerter.Broadcast(context.Background(), makeViolation(domain.SeverityCritical))
	assert.ErrorContains(t, err, "rate limited")
}
