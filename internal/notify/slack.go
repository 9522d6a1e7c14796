// Package notify pushes high-severity violations to a Slack channel so
// on-call reviewers hear about them without watching a dashboard.
package notify

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"

	"github.com/metisguard/metis/internal/domain"
)

// SlackAPI abstracts the subset of the Slack client used by SlackAlerter.
// This allows testing without real HTTP calls.
type SlackAPI interface {
	PostMessage(channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackAlerter posts violation alerts at or above a severity threshold.
// It satisfies the engine's Broadcaster contract so it can ride the same
// fan-out as the observer hub.
type SlackAlerter struct {
	api     SlackAPI
	channel string
	min     domain.Severity
}

// NewSlackAlerter creates a SlackAlerter posting to the given channel.
// min defaults to HIGH when empty.
func NewSlackAlerter(api SlackAPI, channel string, min domain.Severity) *SlackAlerter {
	if !min.Valid() {
		min = domain.SeverityHigh
	}
	return &SlackAlerter{api: api, channel: channel, min: min}
}

// Broadcast posts the violation to Slack when it clears the threshold.
// Below-threshold violations are silently skipped.
func (a *SlackAlerter) Broadcast(_ context.Context, v *domain.Violation) error {
	if !v.Severity.AtLeast(a.min) {
		return nil
	}

	agent := v.AgentID
	if v.AgentName != "" {
		agent = fmt.Sprintf("%s (%s)", v.AgentName, v.AgentID)
	}

	text := fmt.Sprintf("[%s] %s attempted %s: %s", v.Severity, agent, v.ActionType, v.Reason)

	_, _, err := a.api.PostMessage(a.channel, slacklib.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("notify.SlackAlerter.Broadcast: %w", err)
	}

	return nil
}
