// Package proxy intercepts an agent's outbound network calls, classifies
// the target endpoint against configured authorized/unauthorized sets, and
// reports the outcome through the governance engine. Classification is
// observational: the call is always relayed, never blocked.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/metisguard/metis/internal/governance"
)

// ErrRelay marks an outbound call that failed or timed out. The
// classification report is sent regardless, with no response code.
var ErrRelay = errors.New("proxy: relay failed")

// Reporter is the slice of the governance engine the classifier needs.
type Reporter interface {
	ReportAction(ctx context.Context, agentID, actionType string, details map[string]any) (*governance.Outcome, error)
}

// Endpoints holds the configured endpoint sets. Matching is substring
// containment, mirroring how operators write the lists ("api.github.com"
// covers every path under it).
type Endpoints struct {
	Authorized   []string
	Unauthorized []string
}

// RelayResult is what the intercepted caller gets back.
type RelayResult struct {
	StatusCode int
	Authorized bool
}

// Classifier relays intercepted calls and feeds the engine's report path.
type Classifier struct {
	endpoints Endpoints
	reporter  Reporter
	client    *http.Client
}

// New creates a Classifier. The client must carry a bounded timeout; the
// relay is the only place this system waits on external I/O and it holds
// no store resources while doing so.
func New(endpoints Endpoints, reporter Reporter, client *http.Client) *Classifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &Classifier{endpoints: endpoints, reporter: reporter, client: client}
}

// Classify decides whether the target is an authorized endpoint. The
// unauthorized list wins over the authorized one, and a target matching
// neither list is unauthorized by default -- same fail-closed posture as
// the permission evaluator.
func (c *Classifier) Classify(target string) bool {
	if containsAny(target, c.endpoints.Unauthorized) {
		return false
	}
	return containsAny(target, c.endpoints.Authorized)
}

// ClassifyAndRelay classifies the target, performs the real call, and
// reports the outcome as an agent action. A relay failure is returned as
// ErrRelay but never suppresses the report; the report then carries no
// response code.
func (c *Classifier) ClassifyAndRelay(ctx context.Context, agentID, target, method, userAgent string) (*RelayResult, error) {
	authorized := c.Classify(target)

	statusCode, relayErr := c.relay(ctx, target, method, userAgent)

	actionType := "unauthorized_network_access"
	if authorized {
		actionType = "authorized_network_access"
	}

	details := map[string]any{
		"target":            target,
		"method":            method,
		"userAgent":         userAgent,
		"statusCode":        statusCode,
		"authorized":        authorized,
		"detectedBy":        "traffic_monitor",
		"externalDetection": true,
	}

	if _, err := c.reporter.ReportAction(ctx, agentID, actionType, details); err != nil {
		log.Warn().Err(err).
			Str("agent_id", agentID).
			Str("target", target).
			Msg("traffic classification report failed")
	}

	result := &RelayResult{StatusCode: statusCode, Authorized: authorized}
	if relayErr != nil {
		return result, fmt.Errorf("proxy.Classifier.ClassifyAndRelay: %s %s: %w: %w", method, target, ErrRelay, relayErr)
	}
	return result, nil
}

// relay performs the outbound call and returns the response status, or 0
// when no response was obtained.
func (c *Classifier) relay(ctx context.Context, target, method, userAgent string) (int, error) {
	url := target
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func containsAny(target string, endpoints []string) bool {
	for _, e := range endpoints {
		if e != "" && strings.Contains(target, e) {
			return true
		}
	}
	return false
}
