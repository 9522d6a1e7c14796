package governance

import "github.com/metisguard/metis/internal/domain"

// Decision is the outcome of a permission evaluation.
type Decision struct {
	Allowed bool
}

// Evaluate decides whether an agent may perform an action. It is a pure
// function over the agent's declared permission set: no history, no side
// effects, identical inputs give identical results.
//
// A nil agent means the reporting identity is unregistered and the decision
// is always denied (fail closed). A literal match of the action type in the
// permission set allows it; two action types additionally accept
// parameterized permission tokens composed from the details payload.
func Evaluate(agent *domain.Agent, actionType string, details map[string]any) Decision {
	if agent == nil {
		return Decision{Allowed: false}
	}

	if agent.HasPermission(actionType) {
		return Decision{Allowed: true}
	}

	switch actionType {
	case "access_data":
		dataType := detailString(details, "dataType", "unknown")
		return Decision{Allowed: agent.HasPermission("access_" + dataType + "_data")}
	case "send_communication":
		commType := detailString(details, "type", "unknown")
		return Decision{Allowed: agent.HasPermission("send_" + commType)}
	}

	return Decision{Allowed: false}
}

// detailString extracts a string field from the details payload, falling
// back when the key is absent or not a string.
func detailString(details map[string]any, key, fallback string) string {
	if details == nil {
		return fallback
	}
	if v, ok := details[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
