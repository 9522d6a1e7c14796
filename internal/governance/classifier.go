package governance

import "github.com/metisguard/metis/internal/domain"

// Static risk tables. Membership is by exact action-type string; anything
// listed in neither table is low risk. The high-risk set doubles as the
// sensitive-action set for the off-hours behavioral check.
var (
	highRiskActions = map[string]struct{}{
		"access_financial_data":  {},
		"access_personal_data":   {},
		"delete_data":            {},
		"modify_permissions":     {},
		"access_admin_functions": {},
	}

	mediumRiskActions = map[string]struct{}{
		"access_data": {},
		"send_email":  {},
		"create_user": {},
		"modify_data": {},
	}
)

// Classify maps an action type to its static severity tier. Pure function
// over the risk tables; unknown action types are LOW, not an error.
func Classify(actionType string) domain.Severity {
	if _, ok := highRiskActions[actionType]; ok {
		return domain.SeverityHigh
	}
	if _, ok := mediumRiskActions[actionType]; ok {
		return domain.SeverityMedium
	}
	return domain.SeverityLow
}

// Sensitive reports whether the action type is in the high-risk set.
func Sensitive(actionType string) bool {
	_, ok := highRiskActions[actionType]
	return ok
}
