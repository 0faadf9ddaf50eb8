package domain

import "fmt"

// Action names a role-gated workflow operation.
type Action string

const (
	ActionSubmitKnowledge     Action = "knowledge:submit"
	ActionDecideValidation    Action = "knowledge:decide"
	ActionListPendingAccounts Action = "accounts:list-pending"
	ActionApproveAccount      Action = "accounts:approve"
	ActionRejectAccount       Action = "accounts:reject"
)

// requiredRoles is the complete permission table. Actions not listed are
// denied to everyone.
var requiredRoles = map[Action]Role{
	ActionSubmitKnowledge:     RoleConsultant,
	ActionDecideValidation:    RoleKnowledgeChampion,
	ActionListPendingAccounts: RoleAdmin,
	ActionApproveAccount:      RoleAdmin,
	ActionRejectAccount:       RoleAdmin,
}

// Allow reports whether a caller holding role may perform action.
// The role is taken as asserted by the caller layer.
func Allow(role Role, action Action) bool {
	required, ok := requiredRoles[action]
	return ok && role == required
}

// Authorize is Allow expressed as an error.
func Authorize(role Role, action Action) error {
	if Allow(role, action) {
		return nil
	}
	required, _ := RequiredRole(action)
	return fmt.Errorf("%w: %s requires role %s", ErrForbidden, action, required)
}

// RequiredRole returns the role gating action.
func RequiredRole(action Action) (Role, bool) {
	r, ok := requiredRoles[action]
	return r, ok
}
