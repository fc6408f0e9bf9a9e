// Package permissions holds the single role/action authorization table
// consulted before every dispatch transition. It replaces per-handler
// role string comparisons with one declarative gate.
package permissions

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleOperator Role = "OPERATOR"
	RoleDriver   Role = "DRIVER"
	RoleMechanic Role = "MECHANIC"
	RoleDoctor   Role = "DOCTOR"
)

type Action string

const (
	ActionCreateOrder    Action = "create_order"
	ActionAssignDriver   Action = "assign_driver"
	ActionStartTrip      Action = "start_trip"
	ActionCompleteOrder  Action = "complete_order"
	ActionCancelOrder    Action = "cancel_order"
	ActionOpenShift      Action = "open_shift"
	ActionCloseShift     Action = "close_shift"
	ActionCancelShift    Action = "cancel_shift"
	ActionDeleteShift    Action = "delete_shift"
	ActionManageFleet    Action = "manage_fleet"
	ActionSetMedical     Action = "set_medical_status"
	ActionSetTechnical   Action = "set_technical_status"
	ActionViewOverview   Action = "view_overview"
	ActionWatchDispatch  Action = "watch_dispatch"
)

// Actor is the authenticated identity a request acts as.
type Actor struct {
	ID   string
	Role Role
}

// ADMIN is not listed: it passes every action unconditionally.
var table = map[Role]map[Action]bool{
	RoleOperator: {
		ActionCreateOrder:   true,
		ActionAssignDriver:  true,
		ActionCancelOrder:   true,
		ActionWatchDispatch: true,
	},
	RoleDriver: {
		ActionStartTrip:     true,
		ActionCompleteOrder: true,
	},
	RoleMechanic: {
		ActionOpenShift:    true,
		ActionCloseShift:   true,
		ActionCancelShift:  true,
		ActionManageFleet:  true,
		ActionSetTechnical: true,
	},
	RoleDoctor: {
		ActionSetMedical: true,
	},
}

// Allowed reports whether role may perform action. Pure table lookup,
// never errors; an unknown role or action is simply denied.
func Allowed(role Role, action Action) bool {
	if role == RoleAdmin {
		return true
	}
	return table[role][action]
}

// OwnsOrder is the second gate for driver-scoped order actions: a
// DRIVER may only act on orders assigned to them. Other roles that
// passed the action table are not ownership-restricted.
func OwnsOrder(actor Actor, assignedDriverID *string) bool {
	if actor.Role != RoleDriver {
		return true
	}
	return assignedDriverID != nil && *assignedDriverID == actor.ID
}

// ValidRole reports whether s names a known role.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleAdmin, RoleOperator, RoleDriver, RoleMechanic, RoleDoctor:
		return true
	}
	return false
}
