/*
policy.go - Role-action matrix and per-resource scope evaluation

PURPOSE:
  A single policy-evaluation function replaces scattered per-endpoint
  conditionals. Two axes compose:
  1. Role-action matrix: which roles may perform an action at all.
  2. Scope check: city membership or creator identity, per resource.

MATRIX:
  list / get / create / update: all recognized roles
  delete:                       admin, callcentre_admin, callcentre_operator,
                                operator (role check only, no scope check)

DENIALS:
  Deny carries a stable, user-safe reason. The reason never distinguishes
  "resource exists but is out of scope" from "resource does not exist";
  both surface to callers as the same denial class.

SEE ALSO:
  - identity.go: Caller and scope tiers
  - cash/service.go: Applies decisions before any store interaction
*/
package auth

import "errors"

// ErrForbidden is the denial class for every policy failure. The message is
// deliberately generic so a denial never confirms that a resource exists.
var ErrForbidden = errors.New("access denied")

// =============================================================================
// ACTIONS
// =============================================================================

type Action string

const (
	ActionList   Action = "list"
	ActionGet    Action = "get"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// roleActions is the static role-action matrix. An action missing a role's
// entry is denied for that role.
var roleActions = map[Action]map[Role]bool{
	ActionList: {
		RoleAdmin: true, RoleDirector: true, RoleMaster: true,
		RoleCallCentreAdmin: true, RoleCallCentreOperator: true, RoleOperator: true,
	},
	ActionGet: {
		RoleAdmin: true, RoleDirector: true, RoleMaster: true,
		RoleCallCentreAdmin: true, RoleCallCentreOperator: true, RoleOperator: true,
	},
	ActionCreate: {
		RoleAdmin: true, RoleDirector: true, RoleMaster: true,
		RoleCallCentreAdmin: true, RoleCallCentreOperator: true, RoleOperator: true,
	},
	ActionUpdate: {
		RoleAdmin: true, RoleDirector: true, RoleMaster: true,
		RoleCallCentreAdmin: true, RoleCallCentreOperator: true, RoleOperator: true,
	},
	ActionDelete: {
		RoleAdmin: true, RoleCallCentreAdmin: true,
		RoleCallCentreOperator: true, RoleOperator: true,
	},
}

// =============================================================================
// DECISION
// =============================================================================

// Resource carries the attributes a scope check needs. Nil means the action
// has no target resource (create, list).
type Resource struct {
	City        string
	CreatedByID int64
}

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Err converts a denial into the uniform denial error. Allowed decisions
// return nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return ErrForbidden
}

// Decide evaluates the policy for caller performing action on resource.
//
// Role matrix first, then scope:
//   - full-access roles bypass scope entirely
//   - city-scoped callers are denied if the resource city is outside their set
//   - everyone else must be the resource creator (by immutable user id)
//
// Delete is role-gated only; no scope check is applied beyond the matrix.
func Decide(caller Caller, action Action, resource *Resource) Decision {
	if _, ok := ParseRole(string(caller.Role)); !ok {
		return deny("unrecognized role")
	}
	if !roleActions[action][caller.Role] {
		return deny("role not permitted for this operation")
	}

	if resource == nil || action == ActionDelete {
		return allow()
	}
	if caller.Role.FullAccess() {
		return allow()
	}
	if caller.CityScoped() {
		if !caller.CityAllowed(resource.City) {
			return deny("access denied")
		}
		return allow()
	}
	if resource.CreatedByID != caller.UserID {
		return deny("access denied")
	}
	return allow()
}
