/*
Package auth provides caller identity and the access policy for the cash desk.

PURPOSE:
  Defines WHO is calling (CallerIdentity: a typed, verified identity threaded
  explicitly through every operation) and WHAT they may do (a static
  role-action matrix plus per-resource scope checks).

KEY CONCEPTS IN THIS FILE (identity.go):
  - Role: Closed enumeration of role tags. Anything else is denied.
  - Caller: Typed identity derived from a verified credential upstream.
  - Scope tiers: full access, city-scoped, ownership-scoped.

SCOPE TIERS:
  Full access (admin, callcentre_admin):
    No scope checks at all.
  City-scoped (any caller with a non-empty AllowedCities set, i.e. directors):
    May only touch resources in one of their cities.
  Ownership-scoped (everyone else: masters and operators):
    May only touch resources they created themselves.

DESIGN PRINCIPLES:
  1. Closed role set: Unrecognized or missing role is always a denial.
  2. Explicit threading: Caller is a parameter, never a global lookup.
  3. Ownership by immutable id: Resources record the creator's user id, not
     just the display name. Names change; ids do not.

SEE ALSO:
  - policy.go: Role-action matrix and scope evaluation
  - middleware.go: HTTP extraction of the caller identity
*/
package auth

// =============================================================================
// ROLE - Closed set of role tags
// =============================================================================

type Role string

const (
	RoleAdmin              Role = "admin"
	RoleDirector           Role = "director"
	RoleMaster             Role = "master"
	RoleCallCentreAdmin    Role = "callcentre_admin"
	RoleCallCentreOperator Role = "callcentre_operator"
	RoleOperator           Role = "operator"
)

// ParseRole maps a role tag to a Role. Unknown tags return ok=false;
// callers with an unparseable role must be denied everywhere.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleDirector, RoleMaster,
		RoleCallCentreAdmin, RoleCallCentreOperator, RoleOperator:
		return Role(s), true
	default:
		return "", false
	}
}

// FullAccess reports whether the role bypasses scope checks entirely.
func (r Role) FullAccess() bool {
	return r == RoleAdmin || r == RoleCallCentreAdmin
}

// =============================================================================
// CALLER - Verified identity threaded through every operation
// =============================================================================

// Caller is the identity acting on a request. It is derived from a credential
// verified upstream; this package never persists it.
type Caller struct {
	UserID      int64
	Login       string
	Role        Role
	DisplayName string

	// AllowedCities restricts the caller to resources in these cities.
	// Empty means no city restriction (full-access roles are unrestricted,
	// everyone else falls back to ownership checks).
	AllowedCities []string
}

// CityScoped reports whether the caller carries a city restriction.
func (c Caller) CityScoped() bool {
	return !c.Role.FullAccess() && len(c.AllowedCities) > 0
}

// CityAllowed reports whether the caller may touch resources in city.
// Full-access callers may touch any city; callers without a city set are
// not restricted by city (they are restricted by ownership instead).
func (c Caller) CityAllowed(city string) bool {
	if !c.CityScoped() {
		return true
	}
	for _, allowed := range c.AllowedCities {
		if allowed == city {
			return true
		}
	}
	return false
}
