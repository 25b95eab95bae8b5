package shared

// Role is the access level attached to an authenticated principal. It is
// mirrored into a cookie so the gatekeeper can branch without decoding the
// bearer token.
type Role string

const (
	RoleAdmin        Role = "admin"
	RolePartialAdmin Role = "partial_admin"
	RoleStaff        Role = "staff"
	RoleInstructor   Role = "instructor"
	RoleStudent      Role = "student"
	RoleMentor       Role = "mentor"
	RoleManager      Role = "manager"
)

var knownRoles = map[Role]struct{}{
	RoleAdmin:        {},
	RolePartialAdmin: {},
	RoleStaff:        {},
	RoleInstructor:   {},
	RoleStudent:      {},
	RoleMentor:       {},
	RoleManager:      {},
}

// Valid reports whether r is one of the platform roles.
func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

// LandingPath returns the home page a signed-in principal of this role is
// sent to after login or when visiting an auth-only page.
func (r Role) LandingPath() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RolePartialAdmin:
		return "/hrms/dashboard"
	default:
		return "/dashboard"
	}
}

// In reports whether r is a member of the given role set.
func (r Role) In(roles []Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}
