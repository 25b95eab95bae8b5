// Package gate implements the edge gatekeeper: a synchronous, side-effect
// free decision over the auth cookie pair and the requested path, evaluated
// before any page handler runs.
package gate

import (
	"net/url"
	"strings"

	"github.com/brightpath-hq/brightpath/internal/shared"
)

// Route prefix classification. This table is the contract other engineers
// must match bit-exactly; changing it changes who can see what.
var (
	protectedPrefixes = []string{"/dashboard", "/admin", "/hrms", "/profile", "/settings"}
	authOnlyPrefixes  = []string{"/login", "/register", "/forgot-password", "/reset-password", "/verify-email"}
)

// Cookies is the gatekeeper's snapshot of the auth cookie pair. Values that
// failed signature verification arrive here as zero values.
type Cookies struct {
	Token string
	Role  shared.Role
}

// Action is the kind of decision the gatekeeper produces.
type Action int

const (
	// ActionPass lets the request through unmodified.
	ActionPass Action = iota
	// ActionRedirect sends the browser elsewhere before any rendering work.
	ActionRedirect
)

// Decision outcomes, used as metric labels.
const (
	OutcomePass            = "pass"
	OutcomeLoginRedirect   = "login_redirect"
	OutcomeLandingRedirect = "landing_redirect"
	OutcomeRoleRedirect    = "role_redirect"
)

// Decision is the gatekeeper verdict for one request.
type Decision struct {
	Action   Action
	Location string
	Outcome  string
}

func pass() Decision {
	return Decision{Action: ActionPass, Outcome: OutcomePass}
}

func redirect(location, outcome string) Decision {
	return Decision{Action: ActionRedirect, Location: location, Outcome: outcome}
}

// Decide classifies pathname and applies the access rules in order. Only the
// first matching rule's redirect is returned; violations are not aggregated.
// It performs no I/O and trusts the role cookie blindly; the route guard is
// the backstop for the staleness window that leaves open.
func Decide(c Cookies, pathname string) Decision {
	if hasPrefix(pathname, protectedPrefixes) && c.Token == "" {
		q := url.Values{}
		q.Set("callbackUrl", pathname)
		return redirect("/login?"+q.Encode(), OutcomeLoginRedirect)
	}
	if hasPrefix(pathname, authOnlyPrefixes) && c.Token != "" {
		return redirect(c.Role.LandingPath(), OutcomeLandingRedirect)
	}
	if underPrefix(pathname, "/admin") && c.Role != shared.RoleAdmin {
		return redirect("/dashboard", OutcomeRoleRedirect)
	}
	if underPrefix(pathname, "/hrms") && c.Role != shared.RoleAdmin && c.Role != shared.RolePartialAdmin {
		return redirect("/dashboard", OutcomeRoleRedirect)
	}
	return pass()
}

func hasPrefix(pathname string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if underPrefix(pathname, prefix) {
			return true
		}
	}
	return false
}

// underPrefix matches whole path segments: "/admin" covers "/admin" and
// "/admin/x" but not "/administrator".
func underPrefix(pathname, prefix string) bool {
	return pathname == prefix || strings.HasPrefix(pathname, prefix+"/")
}
