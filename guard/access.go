// Package guard gates rendering of views. The access guard is a pure,
// synchronous check over already-loaded session state; the approval
// gate layers an asynchronous remote check on top for vendor views.
package guard

import (
	"github.com/craftmarket/storefront/api"
	"github.com/craftmarket/storefront/core"
	"github.com/craftmarket/storefront/store"
)

// Decision is the outcome of an access check
type Decision string

const (
	// DecisionAllow renders the requested view
	DecisionAllow Decision = "allow"

	// DecisionLogin redirects to the login view, remembering the
	// originally requested path
	DecisionLogin Decision = "login"

	// DecisionHome redirects to the user's own role home
	DecisionHome Decision = "home"
)

// Well-known view paths
const (
	LoginPath    = "/login"
	CustomerHome = "/"
	VendorHome   = "/vendor"
	AdminHome    = "/admin"
)

// Access is the result of checking a navigation attempt
type Access struct {
	Decision   Decision
	RedirectTo string // target path when Decision is not allow
	ReturnTo   string // original path, set so login can return the user
}

// AccessGuard decides whether a requested view may render based solely
// on session state. It never performs network I/O.
type AccessGuard struct {
	logger core.Logger
}

// NewAccessGuard creates an access guard
func NewAccessGuard(logger core.Logger) *AccessGuard {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &AccessGuard{logger: logger}
}

// Check evaluates one navigation attempt. allowedRoles empty means any
// authenticated user may enter.
func (g *AccessGuard) Check(session store.Session, requestedPath string, allowedRoles []string) Access {
	if !session.IsAuthenticated {
		return Access{
			Decision:   DecisionLogin,
			RedirectTo: LoginPath,
			ReturnTo:   requestedPath,
		}
	}

	if len(allowedRoles) > 0 && !roleAllowed(session.User.Role, allowedRoles) {
		return Access{
			Decision:   DecisionHome,
			RedirectTo: g.homeFor(session.User.Role),
		}
	}

	return Access{Decision: DecisionAllow}
}

func roleAllowed(role string, allowed []string) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// homeFor maps a role to its home view. The mapping is total: any role
// outside the known set falls through to the customer home. That
// permissive fallback matches long-standing behavior; it is logged so
// an unexpected role shows up in diagnostics instead of silently
// browsing as a customer.
func (g *AccessGuard) homeFor(role string) string {
	switch role {
	case api.RoleAdmin:
		return AdminHome
	case api.RoleVendor:
		return VendorHome
	case api.RoleCustomer:
		return CustomerHome
	default:
		g.logger.Warn("Unrecognized role treated as customer", map[string]interface{}{
			"operation": "guard_role_fallback",
			"role":      role,
		})
		return CustomerHome
	}
}
