// Package gate decides whether a session may see a role-restricted view.
package gate

import (
	"casedesk/internal/models"
	"casedesk/internal/state"
)

type Outcome int

const (
	Resolving Outcome = iota
	Denied
	Granted
)

func (o Outcome) String() string {
	switch o {
	case Resolving:
		return "resolving"
	case Denied:
		return "denied"
	case Granted:
		return "granted"
	}
	return "unknown"
}

const (
	RouteLogin = "/login"
	RouteUser  = "/user"
	RouteAdmin = "/admin"
)

// Requirement is the role a view needs. An empty Role admits any signed-in
// user.
type Requirement struct {
	Role models.Role
}

type Verdict struct {
	Outcome  Outcome
	Redirect string
}

// Evaluate is re-run on every request; verdicts are never cached.
func Evaluate(s state.SessionState, req Requirement) Verdict {
	if s.Loading {
		return Verdict{Outcome: Resolving}
	}
	if !s.IsAuthenticated() {
		return Verdict{Outcome: Denied, Redirect: RouteLogin}
	}
	if req.Role != "" && s.User.Role != req.Role {
		return Verdict{Outcome: Denied, Redirect: Landing(s.User.Role)}
	}
	return Verdict{Outcome: Granted}
}

// Landing is the home view for a role.
func Landing(r models.Role) string {
	if r == models.RoleAdmin {
		return RouteAdmin
	}
	return RouteUser
}
