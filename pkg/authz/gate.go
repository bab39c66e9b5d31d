package authz

import (
	"context"
	"fmt"
	"time"
)

// Gate orchestrates authorization for protected operations: it resolves the
// caller's role, evaluates the catalog and the relevant predicate, and
// returns a structured decision. Denials are decisions, not errors; errors
// are reserved for missing identity and fact-lookup failures.
type Gate struct {
	resolver  *Resolver
	decisions DecisionLogger
	reporter  ErrorReporter
}

// NewGate creates a gate over the given fact source. The decision logger
// and error reporter are optional; nil sinks are replaced with no-ops.
func NewGate(facts FactSource, decisions DecisionLogger, reporter ErrorReporter) *Gate {
	if decisions == nil {
		decisions = nopDecisionLogger{}
	}
	if reporter == nil {
		reporter = nopErrorReporter{}
	}
	return &Gate{
		resolver:  NewResolver(facts),
		decisions: decisions,
		reporter:  reporter,
	}
}

// Resolver returns the underlying role/scope resolver.
func (g *Gate) Resolver() *Resolver {
	return g.resolver
}

// Context resolves the caller's role and account scope in one step and
// returns them as an explicit value for the calling layer to thread
// through the request.
func (g *Gate) Context(ctx context.Context, userID int64) (*AuthorizationContext, error) {
	role, err := g.resolver.ResolveRole(ctx, userID)
	if err != nil {
		return nil, err
	}
	accountID, err := g.resolver.ResolveAccountScope(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &AuthorizationContext{
		UserID:    userID,
		Role:      role,
		AccountID: accountID,
	}, nil
}

// Authorize checks a coarse, non-resource-scoped permission (team, billing,
// account settings, reports) against the caller's resolved role.
func (g *Gate) Authorize(ctx context.Context, userID int64, perm Permission) (*Decision, error) {
	role, err := g.resolver.ResolveRole(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := g.decide(ctx, userID, role, func() (bool, string) {
		if !HasPermission(role, perm) {
			return false, fmt.Sprintf("role %q lacks permission %q", role, perm)
		}
		return true, fmt.Sprintf("permission %q granted by role %q", perm, role)
	})
	return d, nil
}

// AuthorizeResource checks an action against a specific resource, given the
// resource's ownership and assignment facts. Fetching the facts is the
// caller's responsibility; a missing resource never reaches this method.
func (g *Gate) AuthorizeResource(ctx context.Context, userID int64, facts ResourceFacts, action Action) (*Decision, error) {
	role, err := g.resolver.ResolveRole(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := g.decide(ctx, userID, role, func() (bool, string) {
		perms, ok := resourcePermissions[facts.Kind][action]
		if !ok {
			return false, fmt.Sprintf("unsupported action %q on %s", action, facts.Kind)
		}
		if !HasPermission(role, perms.all) && (perms.assigned == "" || !HasPermission(role, perms.assigned)) {
			return false, fmt.Sprintf("role %q lacks permission %q", role, perms.all)
		}

		allowed := false
		switch facts.Kind {
		case KindProject:
			allowed = CanAccessProject(role, facts.OwnerAccountID, userID, facts.assignedTo(userID))
		case KindTask:
			allowed = CanAccessTask(role, facts.OwnerAccountID, userID, facts.assignedTo(userID))
		}
		if !allowed {
			return false, fmt.Sprintf("%s access denied for role %q", facts.Kind, role)
		}
		return true, fmt.Sprintf("%s %s granted by role %q", facts.Kind, action, role)
	})
	return d, nil
}

// AuthorizeMemberAction checks a team-management permission together with
// the manager/target reach rules: admins manage only members, and nobody
// manages the owner.
func (g *Gate) AuthorizeMemberAction(ctx context.Context, userID int64, targetRole Role, perm Permission) (*Decision, error) {
	role, err := g.resolver.ResolveRole(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := g.decide(ctx, userID, role, func() (bool, string) {
		if !HasPermission(role, perm) {
			return false, fmt.Sprintf("role %q lacks permission %q", role, perm)
		}
		if !CanManageUser(role, targetRole) {
			return false, fmt.Sprintf("role %q cannot manage role %q", role, targetRole)
		}
		return true, fmt.Sprintf("permission %q granted by role %q", perm, role)
	})
	return d, nil
}

// AuthorizeRoleChange checks whether the caller may move a member from
// currentRole to newRole. Role-change writes are privilege-escalation
// operations; callers must treat them as at-most-once.
func (g *Gate) AuthorizeRoleChange(ctx context.Context, userID int64, currentRole, newRole Role) (*Decision, error) {
	role, err := g.resolver.ResolveRole(ctx, userID)
	if err != nil {
		return nil, err
	}
	d := g.decide(ctx, userID, role, func() (bool, string) {
		if !HasPermission(role, PermissionChangeMemberRoles) {
			return false, fmt.Sprintf("role %q lacks permission %q", role, PermissionChangeMemberRoles)
		}
		if !CanChangeRole(currentRole, newRole, role) {
			return false, fmt.Sprintf("role %q cannot change role %q to %q", role, currentRole, newRole)
		}
		return true, fmt.Sprintf("role change %q to %q granted by role %q", currentRole, newRole, role)
	})
	return d, nil
}

// decide runs an evaluation under the fail-closed role check, records the
// outcome, and returns the decision. An unrecognized role read from the
// store is a data-integrity problem: it denies and reports, never panics.
func (g *Gate) decide(ctx context.Context, userID int64, role Role, eval func() (bool, string)) *Decision {
	d := &Decision{Role: role, CheckedAt: time.Now()}
	if !role.Valid() {
		g.reporter.ReportInvalidRole(ctx, userID, string(role))
		d.Reason = "unrecognized role"
	} else {
		d.Allowed, d.Reason = eval()
	}
	g.decisions.LogDecision(ctx, userID, *d)
	return d
}

// resourceActionPermissions pairs the catalog permission for account-wide
// access with the assigned-scope fallback, per resource kind and action.
type resourceActionPermissions struct {
	all      Permission
	assigned Permission
}

var resourcePermissions = map[ResourceKind]map[Action]resourceActionPermissions{
	KindProject: {
		ActionView:   {all: PermissionViewAllProjects, assigned: PermissionViewAssignedProjects},
		ActionEdit:   {all: PermissionEditAllProjects, assigned: PermissionEditAssignedProjects},
		ActionDelete: {all: PermissionDeleteAllProjects},
	},
	KindTask: {
		ActionView:   {all: PermissionViewAllTasks, assigned: PermissionViewAssignedTasks},
		ActionEdit:   {all: PermissionEditAllTasks, assigned: PermissionEditAssignedTasks},
		ActionDelete: {all: PermissionDeleteAllTasks},
		ActionAssign: {all: PermissionAssignTasks},
	},
}
