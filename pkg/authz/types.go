package authz

import (
	"context"
	"time"
)

// Role represents a user's effective role within an account. Roles are
// computed per request from membership facts, never stored on the user.
type Role string

const (
	// RoleOwner is the account owner. Exactly one owner is reachable from
	// any account scope; the owner is never manageable by anyone else.
	RoleOwner Role = "owner"
	// RoleAdmin can manage members and has full project/task access, but
	// no billing or account-settings capabilities.
	RoleAdmin Role = "admin"
	// RoleMember only reaches resources assigned to them or created by
	// them inside the owning account.
	RoleMember Role = "member"
)

// Valid reports whether the role is one of the recognized roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// Permission represents an atomic capability token.
type Permission string

// Team management permissions
const (
	PermissionInviteTeamMembers Permission = "invite_team_members"
	PermissionRemoveTeamMembers Permission = "remove_team_members"
	PermissionChangeMemberRoles Permission = "change_member_roles"
	PermissionViewTeamMembers   Permission = "view_team_members"
)

// Project management permissions
const (
	PermissionCreateProjects       Permission = "create_projects"
	PermissionEditAllProjects      Permission = "edit_all_projects"
	PermissionDeleteAllProjects    Permission = "delete_all_projects"
	PermissionViewAllProjects      Permission = "view_all_projects"
	PermissionEditAssignedProjects Permission = "edit_assigned_projects"
	PermissionViewAssignedProjects Permission = "view_assigned_projects"
)

// Task management permissions
const (
	PermissionCreateTasks       Permission = "create_tasks"
	PermissionEditAllTasks      Permission = "edit_all_tasks"
	PermissionDeleteAllTasks    Permission = "delete_all_tasks"
	PermissionAssignTasks       Permission = "assign_tasks"
	PermissionViewAllTasks      Permission = "view_all_tasks"
	PermissionEditAssignedTasks Permission = "edit_assigned_tasks"
	PermissionViewAssignedTasks Permission = "view_assigned_tasks"
)

// Billing, account settings, and reporting permissions
const (
	PermissionManageBilling         Permission = "manage_billing"
	PermissionManageAccountSettings Permission = "manage_account_settings"
	PermissionViewAllReports        Permission = "view_all_reports"
	PermissionViewAssignedReports   Permission = "view_assigned_reports"
)

// ResourceKind identifies the kind of account-scoped resource a decision is
// evaluated against.
type ResourceKind string

const (
	KindProject ResourceKind = "project"
	KindTask    ResourceKind = "task"
)

// Action represents an operation requested against a resource.
type Action string

const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionAssign Action = "assign"
)

// ResourceFacts carries the ownership and assignment facts for a single
// resource, fetched by the caller from the store. For tasks the owner
// account id is the owning account of the parent project.
type ResourceFacts struct {
	Kind           ResourceKind
	OwnerAccountID int64
	AssignedTo     *int64
}

// assignedTo reports whether the resource is assigned to the given user.
func (f ResourceFacts) assignedTo(userID int64) bool {
	return f.AssignedTo != nil && *f.AssignedTo == userID
}

// MembershipFacts is the slice of a team-membership record the engine
// consumes: the member's role and the user id of the account owner who
// invited them. Only ACCEPTED memberships ever reach the engine.
type MembershipFacts struct {
	Role      Role
	InvitedBy int64
}

// FactSource supplies the external facts role and scope resolution depend
// on. Implementations read from the persistent store; the engine attaches
// no caching and no consistency guarantee beyond the store's own reads.
type FactSource interface {
	// AcceptedMembership returns the user's ACCEPTED membership, or nil
	// when the user is not anyone's member. PENDING and DECLINED records
	// must not be returned.
	AcceptedMembership(ctx context.Context, userID int64) (*MembershipFacts, error)

	// OwnsAnyResource reports whether the user owns at least one resource
	// under their own account. This is the ownership heuristic input used
	// by role resolution.
	OwnsAnyResource(ctx context.Context, userID int64) (bool, error)
}

// Decision represents the outcome of a single authorization check. Denials
// are values, never errors: the calling layer chooses the response shape.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Role      Role      `json:"role"`
	Reason    string    `json:"reason,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// AuthorizationContext holds the resolved identity facts for one request:
// the caller, their effective role, and the account their data operations
// are scoped to. It is returned by the gate and threaded explicitly to the
// next step rather than mutated onto a shared request object.
type AuthorizationContext struct {
	UserID    int64 `json:"user_id"`
	Role      Role  `json:"role"`
	AccountID int64 `json:"account_id"`
}

// DecisionLogger receives every evaluated decision. It is an injected
// capability so the engine stays independently testable; implementations
// must not block.
type DecisionLogger interface {
	LogDecision(ctx context.Context, userID int64, d Decision)
}

// ErrorReporter receives data-integrity problems the engine encounters,
// such as an unrecognized role value read from the store. The decision
// itself still fails closed; reporting is advisory.
type ErrorReporter interface {
	ReportInvalidRole(ctx context.Context, userID int64, raw string)
}

type nopDecisionLogger struct{}

func (nopDecisionLogger) LogDecision(context.Context, int64, Decision) {}

type nopErrorReporter struct{}

func (nopErrorReporter) ReportInvalidRole(context.Context, int64, string) {}
