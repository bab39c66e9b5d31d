package team

import (
	"errors"
	"time"

	"github.com/taskfolio/taskfolio/pkg/authz"
)

// Status represents the lifecycle state of a team membership. PENDING moves
// to ACCEPTED or DECLINED; both are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// Membership represents the invitation/relationship record linking a member
// to the account owner who invited them. The member user id stays null
// until the invitee completes registration through the invitation link.
type Membership struct {
	ID           int64      `json:"id"`
	MemberUserID *int64     `json:"member_user_id,omitempty"`
	Email        string     `json:"email"`
	Role         authz.Role `json:"role"`
	Status       Status     `json:"status"`
	InvitedBy    int64      `json:"invited_by"`
	Token        string     `json:"token,omitempty"`
	InvitedAt    time.Time  `json:"invited_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	JoinedAt     *time.Time `json:"joined_at,omitempty"`
}

// InviteRequest represents a request to invite a team member.
type InviteRequest struct {
	Email string     `json:"email"`
	Role  authz.Role `json:"role"`
}

// UpdateRoleRequest represents a request to change a member's role.
type UpdateRoleRequest struct {
	Role authz.Role `json:"role"`
}

var (
	// ErrNotFound is returned when no membership matches the lookup.
	ErrNotFound = errors.New("membership not found")
	// ErrAlreadyAccepted is returned when accepting or revoking an
	// invitation that was already accepted.
	ErrAlreadyAccepted = errors.New("invitation already accepted")
	// ErrDeclined is returned when accepting an invitation the invitee
	// declined; declined is terminal.
	ErrDeclined = errors.New("invitation declined")
	// ErrExpired is returned when accepting an invitation past its
	// expiry.
	ErrExpired = errors.New("invitation expired")
	// ErrAlreadyMember guards single-tenancy: a user holds at most one
	// accepted membership at a time.
	ErrAlreadyMember = errors.New("user already belongs to another account")
	// ErrInvalidRole is returned when an invitation or role change names
	// a role that cannot be granted through team membership.
	ErrInvalidRole = errors.New("role must be admin or member")
)

// GrantableRole reports whether a role can be carried by a membership
// record. Owner is never granted; it is inferred, not stored.
func GrantableRole(role authz.Role) bool {
	return role == authz.RoleAdmin || role == authz.RoleMember
}

// Service defines team membership management.
type Service interface {
	// Invitation lifecycle
	Invite(invitation *Membership) error
	GetByToken(token string) (*Membership, error)
	Accept(token string, userID int64) error
	Decline(token string) error
	ListInvitations(accountID int64) ([]*Membership, error)
	CleanupExpiredInvitations() (int64, error)

	// Roster management
	ListMembers(accountID int64) ([]*Membership, error)
	GetMember(accountID, userID int64) (*Membership, error)
	UpdateRole(accountID, userID int64, role authz.Role) error
	Remove(accountID, userID int64) error

	// Fact lookups consumed by the authorization engine
	GetAcceptedByUser(userID int64) (*Membership, error)
}
