package authz

import (
	"context"
	"fmt"
)

// Resolver computes a user's effective role and account scope from
// membership facts. Both resolutions are plain reads followed by pure
// computation; nothing is cached between calls.
type Resolver struct {
	facts FactSource
}

// NewResolver creates a resolver over the given fact source.
func NewResolver(facts FactSource) *Resolver {
	return &Resolver{facts: facts}
}

// ResolveRole computes the user's effective role:
//
//  1. A user who owns at least one resource under their own account is the
//     owner. Ownership is inferred from resource ownership rather than an
//     explicit account flag; see DESIGN.md for the trade-off.
//  2. Otherwise an ACCEPTED membership yields the role recorded on it.
//  3. Otherwise the user defaults to member, the least-privileged role.
//
// PENDING and DECLINED memberships never contribute a role. A missing
// caller id is an error, not a default role.
func (r *Resolver) ResolveRole(ctx context.Context, userID int64) (Role, error) {
	if userID <= 0 {
		return "", ErrInvalidUserID
	}

	ownsAny, err := r.facts.OwnsAnyResource(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to check resource ownership: %w", err)
	}
	if ownsAny {
		return RoleOwner, nil
	}

	membership, err := r.facts.AcceptedMembership(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to look up membership: %w", err)
	}
	if membership != nil {
		return membership.Role, nil
	}

	return RoleMember, nil
}

// ResolveAccountScope maps a user id to the account id their data
// operations are scoped to: the inviter's id for accepted members, the
// user's own id otherwise. Every account-scoped query must go through this
// rather than using the raw caller id.
func (r *Resolver) ResolveAccountScope(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, ErrInvalidUserID
	}

	membership, err := r.facts.AcceptedMembership(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up membership: %w", err)
	}
	if membership != nil {
		return membership.InvitedBy, nil
	}

	return userID, nil
}
