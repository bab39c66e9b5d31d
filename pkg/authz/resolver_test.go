package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFactSource is an in-memory FactSource for tests. Only ACCEPTED
// memberships are stored, mirroring the contract of the real store.
type fakeFactSource struct {
	memberships map[int64]*MembershipFacts
	owners      map[int64]bool
	err         error
}

func (f *fakeFactSource) AcceptedMembership(_ context.Context, userID int64) (*MembershipFacts, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.memberships[userID], nil
}

func (f *fakeFactSource) OwnsAnyResource(_ context.Context, userID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.owners[userID], nil
}

const (
	aliceID = int64(1) // account owner, owns projects
	bobID   = int64(2) // accepted admin under alice
	carolID = int64(3) // accepted member under alice
	daveID  = int64(4) // pending invite under alice, no resources
)

func testFacts() *fakeFactSource {
	return &fakeFactSource{
		memberships: map[int64]*MembershipFacts{
			bobID:   {Role: RoleAdmin, InvitedBy: aliceID},
			carolID: {Role: RoleMember, InvitedBy: aliceID},
			// dave's invitation is PENDING, so the store surfaces no
			// membership for him at all.
		},
		owners: map[int64]bool{aliceID: true},
	}
}

func TestResolveRole(t *testing.T) {
	resolver := NewResolver(testFacts())
	ctx := context.Background()

	tests := []struct {
		name   string
		userID int64
		want   Role
	}{
		{"resource owner resolves to owner", aliceID, RoleOwner},
		{"accepted admin resolves to admin", bobID, RoleAdmin},
		{"accepted member resolves to member", carolID, RoleMember},
		{"pending invitee falls back to member default", daveID, RoleMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := resolver.ResolveRole(ctx, tt.userID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, role)
		})
	}

	t.Run("missing user id is an error, not a role", func(t *testing.T) {
		_, err := resolver.ResolveRole(ctx, 0)
		assert.ErrorIs(t, err, ErrInvalidUserID)

		_, err = resolver.ResolveRole(ctx, -7)
		assert.ErrorIs(t, err, ErrInvalidUserID)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		broken := &fakeFactSource{err: errors.New("connection refused")}
		_, err := NewResolver(broken).ResolveRole(ctx, aliceID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestResolveAccountScope(t *testing.T) {
	resolver := NewResolver(testFacts())
	ctx := context.Background()

	t.Run("owner scopes to themselves", func(t *testing.T) {
		scope, err := resolver.ResolveAccountScope(ctx, aliceID)
		require.NoError(t, err)
		assert.Equal(t, aliceID, scope)
	})

	t.Run("member scopes to inviter", func(t *testing.T) {
		for _, userID := range []int64{bobID, carolID} {
			scope, err := resolver.ResolveAccountScope(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, aliceID, scope)
		}
	})

	t.Run("pending invitee scopes to themselves", func(t *testing.T) {
		scope, err := resolver.ResolveAccountScope(ctx, daveID)
		require.NoError(t, err)
		assert.Equal(t, daveID, scope)
	})

	t.Run("idempotent under unchanged membership state", func(t *testing.T) {
		first, err := resolver.ResolveAccountScope(ctx, bobID)
		require.NoError(t, err)
		second, err := resolver.ResolveAccountScope(ctx, bobID)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("missing user id is an error", func(t *testing.T) {
		_, err := resolver.ResolveAccountScope(ctx, 0)
		assert.ErrorIs(t, err, ErrInvalidUserID)
	})
}

// A member's role can change between two requests; resolution always
// reflects the currently visible membership state.
func TestResolveRole_FreshPerCall(t *testing.T) {
	facts := testFacts()
	resolver := NewResolver(facts)
	ctx := context.Background()

	role, err := resolver.ResolveRole(ctx, carolID)
	require.NoError(t, err)
	assert.Equal(t, RoleMember, role)

	facts.memberships[carolID] = &MembershipFacts{Role: RoleAdmin, InvitedBy: aliceID}

	role, err = resolver.ResolveRole(ctx, carolID)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)
}
