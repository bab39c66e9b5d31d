package api

import (
	"context"

	"github.com/taskfolio/taskfolio/pkg/authz"
	"github.com/taskfolio/taskfolio/pkg/projects"
	"github.com/taskfolio/taskfolio/pkg/team"
)

// factSource joins the membership lookup from the team service with the
// ownership lookup from the project store into the single fact source the
// authorization gate consumes. Facts are read fresh on every call; nothing
// is cached between decisions.
type factSource struct {
	team  *team.PostgresService
	store *projects.PostgresStore
}

var _ authz.FactSource = (*factSource)(nil)

func (f *factSource) AcceptedMembership(ctx context.Context, userID int64) (*authz.MembershipFacts, error) {
	return f.team.AcceptedMembership(ctx, userID)
}

func (f *factSource) OwnsAnyResource(ctx context.Context, userID int64) (bool, error) {
	return f.store.OwnsAnyResource(ctx, userID)
}
