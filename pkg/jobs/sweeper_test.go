package jobs

import (
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskfolio/taskfolio/pkg/authz"
	"github.com/taskfolio/taskfolio/pkg/observability"
	"github.com/taskfolio/taskfolio/pkg/team"
)

// fakeTeamService stubs the one method the sweeper exercises.
type fakeTeamService struct {
	removed int64
	err     error
	calls   int
}

func (f *fakeTeamService) CleanupExpiredInvitations() (int64, error) {
	f.calls++
	return f.removed, f.err
}

func (f *fakeTeamService) Invite(*team.Membership) error                     { return nil }
func (f *fakeTeamService) GetByToken(string) (*team.Membership, error)       { return nil, nil }
func (f *fakeTeamService) Accept(string, int64) error                        { return nil }
func (f *fakeTeamService) Decline(string) error                              { return nil }
func (f *fakeTeamService) ListInvitations(int64) ([]*team.Membership, error) { return nil, nil }
func (f *fakeTeamService) ListMembers(int64) ([]*team.Membership, error)     { return nil, nil }
func (f *fakeTeamService) GetMember(int64, int64) (*team.Membership, error)  { return nil, nil }
func (f *fakeTeamService) UpdateRole(int64, int64, authz.Role) error         { return nil }
func (f *fakeTeamService) Remove(int64, int64) error                         { return nil }
func (f *fakeTeamService) GetAcceptedByUser(int64) (*team.Membership, error) { return nil, nil }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSweepOnce(t *testing.T) {
	t.Run("records removed count", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		metrics := observability.NewMetrics(registry)
		service := &fakeTeamService{removed: 3}

		sweeper := NewSweeper(service, quietLogger(), metrics, "")
		removed, err := sweeper.SweepOnce()

		require.NoError(t, err)
		assert.Equal(t, int64(3), removed)
		assert.Equal(t, 1, service.calls)
		assert.Equal(t, float64(3), testutil.ToFloat64(metrics.ExpiredInvitesSwept))
	})

	t.Run("propagates cleanup errors", func(t *testing.T) {
		service := &fakeTeamService{err: errors.New("db down")}

		sweeper := NewSweeper(service, quietLogger(), nil, "")
		_, err := sweeper.SweepOnce()

		assert.Error(t, err)
	})
}

func TestSweeperStart(t *testing.T) {
	t.Run("invalid schedule", func(t *testing.T) {
		sweeper := NewSweeper(&fakeTeamService{}, quietLogger(), nil, "not a schedule")
		assert.Error(t, sweeper.Start())
	})

	t.Run("starts and stops", func(t *testing.T) {
		sweeper := NewSweeper(&fakeTeamService{}, quietLogger(), nil, "@hourly")
		require.NoError(t, sweeper.Start())
		sweeper.Stop()
	})
}
