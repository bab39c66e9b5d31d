// Package jobs runs background maintenance on a cron schedule.
package jobs

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/taskfolio/taskfolio/pkg/observability"
	"github.com/taskfolio/taskfolio/pkg/team"
)

// DefaultSweepSchedule runs the expired-invitation sweep hourly.
const DefaultSweepSchedule = "0 * * * *"

// Sweeper periodically removes invitations that expired without being
// accepted or declined. Expired rows are already unacceptable; the sweep
// only reclaims them.
type Sweeper struct {
	team     team.Service
	logger   *logrus.Logger
	metrics  *observability.Metrics
	schedule string
	cron     *cron.Cron
}

// NewSweeper creates a sweeper over the given team service. metrics may be
// nil. An empty schedule falls back to DefaultSweepSchedule.
func NewSweeper(teamService team.Service, logger *logrus.Logger, metrics *observability.Metrics, schedule string) *Sweeper {
	if logger == nil {
		logger = logrus.New()
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Sweeper{
		team:     teamService,
		logger:   logger,
		metrics:  metrics,
		schedule: schedule,
	}
}

// Start schedules the sweep and starts the scheduler.
func (s *Sweeper) Start() error {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.PrintfLogger(s.logger)),
	))
	if _, err := c.AddFunc(s.schedule, func() {
		if _, err := s.SweepOnce(); err != nil {
			s.logger.WithError(err).Error("invitation sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule invitation sweep: %w", err)
	}

	c.Start()
	s.cron = c
	s.logger.WithField("schedule", s.schedule).Info("invitation sweeper started")
	return nil
}

// Stop stops the scheduler. A sweep already in flight runs to completion.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// SweepOnce removes expired invitations and returns the number removed.
func (s *Sweeper) SweepOnce() (int64, error) {
	removed, err := s.team.CleanupExpiredInvitations()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("swept expired invitations")
	}
	if s.metrics != nil {
		s.metrics.ExpiredInvitesSwept.Add(float64(removed))
	}
	return removed, nil
}
