package jobs

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/classboard/enrollment-api/pkg/config"
)

// Scheduler drives the waitlist sweeps on cron schedules. Specs use the
// six-field form with a leading seconds column.
type Scheduler struct {
	cron   *cron.Cron
	runner *WaitlistJobRunner
	cfg    config.SweepsConfig
	logger *zap.Logger
}

// NewScheduler constructs the scheduler. All schedules run in UTC.
func NewScheduler(runner *WaitlistJobRunner, cfg config.SweepsConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC)),
		runner: runner,
		cfg:    cfg,
		logger: logger,
	}
}

// Start registers the sweeps and launches the cron loop.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.logger.Info("waitlist sweeps disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.ExpiredOffers, s.runner.SweepExpiredOffers); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.PromoteSeats, s.runner.PromoteOpenSeats); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("waitlist sweeps scheduled",
		zap.String("expired_offers", s.cfg.ExpiredOffers),
		zap.String("promote_seats", s.cfg.PromoteSeats))
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
