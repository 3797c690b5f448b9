package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/classboard/enrollment-api/internal/models"
)

type expirySweeper interface {
	ProcessExpiredNotifications(ctx context.Context) (int, error)
}

type waitlistPromoter interface {
	ProcessWaitlist(ctx context.Context, classID string) (*models.PromotionReport, error)
}

type promotableLister interface {
	ListPromotable(ctx context.Context) ([]string, error)
}

// WaitlistJobRunner executes the periodic waitlist sweeps. Each run gets its
// own deadline so a stuck sweep cannot pile up behind the next tick.
type WaitlistJobRunner struct {
	sweeper  expirySweeper
	promoter waitlistPromoter
	classes  promotableLister
	logger   *zap.Logger
	timeout  time.Duration
}

// NewWaitlistJobRunner constructs the runner.
func NewWaitlistJobRunner(sweeper expirySweeper, promoter waitlistPromoter, classes promotableLister, logger *zap.Logger) *WaitlistJobRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WaitlistJobRunner{
		sweeper:  sweeper,
		promoter: promoter,
		classes:  classes,
		logger:   logger,
		timeout:  2 * time.Minute,
	}
}

// SweepExpiredOffers expires overdue offers and removes their entries.
func (r *WaitlistJobRunner) SweepExpiredOffers() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	defer r.recover("sweep_expired_offers")

	expired, err := r.sweeper.ProcessExpiredNotifications(ctx)
	if err != nil {
		r.logger.Error("expired offer sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		r.logger.Info("expired offer sweep finished", zap.Int("expired", expired))
	}
}

// PromoteOpenSeats offers open seats to waitlisted students across every class
// that has both capacity and unnotified entries.
func (r *WaitlistJobRunner) PromoteOpenSeats() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	defer r.recover("promote_open_seats")

	classIDs, err := r.classes.ListPromotable(ctx)
	if err != nil {
		r.logger.Error("failed to list promotable classes", zap.Error(err))
		return
	}

	for _, classID := range classIDs {
		report, err := r.promoter.ProcessWaitlist(ctx, classID)
		if err != nil {
			r.logger.Error("waitlist promotion failed",
				zap.String("class_id", classID), zap.Error(err))
			continue
		}
		if report.Offered > 0 || report.Failed > 0 {
			r.logger.Info("waitlist promotion finished",
				zap.String("class_id", classID),
				zap.Int("offered", report.Offered),
				zap.Int("failed", report.Failed))
		}
	}
}

func (r *WaitlistJobRunner) recover(job string) {
	if rec := recover(); rec != nil {
		r.logger.Error("job panicked", zap.String("job", job), zap.Any("panic", rec))
	}
}
