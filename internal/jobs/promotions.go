package jobs

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	pkgjobs "github.com/classboard/enrollment-api/pkg/jobs"
)

// PromotionQueue runs waitlist promotions for single classes in the
// background, so seat-releasing paths (drops in particular) never wait on a
// promotion pass.
type PromotionQueue struct {
	queue    *pkgjobs.Queue
	promoter waitlistPromoter
	logger   *zap.Logger
}

// NewPromotionQueue constructs the queue.
func NewPromotionQueue(promoter waitlistPromoter, logger *zap.Logger) *PromotionQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &PromotionQueue{promoter: promoter, logger: logger}
	q.queue = pkgjobs.NewQueue("seat-promotions", q.handle, pkgjobs.QueueConfig{
		Workers: 1,
		Logger:  logger,
	})
	return q
}

// Start launches the promotion worker.
func (q *PromotionQueue) Start(ctx context.Context) {
	q.queue.Start(ctx)
}

// Stop drains the promotion worker.
func (q *PromotionQueue) Stop() {
	q.queue.Stop()
}

// EnqueueClass schedules a promotion pass for the class. Best-effort: a full
// or stopped queue is logged, not surfaced, since the cron sweep will catch
// the class on its next tick.
func (q *PromotionQueue) EnqueueClass(classID string) {
	err := q.queue.Enqueue(pkgjobs.Job{
		ID:      uuid.NewString(),
		Type:    "promote_class",
		Payload: classID,
	})
	if err != nil {
		q.logger.Warn("failed to enqueue promotion", zap.String("class_id", classID), zap.Error(err))
	}
}

func (q *PromotionQueue) handle(ctx context.Context, job pkgjobs.Job) error {
	classID, ok := job.Payload.(string)
	if !ok {
		q.logger.Error("unexpected payload type on promotion queue", zap.String("job_id", job.ID))
		return nil
	}
	report, err := q.promoter.ProcessWaitlist(ctx, classID)
	if err != nil {
		return err
	}
	if report.Offered > 0 || report.Failed > 0 {
		q.logger.Info("seat promotion finished",
			zap.String("class_id", classID),
			zap.Int("offered", report.Offered),
			zap.Int("failed", report.Failed))
	}
	return nil
}
