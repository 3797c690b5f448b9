package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classboard/enrollment-api/pkg/jobs"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Channel delivers a message over one transport (email, console, ...).
type Channel interface {
	Deliver(ctx context.Context, msg Message) error
}

// Dispatcher records offers onto a background queue and hands delivery to the
// configured channel. Fire-and-forget: callers get an error only when the
// queue itself refuses the job.
type Dispatcher struct {
	queue   *jobs.Queue
	channel Channel
	logger  *zap.Logger
}

// NewDispatcher builds a dispatcher backed by an in-memory worker queue.
func NewDispatcher(channel Channel, workers int, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{channel: channel, logger: logger}
	d.queue = jobs.NewQueue("waitlist-offers", d.handle, jobs.QueueConfig{
		Workers: workers,
		Logger:  logger,
	})
	return d
}

// Start launches the delivery workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (d *Dispatcher) Stop() {
	d.queue.Stop()
}

// SendOffer queues an enrollment-available notice for the student.
func (d *Dispatcher) SendOffer(ctx context.Context, studentID, className, classCode string, deadline time.Time) error {
	msg := Message{
		To:      studentID,
		Subject: fmt.Sprintf("Seat available in %s (%s)", className, classCode),
		Body: fmt.Sprintf("A seat has opened up in %s (%s). Accept or decline the offer before %s or it will expire.",
			className, classCode, deadline.Format(time.RFC1123)),
	}
	return d.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "enrollment_available",
		Payload: msg,
	})
}

func (d *Dispatcher) handle(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(Message)
	if !ok {
		d.logger.Error("unexpected payload type on offer queue", zap.String("job_id", job.ID))
		return nil
	}
	return d.channel.Deliver(ctx, msg)
}
