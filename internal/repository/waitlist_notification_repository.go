package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classboard/enrollment-api/internal/models"
)

// WaitlistNotificationRepository persists promotion offers.
type WaitlistNotificationRepository struct {
	db *sqlx.DB
}

// NewWaitlistNotificationRepository constructs the repository.
func NewWaitlistNotificationRepository(db *sqlx.DB) *WaitlistNotificationRepository {
	return &WaitlistNotificationRepository{db: db}
}

// Create inserts a notification record.
func (r *WaitlistNotificationRepository) Create(ctx context.Context, n *models.WaitlistNotification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO waitlist_notifications (id, waitlist_entry_id, type, message, responded, created_at)
         VALUES ($1, $2, $3, $4, false, $5)`,
		n.ID, n.WaitlistEntryID, n.Type, n.Message, n.CreatedAt); err != nil {
		return fmt.Errorf("insert waitlist notification: %w", err)
	}
	return nil
}

// FindOpenByEntry returns the unresponded notification for an entry.
func (r *WaitlistNotificationRepository) FindOpenByEntry(ctx context.Context, entryID string) (*models.WaitlistNotification, error) {
	const query = `SELECT id, waitlist_entry_id, type, message, responded, COALESCE(response, '') AS response, created_at, responded_at
        FROM waitlist_notifications WHERE waitlist_entry_id = $1 AND NOT responded
        ORDER BY created_at DESC LIMIT 1`
	var n models.WaitlistNotification
	if err := r.db.GetContext(ctx, &n, query, entryID); err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkResponded records the student's (or the sweep's) answer.
func (r *WaitlistNotificationRepository) MarkResponded(ctx context.Context, id string, resp models.WaitlistResponse, at time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE waitlist_notifications SET responded = true, response = $2, responded_at = $3 WHERE id = $1`,
		id, resp, at); err != nil {
		return fmt.Errorf("mark notification responded: %w", err)
	}
	return nil
}
