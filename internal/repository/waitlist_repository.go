package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classboard/enrollment-api/internal/models"
)

// WaitlistRepository handles the ordered waitlist store. All writes that touch
// positions run inside a transaction holding a per-class advisory lock, so the
// contiguous 1..N position invariant survives concurrent callers.
type WaitlistRepository struct {
	db *sqlx.DB
}

// NewWaitlistRepository constructs the repository.
func NewWaitlistRepository(db *sqlx.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

const waitlistColumns = `id, student_id, class_id, position, priority, added_at, notified_at, notification_expires_at, estimated_probability`

func lockClass(ctx context.Context, tx *sqlx.Tx, classID string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, classID); err != nil {
		return fmt.Errorf("acquire class lock: %w", err)
	}
	return nil
}

// FindActive returns the active entry for (student, class).
func (r *WaitlistRepository) FindActive(ctx context.Context, studentID, classID string) (*models.WaitlistEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM waitlist_entries WHERE student_id = $1 AND class_id = $2`, waitlistColumns)
	var entry models.WaitlistEntry
	if err := r.db.GetContext(ctx, &entry, query, studentID, classID); err != nil {
		return nil, err
	}
	return &entry, nil
}

// CountActive returns the number of active entries for a class.
func (r *WaitlistRepository) CountActive(ctx context.Context, classID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM waitlist_entries WHERE class_id = $1`, classID); err != nil {
		return 0, fmt.Errorf("count waitlist entries: %w", err)
	}
	return count, nil
}

// ListByClass returns a page of entries for a class in position order.
func (r *WaitlistRepository) ListByClass(ctx context.Context, filter models.WaitlistFilter) ([]models.WaitlistEntry, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM waitlist_entries WHERE class_id = $1 ORDER BY position ASC LIMIT %d OFFSET %d`, waitlistColumns, size, offset)
	var entries []models.WaitlistEntry
	if err := r.db.SelectContext(ctx, &entries, query, filter.ClassID); err != nil {
		return nil, 0, fmt.Errorf("list waitlist entries: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM waitlist_entries WHERE class_id = $1`, filter.ClassID); err != nil {
		return nil, 0, fmt.Errorf("count waitlist entries: %w", err)
	}
	return entries, total, nil
}

// ListUnnotified returns up to limit entries without an open offer, lowest position first.
func (r *WaitlistRepository) ListUnnotified(ctx context.Context, classID string, limit int) ([]models.WaitlistEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM waitlist_entries WHERE class_id = $1 AND notified_at IS NULL ORDER BY position ASC LIMIT $2`, waitlistColumns)
	var entries []models.WaitlistEntry
	if err := r.db.SelectContext(ctx, &entries, query, classID, limit); err != nil {
		return nil, fmt.Errorf("list unnotified entries: %w", err)
	}
	return entries, nil
}

// InsertRanked inserts the entry before the first existing entry whose priority
// is strictly lower, shifting later positions up by one. The computed position
// is written back onto the entry.
func (r *WaitlistRepository) InsertRanked(ctx context.Context, entry *models.WaitlistEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := lockClass(ctx, tx, entry.ClassID); err != nil {
		return err
	}

	var position int
	err = tx.GetContext(ctx, &position, `SELECT COALESCE(
        (SELECT MIN(position) FROM waitlist_entries WHERE class_id = $1 AND priority < $2),
        (SELECT COUNT(*) + 1 FROM waitlist_entries WHERE class_id = $1)
    )`, entry.ClassID, entry.Priority)
	if err != nil {
		return fmt.Errorf("compute insert position: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE waitlist_entries SET position = position + 1 WHERE class_id = $1 AND position >= $2`,
		entry.ClassID, position); err != nil {
		return fmt.Errorf("shift positions: %w", err)
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.Position = position
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO waitlist_entries (id, student_id, class_id, position, priority, added_at, estimated_probability)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.StudentID, entry.ClassID, entry.Position, entry.Priority, entry.AddedAt, entry.EstimatedProbability); err != nil {
		return fmt.Errorf("insert waitlist entry: %w", err)
	}

	return tx.Commit()
}

// Remove deletes the entry and re-packs the remaining positions for its class.
// Removing an already-removed entry is a no-op.
func (r *WaitlistRepository) Remove(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var row struct {
		ClassID  string `db:"class_id"`
		Position int    `db:"position"`
	}
	if err := tx.GetContext(ctx, &row, `SELECT class_id, position FROM waitlist_entries WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("load waitlist entry: %w", err)
	}

	if err := lockClass(ctx, tx, row.ClassID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete waitlist entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE waitlist_entries SET position = position - 1 WHERE class_id = $1 AND position > $2`,
		row.ClassID, row.Position); err != nil {
		return fmt.Errorf("repack positions: %w", err)
	}

	return tx.Commit()
}

// SetNotified stamps the offer window onto the entry.
func (r *WaitlistRepository) SetNotified(ctx context.Context, id string, notifiedAt, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE waitlist_entries SET notified_at = $2, notification_expires_at = $3 WHERE id = $1`,
		id, notifiedAt, expiresAt)
	if err != nil {
		return fmt.Errorf("set notified: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateProbability stores the cached enrollment-probability estimate.
func (r *WaitlistRepository) UpdateProbability(ctx context.Context, id string, probability float64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE waitlist_entries SET estimated_probability = $2 WHERE id = $1`,
		id, probability); err != nil {
		return fmt.Errorf("update probability: %w", err)
	}
	return nil
}

// ListExpired returns entries whose offer window has passed and whose
// notification is still open.
func (r *WaitlistRepository) ListExpired(ctx context.Context, now time.Time) ([]models.WaitlistEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM waitlist_entries e WHERE e.notification_expires_at < $1
        AND EXISTS (SELECT 1 FROM waitlist_notifications n WHERE n.waitlist_entry_id = e.id AND NOT n.responded)`,
		prefixColumns("e", waitlistColumns))
	var entries []models.WaitlistEntry
	if err := r.db.SelectContext(ctx, &entries, query, now); err != nil {
		return nil, fmt.Errorf("list expired entries: %w", err)
	}
	return entries, nil
}
