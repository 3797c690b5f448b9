package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/classboard/enrollment-api/internal/models"
)

// ClassRepository reads class rows and owns the atomic enrollment counters.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `id, department_id, course_code, name, section_number, enrollment_type, capacity, current_enrollment, waitlist_capacity, created_at, updated_at`

// FindByID returns a class by its ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes WHERE id = $1`, classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// GetCapacity is the capacity oracle read.
func (r *ClassRepository) GetCapacity(ctx context.Context, id string) (*models.ClassCapacity, error) {
	const query = `SELECT capacity, current_enrollment, waitlist_capacity FROM classes WHERE id = $1`
	var cap models.ClassCapacity
	if err := r.db.GetContext(ctx, &cap, query, id); err != nil {
		return nil, err
	}
	return &cap, nil
}

// IncrementEnrollment bumps the committed-enrollment counter, refusing to
// exceed capacity. Returns sql.ErrNoRows when the class is full or missing.
func (r *ClassRepository) IncrementEnrollment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE classes SET current_enrollment = current_enrollment + 1, updated_at = NOW()
         WHERE id = $1 AND current_enrollment < capacity`, id)
	if err != nil {
		return fmt.Errorf("increment enrollment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DecrementEnrollment lowers the committed-enrollment counter, floored at zero.
func (r *ClassRepository) DecrementEnrollment(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE classes SET current_enrollment = GREATEST(current_enrollment - 1, 0), updated_at = NOW()
         WHERE id = $1`, id); err != nil {
		return fmt.Errorf("decrement enrollment: %w", err)
	}
	return nil
}

// ListPromotable returns IDs of classes with open seats and at least one
// unnotified waitlist entry. Used by the promotion sweep.
func (r *ClassRepository) ListPromotable(ctx context.Context) ([]string, error) {
	const query = `SELECT c.id FROM classes c
        WHERE c.current_enrollment < c.capacity
        AND EXISTS (SELECT 1 FROM waitlist_entries e WHERE e.class_id = c.id AND e.notified_at IS NULL)
        ORDER BY c.id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list promotable classes: %w", err)
	}
	return ids, nil
}
