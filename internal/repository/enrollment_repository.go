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

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, student_id, class_id, status, enrolled_by, enrolled_at, dropped_at, COALESCE(drop_reason, '') AS drop_reason`

// Create inserts an enrollment row.
func (r *EnrollmentRepository) Create(ctx context.Context, e *models.Enrollment) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO enrollments (id, student_id, class_id, status, enrolled_by, enrolled_at)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.StudentID, e.ClassID, e.Status, e.EnrolledBy, e.EnrolledAt); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// FindActive returns the non-dropped enrollment for (student, class).
func (r *EnrollmentRepository) FindActive(ctx context.Context, studentID, classID string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status <> $3`, enrollmentColumns)
	var e models.Enrollment
	if err := r.db.GetContext(ctx, &e, query, studentID, classID, models.EnrollmentStatusDropped); err != nil {
		return nil, err
	}
	return &e, nil
}

// ExistsActive reports whether a non-dropped enrollment exists for (student, class).
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, studentID, classID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status <> $3)`,
		studentID, classID, models.EnrollmentStatusDropped)
	if err != nil {
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return exists, nil
}

// MarkDropped flips an active enrollment to dropped.
func (r *EnrollmentRepository) MarkDropped(ctx context.Context, id string, at time.Time, reason string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE enrollments SET status = $2, dropped_at = $3, drop_reason = $4 WHERE id = $1 AND status <> $2`,
		id, models.EnrollmentStatusDropped, at, reason)
	if err != nil {
		return fmt.Errorf("mark enrollment dropped: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
