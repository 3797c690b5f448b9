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

// EnrollmentRequestRepository persists restricted-class enrollment requests.
type EnrollmentRequestRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRequestRepository constructs the repository.
func NewEnrollmentRequestRepository(db *sqlx.DB) *EnrollmentRequestRepository {
	return &EnrollmentRequestRepository{db: db}
}

const requestColumns = `id, student_id, class_id, COALESCE(justification, '') AS justification, status, reviewed_by, reviewed_at, COALESCE(review_note, '') AS review_note, created_at`

// Create inserts a pending request.
func (r *EnrollmentRequestRepository) Create(ctx context.Context, req *models.EnrollmentRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO enrollment_requests (id, student_id, class_id, justification, status, created_at)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		req.ID, req.StudentID, req.ClassID, req.Justification, req.Status, req.CreatedAt); err != nil {
		return fmt.Errorf("insert enrollment request: %w", err)
	}
	return nil
}

// FindByID returns a request by its ID.
func (r *EnrollmentRequestRepository) FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollment_requests WHERE id = $1`, requestColumns)
	var req models.EnrollmentRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// MarkReviewed transitions a pending request to approved or denied. The status
// guard makes the review atomic: a request already processed is not updated and
// sql.ErrNoRows is returned.
func (r *EnrollmentRequestRepository) MarkReviewed(ctx context.Context, id string, status models.EnrollmentRequestStatus, reviewerID, note string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE enrollment_requests SET status = $2, reviewed_by = $3, reviewed_at = $4, review_note = $5
         WHERE id = $1 AND status = $6`,
		id, status, reviewerID, at, note, models.EnrollmentRequestPending)
	if err != nil {
		return fmt.Errorf("mark request reviewed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
