package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// InvitationRepository answers presence checks for invitation-only classes.
// Issuing invitations is owned by the surrounding application.
type InvitationRepository struct {
	db *sqlx.DB
}

// NewInvitationRepository constructs the repository.
func NewInvitationRepository(db *sqlx.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Exists reports whether the student holds an invitation for the class.
func (r *InvitationRepository) Exists(ctx context.Context, studentID, classID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM invitations WHERE student_id = $1 AND class_id = $2)`,
		studentID, classID)
	if err != nil {
		return false, fmt.Errorf("check invitation: %w", err)
	}
	return exists, nil
}
