package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/classboard/enrollment-api/internal/models"
)

// PlanningRepository aggregates enrollment and waitlist demand per course code.
// Read-only: the planner never writes through this repository.
type PlanningRepository struct {
	db *sqlx.DB
}

// NewPlanningRepository constructs the repository.
func NewPlanningRepository(db *sqlx.DB) *PlanningRepository {
	return &PlanningRepository{db: db}
}

// DemandByDepartment returns one aggregate row per course code across all of
// its sections in the department.
func (r *PlanningRepository) DemandByDepartment(ctx context.Context, departmentID string) ([]models.CourseDemand, error) {
	const query = `SELECT c.course_code,
        MIN(c.name) AS course_name,
        COUNT(*) AS section_count,
        COALESCE(SUM(c.capacity), 0) AS total_capacity,
        COALESCE(SUM(c.current_enrollment), 0) AS total_enrollment,
        COALESCE(SUM(w.entry_count), 0) AS total_waitlist
        FROM classes c
        LEFT JOIN (
            SELECT class_id, COUNT(*) AS entry_count FROM waitlist_entries GROUP BY class_id
        ) w ON w.class_id = c.id
        WHERE c.department_id = $1
        GROUP BY c.course_code
        ORDER BY c.course_code`
	var demand []models.CourseDemand
	if err := r.db.SelectContext(ctx, &demand, query, departmentID); err != nil {
		return nil, fmt.Errorf("aggregate course demand: %w", err)
	}
	return demand, nil
}
