package models

import "time"

// EnrollmentType classifies how a class admits students.
type EnrollmentType string

// Supported enrollment policies.
const (
	EnrollmentTypeOpen           EnrollmentType = "open"
	EnrollmentTypeRestricted     EnrollmentType = "restricted"
	EnrollmentTypeInvitationOnly EnrollmentType = "invitation_only"
)

// Class represents a single section of a course.
type Class struct {
	ID                string         `db:"id" json:"id"`
	DepartmentID      string         `db:"department_id" json:"department_id"`
	CourseCode        string         `db:"course_code" json:"course_code"`
	Name              string         `db:"name" json:"name"`
	SectionNumber     int            `db:"section_number" json:"section_number"`
	EnrollmentType    EnrollmentType `db:"enrollment_type" json:"enrollment_type"`
	Capacity          int            `db:"capacity" json:"capacity"`
	CurrentEnrollment int            `db:"current_enrollment" json:"current_enrollment"`
	WaitlistCapacity  int            `db:"waitlist_capacity" json:"waitlist_capacity"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// AvailableSeats returns the number of open seats, never negative.
func (c Class) AvailableSeats() int {
	if seats := c.Capacity - c.CurrentEnrollment; seats > 0 {
		return seats
	}
	return 0
}

// ClassCapacity is the capacity oracle read used by the waitlist manager.
type ClassCapacity struct {
	Capacity          int `db:"capacity" json:"capacity"`
	CurrentEnrollment int `db:"current_enrollment" json:"current_enrollment"`
	WaitlistCapacity  int `db:"waitlist_capacity" json:"waitlist_capacity"`
}

// Available returns capacity minus committed enrollments.
func (c ClassCapacity) Available() int {
	return c.Capacity - c.CurrentEnrollment
}

// Invitation records that a student was invited to an invitation-only class.
// Only its presence matters to the enrollment coordinator.
type Invitation struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	InvitedBy string    `db:"invited_by" json:"invited_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
