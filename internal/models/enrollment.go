package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusEnrolled EnrollmentStatus = "enrolled"
	EnrollmentStatusDropped  EnrollmentStatus = "dropped"
	EnrollmentStatusPending  EnrollmentStatus = "pending"
)

// EnrolledByWaitlistSystem marks enrollments created by an accepted waitlist offer.
const EnrolledByWaitlistSystem = "waitlist_system"

// Enrollment captures a student's registration to a class.
// A student holds at most one non-dropped enrollment per class.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	ClassID    string           `db:"class_id" json:"class_id"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	EnrolledBy string           `db:"enrolled_by" json:"enrolled_by"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	DroppedAt  *time.Time       `db:"dropped_at" json:"dropped_at,omitempty"`
	DropReason string           `db:"drop_reason" json:"drop_reason,omitempty"`
}

// EnrollmentRequestStatus tracks review of a restricted-class request.
type EnrollmentRequestStatus string

// Possible request statuses.
const (
	EnrollmentRequestPending  EnrollmentRequestStatus = "pending"
	EnrollmentRequestApproved EnrollmentRequestStatus = "approved"
	EnrollmentRequestDenied   EnrollmentRequestStatus = "denied"
)

// EnrollmentRequest is a pending enrollment into a restricted class.
type EnrollmentRequest struct {
	ID            string                  `db:"id" json:"id"`
	StudentID     string                  `db:"student_id" json:"student_id"`
	ClassID       string                  `db:"class_id" json:"class_id"`
	Justification string                  `db:"justification" json:"justification"`
	Status        EnrollmentRequestStatus `db:"status" json:"status"`
	ReviewedBy    *string                 `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time              `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewNote    string                  `db:"review_note" json:"review_note,omitempty"`
	CreatedAt     time.Time               `db:"created_at" json:"created_at"`
}

// ResultError is a coded business refusal attached to an EnrollmentResult.
type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EnrollmentResult is the structured outcome of a single enrollment attempt.
// Business refusals set Success=false with coded Errors rather than failing the call.
type EnrollmentResult struct {
	Success              bool          `json:"success"`
	Status               string        `json:"status"`
	Message              string        `json:"message"`
	EnrollmentID         *string       `json:"enrollment_id,omitempty"`
	RequestID            *string       `json:"request_id,omitempty"`
	WaitlistPosition     *int          `json:"waitlist_position,omitempty"`
	EstimatedProbability *float64      `json:"estimated_probability,omitempty"`
	EstimatedWaitTime    *string       `json:"estimated_wait_time,omitempty"`
	Errors               []ResultError `json:"errors,omitempty"`
}

// Enrollment attempt result statuses.
const (
	EnrollmentResultEnrolled   = "enrolled"
	EnrollmentResultWaitlisted = "waitlisted"
	EnrollmentResultPending    = "pending"
	EnrollmentResultRejected   = "rejected"
)

// BulkEnrollItem pairs a student with their individual outcome.
type BulkEnrollItem struct {
	StudentID string           `json:"student_id"`
	Result    EnrollmentResult `json:"result"`
}

// BulkEnrollReport summarises a batch enrollment run. Item order matches input order.
type BulkEnrollReport struct {
	TotalProcessed int              `json:"total_processed"`
	Successful     int              `json:"successful"`
	Failed         int              `json:"failed"`
	Results        []BulkEnrollItem `json:"results"`
	Summary        string           `json:"summary"`
}
