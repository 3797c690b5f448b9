package models

import "time"

// WaitlistResponse is a student's answer to a promotion offer.
type WaitlistResponse string

// Possible responses recorded on a notification.
const (
	WaitlistResponseAccept     WaitlistResponse = "accept"
	WaitlistResponseDecline    WaitlistResponse = "decline"
	WaitlistResponseNoResponse WaitlistResponse = "no_response"
)

// NotificationTypeEnrollmentAvailable marks an offer for an open seat.
const NotificationTypeEnrollmentAvailable = "enrollment_available"

// WaitlistEntry is a queued request for a class at capacity. Active entries
// for a class hold contiguous positions 1..N ordered by priority descending,
// ties broken by arrival time.
type WaitlistEntry struct {
	ID                    string     `db:"id" json:"id"`
	StudentID             string     `db:"student_id" json:"student_id"`
	ClassID               string     `db:"class_id" json:"class_id"`
	Position              int        `db:"position" json:"position"`
	Priority              int        `db:"priority" json:"priority"`
	AddedAt               time.Time  `db:"added_at" json:"added_at"`
	NotifiedAt            *time.Time `db:"notified_at" json:"notified_at,omitempty"`
	NotificationExpiresAt *time.Time `db:"notification_expires_at" json:"notification_expires_at,omitempty"`
	EstimatedProbability  float64    `db:"estimated_probability" json:"estimated_probability"`
}

// IsNotified reports whether the entry currently holds an open offer.
func (e WaitlistEntry) IsNotified() bool {
	return e.NotifiedAt != nil
}

// WaitlistNotification records a promotion offer sent to a waitlisted student.
// At most one open (unresponded, unexpired) notification exists per entry.
type WaitlistNotification struct {
	ID              string           `db:"id" json:"id"`
	WaitlistEntryID string           `db:"waitlist_entry_id" json:"waitlist_entry_id"`
	Type            string           `db:"type" json:"type"`
	Message         string           `db:"message" json:"message"`
	Responded       bool             `db:"responded" json:"responded"`
	Response        WaitlistResponse `db:"response" json:"response,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	RespondedAt     *time.Time       `db:"responded_at" json:"responded_at,omitempty"`
}

// StudentWaitlistInfo is the student-facing view of a waitlist entry.
type StudentWaitlistInfo struct {
	Entry                WaitlistEntry `json:"entry"`
	Position             int           `json:"position"`
	EstimatedProbability float64       `json:"estimated_probability"`
	IsNotified           bool          `json:"is_notified"`
	ResponseDeadline     *time.Time    `json:"response_deadline,omitempty"`
	EstimatedWaitTime    string        `json:"estimated_wait_time"`
}

// PromotionReport summarises one promotion pass over a class. Per-entry
// failures are collected here instead of aborting the pass.
type PromotionReport struct {
	ClassID string   `json:"class_id"`
	Offered int      `json:"offered"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// WaitlistFilter provides filters for listing waitlist entries.
type WaitlistFilter struct {
	ClassID   string
	StudentID string
	Page      int
	PageSize  int
}
