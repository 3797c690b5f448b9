package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classboard/enrollment-api/internal/models"
	appErrors "github.com/classboard/enrollment-api/pkg/errors"
)

type enrollmentStore interface {
	Create(ctx context.Context, e *models.Enrollment) error
	FindActive(ctx context.Context, studentID, classID string) (*models.Enrollment, error)
	ExistsActive(ctx context.Context, studentID, classID string) (bool, error)
	MarkDropped(ctx context.Context, id string, at time.Time, reason string) error
}

type requestStore interface {
	Create(ctx context.Context, req *models.EnrollmentRequest) error
	FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error)
	MarkReviewed(ctx context.Context, id string, status models.EnrollmentRequestStatus, reviewerID, note string, at time.Time) error
}

type classCapacityStore interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	IncrementEnrollment(ctx context.Context, id string) error
	DecrementEnrollment(ctx context.Context, id string) error
}

type invitationChecker interface {
	Exists(ctx context.Context, studentID, classID string) (bool, error)
}

type waitlistManager interface {
	AddToWaitlist(ctx context.Context, studentID, classID string, priority int) (*models.WaitlistEntry, error)
	EstimateWaitTime(position int) string
}

// RequestEnrollmentInput describes a single enrollment attempt.
type RequestEnrollmentInput struct {
	StudentID     string `json:"student_id" validate:"required"`
	ClassID       string `json:"class_id" validate:"required"`
	Justification string `json:"justification"`
	PerformedBy   string `json:"performed_by"`
}

// EnrollmentService coordinates enrollment attempts, restricted-class reviews,
// drops and batch enrollment. Business refusals come back as structured
// results; only store failures surface as errors.
type EnrollmentService struct {
	enrollments enrollmentStore
	requests    requestStore
	classes     classCapacityStore
	invitations invitationChecker
	waitlist    waitlistManager
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(enrollments enrollmentStore, requests requestStore, classes classCapacityStore, invitations invitationChecker, waitlist waitlistManager, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		requests:    requests,
		classes:     classes,
		invitations: invitations,
		waitlist:    waitlist,
		validator:   validate,
		logger:      logger,
	}
}

func refusal(status, message string, err *appErrors.Error) *models.EnrollmentResult {
	return &models.EnrollmentResult{
		Success: false,
		Status:  status,
		Message: message,
		Errors:  []models.ResultError{{Code: err.Code, Message: message}},
	}
}

// RequestEnrollment runs the fixed decision order: class existence, duplicate
// enrollment, invitation policy, then type-specific handling.
func (s *EnrollmentService) RequestEnrollment(ctx context.Context, input RequestEnrollmentInput) (*models.EnrollmentResult, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	class, err := s.classes.FindByID(ctx, input.ClassID)
	if err != nil {
		if err == sql.ErrNoRows {
			return refusal(models.EnrollmentResultRejected, "class not found", appErrors.ErrClassNotFound), nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	enrolled, err := s.enrollments.ExistsActive(ctx, input.StudentID, input.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if enrolled {
		return refusal(models.EnrollmentResultRejected, "student is already enrolled in this class", appErrors.ErrAlreadyEnrolled), nil
	}

	if class.EnrollmentType == models.EnrollmentTypeInvitationOnly {
		invited, err := s.invitations.Exists(ctx, input.StudentID, input.ClassID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check invitation")
		}
		if !invited {
			return refusal(models.EnrollmentResultRejected, "this class requires an invitation", appErrors.ErrInvitationRequired), nil
		}
	}

	if class.EnrollmentType == models.EnrollmentTypeRestricted {
		request := &models.EnrollmentRequest{
			StudentID:     input.StudentID,
			ClassID:       input.ClassID,
			Justification: input.Justification,
			Status:        models.EnrollmentRequestPending,
		}
		if err := s.requests.Create(ctx, request); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment request")
		}
		return &models.EnrollmentResult{
			Success:   true,
			Status:    models.EnrollmentResultPending,
			Message:   "enrollment request submitted for review",
			RequestID: &request.ID,
		}, nil
	}

	return s.enrollOrWaitlist(ctx, class, input)
}

// enrollOrWaitlist handles the open-enrollment branch: direct enrollment while
// seats remain, waitlisting once the class is full.
func (s *EnrollmentService) enrollOrWaitlist(ctx context.Context, class *models.Class, input RequestEnrollmentInput) (*models.EnrollmentResult, error) {
	if class.AvailableSeats() > 0 {
		if err := s.classes.IncrementEnrollment(ctx, class.ID); err != nil {
			if err != sql.ErrNoRows {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve seat")
			}
			// Seat taken between the read and the increment; fall through to the waitlist.
		} else {
			performedBy := input.PerformedBy
			if performedBy == "" {
				performedBy = input.StudentID
			}
			enrollment := &models.Enrollment{
				StudentID:  input.StudentID,
				ClassID:    class.ID,
				Status:     models.EnrollmentStatusEnrolled,
				EnrolledBy: performedBy,
				EnrolledAt: time.Now().UTC(),
			}
			if err := s.enrollments.Create(ctx, enrollment); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
			}
			return &models.EnrollmentResult{
				Success:      true,
				Status:       models.EnrollmentResultEnrolled,
				Message:      "enrolled successfully",
				EnrollmentID: &enrollment.ID,
			}, nil
		}
	}

	entry, err := s.waitlist.AddToWaitlist(ctx, input.StudentID, class.ID, 0)
	if err != nil {
		appErr := appErrors.FromError(err)
		switch appErr.Code {
		case appErrors.ErrWaitlistFull.Code, appErrors.ErrDuplicateEntry.Code:
			return refusal(models.EnrollmentResultRejected, appErr.Message, appErr), nil
		}
		return nil, err
	}

	waitTime := s.waitlist.EstimateWaitTime(entry.Position)
	return &models.EnrollmentResult{
		Success:              true,
		Status:               models.EnrollmentResultWaitlisted,
		Message:              fmt.Sprintf("class is full; added to waitlist at position %d", entry.Position),
		WaitlistPosition:     &entry.Position,
		EstimatedProbability: &entry.EstimatedProbability,
		EstimatedWaitTime:    &waitTime,
	}, nil
}

// ApproveEnrollment reviews a pending request. When capacity ran out since the
// request was filed, the student is approved onto the waitlist instead of
// being refused.
func (s *EnrollmentService) ApproveEnrollment(ctx context.Context, requestID, approverID string) (*models.EnrollmentResult, error) {
	request, err := s.pendingRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.classes.IncrementEnrollment(ctx, request.ClassID); err != nil {
		if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve seat")
		}

		entry, wlErr := s.waitlist.AddToWaitlist(ctx, request.StudentID, request.ClassID, 0)
		if wlErr != nil {
			return nil, wlErr
		}
		note := "Approved but added to waitlist due to capacity"
		if err := s.requests.MarkReviewed(ctx, requestID, models.EnrollmentRequestApproved, approverID, note, now); err != nil {
			return nil, s.reviewError(err)
		}
		return &models.EnrollmentResult{
			Success:          true,
			Status:           models.EnrollmentResultWaitlisted,
			Message:          note,
			WaitlistPosition: &entry.Position,
		}, nil
	}

	enrollment := &models.Enrollment{
		StudentID:  request.StudentID,
		ClassID:    request.ClassID,
		Status:     models.EnrollmentStatusEnrolled,
		EnrolledBy: approverID,
		EnrolledAt: now,
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	if err := s.requests.MarkReviewed(ctx, requestID, models.EnrollmentRequestApproved, approverID, "", now); err != nil {
		return nil, s.reviewError(err)
	}
	return &models.EnrollmentResult{
		Success:      true,
		Status:       models.EnrollmentResultEnrolled,
		Message:      "request approved and student enrolled",
		EnrollmentID: &enrollment.ID,
	}, nil
}

// DenyEnrollment refuses a pending request with a reason. No enrollment side
// effects.
func (s *EnrollmentService) DenyEnrollment(ctx context.Context, requestID, approverID, reason string) error {
	if _, err := s.pendingRequest(ctx, requestID); err != nil {
		return err
	}
	if err := s.requests.MarkReviewed(ctx, requestID, models.EnrollmentRequestDenied, approverID, reason, time.Now().UTC()); err != nil {
		return s.reviewError(err)
	}
	return nil
}

// DropStudent marks the enrollment dropped and releases the seat. Promotion of
// the next waitlisted student is deliberately left to the caller.
func (s *EnrollmentService) DropStudent(ctx context.Context, studentID, classID, reason string) error {
	enrollment, err := s.enrollments.FindActive(ctx, studentID, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "no active enrollment for this student")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if err := s.enrollments.MarkDropped(ctx, enrollment.ID, time.Now().UTC(), reason); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment already dropped")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
	}
	if err := s.classes.DecrementEnrollment(ctx, classID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release seat")
	}
	return nil
}

// BulkEnroll runs RequestEnrollment per student. One student's failure never
// aborts the batch; results keep input order.
func (s *EnrollmentService) BulkEnroll(ctx context.Context, studentIDs []string, classID, performedBy string) (*models.BulkEnrollReport, error) {
	report := &models.BulkEnrollReport{
		TotalProcessed: len(studentIDs),
		Results:        make([]models.BulkEnrollItem, 0, len(studentIDs)),
	}

	for _, studentID := range studentIDs {
		result, err := s.RequestEnrollment(ctx, RequestEnrollmentInput{
			StudentID:   studentID,
			ClassID:     classID,
			PerformedBy: performedBy,
		})
		if err != nil {
			appErr := appErrors.FromError(err)
			result = &models.EnrollmentResult{
				Success: false,
				Status:  models.EnrollmentResultRejected,
				Message: appErr.Message,
				Errors:  []models.ResultError{{Code: appErr.Code, Message: appErr.Message}},
			}
			s.logger.Warn("bulk enroll item failed",
				zap.String("student_id", studentID),
				zap.String("class_id", classID),
				zap.Error(err))
		}
		if result.Success {
			report.Successful++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, models.BulkEnrollItem{StudentID: studentID, Result: *result})
	}

	report.Summary = fmt.Sprintf("%d of %d students processed successfully", report.Successful, report.TotalProcessed)
	return report, nil
}

func (s *EnrollmentService) pendingRequest(ctx context.Context, requestID string) (*models.EnrollmentRequest, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found or already processed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.Status != models.EnrollmentRequestPending {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found or already processed")
	}
	return request, nil
}

func (s *EnrollmentService) reviewError(err error) error {
	if err == sql.ErrNoRows {
		return appErrors.Clone(appErrors.ErrNotFound, "request not found or already processed")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
}
