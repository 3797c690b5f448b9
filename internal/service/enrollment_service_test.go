package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classboard/enrollment-api/internal/models"
	appErrors "github.com/classboard/enrollment-api/pkg/errors"
)

type mockEnrollmentStore struct {
	enrollments map[string]models.Enrollment
	created     []models.Enrollment
	dropped     []string
}

func (m *mockEnrollmentStore) key(studentID, classID string) string {
	return studentID + "/" + classID
}

func (m *mockEnrollmentStore) Create(ctx context.Context, e *models.Enrollment) error {
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	if e.ID == "" {
		e.ID = fmt.Sprintf("enr-%d", len(m.enrollments)+1)
	}
	m.enrollments[m.key(e.StudentID, e.ClassID)] = *e
	m.created = append(m.created, *e)
	return nil
}

func (m *mockEnrollmentStore) FindActive(ctx context.Context, studentID, classID string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[m.key(studentID, classID)]; ok && e.Status != models.EnrollmentStatusDropped {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentStore) ExistsActive(ctx context.Context, studentID, classID string) (bool, error) {
	e, ok := m.enrollments[m.key(studentID, classID)]
	return ok && e.Status != models.EnrollmentStatusDropped, nil
}

func (m *mockEnrollmentStore) MarkDropped(ctx context.Context, id string, at time.Time, reason string) error {
	for k, e := range m.enrollments {
		if e.ID == id {
			if e.Status == models.EnrollmentStatusDropped {
				return sql.ErrNoRows
			}
			e.Status = models.EnrollmentStatusDropped
			e.DroppedAt = &at
			e.DropReason = reason
			m.enrollments[k] = e
			m.dropped = append(m.dropped, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

type mockRequestStore struct {
	requests map[string]models.EnrollmentRequest
}

func (m *mockRequestStore) Create(ctx context.Context, req *models.EnrollmentRequest) error {
	if m.requests == nil {
		m.requests = make(map[string]models.EnrollmentRequest)
	}
	if req.ID == "" {
		req.ID = fmt.Sprintf("req-%d", len(m.requests)+1)
	}
	req.CreatedAt = time.Now().UTC()
	m.requests[req.ID] = *req
	return nil
}

func (m *mockRequestStore) FindByID(ctx context.Context, id string) (*models.EnrollmentRequest, error) {
	if r, ok := m.requests[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRequestStore) MarkReviewed(ctx context.Context, id string, status models.EnrollmentRequestStatus, reviewerID, note string, at time.Time) error {
	r, ok := m.requests[id]
	if !ok || r.Status != models.EnrollmentRequestPending {
		return sql.ErrNoRows
	}
	r.Status = status
	r.ReviewedBy = &reviewerID
	r.ReviewedAt = &at
	r.ReviewNote = note
	m.requests[id] = r
	return nil
}

type mockClassCapacityStore struct {
	classes map[string]*models.Class
}

func (m *mockClassCapacityStore) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		found := *c
		return &found, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassCapacityStore) IncrementEnrollment(ctx context.Context, id string) error {
	c, ok := m.classes[id]
	if !ok || c.CurrentEnrollment >= c.Capacity {
		return sql.ErrNoRows
	}
	c.CurrentEnrollment++
	return nil
}

func (m *mockClassCapacityStore) DecrementEnrollment(ctx context.Context, id string) error {
	if c, ok := m.classes[id]; ok && c.CurrentEnrollment > 0 {
		c.CurrentEnrollment--
	}
	return nil
}

type mockInvitationChecker struct {
	invited map[string]bool
}

func (m *mockInvitationChecker) Exists(ctx context.Context, studentID, classID string) (bool, error) {
	return m.invited[studentID+"/"+classID], nil
}

type mockWaitlistManager struct {
	entries  int
	capacity int
	added    []string
}

func (m *mockWaitlistManager) AddToWaitlist(ctx context.Context, studentID, classID string, priority int) (*models.WaitlistEntry, error) {
	if m.capacity > 0 && m.entries >= m.capacity {
		return nil, appErrors.ErrWaitlistFull
	}
	m.entries++
	m.added = append(m.added, studentID)
	return &models.WaitlistEntry{
		ID:                   fmt.Sprintf("wl-%d", m.entries),
		StudentID:            studentID,
		ClassID:              classID,
		Position:             m.entries,
		Priority:             priority,
		EstimatedProbability: estimateProbability(m.entries),
	}, nil
}

func (m *mockWaitlistManager) EstimateWaitTime(position int) string {
	return fmt.Sprintf("~%d days", position*4)
}

type enrollmentFixture struct {
	svc         *EnrollmentService
	enrollments *mockEnrollmentStore
	requests    *mockRequestStore
	classes     *mockClassCapacityStore
	invitations *mockInvitationChecker
	waitlist    *mockWaitlistManager
}

func newEnrollmentFixture(classes ...*models.Class) *enrollmentFixture {
	f := &enrollmentFixture{
		enrollments: &mockEnrollmentStore{},
		requests:    &mockRequestStore{},
		classes:     &mockClassCapacityStore{classes: make(map[string]*models.Class)},
		invitations: &mockInvitationChecker{invited: make(map[string]bool)},
		waitlist:    &mockWaitlistManager{},
	}
	for _, c := range classes {
		f.classes.classes[c.ID] = c
	}
	f.svc = NewEnrollmentService(f.enrollments, f.requests, f.classes, f.invitations, f.waitlist, validator.New(), zap.NewNop())
	return f
}

func openClass(id string, capacity, enrolled int) *models.Class {
	return &models.Class{
		ID:                id,
		CourseCode:        "MATH200",
		Name:              "Linear Algebra",
		EnrollmentType:    models.EnrollmentTypeOpen,
		Capacity:          capacity,
		CurrentEnrollment: enrolled,
		WaitlistCapacity:  10,
	}
}

func resultCode(result *models.EnrollmentResult) string {
	if len(result.Errors) == 0 {
		return ""
	}
	return result.Errors[0].Code
}

func TestRequestEnrollmentWithOpenSeats(t *testing.T) {
	f := newEnrollmentFixture(openClass("c1", 30, 10))

	result, err := f.svc.RequestEnrollment(context.Background(), RequestEnrollmentInput{StudentID: "s1", ClassID: "c1"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.EnrollmentResultEnrolled, result.Status)
	require.NotNil(t, result.EnrollmentID)

	require.Len(t, f.enrollments.created, 1)
	assert.Equal(t, "s1", f.enrollments.created[0].EnrolledBy)
	assert.Equal(t, 11, f.classes.classes["c1"].CurrentEnrollment)
}

func TestRequestEnrollmentFullClassWaitlists(t *testing.T) {
	f := newEnrollmentFixture(openClass("c1", 30, 30))

	result, err := f.svc.RequestEnrollment(context.Background(), RequestEnrollmentInput{StudentID: "s1", ClassID: "c1"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.EnrollmentResultWaitlisted, result.Status)
	require.NotNil(t, result.WaitlistPosition)
	assert.Equal(t, 1, *result.WaitlistPosition)
	require.NotNil(t, result.EstimatedProbability)
	assert.Equal(t, 0.8, *result.EstimatedProbability)
	require.NotNil(t, result.EstimatedWaitTime)
	assert.Equal(t, "~4 days", *result.EstimatedWaitTime)
	assert.Empty(t, f.enrollments.created)
}

func TestRequestEnrollmentClassNotFound(t *testing.T) {
	f := newEnrollmentFixture()

	result, err := f.svc.RequestEnrollment(context.Background(), RequestEnrollmentInput{StudentID: "s1", ClassID: "missing"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.EnrollmentResultRejected, result.Status)
	assert.Equal(t, appErrors.ErrClassNotFound.Code, resultCode(result))
}

func TestRequestEnrollmentAlreadyEnrolled(t *testing.T) {
	f := newEnrollmentFixture(openClass("c1", 30, 10))

	_, err := f.svc.RequestEnrollment(context.Background(), RequestEnrollmentInput{StudentID: "s1", ClassID: "c1"})
	require.NoError(t, err)

	result, err := f.svc.RequestEnrollment(context.Background(), RequestEnrollmentInput{StudentID: "s1", ClassID: "c1"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, resultCode(result))
}

func TestRequestEnrollmentInvitationOnly(t *testing.T) {
	class := openClass("c1", 30, 10)
	class.EnrollmentType = models.EnrollmentTypeInvitationOnly
	f := newEnrollmentFixture(class)

	result, err := f.svc.RequestEnrollment(context.Background(), RequestEnrollmentInput{StudentID: "s1", ClassID: "c1"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, appErrors.ErrInvitationRequired.Code, resultCode(result))

	f.invitations.invited["s2/c1"] = true
	result, err = f.svc.RequestEnrollment(context.Background(), RequestEnrollmentInput{StudentID: "s2", ClassID: "c1"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.EnrollmentResultEnrolled, result.Status)
}

func TestRequestEnrollmentRestrictedCreatesRequest(t *testing.T) {
	class := openClass("c1", 30, 10)
	class.EnrollmentType = models.EnrollmentTypeRestricted
	f := newEnrollmentFixture(class)

	result, err := f.svc.RequestEnrollment(context.Background(), RequestEnrollmentInput{
		StudentID:     "s1",
		ClassID:       "c1",
		Justification: "prerequisite completed abroad",
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.EnrollmentResultPending, result.Status)
	require.NotNil(t, result.RequestID)

	stored := f.requests.requests[*result.RequestID]
	assert.Equal(t, models.EnrollmentRequestPending, stored.Status)
	assert.Equal(t, "prerequisite completed abroad", stored.Justification)
	assert.Empty(t, f.enrollments.created, "restricted classes must not enroll directly")
	assert.Equal(t, 10, f.classes.classes["c1"].CurrentEnrollment)
}

func TestRequestEnrollmentValidation(t *testing.T) {
	f := newEnrollmentFixture()

	_, err := f.svc.RequestEnrollment(context.Background(), RequestEnrollmentInput{StudentID: "s1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestApproveEnrollment(t *testing.T) {
	class := openClass("c1", 30, 10)
	class.EnrollmentType = models.EnrollmentTypeRestricted
	f := newEnrollmentFixture(class)

	result, err := f.svc.RequestEnrollment(context.Background(), RequestEnrollmentInput{StudentID: "s1", ClassID: "c1"})
	require.NoError(t, err)

	approved, err := f.svc.ApproveEnrollment(context.Background(), *result.RequestID, "advisor-1")
	require.NoError(t, err)
	assert.True(t, approved.Success)
	assert.Equal(t, models.EnrollmentResultEnrolled, approved.Status)

	stored := f.requests.requests[*result.RequestID]
	assert.Equal(t, models.EnrollmentRequestApproved, stored.Status)
	require.Len(t, f.enrollments.created, 1)
	assert.Equal(t, "advisor-1", f.enrollments.created[0].EnrolledBy)
	assert.Equal(t, 11, f.classes.classes["c1"].CurrentEnrollment)
}

func TestApproveEnrollmentIntoWaitlist(t *testing.T) {
	class := openClass("c1", 30, 10)
	class.EnrollmentType = models.EnrollmentTypeRestricted
	f := newEnrollmentFixture(class)

	result, err := f.svc.RequestEnrollment(context.Background(), RequestEnrollmentInput{StudentID: "s1", ClassID: "c1"})
	require.NoError(t, err)

	// Class filled up while the request sat in review.
	f.classes.classes["c1"].CurrentEnrollment = 30

	approved, err := f.svc.ApproveEnrollment(context.Background(), *result.RequestID, "advisor-1")
	require.NoError(t, err)
	assert.True(t, approved.Success)
	assert.Equal(t, models.EnrollmentResultWaitlisted, approved.Status)
	assert.Equal(t, []string{"s1"}, f.waitlist.added)

	stored := f.requests.requests[*result.RequestID]
	assert.Equal(t, models.EnrollmentRequestApproved, stored.Status)
	assert.Equal(t, "Approved but added to waitlist due to capacity", stored.ReviewNote)
	assert.Empty(t, f.enrollments.created)
}

func TestApproveEnrollmentAlreadyProcessed(t *testing.T) {
	class := openClass("c1", 30, 10)
	class.EnrollmentType = models.EnrollmentTypeRestricted
	f := newEnrollmentFixture(class)

	result, err := f.svc.RequestEnrollment(context.Background(), RequestEnrollmentInput{StudentID: "s1", ClassID: "c1"})
	require.NoError(t, err)
	_, err = f.svc.ApproveEnrollment(context.Background(), *result.RequestID, "advisor-1")
	require.NoError(t, err)

	_, err = f.svc.ApproveEnrollment(context.Background(), *result.RequestID, "advisor-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDenyEnrollment(t *testing.T) {
	class := openClass("c1", 30, 10)
	class.EnrollmentType = models.EnrollmentTypeRestricted
	f := newEnrollmentFixture(class)

	result, err := f.svc.RequestEnrollment(context.Background(), RequestEnrollmentInput{StudentID: "s1", ClassID: "c1"})
	require.NoError(t, err)

	require.NoError(t, f.svc.DenyEnrollment(context.Background(), *result.RequestID, "advisor-1", "missing prerequisite"))

	stored := f.requests.requests[*result.RequestID]
	assert.Equal(t, models.EnrollmentRequestDenied, stored.Status)
	assert.Equal(t, "missing prerequisite", stored.ReviewNote)
	assert.Empty(t, f.enrollments.created)
	assert.Equal(t, 10, f.classes.classes["c1"].CurrentEnrollment)
}

func TestDropStudentReleasesSeat(t *testing.T) {
	f := newEnrollmentFixture(openClass("c1", 30, 10))

	_, err := f.svc.RequestEnrollment(context.Background(), RequestEnrollmentInput{StudentID: "s1", ClassID: "c1"})
	require.NoError(t, err)
	require.Equal(t, 11, f.classes.classes["c1"].CurrentEnrollment)

	require.NoError(t, f.svc.DropStudent(context.Background(), "s1", "c1", "schedule conflict"))

	assert.Len(t, f.enrollments.dropped, 1)
	assert.Equal(t, 10, f.classes.classes["c1"].CurrentEnrollment)

	err = f.svc.DropStudent(context.Background(), "s1", "c1", "again")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDropStudentNotEnrolled(t *testing.T) {
	f := newEnrollmentFixture(openClass("c1", 30, 10))

	err := f.svc.DropStudent(context.Background(), "s1", "c1", "never enrolled")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestBulkEnrollMixedOutcomes(t *testing.T) {
	f := newEnrollmentFixture(openClass("c1", 30, 29))
	f.waitlist.capacity = 1

	report, err := f.svc.BulkEnroll(context.Background(), []string{"s1", "s2", "s3"}, "c1", "registrar-1")
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalProcessed)
	assert.Equal(t, 2, report.Successful)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Results, 3)

	assert.Equal(t, models.EnrollmentResultEnrolled, report.Results[0].Result.Status)
	assert.Equal(t, models.EnrollmentResultWaitlisted, report.Results[1].Result.Status)
	assert.Equal(t, models.EnrollmentResultRejected, report.Results[2].Result.Status)
	assert.Equal(t, appErrors.ErrWaitlistFull.Code, resultCode(&report.Results[2].Result))
	assert.Equal(t, "2 of 3 students processed successfully", report.Summary)

	require.Len(t, f.enrollments.created, 1)
	assert.Equal(t, "registrar-1", f.enrollments.created[0].EnrolledBy)
}

func TestBulkEnrollContinuesPastAlreadyEnrolled(t *testing.T) {
	f := newEnrollmentFixture(openClass("c1", 30, 27))

	_, err := f.svc.RequestEnrollment(context.Background(), RequestEnrollmentInput{StudentID: "s2", ClassID: "c1"})
	require.NoError(t, err)

	report, err := f.svc.BulkEnroll(context.Background(), []string{"s1", "s2", "s3"}, "c1", "registrar-1")
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalProcessed)
	assert.Equal(t, 2, report.Successful)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Results, 3)

	assert.Equal(t, []string{"s1", "s2", "s3"}, []string{
		report.Results[0].StudentID, report.Results[1].StudentID, report.Results[2].StudentID,
	})
	assert.Equal(t, models.EnrollmentResultEnrolled, report.Results[0].Result.Status)
	assert.Equal(t, models.EnrollmentResultRejected, report.Results[1].Result.Status)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, resultCode(&report.Results[1].Result))
	assert.Equal(t, models.EnrollmentResultEnrolled, report.Results[2].Result.Status,
		"a mid-batch failure must not abort the remaining students")
	assert.Equal(t, "2 of 3 students processed successfully", report.Summary)
}
