package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/classboard/enrollment-api/internal/models"
	appErrors "github.com/classboard/enrollment-api/pkg/errors"
)

type waitlistStore interface {
	FindActive(ctx context.Context, studentID, classID string) (*models.WaitlistEntry, error)
	CountActive(ctx context.Context, classID string) (int, error)
	ListByClass(ctx context.Context, filter models.WaitlistFilter) ([]models.WaitlistEntry, int, error)
	ListUnnotified(ctx context.Context, classID string, limit int) ([]models.WaitlistEntry, error)
	InsertRanked(ctx context.Context, entry *models.WaitlistEntry) error
	Remove(ctx context.Context, id string) error
	SetNotified(ctx context.Context, id string, notifiedAt, expiresAt time.Time) error
	UpdateProbability(ctx context.Context, id string, probability float64) error
	ListExpired(ctx context.Context, now time.Time) ([]models.WaitlistEntry, error)
}

type notificationStore interface {
	Create(ctx context.Context, n *models.WaitlistNotification) error
	FindOpenByEntry(ctx context.Context, entryID string) (*models.WaitlistNotification, error)
	MarkResponded(ctx context.Context, id string, resp models.WaitlistResponse, at time.Time) error
}

type classStore interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	GetCapacity(ctx context.Context, id string) (*models.ClassCapacity, error)
	IncrementEnrollment(ctx context.Context, id string) error
	DecrementEnrollment(ctx context.Context, id string) error
}

type enrollmentCreator interface {
	Create(ctx context.Context, e *models.Enrollment) error
}

// OfferGateway delivers a promotion offer to the student. Fire-and-forget:
// delivery failures are the gateway's concern and are never retried here.
type OfferGateway interface {
	SendOffer(ctx context.Context, studentID, className, classCode string, deadline time.Time) error
}

// classLocks hands out one mutex per class so position read-modify-writes are
// serialized within the process. The repository's advisory lock covers
// cross-process writers.
type classLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *classLocks) get(classID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := l.locks[classID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[classID] = lock
	}
	return lock
}

// WaitlistService owns the waitlist ordering, the probability model and the
// promotion state machine: queued -> notified -> enrolled or removed.
type WaitlistService struct {
	waitlist      waitlistStore
	notifications notificationStore
	classes       classStore
	enrollments   enrollmentCreator
	gateway       OfferGateway
	metrics       *MetricsService
	logger        *zap.Logger

	responseWindow time.Duration
	turnoverDays   int
	locks          classLocks
}

// NewWaitlistService constructs WaitlistService.
func NewWaitlistService(waitlist waitlistStore, notifications notificationStore, classes classStore, enrollments enrollmentCreator, gateway OfferGateway, metrics *MetricsService, logger *zap.Logger, responseWindow time.Duration, turnoverDays int) *WaitlistService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if responseWindow <= 0 {
		responseWindow = 48 * time.Hour
	}
	if turnoverDays <= 0 {
		turnoverDays = 4
	}
	return &WaitlistService{
		waitlist:       waitlist,
		notifications:  notifications,
		classes:        classes,
		enrollments:    enrollments,
		gateway:        gateway,
		metrics:        metrics,
		logger:         logger,
		responseWindow: responseWindow,
		turnoverDays:   turnoverDays,
	}
}

// AddToWaitlist queues a student for a full class. Entries are ranked by
// priority descending, ties broken by arrival; positions stay contiguous.
func (s *WaitlistService) AddToWaitlist(ctx context.Context, studentID, classID string, priority int) (*models.WaitlistEntry, error) {
	if studentID == "" || classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id and class id are required")
	}

	lock := s.locks.get(classID)
	lock.Lock()
	defer lock.Unlock()

	capacity, err := s.classes.GetCapacity(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrClassNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class capacity")
	}

	if _, err := s.waitlist.FindActive(ctx, studentID, classID); err == nil {
		s.recordRefusal(appErrors.ErrDuplicateEntry.Code)
		return nil, appErrors.ErrDuplicateEntry
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing entry")
	}

	count, err := s.waitlist.CountActive(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count waitlist")
	}
	if count >= capacity.WaitlistCapacity {
		s.recordRefusal(appErrors.ErrWaitlistFull.Code)
		return nil, appErrors.ErrWaitlistFull
	}

	entry := &models.WaitlistEntry{
		StudentID: studentID,
		ClassID:   classID,
		Priority:  priority,
		AddedAt:   time.Now().UTC(),
	}
	if err := s.waitlist.InsertRanked(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert waitlist entry")
	}

	entry.EstimatedProbability = estimateProbability(entry.Position)
	if err := s.waitlist.UpdateProbability(ctx, entry.ID, entry.EstimatedProbability); err != nil {
		s.logger.Warn("failed to persist probability estimate",
			zap.String("entry_id", entry.ID), zap.Error(err))
	}

	if s.metrics != nil {
		s.metrics.RecordWaitlistJoin()
	}
	return entry, nil
}

// GetWaitlistPosition returns the student's current 1-based position.
func (s *WaitlistService) GetWaitlistPosition(ctx context.Context, studentID, classID string) (int, error) {
	entry, err := s.findEntry(ctx, studentID, classID)
	if err != nil {
		return 0, err
	}
	return entry.Position, nil
}

// EstimateEnrollmentProbability computes a fresh estimate from the current
// position. Read-only: the value cached at insertion time is untouched.
func (s *WaitlistService) EstimateEnrollmentProbability(ctx context.Context, studentID, classID string) (float64, error) {
	entry, err := s.findEntry(ctx, studentID, classID)
	if err != nil {
		return 0, err
	}
	return estimateProbability(entry.Position), nil
}

// GetStudentWaitlistInfo assembles the student-facing view of an entry.
func (s *WaitlistService) GetStudentWaitlistInfo(ctx context.Context, studentID, classID string) (*models.StudentWaitlistInfo, error) {
	entry, err := s.findEntry(ctx, studentID, classID)
	if err != nil {
		return nil, err
	}
	return &models.StudentWaitlistInfo{
		Entry:                *entry,
		Position:             entry.Position,
		EstimatedProbability: entry.EstimatedProbability,
		IsNotified:           entry.IsNotified(),
		ResponseDeadline:     entry.NotificationExpiresAt,
		EstimatedWaitTime:    s.EstimateWaitTime(entry.Position),
	}, nil
}

// ListClassWaitlist returns a page of a class's waitlist in position order.
func (s *WaitlistService) ListClassWaitlist(ctx context.Context, filter models.WaitlistFilter) ([]models.WaitlistEntry, *models.Pagination, error) {
	entries, total, err := s.waitlist.ListByClass(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waitlist")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return entries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Withdraw removes a student's entry. An open offer is closed as declined so
// no notification outlives its entry.
func (s *WaitlistService) Withdraw(ctx context.Context, studentID, classID string) error {
	lock := s.locks.get(classID)
	lock.Lock()
	defer lock.Unlock()

	entry, err := s.findEntry(ctx, studentID, classID)
	if err != nil {
		return err
	}
	if entry.IsNotified() {
		notification, err := s.notifications.FindOpenByEntry(ctx, entry.ID)
		switch {
		case err == nil:
			if err := s.notifications.MarkResponded(ctx, notification.ID, models.WaitlistResponseDecline, time.Now().UTC()); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close open offer")
			}
		case err != sql.ErrNoRows:
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
		}
	}
	if err := s.waitlist.Remove(ctx, entry.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove waitlist entry")
	}
	return nil
}

// ProcessWaitlist offers open seats to the next unnotified students in
// position order. A full class returns immediately without touching the
// waitlist store. Per-entry failures are reported and do not stop the pass;
// no entries are removed and no enrollments are created here.
func (s *WaitlistService) ProcessWaitlist(ctx context.Context, classID string) (*models.PromotionReport, error) {
	lock := s.locks.get(classID)
	lock.Lock()
	defer lock.Unlock()

	report := &models.PromotionReport{ClassID: classID}

	capacity, err := s.classes.GetCapacity(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrClassNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class capacity")
	}
	available := capacity.Available()
	if available <= 0 {
		return report, nil
	}

	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	candidates, err := s.waitlist.ListUnnotified(ctx, classID, available)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list candidates")
	}

	now := time.Now().UTC()
	deadline := now.Add(s.responseWindow)
	for _, entry := range candidates {
		notification := &models.WaitlistNotification{
			WaitlistEntryID: entry.ID,
			Type:            models.NotificationTypeEnrollmentAvailable,
			Message:         fmt.Sprintf("A seat is available in %s (%s). Respond by %s.", class.Name, class.CourseCode, deadline.Format(time.RFC1123)),
		}
		if err := s.notifications.Create(ctx, notification); err != nil {
			s.recordOfferFailure(report, entry, err)
			continue
		}
		if err := s.waitlist.SetNotified(ctx, entry.ID, now, deadline); err != nil {
			s.recordOfferFailure(report, entry, err)
			continue
		}

		if s.gateway != nil {
			if err := s.gateway.SendOffer(ctx, entry.StudentID, class.Name, class.CourseCode, deadline); err != nil {
				s.logger.Warn("offer delivery failed",
					zap.String("student_id", entry.StudentID),
					zap.String("class_id", classID),
					zap.Error(err))
			}
		}

		report.Offered++
		if s.metrics != nil {
			s.metrics.RecordPromotionOffered()
		}
	}

	return report, nil
}

// HandleWaitlistResponse resolves an open offer. Accept enrolls the student as
// waitlist_system and removes the entry; decline removes the entry without
// re-offering in this call.
func (s *WaitlistService) HandleWaitlistResponse(ctx context.Context, studentID, classID string, response models.WaitlistResponse) error {
	if response != models.WaitlistResponseAccept && response != models.WaitlistResponseDecline {
		return appErrors.Clone(appErrors.ErrValidation, "response must be accept or decline")
	}

	lock := s.locks.get(classID)
	lock.Lock()
	defer lock.Unlock()

	entry, err := s.findEntry(ctx, studentID, classID)
	if err != nil {
		return err
	}
	if !entry.IsNotified() {
		return appErrors.Clone(appErrors.ErrNotFound, "no open offer for this student")
	}

	notification, err := s.notifications.FindOpenByEntry(ctx, entry.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "no open offer for this student")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
	}

	now := time.Now().UTC()

	// The seat is reserved before the offer is closed. A lost seat race
	// leaves the notification open, so the student can retry once a seat
	// frees up and the expiry sweep can still reclaim the entry.
	if response == models.WaitlistResponseAccept {
		if err := s.classes.IncrementEnrollment(ctx, classID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrConflict, "class filled before the offer was accepted")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve seat")
		}
	}

	if err := s.notifications.MarkResponded(ctx, notification.ID, response, now); err != nil {
		if response == models.WaitlistResponseAccept {
			s.releaseSeat(ctx, classID)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record response")
	}

	if response == models.WaitlistResponseAccept {
		enrollment := &models.Enrollment{
			StudentID:  studentID,
			ClassID:    classID,
			Status:     models.EnrollmentStatusEnrolled,
			EnrolledBy: models.EnrolledByWaitlistSystem,
			EnrolledAt: now,
		}
		if err := s.enrollments.Create(ctx, enrollment); err != nil {
			s.releaseSeat(ctx, classID)
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
		}
	}

	if err := s.waitlist.Remove(ctx, entry.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove waitlist entry")
	}

	if s.metrics != nil {
		s.metrics.RecordOfferResponse(response)
	}
	return nil
}

// ProcessExpiredNotifications resolves offers whose response window has
// passed: the notification is closed as no_response and the entry removed.
// Running it twice over the same entries is a no-op the second time.
func (s *WaitlistService) ProcessExpiredNotifications(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	expired, err := s.waitlist.ListExpired(ctx, now)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expired offers")
	}

	processed := 0
	for _, entry := range expired {
		lock := s.locks.get(entry.ClassID)
		lock.Lock()

		notification, err := s.notifications.FindOpenByEntry(ctx, entry.ID)
		if err != nil {
			lock.Unlock()
			if err != sql.ErrNoRows {
				s.logger.Warn("failed to load expired notification",
					zap.String("entry_id", entry.ID), zap.Error(err))
			}
			continue
		}
		if err := s.notifications.MarkResponded(ctx, notification.ID, models.WaitlistResponseNoResponse, now); err != nil {
			lock.Unlock()
			s.logger.Warn("failed to close expired notification",
				zap.String("entry_id", entry.ID), zap.Error(err))
			continue
		}
		if err := s.waitlist.Remove(ctx, entry.ID); err != nil {
			lock.Unlock()
			s.logger.Warn("failed to remove expired entry",
				zap.String("entry_id", entry.ID), zap.Error(err))
			continue
		}
		lock.Unlock()

		processed++
		if s.metrics != nil {
			s.metrics.RecordOfferResponse(models.WaitlistResponseNoResponse)
		}
	}
	return processed, nil
}

func (s *WaitlistService) findEntry(ctx context.Context, studentID, classID string) (*models.WaitlistEntry, error) {
	entry, err := s.waitlist.FindActive(ctx, studentID, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active waitlist entry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waitlist entry")
	}
	return entry, nil
}

// releaseSeat undoes a seat reservation when a later write in the acceptance
// flow fails.
func (s *WaitlistService) releaseSeat(ctx context.Context, classID string) {
	if err := s.classes.DecrementEnrollment(ctx, classID); err != nil {
		s.logger.Error("failed to release reserved seat",
			zap.String("class_id", classID),
			zap.Error(err))
	}
}

func (s *WaitlistService) recordRefusal(reason string) {
	if s.metrics != nil {
		s.metrics.RecordWaitlistRefusal(reason)
	}
}

func (s *WaitlistService) recordOfferFailure(report *models.PromotionReport, entry models.WaitlistEntry, err error) {
	report.Failed++
	report.Errors = append(report.Errors, fmt.Sprintf("entry %s: %v", entry.ID, err))
	s.logger.Warn("promotion offer failed",
		zap.String("entry_id", entry.ID),
		zap.String("student_id", entry.StudentID),
		zap.Error(err))
	if s.metrics != nil {
		s.metrics.RecordPromotionFailure()
	}
}

// estimateProbability is a monotone non-increasing step function of position.
func estimateProbability(position int) float64 {
	switch {
	case position <= 3:
		return 0.8
	case position <= 5:
		return 0.6
	case position <= 10:
		return 0.4
	default:
		return 0.1
	}
}

// EstimateWaitTime phrases the expected wait for a position as "~N days".
func (s *WaitlistService) EstimateWaitTime(position int) string {
	days := position * s.turnoverDays
	if days < 1 {
		days = 1
	}
	if days == 1 {
		return "~1 day"
	}
	return fmt.Sprintf("~%d days", days)
}
