package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classboard/enrollment-api/internal/service"
	appErrors "github.com/classboard/enrollment-api/pkg/errors"
	"github.com/classboard/enrollment-api/pkg/response"
)

// seatPromoter schedules a background promotion pass for a class whose seat
// count just dropped.
type seatPromoter interface {
	EnqueueClass(classID string)
}

// EnrollmentHandler exposes enrollment coordination endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	promotions  seatPromoter
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, promotions seatPromoter) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, promotions: promotions}
}

// Request godoc
// @Summary Request enrollment into a class
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.RequestEnrollmentInput true "Enrollment request"
// @Success 200 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Request(c *gin.Context) {
	var input service.RequestEnrollmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.enrollments.RequestEnrollment(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

type reviewRequest struct {
	ReviewerID string `json:"reviewerId" binding:"required"`
	Reason     string `json:"reason"`
}

// Approve godoc
// @Summary Approve a pending enrollment request
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param requestId path string true "Request ID"
// @Param payload body reviewRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/requests/{requestId}/approve [post]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.enrollments.ApproveEnrollment(c.Request.Context(), c.Param("requestId"), req.ReviewerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Deny godoc
// @Summary Deny a pending enrollment request
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param requestId path string true "Request ID"
// @Param payload body reviewRequest true "Review payload"
// @Success 204 "No Content"
// @Router /enrollments/requests/{requestId}/deny [post]
func (h *EnrollmentHandler) Deny(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.enrollments.DenyEnrollment(c.Request.Context(), c.Param("requestId"), req.ReviewerID, req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type dropRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	ClassID   string `json:"classId" binding:"required"`
	Reason    string `json:"reason"`
}

// Drop godoc
// @Summary Drop a student from a class
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dropRequest true "Drop payload"
// @Success 204 "No Content"
// @Router /enrollments/drop [post]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	var req dropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.enrollments.DropStudent(c.Request.Context(), req.StudentID, req.ClassID, req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	if h.promotions != nil {
		h.promotions.EnqueueClass(req.ClassID)
	}
	response.NoContent(c)
}

type bulkEnrollRequest struct {
	StudentIDs  []string `json:"studentIds" binding:"required,min=1"`
	ClassID     string   `json:"classId" binding:"required"`
	PerformedBy string   `json:"performedBy"`
}

// Bulk godoc
// @Summary Enroll a batch of students into one class
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body bulkEnrollRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/bulk [post]
func (h *EnrollmentHandler) Bulk(c *gin.Context) {
	var req bulkEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.enrollments.BulkEnroll(c.Request.Context(), req.StudentIDs, req.ClassID, req.PerformedBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
