package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/classboard/enrollment-api/internal/models"
	"github.com/classboard/enrollment-api/internal/service"
	appErrors "github.com/classboard/enrollment-api/pkg/errors"
	"github.com/classboard/enrollment-api/pkg/response"
)

// WaitlistHandler exposes waitlist endpoints.
type WaitlistHandler struct {
	waitlists *service.WaitlistService
}

// NewWaitlistHandler constructs WaitlistHandler.
func NewWaitlistHandler(waitlists *service.WaitlistService) *WaitlistHandler {
	return &WaitlistHandler{waitlists: waitlists}
}

type joinWaitlistRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	Priority  int    `json:"priority"`
}

// Join godoc
// @Summary Add a student to a class waitlist
// @Tags Waitlist
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param payload body joinWaitlistRequest true "Join payload"
// @Success 201 {object} response.Envelope
// @Router /classes/{classId}/waitlist [post]
func (h *WaitlistHandler) Join(c *gin.Context) {
	var req joinWaitlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.waitlists.AddToWaitlist(c.Request.Context(), req.StudentID, c.Param("classId"), req.Priority)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// List godoc
// @Summary List a class waitlist in position order
// @Tags Waitlist
// @Produce json
// @Param classId path string true "Class ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/waitlist [get]
func (h *WaitlistHandler) List(c *gin.Context) {
	filter := models.WaitlistFilter{ClassID: c.Param("classId")}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	entries, pagination, err := h.waitlists.ListClassWaitlist(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// StudentInfo godoc
// @Summary Get a student's waitlist standing for a class
// @Tags Waitlist
// @Produce json
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/waitlist/{studentId} [get]
func (h *WaitlistHandler) StudentInfo(c *gin.Context) {
	info, err := h.waitlists.GetStudentWaitlistInfo(c.Request.Context(), c.Param("studentId"), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}

// Position godoc
// @Summary Get a student's current waitlist position
// @Tags Waitlist
// @Produce json
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/waitlist/{studentId}/position [get]
func (h *WaitlistHandler) Position(c *gin.Context) {
	position, err := h.waitlists.GetWaitlistPosition(c.Request.Context(), c.Param("studentId"), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"position": position}, nil)
}

// Withdraw godoc
// @Summary Remove a student from a class waitlist
// @Tags Waitlist
// @Produce json
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 204 "No Content"
// @Router /classes/{classId}/waitlist/{studentId} [delete]
func (h *WaitlistHandler) Withdraw(c *gin.Context) {
	if err := h.waitlists.Withdraw(c.Request.Context(), c.Param("studentId"), c.Param("classId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

type offerResponseRequest struct {
	Response models.WaitlistResponse `json:"response" binding:"required"`
}

// Respond godoc
// @Summary Accept or decline an open enrollment offer
// @Tags Waitlist
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Param payload body offerResponseRequest true "Offer response"
// @Success 204 "No Content"
// @Router /classes/{classId}/waitlist/{studentId}/response [post]
func (h *WaitlistHandler) Respond(c *gin.Context) {
	var req offerResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.waitlists.HandleWaitlistResponse(c.Request.Context(), c.Param("studentId"), c.Param("classId"), req.Response); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Process godoc
// @Summary Offer open seats to waitlisted students for a class
// @Tags Waitlist
// @Produce json
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{classId}/waitlist/process [post]
func (h *WaitlistHandler) Process(c *gin.Context) {
	report, err := h.waitlists.ProcessWaitlist(c.Request.Context(), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
