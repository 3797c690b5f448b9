package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classboard/enrollment-api/internal/service"
	"github.com/classboard/enrollment-api/pkg/response"
)

// PlanningHandler exposes the read-only section planning endpoints.
type PlanningHandler struct {
	planner *service.PlannerService
}

// NewPlanningHandler constructs PlanningHandler.
func NewPlanningHandler(planner *service.PlannerService) *PlanningHandler {
	return &PlanningHandler{planner: planner}
}

// Analysis godoc
// @Summary Score course demand across a department
// @Tags Planning
// @Produce json
// @Param departmentId path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Router /planning/departments/{departmentId}/analysis [get]
func (h *PlanningHandler) Analysis(c *gin.Context) {
	analysis, err := h.planner.AnalyzeDepartmentCapacityNeeds(c.Request.Context(), c.Param("departmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, analysis, nil)
}

// Plans godoc
// @Summary Generate advisory section plans for a department
// @Tags Planning
// @Produce json
// @Param departmentId path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Router /planning/departments/{departmentId}/plans [get]
func (h *PlanningHandler) Plans(c *gin.Context) {
	plans, err := h.planner.GenerateSectionPlans(c.Request.Context(), c.Param("departmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plans, nil)
}

// Export godoc
// @Summary Export a department's section plans as CSV or PDF
// @Tags Planning
// @Produce text/csv
// @Produce application/pdf
// @Param departmentId path string true "Department ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} byte
// @Router /planning/departments/{departmentId}/plans/export [get]
func (h *PlanningHandler) Export(c *gin.Context) {
	departmentID := c.Param("departmentId")
	format := c.DefaultQuery("format", "csv")

	payload, contentType, err := h.planner.ExportSectionPlans(c.Request.Context(), departmentID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	ext := "csv"
	if format == "pdf" {
		ext = "pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=section-plans-%s.%s", departmentID, ext))
	c.Data(http.StatusOK, contentType, payload)
}
