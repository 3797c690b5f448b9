package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/classboard/enrollment-api/internal/models"
	"github.com/classboard/enrollment-api/pkg/config"
	"github.com/classboard/enrollment-api/pkg/export"
)

type planningStore interface {
	DemandByDepartment(ctx context.Context, departmentID string) ([]models.CourseDemand, error)
}

// PlannerService produces advisory section plans from enrollment and waitlist
// demand. It is strictly read-only: no plan it emits changes class records.
type PlannerService struct {
	repo    planningStore
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger

	targetUtilization  float64
	feasibilityCutoff  float64
	defaultSectionSize int
	cacheTTL           time.Duration

	csvExporter *export.CSVExporter
	pdfExporter *export.PDFExporter
}

// NewPlannerService constructs the planner.
func NewPlannerService(repo planningStore, cache *CacheService, metrics *MetricsService, cfg config.PlannerConfig, logger *zap.Logger) *PlannerService {
	if cfg.TargetUtilization <= 0 || cfg.TargetUtilization > 1 {
		cfg.TargetUtilization = 0.85
	}
	if cfg.FeasibilityCutoff <= 0 {
		cfg.FeasibilityCutoff = 0.6
	}
	if cfg.DefaultSectionSize <= 0 {
		cfg.DefaultSectionSize = 30
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlannerService{
		repo:               repo,
		cache:              cache,
		metrics:            metrics,
		logger:             logger,
		targetUtilization:  cfg.TargetUtilization,
		feasibilityCutoff:  cfg.FeasibilityCutoff,
		defaultSectionSize: cfg.DefaultSectionSize,
		cacheTTL:           cfg.CacheTTL,
		csvExporter:        export.NewCSVExporter(),
		pdfExporter:        export.NewPDFExporter(),
	}
}

// AnalyzeDepartmentCapacityNeeds scores each course code in the department by
// demand pressure, highest first.
func (s *PlannerService) AnalyzeDepartmentCapacityNeeds(ctx context.Context, departmentID string) ([]models.SectionPlanningData, error) {
	cacheKey := fmt.Sprintf("planner:analysis:%s", departmentID)
	var cached []models.SectionPlanningData
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	start := time.Now()
	demand, err := s.repo.DemandByDepartment(ctx, departmentID)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("planner_demand_by_department", time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	analysis := make([]models.SectionPlanningData, 0, len(demand))
	for _, d := range demand {
		analysis = append(analysis, s.scoreCourse(d))
	}
	sort.SliceStable(analysis, func(i, j int) bool {
		return analysis[i].DemandScore > analysis[j].DemandScore
	})

	if err := s.cache.Set(ctx, cacheKey, analysis, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache department analysis",
			zap.String("department_id", departmentID), zap.Error(err))
	}
	return analysis, nil
}

// GenerateSectionPlans turns the department analysis into per-course section
// recommendations, optimized against feasibility.
func (s *PlannerService) GenerateSectionPlans(ctx context.Context, departmentID string) ([]models.SectionPlan, error) {
	analysis, err := s.AnalyzeDepartmentCapacityNeeds(ctx, departmentID)
	if err != nil {
		return nil, err
	}

	plans := make([]models.SectionPlan, 0, len(analysis))
	for _, data := range analysis {
		plan := s.buildPlan(data)
		s.optimizePlan(&plan)
		plans = append(plans, plan)
	}
	return plans, nil
}

// ExportSectionPlans renders the department's plans as CSV or PDF bytes.
func (s *PlannerService) ExportSectionPlans(ctx context.Context, departmentID, format string) ([]byte, string, error) {
	plans, err := s.GenerateSectionPlans(ctx, departmentID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Course Code", "Course Name", "Current Sections", "Recommended Sections", "Adjusted Sections", "Priority", "Utilization", "Total Demand", "Feasibility Score"},
	}
	for _, p := range plans {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Course Code":          p.CourseCode,
			"Course Name":          p.CourseName,
			"Current Sections":     fmt.Sprintf("%d", p.CurrentSections),
			"Recommended Sections": fmt.Sprintf("%d", p.RecommendedSections),
			"Adjusted Sections":    fmt.Sprintf("%d", p.AdjustedSections),
			"Priority":             string(p.Priority),
			"Utilization":          fmt.Sprintf("%.2f", p.Utilization),
			"Total Demand":         fmt.Sprintf("%d", p.TotalDemand),
			"Feasibility Score":    fmt.Sprintf("%.2f", p.FeasibilityScore),
		})
	}

	switch format {
	case "pdf":
		payload, err := s.pdfExporter.Render(dataset, fmt.Sprintf("Section Plans - Department %s", departmentID))
		if err != nil {
			return nil, "", err
		}
		return payload, "application/pdf", nil
	default:
		payload, err := s.csvExporter.Render(dataset)
		if err != nil {
			return nil, "", err
		}
		return payload, "text/csv", nil
	}
}

func (s *PlannerService) scoreCourse(d models.CourseDemand) models.SectionPlanningData {
	totalDemand := d.TotalEnrollment + d.TotalWaitlist
	utilization := 0.0
	if d.TotalCapacity > 0 {
		utilization = float64(d.TotalEnrollment) / float64(d.TotalCapacity)
	}
	score := float64(totalDemand)*utilization + math.Log(float64(d.TotalWaitlist)+1)*10

	return models.SectionPlanningData{
		CourseCode:      d.CourseCode,
		CourseName:      d.CourseName,
		SectionCount:    d.SectionCount,
		TotalCapacity:   d.TotalCapacity,
		TotalEnrollment: d.TotalEnrollment,
		TotalWaitlist:   d.TotalWaitlist,
		TotalDemand:     totalDemand,
		Utilization:     round2(utilization),
		DemandScore:     round2(score),
	}
}

func (s *PlannerService) buildPlan(data models.SectionPlanningData) models.SectionPlan {
	avgCapacity := s.defaultSectionSize
	if data.SectionCount > 0 && data.TotalCapacity > 0 {
		avgCapacity = data.TotalCapacity / data.SectionCount
	}
	if avgCapacity <= 0 {
		avgCapacity = s.defaultSectionSize
	}

	// Size sections so that projected demand lands at the target utilization
	// instead of 100%, leaving headroom for drops and late adds.
	requiredSeats := int(math.Ceil(float64(data.TotalDemand) / s.targetUtilization))
	recommended := int(math.Ceil(float64(requiredSeats) / float64(avgCapacity)))
	if recommended < 1 {
		recommended = 1
	}

	plan := models.SectionPlan{
		CourseCode:          data.CourseCode,
		CourseName:          data.CourseName,
		CurrentSections:     data.SectionCount,
		RecommendedSections: recommended,
		AdjustedSections:    recommended,
		Priority:            s.planPriority(data),
		Utilization:         data.Utilization,
		TotalDemand:         data.TotalDemand,
	}
	plan.FeasibilityFactors = s.feasibilityFactors(plan)
	plan.FeasibilityScore = round2(feasibilityScore(plan.FeasibilityFactors))
	return plan
}

func (s *PlannerService) planPriority(data models.SectionPlanningData) models.PlanPriority {
	overWaitlisted := float64(data.TotalWaitlist) > 0.2*float64(data.TotalCapacity)
	switch {
	case data.Utilization > 0.95 || overWaitlisted:
		return models.PlanPriorityHigh
	case data.Utilization < 0.5 && data.SectionCount > 1:
		return models.PlanPriorityLow
	default:
		return models.PlanPriorityMedium
	}
}

func (s *PlannerService) feasibilityFactors(plan models.SectionPlan) []models.FeasibilityFactor {
	delta := plan.RecommendedSections - plan.CurrentSections

	instructor := models.FactorImpactNeutral
	if delta > 1 {
		instructor = models.FactorImpactNegative
	}
	classroom := models.FactorImpactNeutral
	if delta > 2 {
		classroom = models.FactorImpactNegative
	}
	demandTrend := models.FactorImpactNeutral
	if plan.TotalDemand > 0 && plan.Utilization > 0.8 {
		demandTrend = models.FactorImpactPositive
	}
	budget := models.FactorImpactNeutral
	if delta > 0 {
		budget = models.FactorImpactNegative
	} else if delta < 0 {
		budget = models.FactorImpactPositive
	}

	return []models.FeasibilityFactor{
		{Name: "instructor_availability", Impact: instructor, Weight: 0.3},
		{Name: "classroom_availability", Impact: classroom, Weight: 0.25},
		{Name: "demand_trend", Impact: demandTrend, Weight: 0.25},
		{Name: "budget_impact", Impact: budget, Weight: 0.2},
	}
}

// optimizePlan shaves one section off low-feasibility expansions, never going
// below the current section count, and fills in the implementation steps.
func (s *PlannerService) optimizePlan(plan *models.SectionPlan) {
	plan.AdjustedSections = plan.RecommendedSections
	if plan.FeasibilityScore < s.feasibilityCutoff && plan.RecommendedSections > plan.CurrentSections {
		adjusted := plan.RecommendedSections - 1
		if adjusted < plan.CurrentSections {
			adjusted = plan.CurrentSections
		}
		plan.AdjustedSections = adjusted
	}
	plan.ImplementationSteps = s.implementationSteps(*plan)
}

func (s *PlannerService) implementationSteps(plan models.SectionPlan) []string {
	delta := plan.AdjustedSections - plan.CurrentSections
	switch {
	case delta > 0:
		return []string{
			fmt.Sprintf("Confirm instructor assignments for %d additional section(s) of %s", delta, plan.CourseCode),
			fmt.Sprintf("Reserve classroom space for %d section(s) next term", plan.AdjustedSections),
			"Open the new section(s) and notify students currently on the waitlist",
		}
	case delta < 0:
		return []string{
			fmt.Sprintf("Identify the %d lowest-enrolled section(s) of %s for consolidation", -delta, plan.CourseCode),
			"Transfer enrolled students into the remaining sections before closing",
			"Release freed instructor and classroom assignments",
		}
	default:
		return []string{
			fmt.Sprintf("Maintain the current %d section(s) of %s", plan.CurrentSections, plan.CourseCode),
			"Re-run the analysis after the next registration period",
		}
	}
}

func feasibilityScore(factors []models.FeasibilityFactor) float64 {
	totalWeight := 0.0
	weighted := 0.0
	for _, f := range factors {
		value := 0.5
		switch f.Impact {
		case models.FactorImpactPositive:
			value = 1.0
		case models.FactorImpactNegative:
			value = 0.0
		}
		weighted += value * f.Weight
		totalWeight += f.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weighted / totalWeight
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
