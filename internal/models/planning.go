package models

// CourseDemand is the per-course aggregate the planner reads from storage.
type CourseDemand struct {
	CourseCode      string `db:"course_code" json:"course_code"`
	CourseName      string `db:"course_name" json:"course_name"`
	SectionCount    int    `db:"section_count" json:"section_count"`
	TotalCapacity   int    `db:"total_capacity" json:"total_capacity"`
	TotalEnrollment int    `db:"total_enrollment" json:"total_enrollment"`
	TotalWaitlist   int    `db:"total_waitlist" json:"total_waitlist"`
}

// SectionPlanningData scores a course's demand pressure for planning.
type SectionPlanningData struct {
	CourseCode      string  `json:"course_code"`
	CourseName      string  `json:"course_name"`
	SectionCount    int     `json:"section_count"`
	TotalCapacity   int     `json:"total_capacity"`
	TotalEnrollment int     `json:"total_enrollment"`
	TotalWaitlist   int     `json:"total_waitlist"`
	TotalDemand     int     `json:"total_demand"`
	Utilization     float64 `json:"utilization"`
	DemandScore     float64 `json:"demand_score"`
}

// PlanPriority ranks how urgently a section change is needed.
type PlanPriority string

// Plan priorities.
const (
	PlanPriorityHigh   PlanPriority = "high"
	PlanPriorityMedium PlanPriority = "medium"
	PlanPriorityLow    PlanPriority = "low"
)

// FactorImpact qualifies a feasibility factor.
type FactorImpact string

// Factor impacts.
const (
	FactorImpactPositive FactorImpact = "positive"
	FactorImpactNeutral  FactorImpact = "neutral"
	FactorImpactNegative FactorImpact = "negative"
)

// FeasibilityFactor is a weighted qualitative input to plan optimization.
type FeasibilityFactor struct {
	Name   string       `json:"name"`
	Impact FactorImpact `json:"impact"`
	Weight float64      `json:"weight"`
}

// SectionPlan is the planner's advisory recommendation for one course.
type SectionPlan struct {
	CourseCode          string              `json:"course_code"`
	CourseName          string              `json:"course_name"`
	CurrentSections     int                 `json:"current_sections"`
	RecommendedSections int                 `json:"recommended_sections"`
	AdjustedSections    int                 `json:"adjusted_sections"`
	Priority            PlanPriority        `json:"priority"`
	Utilization         float64             `json:"utilization"`
	TotalDemand         int                 `json:"total_demand"`
	FeasibilityScore    float64             `json:"feasibility_score"`
	FeasibilityFactors  []FeasibilityFactor `json:"feasibility_factors"`
	ImplementationSteps []string            `json:"implementation_steps"`
}
