// Package domain holds DTOs for the platform dashboard contracts.
// Field names follow the frontend wire format, so several carry i18n keys
// rather than display text
package domain

import "time"

// Trend directions reported on every KPI
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// TrendPeriodMonth is the comparison window every trend refers to
const TrendPeriodMonth = "lastMonth"

// AreaColor is the series color the frontend renders competency areas with
const AreaColor = "#492E98"

// Periods accepted by the top badge ranking
const (
	PeriodLastWeek  = "last_week"
	PeriodLastMonth = "last_month"
	PeriodLastYear  = "last_year"
	PeriodAllTime   = "all_time"
)

// KPI is one dashboard indicator
type KPI struct {
	ID                string          `json:"id" example:"badges_total"`
	LabelKey          string          `json:"labelKey" example:"Dashboard.kpi.totalBadges"`
	Value             float64         `json:"value" example:"132"`
	UnitKey           string          `json:"unitKey,omitempty" example:"Dashboard.unit.badges"`
	Trend             string          `json:"trend" example:"up"`
	TrendValue        float64         `json:"trendValue" example:"12"`
	TrendPeriod       string          `json:"trendPeriod,omitempty" example:"lastMonth"`
	TooltipKey        string          `json:"tooltipKey,omitempty"`
	HasMonthlyDetails bool            `json:"hasMonthlyDetails"`
	MonthlyDetails    []MonthlyDetail `json:"monthlyDetails,omitempty"`
}

// MonthlyDetail is one line of a KPI drill down
type MonthlyDetail struct {
	Title       string    `json:"title"`
	Value       string    `json:"value" example:"1 Badge"`
	Date        time.Time `json:"date"`
	CategoryKey string    `json:"categoryKey" example:"badge.category.competency"`
	Details     string    `json:"details" example:"Issued by TU Berlin"`
}

// KPIs is the overview response
type KPIs struct {
	TopKpis       []KPI `json:"topKpis"`
	SecondaryKpis []KPI `json:"secondaryKpis"`
}

// AreaSummary is one competency area of the overview distribution.
// BadgeCount is the number of distinct badge classes granting the competency;
// the percentage is its share of the returned weights and sums to 100
type AreaSummary struct {
	NameKey          string  `json:"nameKey"`
	DisplayName      string  `json:"displayName"`
	BadgeCount       int     `json:"badgeCount"`
	TotalHours       int64   `json:"totalHours"`
	UserCount        int     `json:"userCount"`
	InstitutionCount int     `json:"institutionCount"`
	Percentage       float64 `json:"percentage"`
	Color            string  `json:"color" example:"#492E98"`
}

// AreasMetadata summarizes the area listing
type AreasMetadata struct {
	TotalAreas  int    `json:"totalAreas"`
	TotalBadges int64  `json:"totalBadges"`
	TotalHours  int64  `json:"totalHours"`
	TotalUsers  int64  `json:"totalUsers"`
	LastUpdated string `json:"lastUpdated" example:"2025-08-01"`
}

// Areas is the competency area listing
type Areas struct {
	Data     []AreaSummary `json:"data"`
	Metadata AreasMetadata `json:"metadata"`
}

// AreaStatistics aggregates one competency area.
// TotalBadges counts classes offering the competency, awarded or not
type AreaStatistics struct {
	TotalBadges       int     `json:"totalBadges"`
	TotalHours        int64   `json:"totalHours"`
	TotalUsers        int     `json:"totalUsers"`
	TotalInstitutions int     `json:"totalInstitutions"`
	Percentage        float64 `json:"percentage"`
}

// AreaTrend is the headline movement of one area
type AreaTrend struct {
	Direction string  `json:"direction" example:"up"`
	Value     float64 `json:"value" example:"12.5"`
	Period    string  `json:"period" example:"lastMonth"`
}

// AreaBadge is one badge ranked inside an area
type AreaBadge struct {
	BadgeID       string  `json:"badgeId"`
	BadgeTitleKey string  `json:"badgeTitleKey" example:"badge.title.scrum-basics"`
	Count         int64   `json:"count"`
	Percentage    float64 `json:"percentage"`
}

// AreaInstitution is one institution ranked inside an area.
// BadgeCount counts offered classes, UserCount distinct earners
type AreaInstitution struct {
	InstitutionID   string `json:"institutionId"`
	InstitutionName string `json:"institutionName"`
	BadgeCount      int    `json:"badgeCount"`
	UserCount       int    `json:"userCount"`
}

// AreaDetail is the drill down for one competency area
type AreaDetail struct {
	ID              string            `json:"id"`
	NameKey         string            `json:"nameKey"`
	DescriptionKey  string            `json:"descriptionKey"`
	Statistics      AreaStatistics    `json:"statistics"`
	Trend           AreaTrend         `json:"trend"`
	TopBadges       []AreaBadge       `json:"topBadges"`
	TopInstitutions []AreaInstitution `json:"topInstitutions"`
}

// TopBadgesInput bounds the award ranking
type TopBadgesInput struct {
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=10" example:"3"`
	Period string `json:"period" validate:"omitempty,oneof=last_week last_month last_year all_time" example:"all_time"`
}

// BadgeCompetency tags a ranked badge with a classified area
type BadgeCompetency struct {
	ID      string `json:"id" example:"digital_marketing"`
	NameKey string `json:"nameKey" example:"competency.name.digitalMarketing"`
}

// BadgeInstitution names the issuer of a ranked badge
type BadgeInstitution struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	AwardCount int64  `json:"awardCount"`
}

// Visualization carries the rank icon for the frontend
type Visualization struct {
	Icon  string `json:"icon" example:"lucideTrophy"`
	Color string `json:"color" example:"#FFCC00"`
}

// TopBadge is one entry of the award ranking
type TopBadge struct {
	Rank          int                `json:"rank"`
	BadgeID       string             `json:"badgeId"`
	BadgeTitleKey string             `json:"badgeTitleKey"`
	BadgeTitle    string             `json:"badgeTitle"`
	Count         int64              `json:"count"`
	Percentage    float64            `json:"percentage"`
	Hours         int64              `json:"hours"`
	CategoryKey   string             `json:"categoryKey" example:"badge.category.competency"`
	Competencies  []BadgeCompetency  `json:"competencies"`
	Institutions  []BadgeInstitution `json:"institutions"`
	Visualization Visualization      `json:"visualization"`
}

// TopBadgesMetadata describes the ranking window.
// TotalBadges counts awards inside the window, not badge classes
type TopBadgesMetadata struct {
	TotalBadges int64  `json:"totalBadges"`
	LastUpdated string `json:"lastUpdated"`
	Period      string `json:"period" example:"all_time"`
}

// TopBadges is the award ranking response
type TopBadges struct {
	Metadata TopBadgesMetadata `json:"metadata"`
	Badges   []TopBadge        `json:"badges"`
}

// LearnerKPI is one headline number of the learner overview
type LearnerKPI struct {
	Value       float64 `json:"value"`
	Trend       string  `json:"trend"`
	TrendValue  float64 `json:"trendValue"`
	TrendPeriod string  `json:"trendPeriod" example:"lastMonth"`
}

// LearnerKPIs groups the learner headline numbers
type LearnerKPIs struct {
	TotalLearners        LearnerKPI `json:"totalLearners"`
	TotalCompetencyHours LearnerKPI `json:"totalCompetencyHours"`
}

// Residence is one city slice of the learner home split
type Residence struct {
	City         string  `json:"city"`
	LearnerCount int     `json:"learnerCount"`
	Percentage   float64 `json:"percentage"`
}

// GenderBucket is one slice of the learner gender split
type GenderBucket struct {
	Gender     string  `json:"gender" example:"female"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// LearnersMetadata stamps the learner overview
type LearnersMetadata struct {
	TotalLearners int    `json:"totalLearners"`
	LastUpdated   string `json:"lastUpdated"`
}

// Learners is the learner overview response
type Learners struct {
	Metadata              LearnersMetadata `json:"metadata"`
	KPIs                  LearnerKPIs      `json:"kpis"`
	ResidenceDistribution []Residence      `json:"residenceDistribution"`
	GenderDistribution    []GenderBucket   `json:"genderDistribution"`
}
