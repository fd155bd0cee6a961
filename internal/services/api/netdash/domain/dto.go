// Package domain holds the wire types for the network dashboard and the
// public social space views. Network numbers cover the accepted members of
// one issuer network; social space numbers group the whole platform by the
// city of the awarding institution
package domain

// Trend directions shared by every KPI
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"

	// TrendPeriodMonth labels the 30 day trend window
	TrendPeriodMonth = "lastMonth"
)

// Delivery method filter values for network KPIs
const (
	DeliveryOnline   = "online"
	DeliveryInPerson = "in-person"
)

// KPI is one network indicator
type KPI struct {
	ID                string  `json:"id"`
	Value             float64 `json:"value"`
	Trend             string  `json:"trend"`
	TrendValue        float64 `json:"trendValue"`
	TrendPeriod       string  `json:"trendPeriod"`
	HasMonthlyDetails bool    `json:"hasMonthlyDetails"`
}

// Filters echoes the query filters a KPI response was computed under
type Filters struct {
	DeliveryMethod *string `json:"deliveryMethod"`
}

// KPIMetadata carries the filter echo and freshness stamp
type KPIMetadata struct {
	Filters     Filters `json:"filters"`
	LastUpdated string  `json:"lastUpdated"`
}

// KPIs is the network KPI response
type KPIs struct {
	KPIs     []KPI       `json:"kpis"`
	Metadata KPIMetadata `json:"metadata"`
}

// AreaItem is one competency area weighted by awarded instances
type AreaItem struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Weight int64   `json:"weight"`
}

// AreasMetadata describes an area distribution
type AreasMetadata struct {
	TotalAreas  int    `json:"totalAreas"`
	LastUpdated string `json:"lastUpdated"`
}

// Areas is the competency area distribution response
type Areas struct {
	Data     []AreaItem    `json:"data"`
	Metadata AreasMetadata `json:"metadata"`
}

// Activity is one day of awards for a badge by one awarding institution
type Activity struct {
	Date           string `json:"date"`
	BadgeID        string `json:"badgeId"`
	BadgeTitle     string `json:"badgeTitle"`
	BadgeImage     string `json:"badgeImage"`
	IssuerID       string `json:"issuerId"`
	IssuerName     string `json:"issuerName"`
	RecipientCount int64  `json:"recipientCount"`
}

// ActivitiesMetadata describes the activity feed
type ActivitiesMetadata struct {
	TotalActivities int64  `json:"totalActivities"`
	LastUpdated     string `json:"lastUpdated"`
}

// Activities is the recent activity response
type Activities struct {
	Activities []Activity         `json:"activities"`
	Metadata   ActivitiesMetadata `json:"metadata"`
}

// TopBadge is one ranked badge of the network
type TopBadge struct {
	Rank       int    `json:"rank"`
	BadgeID    string `json:"badgeId"`
	BadgeTitle string `json:"badgeTitle"`
	Image      string `json:"image"`
	Count      int64  `json:"count"`
}

// TopBadgesMetadata describes the ranking
type TopBadgesMetadata struct {
	TotalBadges int64  `json:"totalBadges"`
	LastUpdated string `json:"lastUpdated"`
}

// TopBadges is the network badge ranking response
type TopBadges struct {
	Metadata TopBadgesMetadata `json:"metadata"`
	Badges   []TopBadge        `json:"badges"`
}

// LearnerKPI is one headline learner number with its trend
type LearnerKPI struct {
	Value       float64 `json:"value"`
	Trend       string  `json:"trend"`
	TrendValue  float64 `json:"trendValue"`
	TrendPeriod string  `json:"trendPeriod"`
}

// LearnerKPIs groups the learner headline numbers
type LearnerKPIs struct {
	TotalLearners        LearnerKPI `json:"totalLearners"`
	TotalCompetencyHours LearnerKPI `json:"totalCompetencyHours"`
}

// Residence is one city bucket of the learner distribution
type Residence struct {
	City         string  `json:"city"`
	LearnerCount int     `json:"learnerCount"`
	Percentage   float64 `json:"percentage"`
}

// GenderBucket is one slice of the gender distribution
type GenderBucket struct {
	Gender     string  `json:"gender"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// LearnersMetadata describes the learner overview
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

// Institution is one awarding institution of the social space
type Institution struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	City         string `json:"city,omitempty"`
	BadgesIssued int64  `json:"badgesIssued"`
	ActiveUsers  int64  `json:"activeUsers"`
}

// InstitutionsSummary totals the institution list
type InstitutionsSummary struct {
	TotalInstitutions int   `json:"totalInstitutions"`
	TotalBadges       int64 `json:"totalBadges"`
	TotalCities       int   `json:"totalCities"`
}

// Institutions is the social space institution response
type Institutions struct {
	Institutions []Institution       `json:"institutions"`
	Summary      InstitutionsSummary `json:"summary"`
}

// CityOverview is one city of the social space with its badge volume
type CityOverview struct {
	City             string `json:"city"`
	InstitutionCount int    `json:"institutionCount"`
	Badges           int64  `json:"badges"`
}

// CitiesMetadata describes the city list
type CitiesMetadata struct {
	TotalCities int    `json:"totalCities"`
	LastUpdated string `json:"lastUpdated"`
}

// Cities is the social space city response
type Cities struct {
	Cities   []CityOverview `json:"cities"`
	Metadata CitiesMetadata `json:"metadata"`
}

// CityStatistics are the headline numbers of one city
type CityStatistics struct {
	TotalInstitutions int   `json:"totalInstitutions"`
	TotalBadges       int64 `json:"totalBadges"`
	TotalLearners     int   `json:"totalLearners"`
	TotalHours        int64 `json:"totalHours"`
}

// CityDetail drills into one city of the social space
type CityDetail struct {
	City         string         `json:"city"`
	Statistics   CityStatistics `json:"statistics"`
	Institutions []Institution  `json:"institutions"`
}
