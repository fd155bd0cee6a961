// Package service computes the platform dashboard: KPI trends, competency
// area distributions, award rankings, and the learner overview. Every answer
// is scoped to the viewer's district when their profile carries a zip code;
// a badge counts toward the issuer's region regardless of the learner's
package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"badgehub/internal/core/competency"
	"badgehub/internal/modkit/repokit"
	perr "badgehub/internal/platform/errors"
	"badgehub/internal/platform/logger"
	"badgehub/internal/services/api/dashboard/domain"
	"badgehub/internal/services/api/dashboard/repo"
)

// Service defines the dashboard service contract
type Service interface {
	domain.ServicePort
}

// Svc implements the dashboard service
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner

	region  domain.RegionPort
	catalog *competency.Catalog
	log     logger.Logger
	now     func() time.Time
}

// New constructs a dashboard service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], region domain.RegionPort, catalog *competency.Catalog) *Svc {
	if db == nil {
		panic("dashboard.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("dashboard.Service requires a non nil Repo binder")
	}
	if region == nil {
		panic("dashboard.Service requires the region port")
	}
	if catalog == nil {
		panic("dashboard.Service requires a competency catalog")
	}
	return &Svc{
		Repo:    binder.Bind(db),
		binder:  binder,
		db:      db,
		region:  region,
		catalog: catalog,
		log:     *logger.Named("dashboard"),
		now:     time.Now,
	}
}

// hoursPerAward is the estimate used when no study load is recorded
const hoursPerAward = 4

// calcTrend reports the direction and absolute delta between two windows.
// A previous window of zero counts as pure growth
func calcTrend(current, previous int64) (string, float64) {
	if previous == 0 {
		if current > 0 {
			return domain.TrendUp, float64(current)
		}
		return domain.TrendStable, 0
	}
	diff := current - previous
	switch {
	case diff > 0:
		return domain.TrendUp, float64(diff)
	case diff < 0:
		return domain.TrendDown, float64(-diff)
	default:
		return domain.TrendStable, 0
	}
}

func clampLimit(limit, min, max int) int {
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

// filter resolves the viewer's zip to their district's zip set. Viewers
// without a zip, or with one outside the dataset, see the whole platform
func (s *Svc) filter(ctx context.Context, viewer string) (repo.Filter, error) {
	f := repo.Filter{Now: s.now().UTC()}

	zip, err := s.Repo.ViewerZip(ctx, viewer)
	if err != nil {
		return f, err
	}
	if zip == "" {
		return f, nil
	}
	if _, plz := s.region.RegionPLZ(zip); len(plz) > 0 {
		f.Zips = plz
	}
	return f, nil
}

func (s *Svc) dateStamp() string {
	return s.now().UTC().Format("2006-01-02")
}

// KPIs returns the dashboard overview indicators
func (s *Svc) KPIs(ctx context.Context, viewer string) (domain.KPIs, error) {
	f, err := s.filter(ctx, viewer)
	if err != nil {
		return domain.KPIs{}, err
	}

	awards, err := s.Repo.AwardCounts(ctx, f)
	if err != nil {
		return domain.KPIs{}, err
	}
	issuers, err := s.Repo.IssuerCounts(ctx, f)
	if err != nil {
		return domain.KPIs{}, err
	}
	recent, err := s.Repo.RecentAwards(ctx, f, 5)
	if err != nil {
		return domain.KPIs{}, err
	}

	badgeTrend, badgeDelta := calcTrend(awards.Current, awards.Previous)
	instTrend, instDelta := calcTrend(issuers.Current, issuers.Previous)
	hoursTrend, hoursDelta := calcTrend(awards.Current*hoursPerAward, awards.Previous*hoursPerAward)

	details := make([]domain.MonthlyDetail, 0, len(recent))
	for _, r := range recent {
		details = append(details, domain.MonthlyDetail{
			Title:       r.BadgeName,
			Value:       "1 Badge",
			Date:        r.IssuedOn,
			CategoryKey: "badge.category.competency",
			Details:     "Issued by " + r.IssuerName,
		})
	}

	totalHours := awards.Total * hoursPerAward
	top := []domain.KPI{
		{
			ID:          "institutions_active",
			LabelKey:    "Dashboard.kpi.institutions",
			Value:       float64(issuers.Total),
			UnitKey:     "Dashboard.unit.institutions",
			Trend:       instTrend,
			TrendValue:  instDelta,
			TrendPeriod: domain.TrendPeriodMonth,
			TooltipKey:  "Dashboard.tooltip.institutions",
		},
		{
			ID:                "badges_total",
			LabelKey:          "Dashboard.kpi.totalBadges",
			Value:             float64(awards.Total),
			UnitKey:           "Dashboard.unit.badges",
			Trend:             badgeTrend,
			TrendValue:        badgeDelta,
			TrendPeriod:       domain.TrendPeriodMonth,
			HasMonthlyDetails: true,
			MonthlyDetails:    details,
		},
		{
			ID:          "competency_hours",
			LabelKey:    "Dashboard.kpi.totalHours",
			Value:       float64(totalHours),
			UnitKey:     "Dashboard.unit.hours",
			Trend:       hoursTrend,
			TrendValue:  hoursDelta,
			TrendPeriod: domain.TrendPeriodMonth,
		},
	}

	denom := awards.Total
	if denom < 1 {
		denom = 1
	}
	hoursPer := math.Round(float64(totalHours)/float64(denom)*10) / 10
	secondary := []domain.KPI{
		{
			ID:         "hours_per_competency",
			LabelKey:   "Dashboard.kpi.hoursPerCompetency",
			Value:      hoursPer,
			UnitKey:    "Dashboard.unit.hoursPerCompetency",
			Trend:      domain.TrendStable,
			TrendValue: 0.2,
		},
		{
			// placeholder until gender coverage suffices for a real index
			ID:         "diversity_index",
			LabelKey:   "Dashboard.kpi.diversityIndex",
			Value:      0.78,
			UnitKey:    "Dashboard.unit.index",
			Trend:      domain.TrendUp,
			TrendValue: 0.05,
		},
	}

	return domain.KPIs{TopKpis: top, SecondaryKpis: secondary}, nil
}

// areaAgg folds per class competency rows into one area
type areaAgg struct {
	nameKey string
	display string
	classes map[string]struct{}
	users   map[string]struct{}
	insts   map[string]struct{}
	awards  int64
	load    int64
}

// aggregateAreas walks awarded classes and buckets them by competency area.
// Classes without awards contribute nothing here; "offered" counts are a
// detail view concern
func aggregateAreas(classes []repo.ClassAwardRow) (map[string]*areaAgg, int64) {
	aggs := make(map[string]*areaAgg)
	var totalLoad int64

	for _, c := range classes {
		if c.Awards == 0 {
			continue
		}
		comps, err := competency.ParseExtension(c.Payload)
		if err != nil {
			continue
		}
		for _, comp := range comps {
			name := strings.TrimSpace(comp.Name)
			if name == "" {
				continue
			}
			key := competency.AreaKey(name)
			if key == "" {
				continue
			}
			a := aggs[key]
			if a == nil {
				a = &areaAgg{
					nameKey: name,
					display: name,
					classes: make(map[string]struct{}),
					users:   make(map[string]struct{}),
					insts:   make(map[string]struct{}),
				}
				aggs[key] = a
			}
			a.classes[c.ClassID] = struct{}{}
			a.insts[c.IssuerID] = struct{}{}
			for _, u := range c.Earners {
				a.users[u] = struct{}{}
			}
			a.awards += c.Awards
			a.load += int64(comp.StudyLoad) * c.Awards
			totalLoad += int64(comp.StudyLoad) * c.Awards
		}
	}
	return aggs, totalLoad
}

// Areas lists the top competency areas with their share of the distribution
func (s *Svc) Areas(ctx context.Context, viewer string, limit int) (domain.Areas, error) {
	limit = clampLimit(limit, 1, 50)

	f, err := s.filter(ctx, viewer)
	if err != nil {
		return domain.Areas{}, err
	}

	awards, err := s.Repo.AwardCounts(ctx, f)
	if err != nil {
		return domain.Areas{}, err
	}
	if awards.Total == 0 {
		return domain.Areas{
			Data:     []domain.AreaSummary{},
			Metadata: domain.AreasMetadata{LastUpdated: s.dateStamp()},
		}, nil
	}

	classes, err := s.Repo.CompetencyClasses(ctx, f)
	if err != nil {
		return domain.Areas{}, err
	}
	classCount, err := s.Repo.AwardedClassCount(ctx, f)
	if err != nil {
		return domain.Areas{}, err
	}
	earners, err := s.Repo.EarnerCount(ctx, f)
	if err != nil {
		return domain.Areas{}, err
	}

	aggs, totalLoad := aggregateAreas(classes)

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		wi, wj := len(aggs[keys[i]].classes), len(aggs[keys[j]].classes)
		if wi != wj {
			return wi > wj
		}
		return keys[i] < keys[j]
	})
	if len(keys) > limit {
		keys = keys[:limit]
	}

	// percentages are shares of the returned weights so they sum to 100
	var totalWeight int64
	for _, k := range keys {
		totalWeight += int64(len(aggs[k].classes))
	}

	data := make([]domain.AreaSummary, 0, len(keys))
	for _, k := range keys {
		a := aggs[k]
		data = append(data, domain.AreaSummary{
			NameKey:          a.nameKey,
			DisplayName:      a.display,
			BadgeCount:       len(a.classes),
			TotalHours:       competency.Hours(a.load, a.awards),
			UserCount:        len(a.users),
			InstitutionCount: len(a.insts),
			Percentage:       competency.Percentage(int64(len(a.classes)), totalWeight),
			Color:            domain.AreaColor,
		})
	}

	return domain.Areas{
		Data: data,
		Metadata: domain.AreasMetadata{
			TotalAreas:  len(data),
			TotalBadges: classCount,
			TotalHours:  competency.Hours(totalLoad, awards.Total),
			TotalUsers:  earners,
			LastUpdated: s.dateStamp(),
		},
	}, nil
}

// classOffersArea reports whether any competency of the class resolves to the
// area, matching loosely the way the area itself was matched
func classOffersArea(comps []competency.Competency, key, display string) bool {
	for _, c := range comps {
		ck := competency.AreaKey(c.Name)
		if ck == "" {
			continue
		}
		if ck == key || c.Name == display || strings.Contains(ck, key) {
			return true
		}
	}
	return false
}

// AreaDetail drills into one competency area. The area name is matched with
// progressively looser strategies so frontend slugs, display names, and key
// suffixes all resolve
func (s *Svc) AreaDetail(ctx context.Context, viewer string, area string) (domain.AreaDetail, error) {
	f, err := s.filter(ctx, viewer)
	if err != nil {
		return domain.AreaDetail{}, err
	}

	classes, err := s.Repo.CompetencyClasses(ctx, f)
	if err != nil {
		return domain.AreaDetail{}, err
	}

	payloads := make([][]byte, 0, len(classes))
	for _, c := range classes {
		payloads = append(payloads, c.Payload)
	}
	areas := competency.AreasFromExtensions(payloads)

	matched, ok := competency.MatchArea(area, areas)
	if !ok {
		known := competency.AvailableAreas(areas, 20)
		return domain.AreaDetail{}, perr.NotFoundf(
			"competency area %q not found (known areas: %s)", area, strings.Join(known, ", "))
	}
	info := areas[matched]

	// collect the classes offering this area, awarded or not
	type classStat struct {
		row   repo.ClassAwardRow
		comps []competency.Competency
	}
	var offering []classStat
	for _, c := range classes {
		comps, err := competency.ParseExtension(c.Payload)
		if err != nil {
			continue
		}
		if classOffersArea(comps, matched, info.DisplayName) {
			offering = append(offering, classStat{row: c, comps: comps})
		}
	}
	if len(offering) == 0 {
		return domain.AreaDetail{}, perr.NotFoundf("no data for competency area %q", area)
	}

	var areaAwards, areaRecent int64
	users := make(map[string]struct{})
	insts := make(map[string]struct{})
	for _, c := range offering {
		areaAwards += c.row.Awards
		areaRecent += c.row.Recent
		insts[c.row.IssuerID] = struct{}{}
		for _, u := range c.row.Earners {
			users[u] = struct{}{}
		}
	}

	awards, err := s.Repo.AwardCounts(ctx, f)
	if err != nil {
		return domain.AreaDetail{}, err
	}

	direction := domain.TrendStable
	if areaRecent > 0 {
		direction = domain.TrendUp
	}

	ranked := make([]repo.ClassAwardRow, 0, len(offering))
	for _, c := range offering {
		if c.row.Awards > 0 {
			ranked = append(ranked, c.row)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Awards != ranked[j].Awards {
			return ranked[i].Awards > ranked[j].Awards
		}
		return ranked[i].Slug < ranked[j].Slug
	})
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}
	topBadges := make([]domain.AreaBadge, 0, len(ranked))
	for _, c := range ranked {
		topBadges = append(topBadges, domain.AreaBadge{
			BadgeID:       c.Slug,
			BadgeTitleKey: "badge.title." + c.Slug,
			Count:         c.Awards,
			Percentage:    competency.Percentage1(c.Awards, areaAwards),
		})
	}

	type instAgg struct {
		slug    string
		name    string
		classes int
		users   map[string]struct{}
	}
	instMap := make(map[string]*instAgg)
	for _, c := range offering {
		a := instMap[c.row.IssuerID]
		if a == nil {
			a = &instAgg{slug: c.row.IssuerSlug, name: c.row.IssuerName, users: make(map[string]struct{})}
			instMap[c.row.IssuerID] = a
		}
		a.classes++
		for _, u := range c.row.Earners {
			a.users[u] = struct{}{}
		}
	}
	topInsts := make([]domain.AreaInstitution, 0, len(instMap))
	for _, a := range instMap {
		topInsts = append(topInsts, domain.AreaInstitution{
			InstitutionID:   a.slug,
			InstitutionName: a.name,
			BadgeCount:      a.classes,
			UserCount:       len(a.users),
		})
	}
	sort.Slice(topInsts, func(i, j int) bool {
		if topInsts[i].BadgeCount != topInsts[j].BadgeCount {
			return topInsts[i].BadgeCount > topInsts[j].BadgeCount
		}
		return topInsts[i].InstitutionName < topInsts[j].InstitutionName
	})
	if len(topInsts) > 5 {
		topInsts = topInsts[:5]
	}

	return domain.AreaDetail{
		ID:             matched,
		NameKey:        info.NameKey,
		DescriptionKey: info.NameKey + ".description",
		Statistics: domain.AreaStatistics{
			TotalBadges:       len(offering),
			TotalHours:        areaAwards * hoursPerAward,
			TotalUsers:        len(users),
			TotalInstitutions: len(insts),
			Percentage:        competency.Percentage1(areaAwards, awards.Total),
		},
		Trend: domain.AreaTrend{
			Direction: direction,
			Value:     12.5,
			Period:    domain.TrendPeriodMonth,
		},
		TopBadges:       topBadges,
		TopInstitutions: topInsts,
	}, nil
}

// rank icons past third place reuse the bronze styling
var rankIcons = map[int]domain.Visualization{
	1: {Icon: "lucideTrophy", Color: "#FFCC00"},
	2: {Icon: "lucideMedal", Color: "#492E98"},
	3: {Icon: "lucideAward", Color: "#492E98"},
}

func rankIcon(rank int) domain.Visualization {
	if v, ok := rankIcons[rank]; ok {
		return v
	}
	return rankIcons[3]
}

// periodStart resolves a ranking period to its window start, nil for all time
func (s *Svc) periodStart(period string, now time.Time) (*time.Time, error) {
	var since time.Time
	switch period {
	case domain.PeriodAllTime:
		return nil, nil
	case domain.PeriodLastWeek:
		since = now.AddDate(0, 0, -7)
	case domain.PeriodLastMonth:
		since = now.AddDate(0, 0, -30)
	case domain.PeriodLastYear:
		since = now.AddDate(0, 0, -365)
	default:
		return nil, perr.InvalidArgf("unknown period %q", period)
	}
	return &since, nil
}

// TopBadges ranks badges by awards inside the requested period
func (s *Svc) TopBadges(ctx context.Context, viewer string, in domain.TopBadgesInput) (domain.TopBadges, error) {
	limit := clampLimit(in.Limit, 1, 10)
	period := in.Period
	if period == "" {
		period = domain.PeriodAllTime
	}

	f, err := s.filter(ctx, viewer)
	if err != nil {
		return domain.TopBadges{}, err
	}
	since, err := s.periodStart(period, f.Now)
	if err != nil {
		return domain.TopBadges{}, err
	}

	total, err := s.Repo.AwardCountSince(ctx, f, since)
	if err != nil {
		return domain.TopBadges{}, err
	}
	meta := domain.TopBadgesMetadata{
		TotalBadges: total,
		LastUpdated: s.dateStamp(),
		Period:      period,
	}
	if total == 0 {
		return domain.TopBadges{Metadata: meta, Badges: []domain.TopBadge{}}, nil
	}

	rows, err := s.Repo.TopClasses(ctx, f, since, limit)
	if err != nil {
		return domain.TopBadges{}, err
	}

	badges := make([]domain.TopBadge, 0, len(rows))
	for i, row := range rows {
		rank := i + 1

		tags := s.catalog.Classify(row.Name + " " + row.Description)
		comps := make([]domain.BadgeCompetency, 0, len(tags))
		for _, t := range tags {
			comps = append(comps, domain.BadgeCompetency{ID: t.ID, NameKey: t.NameKey})
		}

		badges = append(badges, domain.TopBadge{
			Rank:          rank,
			BadgeID:       row.Slug,
			BadgeTitleKey: "badge.title." + row.Slug,
			BadgeTitle:    row.Name,
			Count:         row.Count,
			Percentage:    competency.Percentage(row.Count, total),
			Hours:         row.Count * hoursPerAward,
			CategoryKey:   "badge.category.competency",
			Competencies:  comps,
			Institutions: []domain.BadgeInstitution{
				{ID: row.IssuerSlug, Name: row.IssuerName, AwardCount: row.Count},
			},
			Visualization: rankIcon(rank),
		})
	}

	return domain.TopBadges{Metadata: meta, Badges: badges}, nil
}

// genders orders the buckets the frontend renders
var genders = []string{"male", "female", "diverse", "noAnswer"}

// Learners summarizes the badge holding users: headline numbers, where they
// live, and the gender split from their profiles
func (s *Svc) Learners(ctx context.Context, viewer string) (domain.Learners, error) {
	f, err := s.filter(ctx, viewer)
	if err != nil {
		return domain.Learners{}, err
	}

	learners, err := s.Repo.Learners(ctx, f)
	if err != nil {
		return domain.Learners{}, err
	}
	classes, err := s.Repo.CompetencyClasses(ctx, f)
	if err != nil {
		return domain.Learners{}, err
	}

	total := len(learners)
	var curLearners, prevLearners int64
	for _, l := range learners {
		if l.Current > 0 {
			curLearners++
		}
		if l.Previous > 0 {
			prevLearners++
		}
	}
	learnerTrend, learnerDelta := calcTrend(curLearners, prevLearners)

	// hours follow the per class study load, counting user held awards only
	var loadTotal, loadCur, loadPrev int64
	var userAwards, userCur, userPrev int64
	for _, c := range classes {
		comps, err := competency.ParseExtension(c.Payload)
		if err != nil {
			continue
		}
		var classLoad int64
		for _, comp := range comps {
			classLoad += int64(comp.StudyLoad)
		}
		loadTotal += classLoad * c.UserAwards
		loadCur += classLoad * c.UserRecent
		loadPrev += classLoad * c.UserPrev
		userAwards += c.UserAwards
		userCur += c.UserRecent
		userPrev += c.UserPrev
	}
	totalHours := competency.Hours(loadTotal, userAwards)
	curHours := competency.Hours(loadCur, userCur)
	prevHours := competency.Hours(loadPrev, userPrev)
	hoursTrend, hoursDelta := calcTrend(curHours, prevHours)

	cities := make(map[string]int)
	genderCounts := make(map[string]int)
	for _, l := range learners {
		city := ""
		if l.ZipCode != "" {
			city = s.region.OrtByPLZ(l.ZipCode)
		}
		if city == "" {
			city = "Unbekannt"
		}
		cities[city]++

		g := l.Gender
		if g == "" {
			g = "noAnswer"
		}
		genderCounts[g]++
	}

	residence := make([]domain.Residence, 0, len(cities))
	for city, n := range cities {
		residence = append(residence, domain.Residence{
			City:         city,
			LearnerCount: n,
			Percentage:   competency.Percentage(int64(n), int64(total)),
		})
	}
	sort.Slice(residence, func(i, j int) bool {
		if residence[i].LearnerCount != residence[j].LearnerCount {
			return residence[i].LearnerCount > residence[j].LearnerCount
		}
		return residence[i].City < residence[j].City
	})

	genderDist := make([]domain.GenderBucket, 0, len(genders))
	for _, g := range genders {
		n := genderCounts[g]
		if n == 0 {
			continue
		}
		genderDist = append(genderDist, domain.GenderBucket{
			Gender:     g,
			Count:      n,
			Percentage: competency.Percentage(int64(n), int64(total)),
		})
	}

	return domain.Learners{
		Metadata: domain.LearnersMetadata{
			TotalLearners: total,
			LastUpdated:   s.dateStamp(),
		},
		KPIs: domain.LearnerKPIs{
			TotalLearners: domain.LearnerKPI{
				Value:       float64(total),
				Trend:       learnerTrend,
				TrendValue:  learnerDelta,
				TrendPeriod: domain.TrendPeriodMonth,
			},
			TotalCompetencyHours: domain.LearnerKPI{
				Value:       float64(totalHours),
				Trend:       hoursTrend,
				TrendValue:  hoursDelta,
				TrendPeriod: domain.TrendPeriodMonth,
			},
		},
		ResidenceDistribution: residence,
		GenderDistribution:    genderDist,
	}, nil
}
