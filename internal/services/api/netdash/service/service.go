// Package service computes per network dashboards and the public social
// space. Network views are gated on staff membership of the network issuer;
// social space views aggregate the whole platform by institution city
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
	idomain "badgehub/internal/services/api/issuers/domain"
	"badgehub/internal/services/api/netdash/domain"
	"badgehub/internal/services/api/netdash/repo"
)

// Service defines the network dashboard contract
type Service interface {
	domain.ServicePort
}

// Svc implements the network dashboard service
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner

	access idomain.AccessPort
	region domain.RegionPort
	log    logger.Logger
	now    func() time.Time
}

// New constructs a network dashboard service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], access idomain.AccessPort, region domain.RegionPort) *Svc {
	if db == nil {
		panic("netdash.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("netdash.Service requires a non nil Repo binder")
	}
	if access == nil {
		panic("netdash.Service requires the issuer access port")
	}
	if region == nil {
		panic("netdash.Service requires the region port")
	}
	return &Svc{
		Repo:   binder.Bind(db),
		binder: binder,
		db:     db,
		access: access,
		region: region,
		log:    *logger.Named("netdash"),
		now:    time.Now,
	}
}

var genders = []string{"male", "female", "diverse", "noAnswer"}

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

// pctTrend reports the direction and the relative change in percent
func pctTrend(current, previous int64) (string, float64) {
	if previous == 0 {
		if current > 0 {
			return domain.TrendUp, 100
		}
		return domain.TrendStable, 0
	}
	diff := current - previous
	pct := math.Round(math.Abs(float64(diff))/float64(previous)*100*100) / 100
	switch {
	case diff > 0:
		return domain.TrendUp, pct
	case diff < 0:
		return domain.TrendDown, pct
	default:
		return domain.TrendStable, 0
	}
}

// hoursOf converts study load minutes to whole hours. Unlike the learner
// estimate there is no per badge fallback; hours track recorded load only
func hoursOf(minutes int64) int64 {
	return int64(math.Round(float64(minutes) / 60.0))
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

func (s *Svc) dateStamp() string {
	return s.now().UTC().Format("2006-01-02")
}

// network resolves the slug for the caller and rejects plain issuers. Staff
// of any role may read their network's dashboard
func (s *Svc) network(ctx context.Context, caller, slug string) (idomain.Issuer, error) {
	iss, err := s.access.RequireRole(ctx, caller, slug, idomain.RoleStaff)
	if err != nil {
		return idomain.Issuer{}, err
	}
	if !iss.IsNetwork {
		return idomain.Issuer{}, perr.InvalidArgf("issuer %q is not a network", slug)
	}
	return iss, nil
}

// deliveryFilter maps the deliveryMethod parameter to the online flag
func deliveryFilter(method string) (*bool, error) {
	switch method {
	case "":
		return nil, nil
	case domain.DeliveryOnline:
		online := true
		return &online, nil
	case domain.DeliveryInPerson:
		online := false
		return &online, nil
	default:
		return nil, perr.InvalidArgf("invalid deliveryMethod %q", method)
	}
}

// classLoads sums competency minutes per award window across classes
func classLoads(classes []repo.ClassAwardRow) (total, current, previous int64) {
	for _, c := range classes {
		comps, err := competency.ParseExtension(c.Payload)
		if err != nil {
			continue
		}
		var load int64
		for _, comp := range comps {
			load += int64(comp.StudyLoad)
		}
		total += load * c.Awards
		current += load * c.Recent
		previous += load * c.Previous
	}
	return total, current, previous
}

// perMonth averages awards over whole months since the first award
func perMonth(total int64, first *time.Time, now time.Time) float64 {
	if total == 0 || first == nil {
		return 0
	}
	months := int64(now.Sub(*first).Hours()/24)/30 + 1
	return math.Round(float64(total)/float64(months)*10) / 10
}

// KPIs returns the network's key indicators, optionally filtered by how
// badges were delivered
func (s *Svc) KPIs(ctx context.Context, caller, slug, deliveryMethod string) (domain.KPIs, error) {
	iss, err := s.network(ctx, caller, slug)
	if err != nil {
		return domain.KPIs{}, err
	}
	online, err := deliveryFilter(deliveryMethod)
	if err != nil {
		return domain.KPIs{}, err
	}

	now := s.now().UTC()
	f := repo.Filter{NetworkID: iss.ID, Online: online, Now: now}

	members, err := s.Repo.MemberCounts(ctx, iss.ID, now)
	if err != nil {
		return domain.KPIs{}, err
	}
	classes, err := s.Repo.ClassCounts(ctx, iss.ID, now)
	if err != nil {
		return domain.KPIs{}, err
	}
	cats, err := s.Repo.CategoryCounts(ctx, iss.ID, now)
	if err != nil {
		return domain.KPIs{}, err
	}
	awards, err := s.Repo.AwardCounts(ctx, f)
	if err != nil {
		return domain.KPIs{}, err
	}
	learners, err := s.Repo.LearnerCounts(ctx, f)
	if err != nil {
		return domain.KPIs{}, err
	}
	pathLearners, err := s.Repo.PathLearnerCounts(ctx, f)
	if err != nil {
		return domain.KPIs{}, err
	}
	compClasses, err := s.Repo.CompetencyClasses(ctx, f)
	if err != nil {
		return domain.KPIs{}, err
	}
	first, err := s.Repo.FirstAwardAt(ctx, f)
	if err != nil {
		return domain.KPIs{}, err
	}

	loadTotal, loadCur, loadPrev := classLoads(compClasses)

	kpis := make([]domain.KPI, 0, 10)
	add := func(id string, value float64, trend string, delta float64) {
		kpis = append(kpis, domain.KPI{
			ID:          id,
			Value:       value,
			Trend:       trend,
			TrendValue:  delta,
			TrendPeriod: domain.TrendPeriodMonth,
		})
	}

	trend, delta := calcTrend(members.Current, members.Previous)
	add("institutions_count", float64(members.Total), trend, delta)

	trend, delta = calcTrend(classes.Current, classes.Previous)
	add("badges_created", float64(classes.Total), trend, delta)

	trend, delta = calcTrend(awards.Current, awards.Previous)
	add("badges_awarded", float64(awards.Total), trend, delta)

	trend, delta = calcTrend(cats.Participation.Current, cats.Participation.Previous)
	add("participation_badges", float64(cats.Participation.Total), trend, delta)

	trend, delta = calcTrend(cats.Competency.Current, cats.Competency.Previous)
	add("competency_badges", float64(cats.Competency.Total), trend, delta)

	trend, delta = pctTrend(loadCur, loadPrev)
	add("competency_hours", float64(hoursOf(loadTotal)), trend, delta)

	trend, delta = calcTrend(hoursOf(loadCur), hoursOf(loadPrev))
	add("competency_hours_last_month", float64(hoursOf(loadCur)), trend, delta)

	trend, delta = calcTrend(learners.Current, learners.Previous)
	add("learners_count", float64(learners.Total), trend, delta)

	trend, delta = calcTrend(awards.Current, awards.Previous)
	add("badges_per_month", perMonth(awards.Total, first, now), trend, delta)

	trend, delta = calcTrend(pathLearners.Current, pathLearners.Previous)
	add("learners_with_paths", float64(pathLearners.Total), trend, delta)

	var method *string
	if deliveryMethod != "" {
		method = &deliveryMethod
	}

	return domain.KPIs{
		KPIs: kpis,
		Metadata: domain.KPIMetadata{
			Filters:     domain.Filters{DeliveryMethod: method},
			LastUpdated: s.dateStamp(),
		},
	}, nil
}

// areasView buckets awarded competencies by area, weighted by award count
func (s *Svc) areasView(ctx context.Context, f repo.Filter, limit int) (domain.Areas, error) {
	limit = clampLimit(limit, 1, 50)

	classes, err := s.Repo.CompetencyClasses(ctx, f)
	if err != nil {
		return domain.Areas{}, err
	}

	type areaAgg struct {
		display string
		weight  int64
	}
	aggs := make(map[string]*areaAgg)
	var totalWeight int64
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
				a = &areaAgg{display: name}
				aggs[key] = a
			}
			a.weight += c.Awards
			totalWeight += c.Awards
		}
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		wi, wj := aggs[keys[i]].weight, aggs[keys[j]].weight
		if wi != wj {
			return wi > wj
		}
		return keys[i] < keys[j]
	})
	if len(keys) > limit {
		keys = keys[:limit]
	}

	data := make([]domain.AreaItem, 0, len(keys))
	for _, k := range keys {
		a := aggs[k]
		data = append(data, domain.AreaItem{
			ID:     k,
			Name:   a.display,
			Value:  competency.Percentage(a.weight, totalWeight),
			Weight: a.weight,
		})
	}

	return domain.Areas{
		Data: data,
		Metadata: domain.AreasMetadata{
			TotalAreas:  len(data),
			LastUpdated: s.dateStamp(),
		},
	}, nil
}

// Areas lists the network's competency areas by share of awarded badges
func (s *Svc) Areas(ctx context.Context, caller, slug string, limit int) (domain.Areas, error) {
	iss, err := s.network(ctx, caller, slug)
	if err != nil {
		return domain.Areas{}, err
	}
	return s.areasView(ctx, repo.Filter{NetworkID: iss.ID, Now: s.now().UTC()}, limit)
}

// TopBadges ranks the network's badges by award count
func (s *Svc) TopBadges(ctx context.Context, caller, slug string, limit int) (domain.TopBadges, error) {
	iss, err := s.network(ctx, caller, slug)
	if err != nil {
		return domain.TopBadges{}, err
	}
	limit = clampLimit(limit, 1, 10)

	f := repo.Filter{NetworkID: iss.ID, Now: s.now().UTC()}
	awards, err := s.Repo.AwardCounts(ctx, f)
	if err != nil {
		return domain.TopBadges{}, err
	}
	rows, err := s.Repo.TopClasses(ctx, f, limit)
	if err != nil {
		return domain.TopBadges{}, err
	}

	badges := make([]domain.TopBadge, 0, len(rows))
	for i, r := range rows {
		badges = append(badges, domain.TopBadge{
			Rank:       i + 1,
			BadgeID:    r.Slug,
			BadgeTitle: r.Name,
			Image:      r.Image,
			Count:      r.Count,
		})
	}

	return domain.TopBadges{
		Metadata: domain.TopBadgesMetadata{
			TotalBadges: awards.Total,
			LastUpdated: s.dateStamp(),
		},
		Badges: badges,
	}, nil
}

// RecentActivity lists the network's latest award days, one entry per day,
// badge, and awarding institution
func (s *Svc) RecentActivity(ctx context.Context, caller, slug string, limit int) (domain.Activities, error) {
	iss, err := s.network(ctx, caller, slug)
	if err != nil {
		return domain.Activities{}, err
	}
	limit = clampLimit(limit, 1, 50)

	rows, err := s.Repo.RecentActivity(ctx, iss.ID, limit)
	if err != nil {
		return domain.Activities{}, err
	}
	count, err := s.Repo.ActivityCount(ctx, iss.ID)
	if err != nil {
		return domain.Activities{}, err
	}

	activities := make([]domain.Activity, 0, len(rows))
	for _, r := range rows {
		activities = append(activities, domain.Activity{
			Date:           r.Day.UTC().Format("2006-01-02"),
			BadgeID:        r.Slug,
			BadgeTitle:     r.Name,
			BadgeImage:     r.Image,
			IssuerID:       r.IssuerSlug,
			IssuerName:     r.IssuerName,
			RecipientCount: r.Recipients,
		})
	}

	return domain.Activities{
		Activities: activities,
		Metadata: domain.ActivitiesMetadata{
			TotalActivities: count,
			LastUpdated:     s.dateStamp(),
		},
	}, nil
}

// learnersView assembles the learner overview for any instance scope
func (s *Svc) learnersView(ctx context.Context, f repo.Filter) (domain.Learners, error) {
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

// Learners returns who earns badges across the network and where they live
func (s *Svc) Learners(ctx context.Context, caller, slug string) (domain.Learners, error) {
	iss, err := s.network(ctx, caller, slug)
	if err != nil {
		return domain.Learners{}, err
	}
	return s.learnersView(ctx, repo.Filter{NetworkID: iss.ID, Now: s.now().UTC()})
}

// institution maps an issuer stat row to the social space shape
func (s *Svc) institution(r repo.IssuerStatRow) domain.Institution {
	city := ""
	if r.Zip != "" {
		city = s.region.OrtByPLZ(r.Zip)
	}
	return domain.Institution{
		ID:           r.Slug,
		Name:         r.Name,
		City:         city,
		BadgesIssued: r.Count,
		ActiveUsers:  r.Users,
	}
}

// SpaceInstitutions lists every awarding institution on the platform
func (s *Svc) SpaceInstitutions(ctx context.Context) (domain.Institutions, error) {
	stats, err := s.Repo.IssuerStats(ctx)
	if err != nil {
		return domain.Institutions{}, err
	}

	institutions := make([]domain.Institution, 0, len(stats))
	cities := make(map[string]struct{})
	var badges int64
	for _, r := range stats {
		inst := s.institution(r)
		if inst.City != "" {
			cities[inst.City] = struct{}{}
		}
		badges += inst.BadgesIssued
		institutions = append(institutions, inst)
	}

	return domain.Institutions{
		Institutions: institutions,
		Summary: domain.InstitutionsSummary{
			TotalInstitutions: len(institutions),
			TotalBadges:       badges,
			TotalCities:       len(cities),
		},
	}, nil
}

// SpaceCities groups institutions by city. Institutions whose zip resolves to
// no known city are left out
func (s *Svc) SpaceCities(ctx context.Context) (domain.Cities, error) {
	stats, err := s.Repo.IssuerStats(ctx)
	if err != nil {
		return domain.Cities{}, err
	}

	type cityAgg struct {
		institutions int
		badges       int64
	}
	aggs := make(map[string]*cityAgg)
	for _, r := range stats {
		inst := s.institution(r)
		if inst.City == "" {
			continue
		}
		a := aggs[inst.City]
		if a == nil {
			a = &cityAgg{}
			aggs[inst.City] = a
		}
		a.institutions++
		a.badges += inst.BadgesIssued
	}

	cities := make([]domain.CityOverview, 0, len(aggs))
	for city, a := range aggs {
		cities = append(cities, domain.CityOverview{
			City:             city,
			InstitutionCount: a.institutions,
			Badges:           a.badges,
		})
	}
	sort.Slice(cities, func(i, j int) bool {
		if cities[i].Badges != cities[j].Badges {
			return cities[i].Badges > cities[j].Badges
		}
		return cities[i].City < cities[j].City
	})

	return domain.Cities{
		Cities: cities,
		Metadata: domain.CitiesMetadata{
			TotalCities: len(cities),
			LastUpdated: s.dateStamp(),
		},
	}, nil
}

// cityZips resolves a city name to its zip set or fails
func (s *Svc) cityZips(city string) ([]string, error) {
	if city == "" {
		return nil, perr.InvalidArgf("city parameter is required")
	}
	plz := s.region.PLZForOrt(city)
	if len(plz) == 0 {
		return nil, perr.NotFoundf("unknown city %q", city)
	}
	return plz, nil
}

// SpaceCityDetail summarizes one city: its institutions, badge volume,
// learners, and competency hours
func (s *Svc) SpaceCityDetail(ctx context.Context, city string) (domain.CityDetail, error) {
	plz, err := s.cityZips(city)
	if err != nil {
		return domain.CityDetail{}, err
	}
	f := repo.Filter{Zips: plz, Now: s.now().UTC()}

	awards, err := s.Repo.AwardCounts(ctx, f)
	if err != nil {
		return domain.CityDetail{}, err
	}
	learners, err := s.Repo.Learners(ctx, f)
	if err != nil {
		return domain.CityDetail{}, err
	}
	classes, err := s.Repo.CompetencyClasses(ctx, f)
	if err != nil {
		return domain.CityDetail{}, err
	}
	stats, err := s.Repo.IssuerStats(ctx)
	if err != nil {
		return domain.CityDetail{}, err
	}

	var loadTotal, userAwards int64
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
		userAwards += c.UserAwards
	}

	zips := make(map[string]struct{}, len(plz))
	for _, z := range plz {
		zips[z] = struct{}{}
	}
	institutions := make([]domain.Institution, 0, len(stats))
	for _, r := range stats {
		if _, ok := zips[r.Zip]; !ok {
			continue
		}
		institutions = append(institutions, s.institution(r))
	}

	return domain.CityDetail{
		City: city,
		Statistics: domain.CityStatistics{
			TotalInstitutions: len(institutions),
			TotalBadges:       awards.Total,
			TotalLearners:     len(learners),
			TotalHours:        competency.Hours(loadTotal, userAwards),
		},
		Institutions: institutions,
	}, nil
}

// SpaceCityLearners returns the learner overview for badge recipients of the
// city's institutions, wherever those learners live
func (s *Svc) SpaceCityLearners(ctx context.Context, city string) (domain.Learners, error) {
	plz, err := s.cityZips(city)
	if err != nil {
		return domain.Learners{}, err
	}
	return s.learnersView(ctx, repo.Filter{Zips: plz, Now: s.now().UTC()})
}

// SpaceCityCompetencies lists the competency areas taught by the city's
// institutions
func (s *Svc) SpaceCityCompetencies(ctx context.Context, city string, limit int) (domain.Areas, error) {
	plz, err := s.cityZips(city)
	if err != nil {
		return domain.Areas{}, err
	}
	return s.areasView(ctx, repo.Filter{Zips: plz, Now: s.now().UTC()}, limit)
}
