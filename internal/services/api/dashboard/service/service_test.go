package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"badgehub/internal/core/competency"
	"badgehub/internal/modkit/repokit"
	perr "badgehub/internal/platform/errors"
	"badgehub/internal/platform/store"
	"badgehub/internal/services/api/dashboard/domain"
	"badgehub/internal/services/api/dashboard/repo"
)

type fakeTx struct{}

func (f fakeTx) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error {
	return fn(f)
}

func (fakeTx) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	var z store.CommandTag
	return z, nil
}

func (fakeTx) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	var z store.Rows
	return z, nil
}

func (fakeTx) QueryRow(ctx context.Context, sql string, args ...any) store.Row {
	var z store.Row
	return z
}

// fkey buckets fake data by the zip filter so regional and platform views
// can coexist in one world
func fkey(f repo.Filter) string { return strings.Join(f.Zips, ",") }

type fakeRepo struct {
	viewerZips map[string]string
	awards     map[string]repo.WindowCounts
	issuers    map[string]repo.WindowCounts
	classCount map[string]int64
	earnerNum  map[string]int64
	recent     map[string][]repo.RecentAwardRow
	classes    map[string][]repo.ClassAwardRow
	sinceNum   map[string]int64
	topRows    map[string][]repo.TopClassRow
	learnerSet map[string][]repo.LearnerRow

	gotSince []*time.Time
}

func (f *fakeRepo) ViewerZip(_ context.Context, userID string) (string, error) {
	return f.viewerZips[userID], nil
}

func (f *fakeRepo) AwardCounts(_ context.Context, fl repo.Filter) (repo.WindowCounts, error) {
	return f.awards[fkey(fl)], nil
}

func (f *fakeRepo) IssuerCounts(_ context.Context, fl repo.Filter) (repo.WindowCounts, error) {
	return f.issuers[fkey(fl)], nil
}

func (f *fakeRepo) AwardedClassCount(_ context.Context, fl repo.Filter) (int64, error) {
	return f.classCount[fkey(fl)], nil
}

func (f *fakeRepo) EarnerCount(_ context.Context, fl repo.Filter) (int64, error) {
	return f.earnerNum[fkey(fl)], nil
}

func (f *fakeRepo) RecentAwards(_ context.Context, fl repo.Filter, limit int) ([]repo.RecentAwardRow, error) {
	rows := f.recent[fkey(fl)]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeRepo) CompetencyClasses(_ context.Context, fl repo.Filter) ([]repo.ClassAwardRow, error) {
	return f.classes[fkey(fl)], nil
}

func (f *fakeRepo) AwardCountSince(_ context.Context, fl repo.Filter, since *time.Time) (int64, error) {
	f.gotSince = append(f.gotSince, since)
	if since == nil {
		return f.awards[fkey(fl)].Total, nil
	}
	return f.sinceNum[fkey(fl)], nil
}

func (f *fakeRepo) TopClasses(_ context.Context, fl repo.Filter, since *time.Time, limit int) ([]repo.TopClassRow, error) {
	rows := f.topRows[fkey(fl)]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeRepo) Learners(_ context.Context, fl repo.Filter) ([]repo.LearnerRow, error) {
	return f.learnerSet[fkey(fl)], nil
}

type fakeRegion struct {
	districts map[string][]string
	cities    map[string]string
}

func (f *fakeRegion) OrtByPLZ(plz string) string { return f.cities[plz] }

func (f *fakeRegion) RegionPLZ(zip string) (string, []string) {
	set := f.districts[zip]
	if len(set) == 0 {
		return "", nil
	}
	return "district", set
}

var testNow = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func newWorld(t *testing.T) (*Svc, *fakeRepo) {
	t.Helper()

	fr := &fakeRepo{
		viewerZips: map[string]string{
			"admin":        "",
			"admin-berlin": "10115",
			"admin-lost":   "99999",
		},
		awards: map[string]repo.WindowCounts{
			"":            {Total: 12, Current: 6, Previous: 3},
			"10115,10117": {Total: 2, Current: 1, Previous: 1},
		},
		issuers: map[string]repo.WindowCounts{
			"":            {Total: 4, Current: 2, Previous: 2},
			"10115,10117": {Total: 1, Current: 1, Previous: 0},
		},
		classCount: map[string]int64{"": 7, "10115,10117": 1},
		earnerNum:  map[string]int64{"": 6, "10115,10117": 2},
		recent: map[string][]repo.RecentAwardRow{
			"": {
				{BadgeName: "Scrum Basics", IssuerName: "TU Berlin", IssuedOn: testNow.Add(-time.Hour)},
				{BadgeName: "Data Literacy", IssuerName: "HAW Hamburg", IssuedOn: testNow.Add(-2 * time.Hour)},
			},
		},
		classes: map[string][]repo.ClassAwardRow{
			"": {
				{
					ClassID: "b-1", Slug: "scrum-basics", Name: "Scrum Basics",
					IssuerID: "i-1", IssuerSlug: "tu-berlin", IssuerName: "TU Berlin",
					Payload:    []byte(`[{"name":"Agile Methods","studyLoad":120},{"name":"Teamwork"}]`),
					Awards:     5, Recent: 2, Previous: 1,
					UserAwards: 5, UserRecent: 2, UserPrev: 1,
					Earners:    []string{"u-1", "u-2", "u-3"},
				},
				{
					ClassID: "b-2", Slug: "kanban-advanced", Name: "Kanban Advanced",
					IssuerID: "i-1", IssuerSlug: "tu-berlin", IssuerName: "TU Berlin",
					Payload:    []byte(`[{"name":"Agile Methods","studyLoad":60}]`),
					Awards:     3, Recent: 1,
					UserAwards: 3, UserRecent: 1,
					Earners:    []string{"u-1", "u-4"},
				},
				{
					ClassID: "b-3", Slug: "python-intro", Name: "Python Intro",
					IssuerID: "i-2", IssuerSlug: "haw-hamburg", IssuerName: "HAW Hamburg",
					Payload:    []byte(`[{"name":"Programming","studyLoad":300}]`),
					Awards:     4, Recent: 3,
					UserAwards: 4, UserRecent: 3,
					Earners:    []string{"u-5"},
				},
				{
					ClassID: "b-4", Slug: "webdev-basics", Name: "Webdev Basics",
					IssuerID: "i-2", IssuerSlug: "haw-hamburg", IssuerName: "HAW Hamburg",
					Payload: []byte(`[{"name":"Web Development"}]`),
				},
			},
		},
		sinceNum: map[string]int64{"": 4},
		topRows: map[string][]repo.TopClassRow{
			"": {
				{Slug: "scrum-basics", Name: "Scrum Basics", Description: "Sprint planning and project delivery", IssuerSlug: "tu-berlin", IssuerName: "TU Berlin", Count: 5},
				{Slug: "python-intro", Name: "Python Intro", Description: "Programming fundamentals", IssuerSlug: "haw-hamburg", IssuerName: "HAW Hamburg", Count: 4},
				{Slug: "kanban-advanced", Name: "Kanban Advanced", Description: "Flow and board management", IssuerSlug: "tu-berlin", IssuerName: "TU Berlin", Count: 3},
			},
		},
		learnerSet: map[string][]repo.LearnerRow{
			"": {
				{UserID: "u-1", Gender: "male", ZipCode: "10115", Current: 1},
				{UserID: "u-2", Gender: "female", ZipCode: "10115", Previous: 1},
				{UserID: "u-3", Gender: "male", ZipCode: "80331"},
				{UserID: "u-4", Gender: "", ZipCode: "", Current: 1},
				{UserID: "u-5", Gender: "diverse", ZipCode: "20095"},
			},
		},
	}

	freg := &fakeRegion{
		districts: map[string][]string{"10115": {"10115", "10117"}},
		cities: map[string]string{
			"10115": "Berlin",
			"80331": "München",
			"20095": "Hamburg",
		},
	}

	catalog, err := competency.LoadEmbeddedCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	s := New(fakeTx{}, repokit.BindFunc[repo.Repo](func(repokit.Queryer) repo.Repo { return fr }), freg, catalog)
	s.now = func() time.Time { return testNow }
	return s, fr
}

func TestCalcTrend(t *testing.T) {
	t.Parallel()

	cases := []struct {
		current, previous int64
		trend             string
		value             float64
	}{
		{0, 0, domain.TrendStable, 0},
		{5, 0, domain.TrendUp, 5},
		{7, 4, domain.TrendUp, 3},
		{2, 5, domain.TrendDown, 3},
		{4, 4, domain.TrendStable, 0},
	}
	for _, c := range cases {
		trend, value := calcTrend(c.current, c.previous)
		if trend != c.trend || value != c.value {
			t.Fatalf("calcTrend(%d, %d) = %s %v, want %s %v", c.current, c.previous, trend, value, c.trend, c.value)
		}
	}
}

func TestKPIs(t *testing.T) {
	t.Parallel()
	s, _ := newWorld(t)

	out, err := s.KPIs(context.Background(), "admin")
	if err != nil {
		t.Fatalf("KPIs: %v", err)
	}

	if len(out.TopKpis) != 3 {
		t.Fatalf("topKpis = %d", len(out.TopKpis))
	}

	inst := out.TopKpis[0]
	if inst.ID != "institutions_active" || inst.Value != 4 {
		t.Fatalf("institutions kpi = %+v", inst)
	}
	if inst.Trend != domain.TrendStable || inst.TrendValue != 0 {
		t.Fatalf("institutions trend = %s %v", inst.Trend, inst.TrendValue)
	}
	if inst.LabelKey != "Dashboard.kpi.institutions" || inst.TooltipKey != "Dashboard.tooltip.institutions" {
		t.Fatalf("institutions keys = %+v", inst)
	}
	if inst.HasMonthlyDetails {
		t.Fatal("institutions kpi should not carry monthly details")
	}

	badges := out.TopKpis[1]
	if badges.ID != "badges_total" || badges.Value != 12 {
		t.Fatalf("badges kpi = %+v", badges)
	}
	if badges.Trend != domain.TrendUp || badges.TrendValue != 3 {
		t.Fatalf("badges trend = %s %v", badges.Trend, badges.TrendValue)
	}
	if !badges.HasMonthlyDetails || len(badges.MonthlyDetails) != 2 {
		t.Fatalf("badges details = %+v", badges.MonthlyDetails)
	}
	first := badges.MonthlyDetails[0]
	if first.Title != "Scrum Basics" || first.Value != "1 Badge" || first.Details != "Issued by TU Berlin" {
		t.Fatalf("first detail = %+v", first)
	}

	hours := out.TopKpis[2]
	if hours.ID != "competency_hours" || hours.Value != 48 {
		t.Fatalf("hours kpi = %+v", hours)
	}
	if hours.Trend != domain.TrendUp || hours.TrendValue != 12 {
		t.Fatalf("hours trend = %s %v", hours.Trend, hours.TrendValue)
	}

	if len(out.SecondaryKpis) != 2 {
		t.Fatalf("secondaryKpis = %d", len(out.SecondaryKpis))
	}
	per := out.SecondaryKpis[0]
	if per.ID != "hours_per_competency" || per.Value != 4 {
		t.Fatalf("hours per competency = %+v", per)
	}
	if per.Trend != domain.TrendStable || per.TrendValue != 0.2 {
		t.Fatalf("hours per trend = %s %v", per.Trend, per.TrendValue)
	}
	div := out.SecondaryKpis[1]
	if div.ID != "diversity_index" || div.Value != 0.78 || div.TrendValue != 0.05 {
		t.Fatalf("diversity = %+v", div)
	}
}

func TestKPIsRegionalFilter(t *testing.T) {
	t.Parallel()
	s, _ := newWorld(t)

	out, err := s.KPIs(context.Background(), "admin-berlin")
	if err != nil {
		t.Fatalf("KPIs: %v", err)
	}
	if out.TopKpis[1].Value != 2 {
		t.Fatalf("regional badges total = %v, want the filtered bucket", out.TopKpis[1].Value)
	}

	// a zip outside the dataset falls back to the whole platform
	out, err = s.KPIs(context.Background(), "admin-lost")
	if err != nil {
		t.Fatalf("KPIs: %v", err)
	}
	if out.TopKpis[1].Value != 12 {
		t.Fatalf("unfiltered badges total = %v", out.TopKpis[1].Value)
	}
}

func TestAreas(t *testing.T) {
	t.Parallel()
	s, _ := newWorld(t)

	out, err := s.Areas(context.Background(), "admin", 10)
	if err != nil {
		t.Fatalf("Areas: %v", err)
	}

	if len(out.Data) != 3 {
		t.Fatalf("areas = %+v", out.Data)
	}

	agile := out.Data[0]
	if agile.NameKey != "Agile Methods" || agile.DisplayName != "Agile Methods" {
		t.Fatalf("first area = %+v", agile)
	}
	if agile.BadgeCount != 2 || agile.UserCount != 4 || agile.InstitutionCount != 1 {
		t.Fatalf("agile counts = %+v", agile)
	}
	// 120 min times 5 awards plus 60 times 3 is 780 minutes
	if agile.TotalHours != 13 {
		t.Fatalf("agile hours = %d", agile.TotalHours)
	}
	if agile.Percentage != 50 {
		t.Fatalf("agile percentage = %v", agile.Percentage)
	}
	if agile.Color != domain.AreaColor {
		t.Fatalf("agile color = %q", agile.Color)
	}

	// equal weights resolve alphabetically
	if out.Data[1].NameKey != "Programming" || out.Data[2].NameKey != "Teamwork" {
		t.Fatalf("order = %q, %q", out.Data[1].NameKey, out.Data[2].NameKey)
	}
	if out.Data[1].Percentage != 25 || out.Data[2].Percentage != 25 {
		t.Fatalf("percentages = %v, %v", out.Data[1].Percentage, out.Data[2].Percentage)
	}
	// teamwork has no study load, so hours fall back to four per award
	if out.Data[2].TotalHours != 20 {
		t.Fatalf("teamwork hours = %d", out.Data[2].TotalHours)
	}

	md := out.Metadata
	if md.TotalAreas != 3 || md.TotalBadges != 7 || md.TotalUsers != 6 {
		t.Fatalf("metadata = %+v", md)
	}
	// 780 + 1200 minutes of recorded study load
	if md.TotalHours != 33 {
		t.Fatalf("metadata hours = %d", md.TotalHours)
	}
	if md.LastUpdated != "2025-08-01" {
		t.Fatalf("lastUpdated = %q", md.LastUpdated)
	}
}

func TestAreasLimitAndEmpty(t *testing.T) {
	t.Parallel()
	s, fr := newWorld(t)

	out, err := s.Areas(context.Background(), "admin", 1)
	if err != nil {
		t.Fatalf("Areas: %v", err)
	}
	if len(out.Data) != 1 || out.Data[0].NameKey != "Agile Methods" {
		t.Fatalf("limited areas = %+v", out.Data)
	}
	// the single returned area owns the full distribution
	if out.Data[0].Percentage != 100 {
		t.Fatalf("percentage = %v", out.Data[0].Percentage)
	}

	// out of range limits clamp instead of erroring
	if _, err := s.Areas(context.Background(), "admin", 500); err != nil {
		t.Fatalf("Areas clamp: %v", err)
	}

	// a platform without awards answers with an empty distribution
	fr.awards[""] = repo.WindowCounts{}
	empty, err := s.Areas(context.Background(), "admin", 10)
	if err != nil {
		t.Fatalf("Areas empty: %v", err)
	}
	if len(empty.Data) != 0 {
		t.Fatalf("empty data = %+v", empty.Data)
	}
	if empty.Metadata.TotalBadges != 0 || empty.Metadata.TotalUsers != 0 {
		t.Fatalf("empty metadata = %+v", empty.Metadata)
	}
	if empty.Metadata.LastUpdated != "2025-08-01" {
		t.Fatalf("empty lastUpdated = %q", empty.Metadata.LastUpdated)
	}
}

func TestAreaDetail(t *testing.T) {
	t.Parallel()
	s, _ := newWorld(t)

	out, err := s.AreaDetail(context.Background(), "admin", "Agile Methods")
	if err != nil {
		t.Fatalf("AreaDetail: %v", err)
	}

	if out.ID != "agile_methods" || out.NameKey != "Agile Methods" {
		t.Fatalf("detail head = %+v", out)
	}
	if out.DescriptionKey != "Agile Methods.description" {
		t.Fatalf("descriptionKey = %q", out.DescriptionKey)
	}

	st := out.Statistics
	if st.TotalBadges != 2 || st.TotalUsers != 4 || st.TotalInstitutions != 1 {
		t.Fatalf("statistics = %+v", st)
	}
	if st.TotalHours != 32 {
		t.Fatalf("hours = %d", st.TotalHours)
	}
	// 8 of 12 awards, one decimal
	if st.Percentage != 66.7 {
		t.Fatalf("percentage = %v", st.Percentage)
	}

	if out.Trend.Direction != domain.TrendUp || out.Trend.Value != 12.5 || out.Trend.Period != domain.TrendPeriodMonth {
		t.Fatalf("trend = %+v", out.Trend)
	}

	if len(out.TopBadges) != 2 {
		t.Fatalf("topBadges = %+v", out.TopBadges)
	}
	tb := out.TopBadges[0]
	if tb.BadgeID != "scrum-basics" || tb.BadgeTitleKey != "badge.title.scrum-basics" || tb.Count != 5 {
		t.Fatalf("first badge = %+v", tb)
	}
	if tb.Percentage != 62.5 {
		t.Fatalf("first badge percentage = %v", tb.Percentage)
	}

	if len(out.TopInstitutions) != 1 {
		t.Fatalf("topInstitutions = %+v", out.TopInstitutions)
	}
	ti := out.TopInstitutions[0]
	if ti.InstitutionID != "tu-berlin" || ti.BadgeCount != 2 || ti.UserCount != 4 {
		t.Fatalf("institution = %+v", ti)
	}
}

func TestAreaDetailMatching(t *testing.T) {
	t.Parallel()
	s, _ := newWorld(t)
	ctx := context.Background()

	// hyphens, case, and substrings all resolve to the same area
	for _, input := range []string{"agile-methods", "AGILE METHODS", "methods"} {
		out, err := s.AreaDetail(ctx, "admin", input)
		if err != nil {
			t.Fatalf("AreaDetail(%q): %v", input, err)
		}
		if out.ID != "agile_methods" {
			t.Fatalf("AreaDetail(%q) = %q", input, out.ID)
		}
	}
}

func TestAreaDetailOfferedOnly(t *testing.T) {
	t.Parallel()
	s, _ := newWorld(t)

	// the area exists through an offered class that was never awarded
	out, err := s.AreaDetail(context.Background(), "admin", "Web Development")
	if err != nil {
		t.Fatalf("AreaDetail: %v", err)
	}
	if out.Statistics.TotalBadges != 1 || out.Statistics.TotalHours != 0 {
		t.Fatalf("statistics = %+v", out.Statistics)
	}
	if out.Trend.Direction != domain.TrendStable {
		t.Fatalf("trend = %+v", out.Trend)
	}
	if len(out.TopBadges) != 0 {
		t.Fatalf("topBadges = %+v", out.TopBadges)
	}
	if len(out.TopInstitutions) != 1 || out.TopInstitutions[0].UserCount != 0 {
		t.Fatalf("topInstitutions = %+v", out.TopInstitutions)
	}
}

func TestAreaDetailNotFound(t *testing.T) {
	t.Parallel()
	s, _ := newWorld(t)

	_, err := s.AreaDetail(context.Background(), "admin", "Quantum Entanglement")
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("err = %v", err)
	}
	// the error names the known areas so the client can recover
	if !strings.Contains(err.Error(), "agile_methods") {
		t.Fatalf("err = %v", err)
	}
}

func TestTopBadges(t *testing.T) {
	t.Parallel()
	s, _ := newWorld(t)

	out, err := s.TopBadges(context.Background(), "admin", domain.TopBadgesInput{Limit: 3})
	if err != nil {
		t.Fatalf("TopBadges: %v", err)
	}

	if out.Metadata.TotalBadges != 12 || out.Metadata.Period != domain.PeriodAllTime {
		t.Fatalf("metadata = %+v", out.Metadata)
	}
	if len(out.Badges) != 3 {
		t.Fatalf("badges = %d", len(out.Badges))
	}

	first := out.Badges[0]
	if first.Rank != 1 || first.BadgeID != "scrum-basics" || first.BadgeTitle != "Scrum Basics" {
		t.Fatalf("first = %+v", first)
	}
	if first.Count != 5 || first.Hours != 20 {
		t.Fatalf("first counts = %+v", first)
	}
	if first.Percentage != 41.67 {
		t.Fatalf("first percentage = %v", first.Percentage)
	}
	if first.Visualization.Icon != "lucideTrophy" || first.Visualization.Color != "#FFCC00" {
		t.Fatalf("first icon = %+v", first.Visualization)
	}
	// the description mentions project delivery
	if len(first.Competencies) != 1 || first.Competencies[0].ID != "project_management" {
		t.Fatalf("first competencies = %+v", first.Competencies)
	}
	if len(first.Institutions) != 1 || first.Institutions[0].ID != "tu-berlin" || first.Institutions[0].AwardCount != 5 {
		t.Fatalf("first institutions = %+v", first.Institutions)
	}

	if out.Badges[1].Visualization.Icon != "lucideMedal" || out.Badges[2].Visualization.Icon != "lucideAward" {
		t.Fatalf("icons = %+v, %+v", out.Badges[1].Visualization, out.Badges[2].Visualization)
	}
	// nothing in the python description matches a rule
	if len(out.Badges[1].Competencies) != 1 || out.Badges[1].Competencies[0].ID != "general" {
		t.Fatalf("python competencies = %+v", out.Badges[1].Competencies)
	}
}

func TestTopBadgesPeriods(t *testing.T) {
	t.Parallel()
	s, fr := newWorld(t)
	ctx := context.Background()

	out, err := s.TopBadges(ctx, "admin", domain.TopBadgesInput{Limit: 3, Period: domain.PeriodLastWeek})
	if err != nil {
		t.Fatalf("TopBadges: %v", err)
	}
	if out.Metadata.TotalBadges != 4 || out.Metadata.Period != domain.PeriodLastWeek {
		t.Fatalf("metadata = %+v", out.Metadata)
	}
	if len(fr.gotSince) == 0 || fr.gotSince[0] == nil {
		t.Fatal("expected a window start")
	}
	if want := testNow.AddDate(0, 0, -7); !fr.gotSince[0].Equal(want) {
		t.Fatalf("since = %v, want %v", fr.gotSince[0], want)
	}

	if _, err := s.TopBadges(ctx, "admin", domain.TopBadgesInput{Period: "yesterday"}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}

func TestTopBadgesEmptyWindow(t *testing.T) {
	t.Parallel()
	s, fr := newWorld(t)
	fr.sinceNum[""] = 0

	out, err := s.TopBadges(context.Background(), "admin", domain.TopBadgesInput{Period: domain.PeriodLastMonth})
	if err != nil {
		t.Fatalf("TopBadges: %v", err)
	}
	if out.Metadata.TotalBadges != 0 {
		t.Fatalf("metadata = %+v", out.Metadata)
	}
	if out.Badges == nil || len(out.Badges) != 0 {
		t.Fatalf("badges = %#v", out.Badges)
	}
}

func TestLearners(t *testing.T) {
	t.Parallel()
	s, _ := newWorld(t)

	out, err := s.Learners(context.Background(), "admin")
	if err != nil {
		t.Fatalf("Learners: %v", err)
	}

	if out.Metadata.TotalLearners != 5 {
		t.Fatalf("metadata = %+v", out.Metadata)
	}

	tl := out.KPIs.TotalLearners
	if tl.Value != 5 || tl.Trend != domain.TrendUp || tl.TrendValue != 1 {
		t.Fatalf("totalLearners = %+v", tl)
	}
	if tl.TrendPeriod != domain.TrendPeriodMonth {
		t.Fatalf("trendPeriod = %q", tl.TrendPeriod)
	}

	// 1980 minutes of study load across user held awards
	th := out.KPIs.TotalCompetencyHours
	if th.Value != 33 {
		t.Fatalf("totalCompetencyHours = %+v", th)
	}
	// 1200 current minutes against 120 previous
	if th.Trend != domain.TrendUp || th.TrendValue != 18 {
		t.Fatalf("hours trend = %+v", th)
	}

	if len(out.ResidenceDistribution) != 4 {
		t.Fatalf("residence = %+v", out.ResidenceDistribution)
	}
	berlin := out.ResidenceDistribution[0]
	if berlin.City != "Berlin" || berlin.LearnerCount != 2 || berlin.Percentage != 40 {
		t.Fatalf("berlin = %+v", berlin)
	}
	// ties resolve alphabetically, unknown zips bucket under Unbekannt
	if out.ResidenceDistribution[1].City != "Hamburg" ||
		out.ResidenceDistribution[2].City != "München" ||
		out.ResidenceDistribution[3].City != "Unbekannt" {
		t.Fatalf("residence order = %+v", out.ResidenceDistribution)
	}

	if len(out.GenderDistribution) != 4 {
		t.Fatalf("gender = %+v", out.GenderDistribution)
	}
	if out.GenderDistribution[0].Gender != "male" || out.GenderDistribution[0].Count != 2 {
		t.Fatalf("male bucket = %+v", out.GenderDistribution[0])
	}
	if out.GenderDistribution[3].Gender != "noAnswer" || out.GenderDistribution[3].Count != 1 {
		t.Fatalf("noAnswer bucket = %+v", out.GenderDistribution[3])
	}
}

func TestLearnersEmpty(t *testing.T) {
	t.Parallel()
	s, fr := newWorld(t)
	fr.learnerSet[""] = nil
	fr.classes[""] = nil

	out, err := s.Learners(context.Background(), "admin")
	if err != nil {
		t.Fatalf("Learners: %v", err)
	}
	if out.KPIs.TotalLearners.Value != 0 || out.KPIs.TotalCompetencyHours.Value != 0 {
		t.Fatalf("kpis = %+v", out.KPIs)
	}
	if len(out.ResidenceDistribution) != 0 || len(out.GenderDistribution) != 0 {
		t.Fatalf("distributions = %+v, %+v", out.ResidenceDistribution, out.GenderDistribution)
	}
}
