package domain

import "context"

// ServicePort is the dashboard surface exposed to transport and other modules.
// The viewer id scopes every answer to the caller's region when their profile
// carries a zip code
type ServicePort interface {
	KPIs(ctx context.Context, viewer string) (KPIs, error)
	Areas(ctx context.Context, viewer string, limit int) (Areas, error)
	AreaDetail(ctx context.Context, viewer string, area string) (AreaDetail, error)
	TopBadges(ctx context.Context, viewer string, in TopBadgesInput) (TopBadges, error)
	Learners(ctx context.Context, viewer string) (Learners, error)
}

// RegionPort resolves postal geography for the regional view filter
type RegionPort interface {
	OrtByPLZ(plz string) string
	RegionPLZ(zip string) (string, []string)
}
