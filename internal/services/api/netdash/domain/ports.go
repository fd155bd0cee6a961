package domain

import "context"

// ServicePort is the network dashboard surface exposed to transport and
// other modules. Network operations verify the caller is staff of the
// network; the Space operations are anonymous
type ServicePort interface {
	KPIs(ctx context.Context, caller, slug, deliveryMethod string) (KPIs, error)
	Areas(ctx context.Context, caller, slug string, limit int) (Areas, error)
	TopBadges(ctx context.Context, caller, slug string, limit int) (TopBadges, error)
	RecentActivity(ctx context.Context, caller, slug string, limit int) (Activities, error)
	Learners(ctx context.Context, caller, slug string) (Learners, error)

	SpaceInstitutions(ctx context.Context) (Institutions, error)
	SpaceCities(ctx context.Context) (Cities, error)
	SpaceCityDetail(ctx context.Context, city string) (CityDetail, error)
	SpaceCityLearners(ctx context.Context, city string) (Learners, error)
	SpaceCityCompetencies(ctx context.Context, city string, limit int) (Areas, error)
}

// RegionPort maps between zip codes and city names, satisfied by
// core/region's Service
type RegionPort interface {
	OrtByPLZ(plz string) string
	PLZForOrt(ort string) []string
}
