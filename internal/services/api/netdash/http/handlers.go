// Package http provides http transport for network dashboards and the public
// social space
package http

import (
	stdhttp "net/http"

	"badgehub/internal/modkit/httpkit"
	"badgehub/internal/platform/net/middleware"
	svc "badgehub/internal/services/api/netdash/service"
)

// Register mounts the per network dashboard endpoints on the given router.
// Access is checked per slug in the service, so no scope gate here
func Register(r httpkit.Router, s svc.Service, auth middleware.AuthPort) {
	h := &handlers{svc: s}

	httpkit.Protected(r, auth, func(pr httpkit.Router) {
		httpkit.Get(pr, "/{slug}/kpis", h.kpis)
		httpkit.Get(pr, "/{slug}/competency-areas", h.areas)
		httpkit.Get(pr, "/{slug}/top-badges", h.topBadges)
		httpkit.Get(pr, "/{slug}/recent-activity", h.recentActivity)
		httpkit.Get(pr, "/{slug}/learners", h.learners)
	})
}

// RegisterSocialspace mounts the public social space endpoints
func RegisterSocialspace(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/institutions", h.spaceInstitutions)
	httpkit.Get(r, "/cities", h.spaceCities)
	httpkit.Get(r, "/city-detail", h.spaceCityDetail)
	httpkit.Get(r, "/learners", h.spaceLearners)
	httpkit.Get(r, "/competencies", h.spaceCompetencies)
}

type handlers struct{ svc svc.Service }

// swagger:route GET /networks/{slug}/kpis Networks networkKPIs
// @Summary Network dashboard KPIs
// @Tags Networks
// @Produce json
// @Param slug path string true "network issuer slug"
// @Param deliveryMethod query string false "online or in-person"
// @Success 200 {object} domain.KPIs "ok"
// @Security BearerAuth
// @Router /networks/{slug}/kpis [get]
func (h *handlers) kpis(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.KPIs(r.Context(), uid, httpkit.Param(r, "slug"), httpkit.Query(r, "deliveryMethod", ""))
}

// swagger:route GET /networks/{slug}/competency-areas Networks networkAreas
// @Summary Network competency area distribution
// @Tags Networks
// @Produce json
// @Param slug path string true "network issuer slug"
// @Param limit query int false "max areas, 1..50"
// @Success 200 {object} domain.Areas "ok"
// @Security BearerAuth
// @Router /networks/{slug}/competency-areas [get]
func (h *handlers) areas(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Areas(r.Context(), uid, httpkit.Param(r, "slug"), httpkit.QueryInt(r, "limit", 10))
}

// swagger:route GET /networks/{slug}/top-badges Networks networkTopBadges
// @Summary Network's most awarded badges
// @Tags Networks
// @Produce json
// @Param slug path string true "network issuer slug"
// @Param limit query int false "max entries, 1..10"
// @Success 200 {object} domain.TopBadges "ok"
// @Security BearerAuth
// @Router /networks/{slug}/top-badges [get]
func (h *handlers) topBadges(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.TopBadges(r.Context(), uid, httpkit.Param(r, "slug"), httpkit.QueryInt(r, "limit", 10))
}

// swagger:route GET /networks/{slug}/recent-activity Networks networkActivity
// @Summary Recent awarding activity across the network
// @Tags Networks
// @Produce json
// @Param slug path string true "network issuer slug"
// @Param limit query int false "max entries, 1..50"
// @Success 200 {object} domain.Activities "ok"
// @Security BearerAuth
// @Router /networks/{slug}/recent-activity [get]
func (h *handlers) recentActivity(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.RecentActivity(r.Context(), uid, httpkit.Param(r, "slug"), httpkit.QueryInt(r, "limit", 10))
}

// swagger:route GET /networks/{slug}/learners Networks networkLearners
// @Summary Network learner overview
// @Tags Networks
// @Produce json
// @Param slug path string true "network issuer slug"
// @Success 200 {object} domain.Learners "ok"
// @Security BearerAuth
// @Router /networks/{slug}/learners [get]
func (h *handlers) learners(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Learners(r.Context(), uid, httpkit.Param(r, "slug"))
}

// swagger:route GET /socialspace/institutions Socialspace spaceInstitutions
// @Summary Awarding institutions across the platform
// @Tags Socialspace
// @Produce json
// @Success 200 {object} domain.Institutions "ok"
// @Router /socialspace/institutions [get]
func (h *handlers) spaceInstitutions(r *stdhttp.Request) (any, error) {
	return h.svc.SpaceInstitutions(r.Context())
}

// swagger:route GET /socialspace/cities Socialspace spaceCities
// @Summary Institutions grouped by city
// @Tags Socialspace
// @Produce json
// @Success 200 {object} domain.Cities "ok"
// @Router /socialspace/cities [get]
func (h *handlers) spaceCities(r *stdhttp.Request) (any, error) {
	return h.svc.SpaceCities(r.Context())
}

// swagger:route GET /socialspace/city-detail Socialspace spaceCityDetail
// @Summary One city's badge landscape
// @Tags Socialspace
// @Produce json
// @Param city query string true "city name"
// @Success 200 {object} domain.CityDetail "ok"
// @Failure 404 {string} string "unknown city"
// @Router /socialspace/city-detail [get]
func (h *handlers) spaceCityDetail(r *stdhttp.Request) (any, error) {
	return h.svc.SpaceCityDetail(r.Context(), httpkit.Query(r, "city", ""))
}

// swagger:route GET /socialspace/learners Socialspace spaceLearners
// @Summary Learners earning badges from a city's institutions
// @Tags Socialspace
// @Produce json
// @Param city query string true "city name"
// @Success 200 {object} domain.Learners "ok"
// @Router /socialspace/learners [get]
func (h *handlers) spaceLearners(r *stdhttp.Request) (any, error) {
	return h.svc.SpaceCityLearners(r.Context(), httpkit.Query(r, "city", ""))
}

// swagger:route GET /socialspace/competencies Socialspace spaceCompetencies
// @Summary Competency areas taught in a city
// @Tags Socialspace
// @Produce json
// @Param city query string true "city name"
// @Param limit query int false "max areas, 1..50"
// @Success 200 {object} domain.Areas "ok"
// @Router /socialspace/competencies [get]
func (h *handlers) spaceCompetencies(r *stdhttp.Request) (any, error) {
	return h.svc.SpaceCityCompetencies(r.Context(), httpkit.Query(r, "city", ""), httpkit.QueryInt(r, "limit", 10))
}
