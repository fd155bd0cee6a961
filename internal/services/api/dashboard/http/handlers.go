// Package http provides http transport for the platform dashboard
package http

import (
	stdhttp "net/http"

	"badgehub/internal/modkit/httpkit"
	"badgehub/internal/platform/net/middleware"
	"badgehub/internal/services/api/dashboard/domain"
	svc "badgehub/internal/services/api/dashboard/service"
)

// Register mounts dashboard endpoints on the given router
func Register(r httpkit.Router, s svc.Service, auth middleware.AuthPort) {
	h := &handlers{svc: s}

	httpkit.Protected(r, auth, func(pr httpkit.Router) {
		httpkit.Get(pr, "/kpis", h.kpis)
		httpkit.Get(pr, "/competency-areas", h.areas)
		httpkit.Get(pr, "/competency-areas/{area}", h.areaDetail)
		httpkit.Get(pr, "/top-badges", h.topBadges)
		httpkit.Get(pr, "/learners", h.learners)
	})
}

type handlers struct{ svc svc.Service }

// the dashboard aggregates over every issuer, so it stays admin only
func (h *handlers) admin(r *stdhttp.Request) (string, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return "", err
	}
	if err := httpkit.RequireScope(r, "rw:serverAdmin"); err != nil {
		return "", err
	}
	return uid, nil
}

// swagger:route GET /dashboard/kpis Dashboard dashboardKPIs
// @Summary Dashboard overview KPIs
// @Tags Dashboard
// @Produce json
// @Success 200 {object} domain.KPIs "ok"
// @Security BearerAuth
// @Router /dashboard/kpis [get]
func (h *handlers) kpis(r *stdhttp.Request) (any, error) {
	uid, err := h.admin(r)
	if err != nil {
		return nil, err
	}
	return h.svc.KPIs(r.Context(), uid)
}

// swagger:route GET /dashboard/competency-areas Dashboard dashboardAreas
// @Summary Competency area distribution
// @Tags Dashboard
// @Produce json
// @Param limit query int false "max areas, 1..50"
// @Success 200 {object} domain.Areas "ok"
// @Security BearerAuth
// @Router /dashboard/competency-areas [get]
func (h *handlers) areas(r *stdhttp.Request) (any, error) {
	uid, err := h.admin(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Areas(r.Context(), uid, httpkit.QueryInt(r, "limit", 10))
}

// swagger:route GET /dashboard/competency-areas/{area} Dashboard dashboardAreaDetail
// @Summary Competency area drill down
// @Tags Dashboard
// @Produce json
// @Param area path string true "area key, display name, or key suffix"
// @Success 200 {object} domain.AreaDetail "ok"
// @Failure 404 {string} string "unknown area"
// @Security BearerAuth
// @Router /dashboard/competency-areas/{area} [get]
func (h *handlers) areaDetail(r *stdhttp.Request) (any, error) {
	uid, err := h.admin(r)
	if err != nil {
		return nil, err
	}
	return h.svc.AreaDetail(r.Context(), uid, httpkit.Param(r, "area"))
}

// swagger:route GET /dashboard/top-badges Dashboard dashboardTopBadges
// @Summary Most awarded badges
// @Tags Dashboard
// @Produce json
// @Param limit query int false "max entries, 1..10"
// @Param period query string false "last_week, last_month, last_year, or all_time"
// @Success 200 {object} domain.TopBadges "ok"
// @Security BearerAuth
// @Router /dashboard/top-badges [get]
func (h *handlers) topBadges(r *stdhttp.Request) (any, error) {
	uid, err := h.admin(r)
	if err != nil {
		return nil, err
	}
	in := domain.TopBadgesInput{
		Limit:  httpkit.QueryInt(r, "limit", 3),
		Period: httpkit.Query(r, "period", domain.PeriodAllTime),
	}
	return h.svc.TopBadges(r.Context(), uid, in)
}

// swagger:route GET /dashboard/learners Dashboard dashboardLearners
// @Summary Learner overview
// @Tags Dashboard
// @Produce json
// @Success 200 {object} domain.Learners "ok"
// @Security BearerAuth
// @Router /dashboard/learners [get]
func (h *handlers) learners(r *stdhttp.Request) (any, error) {
	uid, err := h.admin(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Learners(r.Context(), uid)
}
