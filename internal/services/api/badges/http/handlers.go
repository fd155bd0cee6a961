// Package http provides http transport for badge classes
package http

import (
	stdhttp "net/http"
	"time"

	"badgehub/internal/modkit/httpkit"
	perr "badgehub/internal/platform/errors"
	"badgehub/internal/platform/net/middleware"
	"badgehub/internal/services/api/badges/domain"
	svc "badgehub/internal/services/api/badges/service"
)

// Register mounts the badge class detail endpoints under /badges
func Register(r httpkit.Router, s svc.Service, auth middleware.AuthPort) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/{slug}", h.bySlug)

	httpkit.Protected(r, auth, func(pr httpkit.Router) {
		httpkit.PutJSON[domain.UpdateBadgeInput](pr, "/{slug}", h.update)
		httpkit.Delete(pr, "/{slug}", h.delete)
	})
}

// RegisterIssuerScoped mounts the collection endpoints on the issuers router,
// so they live at /issuers/{slug}/badges
func RegisterIssuerScoped(r httpkit.Router, s svc.Service, auth middleware.AuthPort) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/{slug}/badges", h.listByIssuer)

	httpkit.Protected(r, auth, func(pr httpkit.Router) {
		httpkit.PostJSON[domain.CreateBadgeInput](pr, "/{slug}/badges", h.create)
		httpkit.Get(pr, "/{slug}/badges/changed", h.changed)
	})
}

type handlers struct{ svc svc.Service }

// swagger:route GET /badges/{slug} Badges badgesDetail
// @Summary Badge class detail
// @Tags Badges
// @Produce json
// @Param slug path string true "badge class slug"
// @Success 200 {object} domain.Badge "ok"
// @Failure 404 {string} string "unknown badge class"
// @Router /badges/{slug} [get]
func (h *handlers) bySlug(r *stdhttp.Request) (any, error) {
	return h.svc.BySlug(r.Context(), httpkit.Param(r, "slug"))
}

// swagger:route PUT /badges/{slug} Badges badgesUpdate
// @Summary Update a badge class
// @Tags Badges
// @Accept json
// @Produce json
// @Param slug path string true "badge class slug"
// @Param payload body domain.UpdateBadgeInput true "changes"
// @Success 200 {object} domain.Badge "updated"
// @Security BearerAuth
// @Router /badges/{slug} [put]
func (h *handlers) update(r *stdhttp.Request, in domain.UpdateBadgeInput) (any, error) {
	if err := httpkit.RequireScope(r, "rw:issuer"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Update(r.Context(), uid, httpkit.Param(r, "slug"), in)
}

// swagger:route DELETE /badges/{slug} Badges badgesDelete
// @Summary Delete or archive a badge class
// @Tags Badges
// @Produce json
// @Param slug path string true "badge class slug"
// @Success 204 {string} string "deleted"
// @Security BearerAuth
// @Router /badges/{slug} [delete]
func (h *handlers) delete(r *stdhttp.Request) (any, error) {
	if err := httpkit.RequireScope(r, "rw:issuer"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	if err := h.svc.Delete(r.Context(), uid, httpkit.Param(r, "slug")); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// swagger:route GET /issuers/{slug}/badges Badges badgesList
// @Summary List an issuer's badge classes
// @Tags Badges
// @Produce json
// @Param slug path string true "issuer slug"
// @Param page query int false "page number"
// @Param page_size query int false "page size"
// @Success 200 {array} domain.Badge "ok"
// @Router /issuers/{slug}/badges [get]
func (h *handlers) listByIssuer(r *stdhttp.Request) (any, error) {
	q := domain.ListQuery{
		Page:     httpkit.QueryInt(r, "page", 1),
		PageSize: httpkit.QueryInt(r, "page_size", 0),
	}
	q = q.Clamped()

	items, total, err := h.svc.ListByIssuer(r.Context(), httpkit.Param(r, "slug"), q)
	if err != nil {
		return nil, err
	}
	return httpkit.List(items, total, q.Page, q.PageSize, ""), nil
}

// swagger:route POST /issuers/{slug}/badges Badges badgesCreate
// @Summary Create a badge class
// @Tags Badges
// @Accept json
// @Produce json
// @Param slug path string true "issuer slug"
// @Param payload body domain.CreateBadgeInput true "badge class"
// @Success 201 {object} domain.Badge "created"
// @Security BearerAuth
// @Router /issuers/{slug}/badges [post]
func (h *handlers) create(r *stdhttp.Request, in domain.CreateBadgeInput) (any, error) {
	if err := httpkit.RequireScope(r, "rw:issuer"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	b, err := h.svc.Create(r.Context(), uid, httpkit.Param(r, "slug"), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(b), nil
}

// swagger:route GET /issuers/{slug}/badges/changed Badges badgesChanged
// @Summary Badge classes changed since a cutoff
// @Tags Badges
// @Produce json
// @Param slug path string true "issuer slug"
// @Param since query string false "RFC3339 cutoff, omit for a full resync"
// @Success 200 {object} domain.ChangedFeed "ok"
// @Failure 400 {string} string "cutoff unparseable or past retention"
// @Security BearerAuth
// @Router /issuers/{slug}/badges/changed [get]
func (h *handlers) changed(r *stdhttp.Request) (any, error) {
	if err := httpkit.RequireScope(r, "rw:issuer"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}

	var since time.Time
	if raw := httpkit.Query(r, "since", ""); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, perr.InvalidArgf("since must be RFC3339 with a time zone")
		}
	}
	return h.svc.Changed(r.Context(), uid, httpkit.Param(r, "slug"), since)
}
