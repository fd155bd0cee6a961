// Package http provides http transport for badge instances and batch awards
package http

import (
	stdhttp "net/http"
	"strconv"
	"time"

	"badgehub/internal/modkit/httpkit"
	perr "badgehub/internal/platform/errors"
	"badgehub/internal/platform/net/middleware"
	"badgehub/internal/services/api/assertions/domain"
	svc "badgehub/internal/services/api/assertions/service"
)

// Register mounts the assertion endpoints under /assertions
func Register(r httpkit.Router, s svc.Service, auth middleware.AuthPort) {
	h := &handlers{svc: s}

	httpkit.Protected(r, auth, func(pr httpkit.Router) {
		httpkit.Get(pr, "/{id}", h.byID)
		httpkit.PutJSON[domain.RevokeInput](pr, "/{id}/revoke", h.revoke)
	})
}

// RegisterBatches mounts the batch status endpoint under /batches
func RegisterBatches(r httpkit.Router, s svc.Service, auth middleware.AuthPort) {
	h := &handlers{svc: s}

	httpkit.Protected(r, auth, func(pr httpkit.Router) {
		httpkit.Get(pr, "/{id}", h.batch)
	})
}

// RegisterBadgeScoped mounts the award endpoints on the badges router, so
// they live at /badges/{slug}/assertions
func RegisterBadgeScoped(r httpkit.Router, s svc.Service, auth middleware.AuthPort) {
	h := &handlers{svc: s}

	httpkit.Protected(r, auth, func(pr httpkit.Router) {
		httpkit.PostJSON[domain.AwardInput](pr, "/{slug}/assertions", h.award)
		httpkit.PostJSON[domain.BatchInput](pr, "/{slug}/assertions/batch", h.awardBatch)
		httpkit.Get(pr, "/{slug}/assertions", h.listByBadge)
	})
}

// RegisterIssuerScoped mounts the issuer wide listings on the issuers router,
// so they live at /issuers/{slug}/assertions
func RegisterIssuerScoped(r httpkit.Router, s svc.Service, auth middleware.AuthPort) {
	h := &handlers{svc: s}

	httpkit.Protected(r, auth, func(pr httpkit.Router) {
		httpkit.Get(pr, "/{slug}/assertions", h.listByIssuer)
		httpkit.Get(pr, "/{slug}/assertions/changed", h.changed)
	})
}

type handlers struct{ svc svc.Service }

// swagger:route POST /badges/{slug}/assertions Assertions assertionsAward
// @Summary Award a badge
// @Tags Assertions
// @Accept json
// @Produce json
// @Param slug path string true "badge class slug"
// @Param payload body domain.AwardInput true "recipient"
// @Success 201 {object} domain.Assertion "awarded"
// @Failure 409 {string} string "badge class archived"
// @Security BearerAuth
// @Router /badges/{slug}/assertions [post]
func (h *handlers) award(r *stdhttp.Request, in domain.AwardInput) (any, error) {
	if err := httpkit.RequireScope(r, "rw:issuer"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	a, err := h.svc.Award(r.Context(), uid, httpkit.Param(r, "slug"), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(a), nil
}

// swagger:route POST /badges/{slug}/assertions/batch Assertions assertionsAwardBatch
// @Summary Award a badge to many recipients
// @Tags Assertions
// @Accept json
// @Produce json
// @Param slug path string true "badge class slug"
// @Param payload body domain.BatchInput true "recipients, at most 50"
// @Success 202 {object} domain.Batch "accepted for processing"
// @Failure 400 {string} string "batch too large"
// @Security BearerAuth
// @Router /badges/{slug}/assertions/batch [post]
func (h *handlers) awardBatch(r *stdhttp.Request, in domain.BatchInput) (any, error) {
	if err := httpkit.RequireScope(r, "rw:issuer"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	b, err := h.svc.AwardBatch(r.Context(), uid, httpkit.Param(r, "slug"), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Accepted(b), nil
}

// swagger:route GET /batches/{id} Assertions assertionsBatch
// @Summary Batch award status
// @Tags Assertions
// @Produce json
// @Param id path string true "batch id"
// @Success 200 {object} domain.Batch "ok"
// @Security BearerAuth
// @Router /batches/{id} [get]
func (h *handlers) batch(r *stdhttp.Request) (any, error) {
	if err := httpkit.RequireScope(r, "rw:issuer"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Batch(r.Context(), uid, httpkit.Param(r, "id"))
}

// swagger:route PUT /assertions/{id}/revoke Assertions assertionsRevoke
// @Summary Revoke an awarded badge
// @Tags Assertions
// @Accept json
// @Produce json
// @Param id path string true "assertion id"
// @Param payload body domain.RevokeInput true "reason"
// @Success 200 {object} domain.Assertion "revoked"
// @Security BearerAuth
// @Router /assertions/{id}/revoke [put]
func (h *handlers) revoke(r *stdhttp.Request, in domain.RevokeInput) (any, error) {
	if err := httpkit.RequireScope(r, "rw:issuer"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Revoke(r.Context(), uid, httpkit.Param(r, "id"), in)
}

// swagger:route GET /assertions/{id} Assertions assertionsDetail
// @Summary Assertion detail for staff or the recipient
// @Tags Assertions
// @Produce json
// @Param id path string true "assertion id"
// @Success 200 {object} domain.Assertion "ok"
// @Failure 404 {string} string "unknown or not yours"
// @Security BearerAuth
// @Router /assertions/{id} [get]
func (h *handlers) byID(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.ByID(r.Context(), uid, httpkit.Param(r, "id"))
}

// swagger:route GET /badges/{slug}/assertions Assertions assertionsListByBadge
// @Summary List a badge class's assertions
// @Tags Assertions
// @Produce json
// @Param slug path string true "badge class slug"
// @Param recipient query string false "filter by recipient address"
// @Param revoked query boolean false "filter by revocation state"
// @Param page query int false "page number"
// @Param page_size query int false "page size"
// @Success 200 {array} domain.Assertion "ok"
// @Security BearerAuth
// @Router /badges/{slug}/assertions [get]
func (h *handlers) listByBadge(r *stdhttp.Request) (any, error) {
	if err := httpkit.RequireScope(r, "rw:issuer"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	q := listQuery(r)
	items, total, err := h.svc.ListByBadge(r.Context(), uid, httpkit.Param(r, "slug"), q)
	if err != nil {
		return nil, err
	}
	return httpkit.List(items, total, q.Page, q.PageSize, ""), nil
}

// swagger:route GET /issuers/{slug}/assertions Assertions assertionsListByIssuer
// @Summary List an issuer's assertions across badge classes
// @Tags Assertions
// @Produce json
// @Param slug path string true "issuer slug"
// @Param recipient query string false "filter by recipient address"
// @Param revoked query boolean false "filter by revocation state"
// @Param page query int false "page number"
// @Param page_size query int false "page size"
// @Success 200 {array} domain.Assertion "ok"
// @Security BearerAuth
// @Router /issuers/{slug}/assertions [get]
func (h *handlers) listByIssuer(r *stdhttp.Request) (any, error) {
	if err := httpkit.RequireScope(r, "rw:issuer"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	q := listQuery(r)
	items, total, err := h.svc.ListByIssuer(r.Context(), uid, httpkit.Param(r, "slug"), q)
	if err != nil {
		return nil, err
	}
	return httpkit.List(items, total, q.Page, q.PageSize, ""), nil
}

// swagger:route GET /issuers/{slug}/assertions/changed Assertions assertionsChanged
// @Summary Assertions changed since a cutoff
// @Tags Assertions
// @Produce json
// @Param slug path string true "issuer slug"
// @Param since query string false "RFC3339 cutoff, omit for a full resync"
// @Success 200 {object} domain.ChangedFeed "ok"
// @Failure 400 {string} string "cutoff unparseable or past retention"
// @Security BearerAuth
// @Router /issuers/{slug}/assertions/changed [get]
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

func listQuery(r *stdhttp.Request) domain.ListQuery {
	q := domain.ListQuery{
		Recipient: httpkit.Query(r, "recipient", ""),
		Page:      httpkit.QueryInt(r, "page", 1),
		PageSize:  httpkit.QueryInt(r, "page_size", 0),
	}
	if httpkit.HasQuery(r, "revoked") {
		v, err := strconv.ParseBool(httpkit.Query(r, "revoked", ""))
		if err == nil {
			q.Revoked = &v
		}
	}
	return q.Clamped()
}
