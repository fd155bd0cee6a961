// Package http provides http transport for issuers, staff, and networks
package http

import (
	stdhttp "net/http"
	"strconv"

	"badgehub/internal/modkit/httpkit"
	"badgehub/internal/platform/net/middleware"
	"badgehub/internal/services/api/issuers/domain"
	svc "badgehub/internal/services/api/issuers/service"
)

// Register mounts issuer endpoints on the given router
func Register(r httpkit.Router, s svc.Service, auth middleware.AuthPort) {
	h := &handlers{svc: s}

	// public index and detail
	httpkit.Get(r, "/", h.list)
	httpkit.Get(r, "/{slug}", h.bySlug)

	httpkit.Protected(r, auth, func(pr httpkit.Router) {
		httpkit.PostJSON[domain.CreateIssuerInput](pr, "/", h.create)
		httpkit.PutJSON[domain.UpdateIssuerInput](pr, "/{slug}", h.update)
		httpkit.Delete(pr, "/{slug}", h.delete)

		httpkit.Get(pr, "/{slug}/staff", h.staff)
		httpkit.PostJSON[domain.AddStaffInput](pr, "/{slug}/staff", h.addStaff)
		httpkit.Delete(pr, "/{slug}/staff/{user}", h.removeStaff)

		httpkit.Get(pr, "/{slug}/members", h.members)
		httpkit.PostJSON[domain.InviteMemberInput](pr, "/{slug}/members", h.inviteMember)
		httpkit.PutJSON[domain.DecideMembershipInput](pr, "/{slug}/members/{member}", h.decideMembership)
	})
}

type handlers struct{ svc svc.Service }

// swagger:route GET /issuers Issuers issuersList
// @Summary List issuers
// @Tags Issuers
// @Produce json
// @Param category query string false "filter by category"
// @Param verified query boolean false "filter by verified flag"
// @Param q query string false "name search"
// @Param page query int false "page number"
// @Param page_size query int false "page size"
// @Success 200 {array} domain.Issuer "ok"
// @Router /issuers [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	q := domain.ListQuery{
		Category: httpkit.Query(r, "category", ""),
		Q:        httpkit.Query(r, "q", ""),
		Page:     httpkit.QueryInt(r, "page", 1),
		PageSize: httpkit.QueryInt(r, "page_size", 0),
	}
	if httpkit.HasQuery(r, "verified") {
		v, err := strconv.ParseBool(httpkit.Query(r, "verified", ""))
		if err == nil {
			q.Verified = &v
		}
	}
	q = q.Clamped()

	items, total, err := h.svc.List(r.Context(), q)
	if err != nil {
		return nil, err
	}
	return httpkit.List(items, total, q.Page, q.PageSize, ""), nil
}

// swagger:route GET /issuers/{slug} Issuers issuersDetail
// @Summary Issuer detail
// @Tags Issuers
// @Produce json
// @Param slug path string true "issuer slug"
// @Success 200 {object} domain.Issuer "ok"
// @Failure 404 {string} string "unknown issuer"
// @Router /issuers/{slug} [get]
func (h *handlers) bySlug(r *stdhttp.Request) (any, error) {
	return h.svc.BySlug(r.Context(), httpkit.Param(r, "slug"))
}

// swagger:route POST /issuers Issuers issuersCreate
// @Summary Register an issuer
// @Tags Issuers
// @Accept json
// @Produce json
// @Param payload body domain.CreateIssuerInput true "Issuer"
// @Success 201 {object} domain.Issuer "created"
// @Security BearerAuth
// @Router /issuers [post]
func (h *handlers) create(r *stdhttp.Request, in domain.CreateIssuerInput) (any, error) {
	if err := httpkit.RequireScope(r, "rw:issuer"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	iss, err := h.svc.Create(r.Context(), uid, in)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(iss), nil
}

// swagger:route PUT /issuers/{slug} Issuers issuersUpdate
// @Summary Update an issuer
// @Tags Issuers
// @Accept json
// @Produce json
// @Param slug path string true "issuer slug"
// @Param payload body domain.UpdateIssuerInput true "Fields to change"
// @Success 200 {object} domain.Issuer "ok"
// @Security BearerAuth
// @Router /issuers/{slug} [put]
func (h *handlers) update(r *stdhttp.Request, in domain.UpdateIssuerInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Update(r.Context(), uid, httpkit.Param(r, "slug"), in)
}

// swagger:route DELETE /issuers/{slug} Issuers issuersDelete
// @Summary Delete an issuer
// @Tags Issuers
// @Param slug path string true "issuer slug"
// @Success 204 {string} string "deleted"
// @Failure 409 {string} string "live badge instances exist"
// @Security BearerAuth
// @Router /issuers/{slug} [delete]
func (h *handlers) delete(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	if err := h.svc.Delete(r.Context(), uid, httpkit.Param(r, "slug")); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// swagger:route GET /issuers/{slug}/staff Issuers issuersStaff
// @Summary List issuer staff
// @Tags Issuers
// @Produce json
// @Param slug path string true "issuer slug"
// @Success 200 {array} domain.StaffMember "ok"
// @Security BearerAuth
// @Router /issuers/{slug}/staff [get]
func (h *handlers) staff(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Staff(r.Context(), uid, httpkit.Param(r, "slug"))
}

// swagger:route POST /issuers/{slug}/staff Issuers issuersAddStaff
// @Summary Grant a staff role
// @Tags Issuers
// @Accept json
// @Produce json
// @Param slug path string true "issuer slug"
// @Param payload body domain.AddStaffInput true "Grant"
// @Success 201 {object} domain.StaffMember "granted"
// @Security BearerAuth
// @Router /issuers/{slug}/staff [post]
func (h *handlers) addStaff(r *stdhttp.Request, in domain.AddStaffInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	m, err := h.svc.AddStaff(r.Context(), uid, httpkit.Param(r, "slug"), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(m), nil
}

// swagger:route DELETE /issuers/{slug}/staff/{user} Issuers issuersRemoveStaff
// @Summary Revoke a staff role
// @Tags Issuers
// @Param slug path string true "issuer slug"
// @Param user path string true "user id"
// @Success 204 {string} string "revoked"
// @Security BearerAuth
// @Router /issuers/{slug}/staff/{user} [delete]
func (h *handlers) removeStaff(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	if err := h.svc.RemoveStaff(r.Context(), uid, httpkit.Param(r, "slug"), httpkit.Param(r, "user")); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// swagger:route GET /issuers/{slug}/members Issuers issuersMembers
// @Summary List network members
// @Tags Networks
// @Produce json
// @Param slug path string true "network slug"
// @Success 200 {array} domain.Membership "ok"
// @Security BearerAuth
// @Router /issuers/{slug}/members [get]
func (h *handlers) members(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Members(r.Context(), uid, httpkit.Param(r, "slug"))
}

// swagger:route POST /issuers/{slug}/members Issuers issuersInviteMember
// @Summary Invite an institution into a network
// @Tags Networks
// @Accept json
// @Produce json
// @Param slug path string true "network slug"
// @Param payload body domain.InviteMemberInput true "Member"
// @Success 201 {object} domain.Membership "invited"
// @Failure 422 {string} string "not a network"
// @Security BearerAuth
// @Router /issuers/{slug}/members [post]
func (h *handlers) inviteMember(r *stdhttp.Request, in domain.InviteMemberInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	m, err := h.svc.InviteMember(r.Context(), uid, httpkit.Param(r, "slug"), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(m), nil
}

// swagger:route PUT /issuers/{slug}/members/{member} Issuers issuersDecideMembership
// @Summary Accept or reject a network invitation
// @Tags Networks
// @Accept json
// @Produce json
// @Param slug path string true "network slug"
// @Param member path string true "member slug"
// @Param payload body domain.DecideMembershipInput true "Decision"
// @Success 200 {object} domain.Membership "ok"
// @Security BearerAuth
// @Router /issuers/{slug}/members/{member} [put]
func (h *handlers) decideMembership(r *stdhttp.Request, in domain.DecideMembershipInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.DecideMembership(r.Context(), uid, httpkit.Param(r, "slug"), httpkit.Param(r, "member"), in)
}
