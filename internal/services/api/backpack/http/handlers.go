// Package http provides http transport for the backpack
package http

import (
	stdhttp "net/http"
	"strings"

	"badgehub/internal/modkit/httpkit"
	"badgehub/internal/platform/net/middleware"
	"badgehub/internal/services/api/backpack/domain"
	svc "badgehub/internal/services/api/backpack/service"
)

// Register mounts the backpack endpoints, all of them authenticated
func Register(r httpkit.Router, s svc.Service, auth middleware.AuthPort) {
	h := &handlers{svc: s}

	httpkit.Protected(r, auth, func(pr httpkit.Router) {
		httpkit.Get(pr, "/assertions", h.list)
		httpkit.Get(pr, "/assertions/{id}/share", h.shareAssertion)
		httpkit.PutJSON[domain.AcceptanceInput](pr, "/assertions/{id}/acceptance", h.setAcceptance)
		httpkit.Delete(pr, "/assertions/{id}", h.delete)

		httpkit.PostJSON[domain.ImportInput](pr, "/import", h.importBadge)

		httpkit.Get(pr, "/collections", h.collections)
		httpkit.PostJSON[domain.CreateCollectionInput](pr, "/collections", h.createCollection)
		httpkit.Get(pr, "/collections/{slug}", h.collectionBySlug)
		httpkit.PutJSON[domain.UpdateCollectionInput](pr, "/collections/{slug}", h.updateCollection)
		httpkit.Delete(pr, "/collections/{slug}", h.deleteCollection)
		httpkit.Get(pr, "/collections/{slug}/share", h.shareCollection)
	})
}

type handlers struct{ svc svc.Service }

// swagger:route GET /backpack/assertions Backpack backpackList
// @Summary List the caller's earned and imported badges
// @Tags Backpack
// @Produce json
// @Param include_expired query bool false "include expired badges"
// @Param include_revoked query bool false "include revoked badges"
// @Param include_pending query bool false "include badges on unverified addresses"
// @Param expand query string false "comma list of badgeclass,issuer"
// @Success 200 {array} domain.BackpackBadge "ok"
// @Security BearerAuth
// @Router /backpack/assertions [get]
func (h *handlers) list(r *stdhttp.Request) (any, error) {
	if err := httpkit.RequireScope(r, "r:backpack"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}

	q := domain.ListQuery{
		IncludeExpired: httpkit.QueryBool(r, "include_expired"),
		IncludeRevoked: httpkit.QueryBool(r, "include_revoked"),
		IncludePending: httpkit.QueryBool(r, "include_pending"),
	}
	for _, part := range strings.Split(httpkit.Query(r, "expand", ""), ",") {
		switch strings.TrimSpace(part) {
		case "badgeclass":
			q.ExpandBadge = true
		case "issuer":
			q.ExpandIssuer = true
		}
	}
	return h.svc.List(r.Context(), uid, q)
}

// swagger:route PUT /backpack/assertions/{id}/acceptance Backpack backpackAcceptance
// @Summary Accept or reject a badge
// @Tags Backpack
// @Accept json
// @Produce json
// @Param id path string true "badge id"
// @Param payload body domain.AcceptanceInput true "target state"
// @Success 200 {object} domain.BackpackBadge "updated"
// @Failure 409 {string} string "rejected badges cannot be restored"
// @Security BearerAuth
// @Router /backpack/assertions/{id}/acceptance [put]
func (h *handlers) setAcceptance(r *stdhttp.Request, in domain.AcceptanceInput) (any, error) {
	if err := httpkit.RequireScope(r, "rw:backpack"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.SetAcceptance(r.Context(), uid, httpkit.Param(r, "id"), in)
}

// swagger:route DELETE /backpack/assertions/{id} Backpack backpackDelete
// @Summary Remove a badge from the backpack
// @Tags Backpack
// @Produce json
// @Param id path string true "badge id"
// @Success 204 {string} string "removed"
// @Security BearerAuth
// @Router /backpack/assertions/{id} [delete]
func (h *handlers) delete(r *stdhttp.Request) (any, error) {
	if err := httpkit.RequireScope(r, "rw:backpack"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	if err := h.svc.Delete(r.Context(), uid, httpkit.Param(r, "id")); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// swagger:route GET /backpack/assertions/{id}/share Backpack backpackShare
// @Summary Share a badge on a social provider
// @Tags Backpack
// @Produce json
// @Param id path string true "badge id"
// @Param provider query string true "facebook or linkedin"
// @Param redirect query bool false "redirect to the provider, default true"
// @Param include_identifier query bool false "append the recipient identity"
// @Success 200 {object} domain.ShareLink "share url"
// @Success 302 {string} string "redirect to the provider"
// @Security BearerAuth
// @Router /backpack/assertions/{id}/share [get]
func (h *handlers) shareAssertion(r *stdhttp.Request) (any, error) {
	if err := httpkit.RequireScope(r, "r:backpack"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	link, err := h.svc.ShareAssertion(r.Context(), uid, httpkit.Param(r, "id"), shareOptions(r))
	if err != nil {
		return nil, err
	}
	return shareResponse(r, link), nil
}

// swagger:route POST /backpack/import Backpack backpackImport
// @Summary Import an external badge
// @Tags Backpack
// @Accept json
// @Produce json
// @Param payload body domain.ImportInput true "exactly one of url, image, assertion"
// @Success 201 {object} domain.ImportedBadge "imported"
// @Failure 400 {string} string "verification failed"
// @Failure 409 {string} string "already in the backpack"
// @Security BearerAuth
// @Router /backpack/import [post]
func (h *handlers) importBadge(r *stdhttp.Request, in domain.ImportInput) (any, error) {
	if err := httpkit.RequireScope(r, "rw:backpack"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	imported, err := h.svc.Import(r.Context(), uid, in)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(imported), nil
}

// swagger:route GET /backpack/collections Backpack collectionsList
// @Summary List the caller's collections
// @Tags Backpack
// @Produce json
// @Success 200 {array} domain.Collection "ok"
// @Security BearerAuth
// @Router /backpack/collections [get]
func (h *handlers) collections(r *stdhttp.Request) (any, error) {
	if err := httpkit.RequireScope(r, "r:backpack"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Collections(r.Context(), uid)
}

// swagger:route POST /backpack/collections Backpack collectionsCreate
// @Summary Create a collection
// @Tags Backpack
// @Accept json
// @Produce json
// @Param payload body domain.CreateCollectionInput true "collection"
// @Success 201 {object} domain.Collection "created"
// @Security BearerAuth
// @Router /backpack/collections [post]
func (h *handlers) createCollection(r *stdhttp.Request, in domain.CreateCollectionInput) (any, error) {
	if err := httpkit.RequireScope(r, "rw:backpack"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	c, err := h.svc.CreateCollection(r.Context(), uid, in)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(c), nil
}

// swagger:route GET /backpack/collections/{slug} Backpack collectionsDetail
// @Summary Collection detail
// @Tags Backpack
// @Produce json
// @Param slug path string true "collection slug"
// @Success 200 {object} domain.Collection "ok"
// @Security BearerAuth
// @Router /backpack/collections/{slug} [get]
func (h *handlers) collectionBySlug(r *stdhttp.Request) (any, error) {
	if err := httpkit.RequireScope(r, "r:backpack"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.CollectionBySlug(r.Context(), uid, httpkit.Param(r, "slug"))
}

// swagger:route PUT /backpack/collections/{slug} Backpack collectionsUpdate
// @Summary Update a collection
// @Tags Backpack
// @Accept json
// @Produce json
// @Param slug path string true "collection slug"
// @Param payload body domain.UpdateCollectionInput true "changes"
// @Success 200 {object} domain.Collection "updated"
// @Security BearerAuth
// @Router /backpack/collections/{slug} [put]
func (h *handlers) updateCollection(r *stdhttp.Request, in domain.UpdateCollectionInput) (any, error) {
	if err := httpkit.RequireScope(r, "rw:backpack"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.UpdateCollection(r.Context(), uid, httpkit.Param(r, "slug"), in)
}

// swagger:route DELETE /backpack/collections/{slug} Backpack collectionsDelete
// @Summary Delete a collection
// @Tags Backpack
// @Produce json
// @Param slug path string true "collection slug"
// @Success 204 {string} string "deleted"
// @Security BearerAuth
// @Router /backpack/collections/{slug} [delete]
func (h *handlers) deleteCollection(r *stdhttp.Request) (any, error) {
	if err := httpkit.RequireScope(r, "rw:backpack"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	if err := h.svc.DeleteCollection(r.Context(), uid, httpkit.Param(r, "slug")); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// swagger:route GET /backpack/collections/{slug}/share Backpack collectionsShare
// @Summary Share a published collection on a social provider
// @Tags Backpack
// @Produce json
// @Param slug path string true "collection slug"
// @Param provider query string true "facebook or linkedin"
// @Param redirect query bool false "redirect to the provider, default true"
// @Success 200 {object} domain.ShareLink "share url"
// @Success 302 {string} string "redirect to the provider"
// @Failure 409 {string} string "collection is not published"
// @Security BearerAuth
// @Router /backpack/collections/{slug}/share [get]
func (h *handlers) shareCollection(r *stdhttp.Request) (any, error) {
	if err := httpkit.RequireScope(r, "r:backpack"); err != nil {
		return nil, err
	}
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	link, err := h.svc.ShareCollection(r.Context(), uid, httpkit.Param(r, "slug"), shareOptions(r))
	if err != nil {
		return nil, err
	}
	return shareResponse(r, link), nil
}

func shareOptions(r *stdhttp.Request) domain.ShareOptions {
	return domain.ShareOptions{
		Provider:          strings.ToLower(httpkit.Query(r, "provider", "")),
		IncludeIdentifier: httpkit.QueryBool(r, "include_identifier"),
	}
}

// shareResponse redirects to the provider unless redirect=false asked for the
// bare url
func shareResponse(r *stdhttp.Request, link domain.ShareLink) any {
	if httpkit.HasQuery(r, "redirect") && !httpkit.QueryBool(r, "redirect") {
		return link
	}
	return httpkit.Response{
		Status: stdhttp.StatusFound,
		Header: stdhttp.Header{"Location": []string{link.URL}},
		Body:   link,
	}
}
