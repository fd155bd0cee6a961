// Package http provides the anonymous public surface. The Open Badges
// documents ship raw as application/ld+json, only the shared collection
// view goes through the envelope
package http

import (
	stdhttp "net/http"
	"strings"

	"badgehub/internal/modkit/httpkit"
	phttp "badgehub/internal/platform/net/http"
	bdomain "badgehub/internal/services/api/backpack/domain"
	"badgehub/internal/services/api/public/domain"
	svc "badgehub/internal/services/api/public/service"
)

// Register mounts the public routes. No auth, external verifiers and
// search crawlers hit these
func Register(r httpkit.Router, s svc.Service, collections bdomain.PublicPort) {
	h := &handlers{svc: s, collections: collections}

	r.Get("/issuers/{slug}", h.issuer)
	r.Get("/badges/{slug}", h.badge)
	r.Get("/assertions/{id}", h.assertion)

	httpkit.Get(r, "/collections/{hash}", h.collection)
}

type handlers struct {
	svc         svc.Service
	collections bdomain.PublicPort
}

// swagger:route GET /public/issuers/{slug} Public publicIssuer
// @Summary Hosted OB2 issuer profile
// @Tags Public
// @Produce json
// @Param slug path string true "issuer slug"
// @Success 200 {object} domain.IssuerDoc "issuer profile document"
// @Router /public/issuers/{slug} [get]
func (h *handlers) issuer(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	doc, err := h.svc.Issuer(r.Context(), httpkit.Param(r, "slug"))
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	phttp.JSONLD(w, stdhttp.StatusOK, doc)
}

// swagger:route GET /public/badges/{slug} Public publicBadge
// @Summary Hosted OB2 badgeclass document
// @Tags Public
// @Produce json
// @Param slug path string true "badge class slug"
// @Success 200 {object} domain.BadgeDoc "badgeclass document"
// @Router /public/badges/{slug} [get]
func (h *handlers) badge(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	doc, err := h.svc.Badge(r.Context(), httpkit.Param(r, "slug"))
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	phttp.JSONLD(w, stdhttp.StatusOK, doc)
}

// swagger:route GET /public/assertions/{id} Public publicAssertion
// @Summary Hosted OB2 assertion document
// @Tags Public
// @Produce json
// @Param id path string true "assertion id"
// @Param expand query string false "comma list of badge,badge.issuer"
// @Success 200 {object} domain.AssertionDoc "assertion document"
// @Failure 410 {object} domain.RevocationDoc "revocation stub"
// @Router /public/assertions/{id} [get]
func (h *handlers) assertion(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	res, err := h.svc.Assertion(r.Context(), httpkit.Param(r, "id"),
		parseExpand(httpkit.Query(r, "expand", "")))
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	if res.Gone != nil {
		phttp.JSONLD(w, stdhttp.StatusGone, res.Gone)
		return
	}
	phttp.JSONLD(w, stdhttp.StatusOK, res.Doc)
}

// swagger:route GET /public/collections/{hash} Public publicCollection
// @Summary Shared backpack collection
// @Tags Public
// @Produce json
// @Param hash path string true "share hash"
// @Success 200 {object} bdomain.PublicCollection "shared collection"
// @Router /public/collections/{hash} [get]
func (h *handlers) collection(r *stdhttp.Request) (any, error) {
	return h.collections.CollectionByHash(r.Context(), httpkit.Param(r, "hash"))
}

// parseExpand reads the expand list, badge.issuer implies badge
func parseExpand(raw string) domain.Expand {
	var ex domain.Expand
	for _, part := range strings.Split(raw, ",") {
		switch strings.TrimSpace(part) {
		case "badge":
			ex.Badge = true
		case "badge.issuer":
			ex.Badge = true
			ex.BadgeIssuer = true
		}
	}
	return ex
}
