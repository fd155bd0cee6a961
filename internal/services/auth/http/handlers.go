// Package http provides http transport for auth
package http

import (
	stdhttp "net/http"

	"badgehub/internal/modkit/httpkit"
	"badgehub/internal/services/auth/domain"
	svc "badgehub/internal/services/auth/service"
)

// Register mounts auth endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	// password grant
	httpkit.PostJSON[domain.TokenInput](r, "/token", h.token)

	// re-issue from a still valid bearer token
	httpkit.Post(r, "/token/refresh", h.refresh)
}

type handlers struct{ svc svc.Service }

// swagger:route POST /auth/token Auth authToken
// @Summary Exchange email and password for an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body domain.TokenInput true "Credentials"
// @Success 200 {object} domain.TokenOut "ok"
// @Failure 401 {string} string "invalid credentials"
// @Router /auth/token [post]
func (h *handlers) token(r *stdhttp.Request, in domain.TokenInput) (any, error) {
	return h.svc.Token(r.Context(), in)
}

// swagger:route POST /auth/token/refresh Auth authRefresh
// @Summary Refresh an access token
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.TokenOut "ok"
// @Failure 401 {string} string "invalid or expired token"
// @Router /auth/token/refresh [post]
func (h *handlers) refresh(r *stdhttp.Request) (any, error) {
	raw, err := httpkit.JWT(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Refresh(r.Context(), raw)
}
