// Package http provides http transport for user accounts
package http

import (
	stdhttp "net/http"

	"badgehub/internal/modkit/httpkit"
	"badgehub/internal/platform/net/middleware"
	"badgehub/internal/services/api/users/domain"
	svc "badgehub/internal/services/api/users/service"
)

// Register mounts user endpoints on the given router
func Register(r httpkit.Router, s svc.Service, auth middleware.AuthPort) {
	h := &handlers{svc: s}

	// open registration
	httpkit.PostJSON[domain.RegisterInput](r, "/", h.register)

	httpkit.Protected(r, auth, func(pr httpkit.Router) {
		httpkit.Get(pr, "/self", h.profile)
		httpkit.PutJSON[domain.UpdateProfileInput](pr, "/self", h.update)

		httpkit.PostJSON[domain.AddEmailInput](pr, "/self/emails", h.addEmail)
		httpkit.Post(pr, "/self/emails/{id}/verify", h.verifyEmail)
		httpkit.Put(pr, "/self/emails/{id}/primary", h.makePrimary)
		httpkit.Delete(pr, "/self/emails/{id}", h.deleteEmail)
	})
}

type handlers struct{ svc svc.Service }

// swagger:route POST /users Users usersRegister
// @Summary Register an account
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body domain.RegisterInput true "Account"
// @Success 201 {object} domain.Profile "created"
// @Failure 409 {string} string "email already registered"
// @Router /users [post]
func (h *handlers) register(r *stdhttp.Request, in domain.RegisterInput) (any, error) {
	p, err := h.svc.Register(r.Context(), in)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(p), nil
}

// swagger:route GET /users/self Users usersProfile
// @Summary Current account profile
// @Tags Users
// @Produce json
// @Success 200 {object} domain.Profile "ok"
// @Security BearerAuth
// @Router /users/self [get]
func (h *handlers) profile(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Profile(r.Context(), uid)
}

// swagger:route PUT /users/self Users usersUpdate
// @Summary Update the current profile
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body domain.UpdateProfileInput true "Changes"
// @Success 200 {object} domain.Profile "ok"
// @Security BearerAuth
// @Router /users/self [put]
func (h *handlers) update(r *stdhttp.Request, in domain.UpdateProfileInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.UpdateProfile(r.Context(), uid, in)
}

// swagger:route POST /users/self/emails Users usersAddEmail
// @Summary Attach a secondary email
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body domain.AddEmailInput true "Address"
// @Success 201 {object} domain.Email "created"
// @Security BearerAuth
// @Router /users/self/emails [post]
func (h *handlers) addEmail(r *stdhttp.Request, in domain.AddEmailInput) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	e, err := h.svc.AddEmail(r.Context(), uid, in)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(e), nil
}

// swagger:route POST /users/self/emails/{id}/verify Users usersVerifyEmail
// @Summary Mark an email as verified
// @Tags Users
// @Produce json
// @Param id path string true "Email id"
// @Success 200 {object} domain.Email "ok"
// @Security BearerAuth
// @Router /users/self/emails/{id}/verify [post]
func (h *handlers) verifyEmail(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.VerifyEmail(r.Context(), uid, httpkit.Param(r, "id"))
}

// swagger:route PUT /users/self/emails/{id}/primary Users usersMakePrimary
// @Summary Swap the primary email
// @Tags Users
// @Produce json
// @Param id path string true "Email id"
// @Success 200 {object} domain.Email "ok"
// @Failure 422 {string} string "unverified email"
// @Security BearerAuth
// @Router /users/self/emails/{id}/primary [put]
func (h *handlers) makePrimary(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.MakePrimary(r.Context(), uid, httpkit.Param(r, "id"))
}

// swagger:route DELETE /users/self/emails/{id} Users usersDeleteEmail
// @Summary Remove a secondary email
// @Tags Users
// @Produce json
// @Param id path string true "Email id"
// @Success 204 {string} string "deleted"
// @Security BearerAuth
// @Router /users/self/emails/{id} [delete]
func (h *handlers) deleteEmail(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	if err := h.svc.DeleteEmail(r.Context(), uid, httpkit.Param(r, "id")); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}
