package httpkit

import (
	"net/http"

	perrs "badgehub/internal/platform/errors"
	pnet "badgehub/internal/platform/net"
)

// RequireScopes is middleware that rejects requests whose token lacks any of
// the given scopes. Mount inside a Protected group so scopes are on context.
func RequireScopes(write func(w http.ResponseWriter, status int, body any), scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, s := range scopes {
				if !pnet.HasScope(r.Context(), s) {
					status, body := pnet.Error(perrs.Forbiddenf("missing scope %s", s), pnet.RequestID(r.Context()))
					write(w, status, body)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
