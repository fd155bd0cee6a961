package httpkit

import (
	"net/http"

	phttp "badgehub/internal/platform/net/http"
)

// Param returns a path parameter from the route context
func Param(r *http.Request, name string) string { return phttp.Param(r, name) }

// Query returns a query parameter, or def when absent or empty
func Query(r *http.Request, name, def string) string { return phttp.Query(r, name, def) }

// QueryInt returns an integer query parameter, or def when absent or unparseable
func QueryInt(r *http.Request, name string, def int) int { return phttp.QueryInt(r, name, def) }

// QueryBool reads a boolean query parameter, accepting 1, true and yes
func QueryBool(r *http.Request, name string) bool { return phttp.QueryBool(r, name) }

// HasQuery reports whether the parameter is present at all
func HasQuery(r *http.Request, name string) bool { return phttp.HasQuery(r, name) }
