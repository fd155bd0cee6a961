package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Param returns a path parameter from the chi route context
func Param(r *http.Request, name string) string { return chi.URLParam(r, name) }

// Query returns a query parameter, or def when absent or empty
func Query(r *http.Request, name, def string) string {
	if v := strings.TrimSpace(r.URL.Query().Get(name)); v != "" {
		return v
	}
	return def
}

// QueryInt returns an integer query parameter, or def when absent or unparseable
func QueryInt(r *http.Request, name string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// QueryBool reads a boolean query parameter, accepting 1, true and yes
func QueryBool(r *http.Request, name string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name))) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// HasQuery reports whether the parameter is present at all
func HasQuery(r *http.Request, name string) bool {
	_, ok := r.URL.Query()[name]
	return ok
}
