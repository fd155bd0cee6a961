package http

import (
	"net/http/httptest"
	"testing"
)

func TestQueryHelpers(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/x?limit=25&q=%20go%20&flag=TRUE&bad=abc&empty=", nil)

	if got := Query(r, "q", "def"); got != "go" {
		t.Fatalf("Query trims to %q", got)
	}
	if got := Query(r, "missing", "def"); got != "def" {
		t.Fatalf("Query default = %q", got)
	}
	if got := Query(r, "empty", "def"); got != "def" {
		t.Fatalf("Query empty = %q", got)
	}

	if got := QueryInt(r, "limit", 10); got != 25 {
		t.Fatalf("QueryInt = %d", got)
	}
	if got := QueryInt(r, "bad", 10); got != 10 {
		t.Fatalf("QueryInt bad = %d", got)
	}
	if got := QueryInt(r, "missing", 10); got != 10 {
		t.Fatalf("QueryInt missing = %d", got)
	}

	if !QueryBool(r, "flag") {
		t.Fatal("QueryBool TRUE = false")
	}
	if QueryBool(r, "bad") || QueryBool(r, "missing") {
		t.Fatal("QueryBool accepted a non boolean")
	}

	if !HasQuery(r, "empty") {
		t.Fatal("HasQuery empty = false")
	}
	if HasQuery(r, "missing") {
		t.Fatal("HasQuery missing = true")
	}
}
