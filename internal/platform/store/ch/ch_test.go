package ch

import (
	"context"
	"strings"
	"testing"
)

// TestOpen_EmptyURL rejects a blank DSN before dialing
func TestOpen_EmptyURL(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{URL: "   "})
	if err == nil {
		t.Fatalf("Open expected error for empty URL")
	}
}

// TestOpen_BadDSN surfaces the parse error
func TestOpen_BadDSN(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Config{URL: "://not-a-dsn"})
	if err == nil {
		t.Fatalf("Open expected error for malformed DSN")
	}
	if !strings.Contains(err.Error(), "parse dsn") {
		t.Fatalf("Open error = %v, want parse dsn failure", err)
	}
}

// TestInsert_NoRows is a no op and never touches the connection
func TestInsert_NoRows(t *testing.T) {
	t.Parallel()

	cl := &CH{}
	if err := cl.Insert(context.Background(), "badge_events", nil); err != nil {
		t.Fatalf("Insert with no rows returned error: %v", err)
	}
}

// TestBuildClientInfo tags the process with product and role
func TestBuildClientInfo(t *testing.T) {
	t.Parallel()

	info := BuildClientInfo("api", "v1.2.3")
	if len(info.Products) == 0 {
		t.Fatalf("BuildClientInfo returned no products")
	}
	if info.Products[0].Name != "badgehub" || info.Products[0].Version != "v1.2.3" {
		t.Fatalf("unexpected product header: %+v", info.Products[0])
	}

	var role string
	for _, p := range info.Products {
		if p.Name == "role" {
			role = p.Version
		}
	}
	if role != "api" {
		t.Fatalf("role product = %q, want %q", role, "api")
	}
}
