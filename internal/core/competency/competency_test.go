package competency

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestAreaKey(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Digital Marketing", "digital_marketing"},
		{"Web-Development", "web_development"},
		{"  Projekt Management  ", "projekt_management"},
		{"general", "general"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := AreaKey(tc.in); got != tc.want {
			t.Fatalf("AreaKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFold(t *testing.T) {
	if got := Fold("Ökologie"); got != Fold("ökologie") {
		t.Fatalf("case fold mismatch: %q vs %q", got, Fold("ökologie"))
	}
	// NFKC recomposes combining marks so both spellings agree
	if got := Fold("Ökologie"); got != Fold("Ökologie") {
		t.Fatalf("decomposed form mismatch: %q vs %q", got, Fold("Ökologie"))
	}
	if got := Fold("  Digital  Marketing "); got != "digital  marketing" {
		t.Fatalf("Fold trims edges only, got %q", got)
	}
	if got := Fold(""); got != "" {
		t.Fatalf("Fold(\"\") = %q", got)
	}
}

func TestParseExtension(t *testing.T) {
	raw := []byte(`[{"name":"Digital Marketing","studyLoad":120,"description":"x"},{"name":"SEO"}]`)
	comps, err := ParseExtension(raw)
	if err != nil {
		t.Fatalf("ParseExtension: %v", err)
	}
	if len(comps) != 2 {
		t.Fatalf("len = %d", len(comps))
	}
	if comps[0].Name != "Digital Marketing" || comps[0].StudyLoad != 120 {
		t.Fatalf("first = %+v", comps[0])
	}

	one, err := ParseExtension([]byte(`{"name":"Solo Skill","studyLoad":30}`))
	if err != nil {
		t.Fatalf("ParseExtension bare object: %v", err)
	}
	if len(one) != 1 || one[0].Name != "Solo Skill" {
		t.Fatalf("bare object = %+v", one)
	}

	if _, err := ParseExtension([]byte(`broken`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestAreasFromExtensions(t *testing.T) {
	payloads := [][]byte{
		[]byte(`[{"name":"Digital Marketing","studyLoad":60}]`),
		[]byte(`[{"name":"digital marketing"},{"name":"Web Development"}]`),
		[]byte(`broken`),
		[]byte(`[{"name":""}]`),
	}
	areas := AreasFromExtensions(payloads)
	if len(areas) != 2 {
		t.Fatalf("areas = %v", areas)
	}
	// first spelling wins for the shared key
	if got := areas["digital_marketing"].DisplayName; got != "Digital Marketing" {
		t.Fatalf("displayName = %q", got)
	}
	if _, ok := areas["web_development"]; !ok {
		t.Fatalf("web_development missing: %v", areas)
	}
}

func TestHours(t *testing.T) {
	cases := []struct {
		minutes, badges, want int64
	}{
		{120, 5, 2},
		{90, 5, 2},  // rounds 1.5 up
		{89, 5, 1},  // rounds 1.48 down
		{0, 5, 20},  // estimate 4h per badge
		{-10, 3, 12},
		{0, 0, 0},
	}
	for _, tc := range cases {
		if got := Hours(tc.minutes, tc.badges); got != tc.want {
			t.Fatalf("Hours(%d,%d) = %d, want %d", tc.minutes, tc.badges, got, tc.want)
		}
	}
}

func TestPercentage(t *testing.T) {
	if got := Percentage(3, 23); got != 13.04 {
		t.Fatalf("Percentage(3,23) = %v, want 13.04", got)
	}
	if got := Percentage(1, 12); got != 8.33 {
		t.Fatalf("Percentage(1,12) = %v, want 8.33", got)
	}
	if got := Percentage(5, 0); got != 0 {
		t.Fatalf("Percentage(5,0) = %v, want 0", got)
	}
	if got := Percentage1(1, 3); got != 33.3 {
		t.Fatalf("Percentage1(1,3) = %v, want 33.3", got)
	}
}

func TestClassify(t *testing.T) {
	cat, err := LoadEmbeddedCatalog()
	if err != nil {
		t.Fatalf("LoadEmbeddedCatalog: %v", err)
	}

	tags := cat.Classify("Social Media Strategy Badge")
	if len(tags) != 1 || tags[0].ID != "digital_marketing" {
		t.Fatalf("tags = %+v", tags)
	}

	tags = cat.Classify("Intro to HTML and CSS")
	if len(tags) != 1 || tags[0].ID != "web_development" {
		t.Fatalf("tags = %+v", tags)
	}

	tags = cat.Classify("Agile Project Leadership")
	if len(tags) != 1 || tags[0].ID != "project_management" {
		t.Fatalf("tags = %+v", tags)
	}

	// overlapping keywords tag every matching area
	tags = cat.Classify("Web Marketing")
	if len(tags) != 2 {
		t.Fatalf("tags = %+v", tags)
	}

	tags = cat.Classify("Beekeeping basics")
	if len(tags) != 1 || tags[0].ID != "general" {
		t.Fatalf("fallback tags = %+v", tags)
	}
	if tags[0].NameKey != "competency.name.general" {
		t.Fatalf("fallback nameKey = %q", tags[0].NameKey)
	}
}

func TestLoadCatalogRejectsEmpty(t *testing.T) {
	if _, err := LoadCatalog(strings.NewReader("rules: []\n")); err == nil {
		t.Fatal("expected error for empty rules")
	}
	if _, err := LoadCatalog(strings.NewReader(":::bad")); err == nil {
		t.Fatal("expected error for bad yaml")
	}
}

func TestMatchArea(t *testing.T) {
	areas := map[string]Area{
		"bienenhaus":        {NameKey: "competency.area.bienenhaus", DisplayName: "Bienenhaus"},
		"digital_marketing": {NameKey: "Digital Marketing", DisplayName: "Digital Marketing"},
		"web_development":   {NameKey: "Web Development", DisplayName: "Web Development"},
	}

	// exact key
	if k, ok := MatchArea("digital_marketing", areas); !ok || k != "digital_marketing" {
		t.Fatalf("exact match = %q %v", k, ok)
	}
	// hyphen and case variants normalize to the key
	if k, ok := MatchArea("Digital-Marketing", areas); !ok || k != "digital_marketing" {
		t.Fatalf("normalized match = %q %v", k, ok)
	}
	// display name
	if k, ok := MatchArea("Web Development", areas); !ok || k != "web_development" {
		t.Fatalf("display match = %q %v", k, ok)
	}
	// nameKey suffix
	if k, ok := MatchArea("bienenhaus", areas); !ok || k != "bienenhaus" {
		t.Fatalf("suffix match = %q %v", k, ok)
	}
	// substring
	if k, ok := MatchArea("marketing", areas); !ok || k != "digital_marketing" {
		t.Fatalf("contains match = %q %v", k, ok)
	}
	// miss
	if _, ok := MatchArea("astrophysics", areas); ok {
		t.Fatal("expected no match")
	}
	if _, ok := MatchArea("", areas); ok {
		t.Fatal("expected no match for empty input")
	}
}

func TestAvailableAreas(t *testing.T) {
	areas := map[string]Area{}
	for _, k := range []string{"c", "a", "b", "d"} {
		areas[k] = Area{DisplayName: k}
	}
	got := AvailableAreas(areas, 3)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("AvailableAreas = %v", got)
	}
	if got := AvailableAreas(areas, 0); len(got) != 4 {
		t.Fatalf("unlimited = %v", got)
	}
}

func TestAreaCache(t *testing.T) {
	loads := 0
	cache := NewAreaCache(func(context.Context) (map[string]Area, error) {
		loads++
		return map[string]Area{"x": {DisplayName: "X"}}, nil
	}, time.Hour)

	now := time.Unix(1000, 0)
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	if _, err := cache.Areas(ctx); err != nil {
		t.Fatalf("Areas: %v", err)
	}
	if _, err := cache.Areas(ctx); err != nil {
		t.Fatalf("Areas: %v", err)
	}
	if loads != 1 {
		t.Fatalf("loads = %d, want 1", loads)
	}

	// expiry triggers a reload
	now = now.Add(2 * time.Hour)
	if _, err := cache.Areas(ctx); err != nil {
		t.Fatalf("Areas: %v", err)
	}
	if loads != 2 {
		t.Fatalf("loads = %d, want 2", loads)
	}

	// invalidate forces reload regardless of expiry
	cache.Invalidate()
	if _, err := cache.Areas(ctx); err != nil {
		t.Fatalf("Areas: %v", err)
	}
	if loads != 3 {
		t.Fatalf("loads = %d, want 3", loads)
	}
}

func TestAreaCacheServesStaleOnError(t *testing.T) {
	healthy := true
	cache := NewAreaCache(func(context.Context) (map[string]Area, error) {
		if healthy {
			return map[string]Area{"x": {DisplayName: "X"}}, nil
		}
		return nil, errors.New("db down")
	}, time.Hour)

	now := time.Unix(1000, 0)
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	if _, err := cache.Areas(ctx); err != nil {
		t.Fatalf("Areas: %v", err)
	}

	healthy = false
	now = now.Add(2 * time.Hour)
	areas, err := cache.Areas(ctx)
	if err != nil {
		t.Fatalf("expected stale data, got error %v", err)
	}
	if len(areas) != 1 {
		t.Fatalf("stale areas = %v", areas)
	}

	// a cold cache surfaces the error
	cold := NewAreaCache(func(context.Context) (map[string]Area, error) {
		return nil, errors.New("db down")
	}, time.Hour)
	if _, err := cold.Areas(ctx); err == nil {
		t.Fatal("expected error from cold cache")
	}
}

func TestAreaCacheRefresh(t *testing.T) {
	val := "old"
	cache := NewAreaCache(func(context.Context) (map[string]Area, error) {
		return map[string]Area{"k": {DisplayName: val}}, nil
	}, time.Hour)

	ctx := context.Background()
	if _, err := cache.Areas(ctx); err != nil {
		t.Fatalf("Areas: %v", err)
	}

	val = "new"
	if err := cache.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	areas, err := cache.Areas(ctx)
	if err != nil {
		t.Fatalf("Areas: %v", err)
	}
	if areas["k"].DisplayName != "new" {
		t.Fatalf("refresh not applied: %v", areas)
	}
}
