package region

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"badgehub/internal/platform/logger"
)

func mustEmbedded(t *testing.T) *Dataset {
	t.Helper()
	d, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded: %v", err)
	}
	return d
}

func TestLandkreisByPLZ3(t *testing.T) {
	d := mustEmbedded(t)

	if got := d.LandkreisByPLZ3("101"); got != "Berlin" {
		t.Fatalf("LandkreisByPLZ3(101) = %q, want Berlin", got)
	}
	if got := d.LandkreisByPLZ3("803"); got != "München" {
		t.Fatalf("LandkreisByPLZ3(803) = %q, want München", got)
	}
	if got := d.LandkreisByPLZ3("999"); got != "" {
		t.Fatalf("LandkreisByPLZ3(999) = %q, want empty", got)
	}
	if got := d.LandkreisByPLZ3("1"); got != "" {
		t.Fatalf("LandkreisByPLZ3(1) = %q, want empty", got)
	}
}

func TestPLZForLandkreis(t *testing.T) {
	d := mustEmbedded(t)

	berlin := d.PLZForLandkreis("Berlin")
	if len(berlin) <= 10 {
		t.Fatalf("Berlin has %d codes, want more than 10", len(berlin))
	}
	found := false
	for _, p := range berlin {
		if p == "10115" {
			found = true
		}
		if !strings.HasPrefix(p, "10") {
			t.Fatalf("unexpected Berlin plz %q", p)
		}
	}
	if !found {
		t.Fatalf("10115 missing from Berlin list %v", berlin)
	}

	if got := d.PLZForLandkreis("NonexistentDistrict"); len(got) != 0 {
		t.Fatalf("unknown district returned %v", got)
	}

	// case-insensitive
	if got := d.PLZForLandkreis("bErLiN"); len(got) != len(berlin) {
		t.Fatalf("case-insensitive lookup returned %d codes, want %d", len(got), len(berlin))
	}
}

func TestPLZForOrt(t *testing.T) {
	d := mustEmbedded(t)

	muc := d.PLZForOrt("München")
	has := func(want string) bool {
		for _, p := range muc {
			if p == want {
				return true
			}
		}
		return false
	}
	if !has("80331") || !has("80335") {
		t.Fatalf("München list %v missing 80331/80335", muc)
	}

	upper := d.PLZForOrt("MÜNCHEN")
	lower := d.PLZForOrt("münchen")
	sort.Strings(upper)
	sort.Strings(lower)
	if len(upper) != len(muc) || len(lower) != len(muc) {
		t.Fatalf("case variants disagree: %d/%d/%d", len(upper), len(lower), len(muc))
	}

	if got := d.PLZForOrt("NonexistentCity"); len(got) != 0 {
		t.Fatalf("unknown city returned %v", got)
	}
	if got := d.PLZForOrt(""); len(got) != 0 {
		t.Fatalf("empty city returned %v", got)
	}
}

func TestOrtAndBundeslandByPLZ(t *testing.T) {
	d := mustEmbedded(t)

	if got := d.OrtByPLZ("80331"); got != "München" {
		t.Fatalf("OrtByPLZ(80331) = %q", got)
	}
	if got := d.BundeslandByPLZ("80331"); got != "Bayern" {
		t.Fatalf("BundeslandByPLZ(80331) = %q", got)
	}
	if got := d.OrtByPLZ("00000"); got != "" {
		t.Fatalf("OrtByPLZ(00000) = %q, want empty", got)
	}

	// round trip: the plz of an ort resolves back to that ort
	ort := d.OrtByPLZ("80331")
	list := d.PLZForOrt(ort)
	found := false
	for _, p := range list {
		if p == "80331" {
			found = true
		}
	}
	if !found {
		t.Fatalf("80331 missing from PLZForOrt(%q) = %v", ort, list)
	}
}

func TestRegionPLZ(t *testing.T) {
	d := mustEmbedded(t)

	lk, plz := d.RegionPLZ("10115")
	if lk != "Berlin" {
		t.Fatalf("RegionPLZ landkreis = %q", lk)
	}
	if len(plz) <= 10 {
		t.Fatalf("RegionPLZ returned %d codes", len(plz))
	}

	lk, plz = d.RegionPLZ("99999")
	if lk != "" || plz != nil {
		t.Fatalf("unknown zip resolved to %q %v", lk, plz)
	}

	lk, plz = d.RegionPLZ("")
	if lk != "" || plz != nil {
		t.Fatalf("empty zip resolved to %q %v", lk, plz)
	}
}

func TestNilDatasetIsSafe(t *testing.T) {
	var d *Dataset
	if d.LandkreisByPLZ3("101") != "" || d.OrtByPLZ("10115") != "" || d.Len() != 0 {
		t.Fatal("nil dataset should return zero values")
	}
	if got := d.PLZForLandkreis("Berlin"); got != nil {
		t.Fatalf("nil dataset returned %v", got)
	}
}

func TestLoadRejectsBadHeader(t *testing.T) {
	_, err := Load(strings.NewReader("a,b,c,d\n10115,Berlin,Berlin,Berlin\n"))
	if err == nil {
		t.Fatal("expected header error")
	}
}

func TestLoadSkipsShortPLZ(t *testing.T) {
	d, err := Load(strings.NewReader("plz,ort,landkreis,bundesland\n101,Berlin,Berlin,Berlin\n10115,Berlin,Berlin,Berlin\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Len() != 1 {
		t.Fatalf("rows = %d, want 1", d.Len())
	}
}

func TestServiceOverrideAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plz.csv")

	write := func(body string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	write("plz,ort,landkreis,bundesland\n99999,Testort,Testkreis,Testland\n")

	log := logger.Get()
	svc, err := NewService(path, *log)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if got := svc.Dataset().LandkreisByPLZ3("999"); got != "Testkreis" {
		t.Fatalf("override not applied, got %q", got)
	}

	// broken rewrite keeps the old snapshot
	write("not,a,header\n")
	if err := svc.Reload(); err == nil {
		t.Fatal("expected reload error for broken file")
	}
	if got := svc.Dataset().LandkreisByPLZ3("999"); got != "Testkreis" {
		t.Fatalf("broken reload replaced data, got %q", got)
	}
}

func TestServiceWatchPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plz.csv")
	if err := os.WriteFile(path, []byte("plz,ort,landkreis,bundesland\n11111,Alt,Altkreis,Altland\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	log := logger.Get()
	svc, err := NewService(path, *log)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := svc.Watch(ctx); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(path, []byte("plz,ort,landkreis,bundesland\n22222,Neu,Neukreis,Neuland\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if svc.Dataset().LandkreisByPLZ3("222") == "Neukreis" {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("watched change not picked up before deadline")
}

func TestNoOverridePathUsesEmbedded(t *testing.T) {
	log := logger.Get()
	svc, err := NewService("", *log)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if got := svc.Dataset().LandkreisByPLZ3("101"); got != "Berlin" {
		t.Fatalf("embedded data missing, got %q", got)
	}
	if err := svc.Watch(context.Background()); err != nil {
		t.Fatalf("Watch without path should be a no-op, got %v", err)
	}
	if err := svc.Reload(); err != nil {
		t.Fatalf("Reload without path should be a no-op, got %v", err)
	}
}
