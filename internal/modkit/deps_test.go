package modkit

import (
	"testing"

	"badgehub/internal/platform/config"
)

func TestDeps_ZeroValue_IsOK(t *testing.T) {
	t.Parallel()
	var d Deps // zero value across all fields
	if !d.ZeroOK() {
		t.Fatal("zero-value Deps should be safe in tests (ZeroOK == true)")
	}
}

func TestDeps_PartialFill_IsAlsoOK(t *testing.T) {
	t.Parallel()

	// modules tolerate absent stores, dashboard and netdash nil-check CH themselves
	d := Deps{
		Cfg: config.New(),
	}

	if !d.ZeroOK() {
		t.Fatal("partially filled Deps should also report ZeroOK == true")
	}
}
