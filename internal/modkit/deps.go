// Package modkit provides module wiring and core deps
package modkit

import (
	"badgehub/internal/modkit/repokit"
	"badgehub/internal/platform/config"
	"badgehub/internal/platform/logger"
	"badgehub/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only, cross-module collaboration goes through ports instead
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}

// ZeroOK returns true when deps are safe to use with zero values in tests
// consumers should still nil check for optional stores
func (d Deps) ZeroOK() bool { return true }
