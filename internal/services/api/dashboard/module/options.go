package module

import (
	"badgehub/internal/platform/config"
)

// Options controls dashboard classification
type Options struct {
	// CatalogPath overrides the embedded keyword catalog
	CatalogPath string
}

// FromConfig reads with DASHBOARD_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("DASHBOARD_")
	return Options{
		CatalogPath: c.MayString("CATALOG", ""),
	}
}
