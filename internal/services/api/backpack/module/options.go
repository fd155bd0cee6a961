package module

import (
	"time"

	"badgehub/internal/platform/config"
)

// Options configures the backpack module
type Options struct {
	// PublicURL is the public origin share links point at
	PublicURL string

	// FetchTimeout bounds each remote document fetch during import
	FetchTimeout time.Duration
}

// FromConfig reads PUBLIC_URL plus the BACKPACK_ prefixed keys
func FromConfig(cfg config.Conf) Options {
	bp := cfg.Prefix("BACKPACK_")
	return Options{
		PublicURL:    cfg.MayString("PUBLIC_URL", "http://localhost:8080"),
		FetchTimeout: bp.MayDuration("FETCH_TIMEOUT", 10*time.Second),
	}
}
