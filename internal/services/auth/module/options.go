package module

import (
	"time"

	"badgehub/internal/platform/config"
)

// Options controls token minting
type Options struct {
	Secret   string
	TokenTTL time.Duration
}

// FromConfig reads with AUTH_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("AUTH_")
	return Options{
		Secret:   c.MustString("SECRET"),
		TokenTTL: c.MayDuration("TOKEN_TTL", 24*time.Hour),
	}
}
