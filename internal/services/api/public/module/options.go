package module

import "badgehub/internal/platform/config"

// Options configure the public module
type Options struct {
	// PublicURL is the external origin the hosted documents use in their ids
	PublicURL string
}

// FromConfig loads Options from configuration
func FromConfig(cfg config.Conf) Options {
	return Options{
		PublicURL: cfg.MayString("PUBLIC_URL", "http://localhost:8080"),
	}
}
