package testsupport

import (
	"path/filepath"
	"testing"

	"tosho/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithDeliveryMode overrides the delivery mode on the test config.
func WithDeliveryMode(mode string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Delivery.Mode = mode
	}
}

// WithFallbackDelay overrides the default fallback waiting period.
func WithFallbackDelay(days int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Check.FallbackDelayDays = days
	}
}
