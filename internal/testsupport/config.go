package testsupport

import (
	"path/filepath"
	"testing"

	"vidaudit/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.ReportDir = filepath.Join(base, "reports")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithDataDir overrides the dataset root on the test config.
func WithDataDir(path string) ConfigOption {
	return func(c *config.Config) {
		c.Paths.DataDir = path
	}
}

// WithRandomSaves overrides the dataset-wide overlay sample size.
func WithRandomSaves(n int) ConfigOption {
	return func(c *config.Config) {
		c.Evaluate.NumRandomSaves = n
	}
}
