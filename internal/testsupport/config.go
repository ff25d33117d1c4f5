// Package testsupport holds fixtures shared by package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"encodegate/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Background work (prewarm, maintenance) is off and the API binds to an
// ephemeral port. The directories are created.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Runtime.Host = ""
	cfgVal.Worker.Prewarm = false
	cfgVal.Maintenance.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return builder.cfg
}

// WithWorkerImage overrides the worker image on the test config.
func WithWorkerImage(image string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Worker.Image = image
	}
}

// WithReapPrefixes enables maintenance for the given prefixes.
func WithReapPrefixes(prefixes ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Maintenance.Prefixes = prefixes
	}
}
