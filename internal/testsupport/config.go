package testsupport

import (
	"path/filepath"
	"testing"

	"suggestbot/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// External sources point at unroutable defaults until overridden.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Sierra.ClientKey = "test-key"
	cfgVal.Sierra.ClientSecret = "test-secret"
	cfgVal.Metrics.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithSierra points the catalog source at baseURL.
func WithSierra(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sierra.APIBase = baseURL
	}
}

// WithOpenLibrary points enrichment at baseURL.
func WithOpenLibrary(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OpenLibrary.BaseURL = baseURL
		b.cfg.OpenLibrary.CoversBaseURL = baseURL
	}
}

// WithStages overrides the stage toggles.
func WithStages(stages config.Stages) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Stages = stages
	}
}

// WithAutoActions overrides the automatic action toggles.
func WithAutoActions(actions config.AutoActions) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.AutoActions = actions
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
