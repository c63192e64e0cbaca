package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"suggestbot/internal/config"
)

func TestLoadDefaultConfigUsesEnvSierraCredentialsAndExpandsPaths(t *testing.T) {
	t.Setenv("SIERRA_CLIENT_KEY", "env-key")
	t.Setenv("SIERRA_CLIENT_SECRET", "env-secret")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "suggestbot")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.DatabasePath() != filepath.Join(wantState, "suggestbot.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Sierra.ClientKey != "env-key" || cfg.Sierra.ClientSecret != "env-secret" {
		t.Fatalf("expected sierra credentials from env, got %q/%q", cfg.Sierra.ClientKey, cfg.Sierra.ClientSecret)
	}
	if cfg.Bot.MaxRequestsPerRun != 50 {
		t.Fatalf("unexpected batch size: %d", cfg.Bot.MaxRequestsPerRun)
	}
	if cfg.Bot.ActorID != "bot:suggest-a-bot" {
		t.Fatalf("unexpected actor id: %q", cfg.Bot.ActorID)
	}
	if !cfg.Stages.CatalogLookup || !cfg.Stages.OpenLibraryEnrichment {
		t.Fatal("expected catalog and openlibrary stages enabled by default")
	}
	if cfg.Stages.ConsortiumCheck || cfg.Stages.InputRefinement || cfg.Stages.SelectionGuidance || cfg.Stages.AutomaticActions {
		t.Fatal("expected stub stages disabled by default")
	}
	if !cfg.OpenLibrary.RunOnNoMatch || !cfg.OpenLibrary.RunOnPartial || cfg.OpenLibrary.RunOnExact {
		t.Fatalf("unexpected enrichment gating defaults: %+v", cfg.OpenLibrary)
	}
	if cfg.OpenLibrary.AllowPII {
		t.Fatal("expected PII scrubbing on by default")
	}
	if cfg.RunInterval() != 15*time.Minute {
		t.Fatalf("unexpected run interval: %s", cfg.RunInterval())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "suggestbot.toml")

	type payload struct {
		Bot struct {
			MaxRequestsPerRun int    `toml:"max_requests_per_run"`
			Schedule          string `toml:"schedule"`
		} `toml:"bot"`
		Stages struct {
			CatalogLookup bool `toml:"catalog_lookup"`
		} `toml:"stages"`
		OpenLibrary struct {
			RunOnExact bool `toml:"run_on_exact_match"`
		} `toml:"openlibrary"`
	}
	custom := payload{}
	custom.Bot.MaxRequestsPerRun = 5
	custom.Bot.Schedule = "*/5 * * * *"
	custom.Stages.CatalogLookup = false
	custom.OpenLibrary.RunOnExact = true
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Bot.MaxRequestsPerRun != 5 {
		t.Fatalf("expected batch size 5, got %d", cfg.Bot.MaxRequestsPerRun)
	}
	if cfg.RunInterval() != 5*time.Minute {
		t.Fatalf("expected 5 minute interval, got %s", cfg.RunInterval())
	}
	if cfg.Stages.CatalogLookup {
		t.Fatal("expected catalog stage disabled from file")
	}
	if !cfg.Stages.OpenLibraryEnrichment {
		t.Fatal("expected untouched defaults to survive decoding")
	}
	if !cfg.OpenLibrary.RunOnExact {
		t.Fatal("expected run_on_exact_match override")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_sierra_client_key_here") {
		t.Fatalf("sample config missing placeholder sierra key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.StateDir, "suggestbot") {
		t.Fatalf("expected state dir to contain suggestbot, got %q", cfg.Paths.StateDir)
	}
	if cfg.Bot.MaxRequestsPerRun != 50 {
		t.Fatalf("unexpected sample batch size: %d", cfg.Bot.MaxRequestsPerRun)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	valid := func() config.Config {
		cfg := config.Default()
		cfg.Sierra.ClientKey = "key"
		cfg.Sierra.ClientSecret = "secret"
		return cfg
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults with credentials to validate: %v", err)
	}

	cfg = valid()
	cfg.Sierra.ClientSecret = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when sierra secret missing")
	}

	cfg = valid()
	cfg.Stages.CatalogLookup = false
	cfg.Sierra.ClientKey = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected missing credentials to be fine with catalog disabled: %v", err)
	}

	cfg = valid()
	cfg.Bot.MaxRequestsPerRun = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive batch size")
	}

	cfg = valid()
	cfg.Bot.Schedule = "0 * * * *"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported schedule")
	}

	cfg = valid()
	cfg.OpenLibrary.TimeoutSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero openlibrary timeout")
	}

	cfg = valid()
	cfg.Sierra.APIBase = "ftp://catalog"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-http sierra base")
	}
}

func TestSnapshotRedactsSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.Sierra.ClientKey = "key-123"
	cfg.Sierra.ClientSecret = "secret-456"
	snapshot := cfg.Snapshot()
	if strings.Contains(snapshot, "key-123") || strings.Contains(snapshot, "secret-456") {
		t.Fatalf("snapshot leaked credentials: %s", snapshot)
	}
	if !strings.Contains(snapshot, "[redacted]") {
		t.Fatalf("expected redaction marker in snapshot: %s", snapshot)
	}
	if cfg.Sierra.ClientSecret != "secret-456" {
		t.Fatal("snapshot must not mutate the live config")
	}
}
