package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Bot contains batch identity and sizing.
type Bot struct {
	ActorID           string `toml:"actor_id"`
	MaxRequestsPerRun int    `toml:"max_requests_per_run"`
	Schedule          string `toml:"schedule"`
}

// Stages toggles the optional pipeline stages. Evidence extraction always runs.
type Stages struct {
	CatalogLookup         bool `toml:"catalog_lookup"`
	OpenLibraryEnrichment bool `toml:"openlibrary_enrichment"`
	ConsortiumCheck       bool `toml:"consortium_check"`
	InputRefinement       bool `toml:"input_refinement"`
	SelectionGuidance     bool `toml:"selection_guidance"`
	AutomaticActions      bool `toml:"automatic_actions"`
}

// Sierra contains configuration for the Sierra ILS REST API.
type Sierra struct {
	APIBase        string `toml:"api_base"`
	ClientKey      string `toml:"client_key"`
	ClientSecret   string `toml:"client_secret"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	SearchLimit    int    `toml:"search_limit"`
	ItemLimit      int    `toml:"item_limit"`
}

// OpenLibrary contains configuration for secondary metadata enrichment.
type OpenLibrary struct {
	Enabled          bool   `toml:"enabled"`
	BaseURL          string `toml:"base_url"`
	CoversBaseURL    string `toml:"covers_base_url"`
	UserAgent        string `toml:"user_agent"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	MaxSearchResults int    `toml:"max_search_results"`
	RunOnNoMatch     bool   `toml:"run_on_no_match"`
	RunOnPartial     bool   `toml:"run_on_partial_match"`
	RunOnExact       bool   `toml:"run_on_exact_match"`
	AllowPII         bool   `toml:"allow_pii"`
}

// AutoActions contains toggles for the automatic actions stage.
type AutoActions struct {
	HoldOnConsortiumMatch      bool `toml:"hold_on_consortium_match"`
	DeclineOnCatalogExactMatch bool `toml:"decline_on_catalog_exact_match"`
	FlagPopularAuthors         bool `toml:"flag_popular_authors"`
}

// LLM carries connection settings reserved for the refinement and guidance
// stages. They are recorded in run snapshots but not dialed.
type LLM struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
}

// Workflow contains configuration for batch timing and concurrency.
type Workflow struct {
	ErrorRetryInterval int `toml:"error_retry_interval"`
	Workers            int `toml:"workers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Metrics contains configuration for the Prometheus scrape endpoint.
type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
}

// Cache contains configuration for the Open Library response cache.
type Cache struct {
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	TTLSeconds    int    `toml:"ttl_seconds"`
}

// Events contains configuration for publishing audit events to Kafka.
type Events struct {
	KafkaBrokers []string `toml:"kafka_brokers"`
	KafkaTopic   string   `toml:"kafka_topic"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunCompleted   bool   `toml:"run_completed"`
	RunFailed      bool   `toml:"run_failed"`
}

// Config encapsulates all configuration values for suggestbot.
//
// Configuration sections by subsystem:
//   - Paths: state database and log directories
//   - Bot: actor identity, batch size, and run schedule
//   - Stages: per-stage enable flags
//   - Sierra: primary catalog source
//   - OpenLibrary: secondary enrichment source and gating
//   - AutoActions: automatic action toggles
//   - LLM: reserved settings for the stubbed refinement stages
//   - Workflow: error back-off and worker count
//   - Logging: log format, level, and retention
//   - Metrics: Prometheus endpoint
//   - Cache: Redis-backed enrichment cache
//   - Events: Kafka audit event stream
//   - Notifications: ntfy push notification settings
type Config struct {
	Paths         Paths         `toml:"paths"`
	Bot           Bot           `toml:"bot"`
	Stages        Stages        `toml:"stages"`
	Sierra        Sierra        `toml:"sierra"`
	OpenLibrary   OpenLibrary   `toml:"openlibrary"`
	AutoActions   AutoActions   `toml:"auto_actions"`
	LLM           LLM           `toml:"llm"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Metrics       Metrics       `toml:"metrics"`
	Cache         Cache         `toml:"cache"`
	Events        Events        `toml:"events"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("suggestbot.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "suggestbot.db")
}

// LockPath returns the lock file that keeps batch runs single-instance.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "suggestbot.lock")
}

// RunInterval returns the pause between daemon batches derived from
// bot.schedule.
func (c *Config) RunInterval() time.Duration {
	minutes, err := parseSchedule(c.Bot.Schedule)
	if err != nil {
		minutes = defaultScheduleMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// SierraTimeout returns the per-call timeout for catalog requests.
func (c *Config) SierraTimeout() time.Duration {
	return time.Duration(c.Sierra.TimeoutSeconds) * time.Second
}

// OpenLibraryTimeout returns the per-call timeout for enrichment requests.
func (c *Config) OpenLibraryTimeout() time.Duration {
	return time.Duration(c.OpenLibrary.TimeoutSeconds) * time.Second
}

// Snapshot renders the configuration as JSON with credentials redacted. Bot
// runs persist it so staff can see which settings produced a batch.
func (c *Config) Snapshot() string {
	data, err := json.Marshal(c.Redacted())
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Redacted returns a copy with credentials replaced by a placeholder.
func (c *Config) Redacted() Config {
	clone := *c
	clone.Sierra.ClientKey = redact(clone.Sierra.ClientKey)
	clone.Sierra.ClientSecret = redact(clone.Sierra.ClientSecret)
	clone.Cache.RedisPassword = redact(clone.Cache.RedisPassword)
	clone.Notifications.NtfyTopic = redact(clone.Notifications.NtfyTopic)
	return clone
}

func redact(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return "[redacted]"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
