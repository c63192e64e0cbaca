package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBot()
	c.normalizeSierra()
	c.normalizeOpenLibrary()
	c.normalizeWorkflow()
	c.normalizeLogging()
	c.normalizeCache()
	c.normalizeEvents()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeBot() {
	c.Bot.ActorID = strings.TrimSpace(c.Bot.ActorID)
	if c.Bot.ActorID == "" {
		c.Bot.ActorID = defaultActorID
	}
	c.Bot.Schedule = strings.TrimSpace(c.Bot.Schedule)
	if c.Bot.Schedule == "" {
		c.Bot.Schedule = defaultSchedule
	}
}

func (c *Config) normalizeSierra() {
	c.Sierra.APIBase = strings.TrimRight(strings.TrimSpace(c.Sierra.APIBase), "/")
	if c.Sierra.APIBase == "" {
		c.Sierra.APIBase = defaultSierraAPIBase
	}
	c.Sierra.ClientKey = strings.TrimSpace(c.Sierra.ClientKey)
	if value, ok := os.LookupEnv("SIERRA_CLIENT_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Sierra.ClientKey = strings.TrimSpace(value)
	}
	c.Sierra.ClientSecret = strings.TrimSpace(c.Sierra.ClientSecret)
	if value, ok := os.LookupEnv("SIERRA_CLIENT_SECRET"); ok && strings.TrimSpace(value) != "" {
		c.Sierra.ClientSecret = strings.TrimSpace(value)
	}
	if c.Sierra.SearchLimit <= 0 {
		c.Sierra.SearchLimit = defaultSierraSearchLimit
	}
	if c.Sierra.ItemLimit <= 0 {
		c.Sierra.ItemLimit = defaultSierraItemLimit
	}
}

func (c *Config) normalizeOpenLibrary() {
	c.OpenLibrary.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenLibrary.BaseURL), "/")
	if c.OpenLibrary.BaseURL == "" {
		c.OpenLibrary.BaseURL = defaultOpenLibraryBaseURL
	}
	c.OpenLibrary.CoversBaseURL = strings.TrimRight(strings.TrimSpace(c.OpenLibrary.CoversBaseURL), "/")
	if c.OpenLibrary.CoversBaseURL == "" {
		c.OpenLibrary.CoversBaseURL = defaultOpenLibraryCoversBaseURL
	}
	c.OpenLibrary.UserAgent = strings.TrimSpace(c.OpenLibrary.UserAgent)
	if c.OpenLibrary.UserAgent == "" {
		c.OpenLibrary.UserAgent = defaultOpenLibraryUserAgent
	}
	if c.OpenLibrary.MaxSearchResults <= 0 {
		c.OpenLibrary.MaxSearchResults = defaultOpenLibraryMaxResults
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeCache() {
	c.Cache.RedisAddr = strings.TrimSpace(c.Cache.RedisAddr)
	if c.Cache.RedisAddr == "" {
		if value, ok := os.LookupEnv("SUGGESTBOT_REDIS_ADDR"); ok {
			c.Cache.RedisAddr = strings.TrimSpace(value)
		}
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = defaultCacheTTLSeconds
	}
}

func (c *Config) normalizeEvents() {
	brokers := make([]string, 0, len(c.Events.KafkaBrokers))
	for _, broker := range c.Events.KafkaBrokers {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	c.Events.KafkaBrokers = brokers
	c.Events.KafkaTopic = strings.TrimSpace(c.Events.KafkaTopic)
	if c.Events.KafkaTopic == "" {
		c.Events.KafkaTopic = defaultKafkaTopic
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

// parseSchedule extracts the minute step from a "*/N * * * *" cron expression.
func parseSchedule(schedule string) (int, error) {
	fields := strings.Fields(schedule)
	if len(fields) == 0 {
		return 0, fmt.Errorf("schedule is empty")
	}
	minuteField := fields[0]
	if !strings.HasPrefix(minuteField, "*/") {
		return 0, fmt.Errorf("schedule %q must use a */N minute step", schedule)
	}
	minutes, err := strconv.Atoi(strings.TrimPrefix(minuteField, "*/"))
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("schedule %q has an invalid minute step", schedule)
	}
	return minutes, nil
}
