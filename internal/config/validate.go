package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBot(); err != nil {
		return err
	}
	if err := c.validateSierra(); err != nil {
		return err
	}
	if err := c.validateOpenLibrary(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBot() error {
	if c.Bot.MaxRequestsPerRun <= 0 {
		return errors.New("bot.max_requests_per_run must be positive")
	}
	if _, err := parseSchedule(c.Bot.Schedule); err != nil {
		return fmt.Errorf("bot.schedule: %w", err)
	}
	return nil
}

func (c *Config) validateSierra() error {
	if !c.Stages.CatalogLookup {
		return nil
	}
	if c.Sierra.ClientKey == "" || c.Sierra.ClientSecret == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("sierra.client_key and sierra.client_secret are required when stages.catalog_lookup is enabled. Set SIERRA_CLIENT_KEY/SIERRA_CLIENT_SECRET or edit %s (create with 'suggestbot config init')", defaultPath)
	}
	if !strings.HasPrefix(c.Sierra.APIBase, "http://") && !strings.HasPrefix(c.Sierra.APIBase, "https://") {
		return fmt.Errorf("sierra.api_base must be an http(s) URL, got %q", c.Sierra.APIBase)
	}
	return ensurePositiveMap(map[string]int{
		"sierra.timeout_seconds": c.Sierra.TimeoutSeconds,
		"sierra.search_limit":    c.Sierra.SearchLimit,
		"sierra.item_limit":      c.Sierra.ItemLimit,
	})
}

func (c *Config) validateOpenLibrary() error {
	if !c.OpenLibrary.Enabled {
		return nil
	}
	return ensurePositiveMap(map[string]int{
		"openlibrary.timeout_seconds":    c.OpenLibrary.TimeoutSeconds,
		"openlibrary.max_search_results": c.OpenLibrary.MaxSearchResults,
	})
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.workers":              c.Workflow.Workers,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"cache.ttl_seconds":             c.Cache.TTLSeconds,
	})
}

func (c *Config) validateEvents() error {
	if len(c.Events.KafkaBrokers) > 0 && c.Events.KafkaTopic == "" {
		return errors.New("events.kafka_topic must be set when events.kafka_brokers is configured")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
