package config

const (
	defaultConfigPath               = "~/.config/suggestbot/config.toml"
	defaultStateDir                 = "~/.local/share/suggestbot"
	defaultLogDir                   = "~/.local/share/suggestbot/logs"
	defaultActorID                  = "bot:suggest-a-bot"
	defaultMaxRequestsPerRun        = 50
	defaultSchedule                 = "*/15 * * * *"
	defaultScheduleMinutes          = 15
	defaultSierraAPIBase            = "http://127.0.0.1:9009/iii/sierra-api"
	defaultSierraTimeoutSeconds     = 30
	defaultSierraSearchLimit        = 10
	defaultSierraItemLimit          = 50
	defaultOpenLibraryBaseURL       = "https://openlibrary.org"
	defaultOpenLibraryCoversBaseURL = "https://covers.openlibrary.org"
	defaultOpenLibraryUserAgent     = "suggestbot/1.0 (library purchase triage)"
	defaultOpenLibraryTimeout       = 10
	defaultOpenLibraryMaxResults    = 5
	defaultErrorRetryInterval       = 30
	defaultWorkers                  = 1
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultLogRetentionDays         = 30
	defaultMetricsBind              = "127.0.0.1:9464"
	defaultCacheTTLSeconds          = 86400
	defaultKafkaTopic               = "suggestbot.request-events"
	defaultNotifyRequestTimeout     = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Bot: Bot{
			ActorID:           defaultActorID,
			MaxRequestsPerRun: defaultMaxRequestsPerRun,
			Schedule:          defaultSchedule,
		},
		Stages: Stages{
			CatalogLookup:         true,
			OpenLibraryEnrichment: true,
		},
		Sierra: Sierra{
			APIBase:        defaultSierraAPIBase,
			TimeoutSeconds: defaultSierraTimeoutSeconds,
			SearchLimit:    defaultSierraSearchLimit,
			ItemLimit:      defaultSierraItemLimit,
		},
		OpenLibrary: OpenLibrary{
			Enabled:          true,
			BaseURL:          defaultOpenLibraryBaseURL,
			CoversBaseURL:    defaultOpenLibraryCoversBaseURL,
			UserAgent:        defaultOpenLibraryUserAgent,
			TimeoutSeconds:   defaultOpenLibraryTimeout,
			MaxSearchResults: defaultOpenLibraryMaxResults,
			RunOnNoMatch:     true,
			RunOnPartial:     true,
		},
		Workflow: Workflow{
			ErrorRetryInterval: defaultErrorRetryInterval,
			Workers:            defaultWorkers,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Metrics: Metrics{
			Bind: defaultMetricsBind,
		},
		Cache: Cache{
			TTLSeconds: defaultCacheTTLSeconds,
		},
		Events: Events{
			KafkaTopic: defaultKafkaTopic,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunFailed:      true,
		},
	}
}
