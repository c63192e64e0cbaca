package main

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"suggestbot/internal/catalog"
	"suggestbot/internal/catalog/sierra"
	"suggestbot/internal/config"
	"suggestbot/internal/eventsink"
	"suggestbot/internal/logging"
	"suggestbot/internal/metrics"
	"suggestbot/internal/openlibrary"
	"suggestbot/internal/pipeline"
	"suggestbot/internal/requests"
)

// runtime bundles everything a run needs so callers can release it with a
// single Close.
type runtime struct {
	pipeline *pipeline.Pipeline
	closers  []func() error
}

func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildRuntime(ctx context.Context, cfg *config.Config, store *requests.Store, logger *slog.Logger, m *metrics.Metrics) *runtime {
	rt := &runtime{}

	publisher := eventsink.New(cfg, logger)
	rt.closers = append(rt.closers, publisher.Close)
	if forwarder := eventsink.NewForwarder(publisher, logger, 0); forwarder != nil {
		rt.closers = append(rt.closers, forwarder.Close)
		store.SetEventHook(forwarder.Hook())
		logger.Info("publishing audit events",
			logging.String("topic", cfg.Events.KafkaTopic),
			logging.Int("brokers", len(cfg.Events.KafkaBrokers)),
		)
	}

	deps := pipeline.Deps{Metrics: m, Logger: logger}
	if cfg.Stages.CatalogLookup {
		if source := buildCatalogSource(cfg, logger, m); source != nil {
			deps.Catalog = source
		}
	}
	if cfg.Stages.OpenLibraryEnrichment && cfg.OpenLibrary.Enabled {
		cache, closeCache := buildEnrichmentCache(ctx, cfg, logger)
		if closeCache != nil {
			rt.closers = append(rt.closers, closeCache)
		}
		deps.OpenLibrary = openlibrary.New(
			openlibrary.WithBaseURLs(cfg.OpenLibrary.BaseURL, cfg.OpenLibrary.CoversBaseURL),
			openlibrary.WithTimeout(cfg.OpenLibraryTimeout()),
			openlibrary.WithMaxResults(cfg.OpenLibrary.MaxSearchResults),
			openlibrary.WithUserAgent(cfg.OpenLibrary.UserAgent),
			openlibrary.WithCache(cache),
			openlibrary.WithObserver(m.ExternalCallObserver("openlibrary")),
		)
	}

	rt.pipeline = pipeline.New(cfg, store, deps)
	return rt
}

func buildCatalogSource(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) catalog.Source {
	client, err := sierra.New(cfg.Sierra.APIBase, cfg.Sierra.ClientKey, cfg.Sierra.ClientSecret,
		sierra.WithTimeout(cfg.SierraTimeout()),
		sierra.WithObserver(m.ExternalCallObserver("sierra")),
	)
	if err != nil {
		logging.WarnWithContext(logger, "catalog lookup unavailable", "catalog_unconfigured",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set sierra.client_key and sierra.client_secret or SIERRA_CLIENT_KEY/SIERRA_CLIENT_SECRET"),
			logging.String(logging.FieldImpact, "catalog_lookup is skipped with reason no_source"),
		)
		return nil
	}
	return client
}

func buildEnrichmentCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (openlibrary.Cache, func() error) {
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	if addr := strings.TrimSpace(cfg.Cache.RedisAddr); addr != "" {
		cache, err := openlibrary.NewRedisCache(ctx, openlibrary.RedisOptions{
			Addr:     addr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      ttl,
		}, logger)
		if err == nil {
			return cache, cache.Close
		}
		logging.WarnWithContext(logger, "redis cache unavailable, using in-process cache", "cache_fallback",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check cache.redis_addr"),
			logging.String(logging.FieldImpact, "enrichment responses are not shared between processes"),
		)
	}
	return openlibrary.NewMemoryCache(ttl), nil
}

func activeLogPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, logging.LogFileName(time.Now()))
}
