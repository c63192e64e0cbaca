// Package config loads, normalizes, and validates suggestbot configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SIERRA_CLIENT_KEY and SIERRA_CLIENT_SECRET. The Config type centralizes every
// knob the batch runner, pipeline stages, and CLI need: per-stage enable flags,
// catalog and Open Library timeouts and result limits, enrichment gating,
// the PII-scrub opt-out, and the per-run batch size.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
