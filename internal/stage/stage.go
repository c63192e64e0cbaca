// Package stage defines the contract every pipeline stage implements and the
// per-stage result the orchestrator aggregates.
package stage

import (
	"context"

	"suggestbot/internal/config"
	"suggestbot/internal/requests"
)

// Stage is one unit of pipeline work. Process reads the request's persisted
// state, persists derived fields, appends audit events, and reports the
// outcome. It handles its own failures and never panics on bad input.
type Stage interface {
	Name() string
	Enabled(cfg *config.Config) bool
	Process(ctx context.Context, req *requests.Request) Result
}

// HealthChecker stages can report readiness of their external dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) Health
}

// Health is a stage's answer to HealthCheck. Detail explains a not-ready
// state, or names the backing source when ready.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

func Healthy(name string) Health { return Health{Name: name, Ready: true} }

func Unhealthy(name, detail string) Health { return Health{Name: name, Detail: detail} }
