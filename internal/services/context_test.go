package services_test

import (
	"context"
	"testing"

	"suggestbot/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRequestID(ctx, "req-42")
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithStage(ctx, "catalog_lookup")
	ctx = services.WithCorrelationID(ctx, "corr-123")

	if id, ok := services.RequestIDFromContext(ctx); !ok || id != "req-42" {
		t.Fatalf("unexpected request id: %v %v", id, ok)
	}
	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "catalog_lookup" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if cid, ok := services.CorrelationIDFromContext(ctx); !ok || cid != "corr-123" {
		t.Fatalf("unexpected correlation id: %v %v", cid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
