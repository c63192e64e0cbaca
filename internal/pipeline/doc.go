// Package pipeline sequences the triage stages for one purchase request.
//
// Stages run in a fixed order: evidence extraction, catalog lookup, Open
// Library enrichment, consortium check, input refinement, selection guidance,
// and automatic actions. Each stage persists its own fields and audit events;
// the orchestrator re-reads the request after every stage so later stages see
// earlier writes. A failing stage is recorded and the pipeline moves on.
package pipeline
