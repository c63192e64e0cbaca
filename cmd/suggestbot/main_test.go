package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"suggestbot/internal/config"
	"suggestbot/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStages(config.Stages{}))
	home := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	return &cliTestEnv{cfg: cfg, configPath: testsupport.WriteConfig(t, cfg)}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func mustRunCLI(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, err := runCLI(t, env, args...)
	if err != nil {
		t.Fatalf("suggestbot %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func submit(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out := mustRunCLI(t, env, append([]string{"submit"}, args...)...)
	id := strings.TrimPrefix(strings.TrimSpace(out), "Submitted request ")
	if id == "" || strings.Contains(id, " ") {
		t.Fatalf("unexpected submit output %q", out)
	}
	return id
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestSubmitAndInspectRequest(t *testing.T) {
	env := setupCLITestEnv(t)
	id := submit(t, env, "Dune by Frank Herbert", "--format", "ebook", "--patron", "42")

	out := mustRunCLI(t, env, "requests", "list")
	requireContains(t, out, id)
	requireContains(t, out, "Dune by Frank Herbert")

	out = mustRunCLI(t, env, "requests", "list", "--status", "completed")
	requireContains(t, out, "No requests")

	out = mustRunCLI(t, env, "requests", "show", id)
	requireContains(t, out, "Bot status:")
	requireContains(t, out, "pending")
	requireContains(t, out, "ebook")

	if _, err := runCLI(t, env, "requests", "list", "--status", "bogus"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
	if _, err := runCLI(t, env, "requests", "show", "missing"); err == nil {
		t.Fatal("expected missing request to fail")
	}
}

func TestRunOnceCompletesPendingRequests(t *testing.T) {
	env := setupCLITestEnv(t)
	id := submit(t, env, "The Left Hand of Darkness ISBN 0306406152")

	out := mustRunCLI(t, env, "run", "--once")
	requireContains(t, out, "1 processed, 0 errored")

	out = mustRunCLI(t, env, "requests", "list", "--status", "completed")
	requireContains(t, out, id)

	out = mustRunCLI(t, env, "events", id)
	requireContains(t, out, "bot_started")
	requireContains(t, out, "bot_evidence_extracted")
	requireContains(t, out, "bot_completed")

	out = mustRunCLI(t, env, "events", id, "--json")
	var events []eventView
	if err := json.Unmarshal([]byte(out), &events); err != nil {
		t.Fatalf("decode events json: %v\n%s", err, out)
	}
	if len(events) == 0 || events[0].Type != "submitted" || events[len(events)-1].Type != "bot_completed" {
		t.Fatalf("unexpected events %+v", events)
	}

	out = mustRunCLI(t, env, "runs", "list")
	requireContains(t, out, "completed")
}

func TestRunDryRunLeavesRequestsPending(t *testing.T) {
	env := setupCLITestEnv(t)
	id := submit(t, env, "Piranesi")

	out := mustRunCLI(t, env, "run", "--dry-run")
	requireContains(t, out, "Would process 1 request(s)")
	requireContains(t, out, id)
	requireContains(t, out, "evidence_extraction")

	out = mustRunCLI(t, env, "requests", "list", "--status", "pending")
	requireContains(t, out, id)
	out = mustRunCLI(t, env, "runs", "list")
	requireContains(t, out, "No runs recorded")
}

func TestRunSingleRequest(t *testing.T) {
	env := setupCLITestEnv(t)
	id := submit(t, env, "Piranesi")
	mustRunCLI(t, env, "run")

	out := mustRunCLI(t, env, "run", "--request-id", id)
	requireContains(t, out, "Request "+id+": completed")
	requireContains(t, out, "evidence_extraction")

	if _, err := runCLI(t, env, "run", "--request-id", "missing"); err == nil {
		t.Fatal("expected unknown request to fail")
	}
	if _, err := runCLI(t, env, "run", "--once", "--daemon"); err == nil {
		t.Fatal("expected conflicting flags to fail")
	}
}

func TestRequestStatusAndNote(t *testing.T) {
	env := setupCLITestEnv(t)
	id := submit(t, env, "Piranesi")

	out := mustRunCLI(t, env, "requests", "status", id, "ordered")
	requireContains(t, out, "status set to ordered")
	out = mustRunCLI(t, env, "requests", "note", id, "ordered", "two", "copies")
	requireContains(t, out, "Note saved")

	out = mustRunCLI(t, env, "requests", "show", id)
	requireContains(t, out, "ordered two copies")

	out = mustRunCLI(t, env, "events", id)
	requireContains(t, out, "status_changed")
	requireContains(t, out, "note_added")
	requireContains(t, out, staffActor)

	if _, err := runCLI(t, env, "requests", "status", id, "shelved"); err == nil {
		t.Fatal("expected invalid staff status to fail")
	}
}

func TestEvidenceOutputs(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "evidence", "Data Structures ISBN 0306406152")
	var packet map[string]any
	if err := json.Unmarshal([]byte(out), &packet); err != nil {
		t.Fatalf("decode evidence json: %v\n%s", err, out)
	}
	if packet["schema_version"] != "1.0.0" {
		t.Fatalf("unexpected packet %v", packet)
	}

	out = mustRunCLI(t, env, "evidence", "Data Structures ISBN 0306406152", "--output", "yaml")
	requireContains(t, out, "schema_version: 1.0.0")
	requireContains(t, out, "identifiers:")
	requireContains(t, out, "9780306406157")
	if !strings.HasPrefix(out, "schema_version:") {
		t.Fatalf("expected block style yaml, got\n%s", out)
	}

	if _, err := runCLI(t, env, "evidence", "x", "--output", "xml"); err == nil {
		t.Fatal("expected unsupported output to fail")
	}
}

func TestConfigInitValidateAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "config", "validate")
	requireContains(t, out, "Configuration valid")

	out = mustRunCLI(t, env, "config", "show")
	requireContains(t, out, "[redacted]")
	if strings.Contains(out, "test-secret") {
		t.Fatalf("config show leaked a secret:\n%s", out)
	}

	target := filepath.Join(t.TempDir(), "config.toml")
	out = mustRunCLI(t, env, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected existing config to be protected")
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	submit(t, env, "Piranesi")
	mustRunCLI(t, env, "run")

	out := mustRunCLI(t, env, "status")
	requireContains(t, out, "== System ==")
	requireContains(t, out, "idle")
	requireContains(t, out, "== Requests ==")
	requireContains(t, out, "completed:")
	requireContains(t, out, "== Last run ==")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out := mustRunCLI(t, env, "test-notify")
	requireContains(t, out, "Notifications are disabled")
}
