package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"suggestbot/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestCheckDatabase(t *testing.T) {
	if r := CheckDatabase(context.Background(), fakePinger{}); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	if r := CheckDatabase(context.Background(), fakePinger{err: errors.New("locked")}); r.Passed {
		t.Fatal("expected failure")
	}
	if r := CheckDatabase(context.Background(), nil); r.Passed {
		t.Fatal("expected failure for nil db")
	}
}

func sierraServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, secret, ok := r.BasicAuth()
		if r.URL.Path != "/v6/token" || !ok || key != "good" || secret != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckSierra_OK(t *testing.T) {
	srv := sierraServer(t)
	result := CheckSierra(context.Background(), config.Sierra{APIBase: srv.URL, ClientKey: "good", ClientSecret: "secret"}, 5*time.Second)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckSierra_BadCredentials(t *testing.T) {
	srv := sierraServer(t)
	result := CheckSierra(context.Background(), config.Sierra{APIBase: srv.URL, ClientKey: "bad", ClientSecret: "secret"}, 5*time.Second)
	if result.Passed {
		t.Fatal("expected failure for bad credentials")
	}
}

func TestCheckSierra_MissingCredentials(t *testing.T) {
	result := CheckSierra(context.Background(), config.Sierra{APIBase: "http://localhost"}, time.Second)
	if result.Passed || result.Detail != "missing client credentials" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckOpenLibrary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	if r := CheckOpenLibrary(context.Background(), srv.URL, time.Second); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()
	if r := CheckOpenLibrary(context.Background(), down.URL, time.Second); r.Passed {
		t.Fatal("expected failure for 502")
	}
	if r := CheckOpenLibrary(context.Background(), "", time.Second); r.Passed {
		t.Fatal("expected failure for missing url")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_SkipsDisabledStages(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Stages = config.Stages{}

	results := RunAll(context.Background(), &cfg)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures %+v", failed)
	}
}

func TestRunAll_IncludesSierraWhenCatalogEnabled(t *testing.T) {
	srv := sierraServer(t)
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LogDir = ""
	cfg.Stages = config.Stages{CatalogLookup: true}
	cfg.Sierra.APIBase = srv.URL
	cfg.Sierra.ClientKey = "good"
	cfg.Sierra.ClientSecret = "secret"

	results := RunAll(context.Background(), &cfg)
	found := false
	for _, r := range results {
		if r.Name == "Sierra catalog" {
			found = true
			if !r.Passed {
				t.Errorf("Sierra check failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected Sierra check in results")
	}
}
