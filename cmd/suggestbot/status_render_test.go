package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"suggestbot/internal/requests"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Runner", statusError, "lock unreadable", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Runner:", "[ERROR] lock unreadable")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Runner", statusOK, "idle", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRenderStatsLines(t *testing.T) {
	lines := renderStatsLines(map[requests.BotStatus]int{
		requests.BotStatusPending: 3,
		requests.BotStatusError:   1,
		"legacy":                  2,
	}, false)
	if len(lines) != len(statusOrder)+1 {
		t.Fatalf("expected %d lines, got %d", len(statusOrder)+1, len(lines))
	}
	if !strings.Contains(lines[0], "pending:") || !strings.Contains(lines[0], "[INFO] 3") {
		t.Fatalf("unexpected pending line %q", lines[0])
	}
	if !strings.Contains(lines[4], "[ERROR] 1") {
		t.Fatalf("expected error count flagged, got %q", lines[4])
	}
	if !strings.Contains(lines[5], "legacy:") || !strings.Contains(lines[5], "[WARN] 2") {
		t.Fatalf("expected unknown status last, got %q", lines[5])
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"collapse   inner\nspace", 40, "collapse inner space"},
		{"Braiding Sweetgrass", 10, "Braidin..."},
		{"Ñandú", 3, "Ñan"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.width); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
