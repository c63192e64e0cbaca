package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"suggestbot/internal/catalog/sierra"
	"suggestbot/internal/config"
)

const maxCheckTimeout = 10 * time.Second

// Pinger is anything that can confirm its backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDatabase verifies the request database answers queries.
func CheckDatabase(ctx context.Context, db Pinger) Result {
	const name = "Database"
	if db == nil {
		return Result{Name: name, Detail: "not open"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("ping failed (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

// CheckSierra verifies the catalog credentials by requesting a token.
func CheckSierra(ctx context.Context, cfg config.Sierra, timeout time.Duration) Result {
	const name = "Sierra catalog"

	if strings.TrimSpace(cfg.ClientKey) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return Result{Name: name, Detail: "missing client credentials"}
	}
	client, err := sierra.New(cfg.APIBase, cfg.ClientKey, cfg.ClientSecret, sierra.WithTimeout(timeout))
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	checkCtx, cancel := context.WithTimeout(ctx, clampTimeout(timeout))
	defer cancel()
	if err := client.Authenticate(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "authenticated"}
}

// CheckOpenLibrary verifies the metadata API answers HTTP requests.
func CheckOpenLibrary(ctx context.Context, baseURL string, timeout time.Duration) Result {
	const name = "Open Library"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, clampTimeout(timeout))
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, base+"/search.json", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

func clampTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 || timeout > maxCheckTimeout {
		return maxCheckTimeout
	}
	return timeout
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (unreachable)"
	}
	return err.Error()
}
