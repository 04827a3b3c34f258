package preflight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"mubi1000/internal/config"
	"mubi1000/internal/movies"
	"mubi1000/internal/streamcache"
)

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

// CheckMovieList verifies the scraped movie list parses and holds at least one movie.
func CheckMovieList(path string) Result {
	const name = "Movie list"

	result, err := movies.LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if len(result.Movies) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no valid movies)", path)}
	}
	detail := fmt.Sprintf("%d movies", len(result.Movies))
	if n := len(result.Invalid); n > 0 {
		detail = fmt.Sprintf("%s, %d invalid records skipped", detail, n)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckCache opens the configured cache backend and reports its record count.
// A corrupt cache is reported as a failure without being reset.
func CheckCache(ctx context.Context, cfg *config.Config) Result {
	name := fmt.Sprintf("Cache (%s)", cfg.Cache.Backend)

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	backend, err := streamcache.OpenBackend(checkCtx, cfg)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("open failed (%v)", err)}
	}
	defer backend.Close()

	snapshot, err := backend.Load(checkCtx)
	if err != nil {
		if errors.Is(err, streamcache.ErrCorruptCache) {
			return Result{Name: name, Detail: "corrupt (next refresh starts empty)"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("load failed (%v)", err)}
	}
	detail := fmt.Sprintf("%d records", len(snapshot.Records))
	if n := len(snapshot.Skipped); n > 0 {
		detail = fmt.Sprintf("%s, %d unreadable (looked up again on next refresh)", detail, n)
	}
	if !snapshot.Metadata.LastFullRun.IsZero() {
		detail = fmt.Sprintf("%s, last run %s", detail, snapshot.Metadata.LastFullRun.Local().Format(time.DateTime))
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckCatalog verifies the JustWatch GraphQL endpoint answers a trivial query.
// It uses a 5-second timeout and a single attempt.
func CheckCatalog(ctx context.Context, baseURL string) Result {
	const name = "JustWatch catalog"

	base := strings.TrimSpace(baseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	body := bytes.NewBufferString(`{"query":"{ __typename }"}`)
	req, err := http.NewRequestWithContext(checkCtx, http.MethodPost, base, body)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeCatalogError(err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{Name: name, Detail: "rate limited (429)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%d)", resp.StatusCode)}
	}
}

func summarizeCatalogError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (catalog unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (catalog unreachable)"
	}
	return fmt.Sprintf("health check failed (%v)", err)
}
