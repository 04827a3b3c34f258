package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"mubi1000/internal/config"
	"mubi1000/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	catalog    *fakeCatalog
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	catalog := newFakeCatalog(t)
	cfg := testsupport.NewConfig(t, testsupport.WithCatalogURL(catalog.server.URL))
	base := testsupport.BaseDir(cfg)

	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Chdir(base)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, catalog: catalog}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[streaming]
country = %q
skip_days = 7
delay_seconds = 0

[catalog]
base_url = %q
min_interval_ms = 0
max_retries = 0
initial_backoff_ms = 1
max_backoff_ms = 1

[cache]
backend = %q
path = %q

[logging]
level = "error"
`,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Streaming.Country,
		cfg.Catalog.BaseURL,
		cfg.Cache.Backend,
		cfg.Cache.Path,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

type catalogTitle struct {
	ID       string
	Title    string
	Year     int
	Services [][3]string // clear name, technical name, monetization
}

// fakeCatalog answers popularTitles searches from a title table. Titles
// listed in failing get a 503.
type fakeCatalog struct {
	server *httptest.Server

	mu      sync.Mutex
	titles  map[string][]catalogTitle
	failing map[string]bool
	queries []string
}

func newFakeCatalog(t *testing.T) *fakeCatalog {
	t.Helper()
	fc := &fakeCatalog{
		titles:  make(map[string][]catalogTitle),
		failing: make(map[string]bool),
	}
	fc.server = httptest.NewServer(http.HandlerFunc(fc.handle))
	t.Cleanup(fc.server.Close)
	return fc
}

func (fc *fakeCatalog) set(query string, titles ...catalogTitle) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.titles[query] = titles
}

func (fc *fakeCatalog) fail(query string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.failing[query] = true
}

func (fc *fakeCatalog) Queries() []string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]string(nil), fc.queries...)
}

func (fc *fakeCatalog) handle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Variables struct {
			SearchTitlesFilter struct {
				SearchQuery string `json:"searchQuery"`
			} `json:"searchTitlesFilter"`
		} `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	query := req.Variables.SearchTitlesFilter.SearchQuery

	fc.mu.Lock()
	fc.queries = append(fc.queries, query)
	failing := fc.failing[query]
	titles := fc.titles[query]
	fc.mu.Unlock()

	if failing {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	edges := make([]map[string]any, 0, len(titles))
	for _, title := range titles {
		offers := make([]map[string]any, 0, len(title.Services))
		for _, svc := range title.Services {
			offers = append(offers, map[string]any{
				"monetizationType": svc[2],
				"package":          map[string]any{"clearName": svc[0], "technicalName": svc[1]},
			})
		}
		edges = append(edges, map[string]any{"node": map[string]any{
			"id":         title.ID,
			"objectType": "MOVIE",
			"content":    map[string]any{"title": title.Title, "originalReleaseYear": title.Year},
			"offers":     offers,
		}})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": map[string]any{"popularTitles": map[string]any{"edges": edges}},
	})
}
