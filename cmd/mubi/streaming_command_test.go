package main

import (
	"encoding/json"
	"errors"
	"os"
	"testing"

	"mubi1000/internal/resolver"
	"mubi1000/internal/testsupport"
)

func seedGodfatherCatalog(env *cliTestEnv) {
	env.catalog.set("The Godfather",
		catalogTitle{ID: "tm1", Title: "The Godfather", Year: 1972, Services: [][3]string{
			{"Mubi", "mubi", "FLATRATE"},
			{"Apple TV", "itunes", "RENT"},
		}},
		catalogTitle{ID: "tm2", Title: "The Godfather Part II", Year: 1974, Services: [][3]string{
			{"Paramount Plus", "paramountplus", "FLATRATE"},
		}},
	)
	env.catalog.fail("Vertigo")
}

func TestStreamingRefreshAndAvailability(t *testing.T) {
	env := setupCLITestEnv(t)
	seedGodfatherCatalog(env)
	testsupport.WriteMovies(t, env.cfg.MoviesPath(),
		testsupport.Movie(1, "The Godfather", "1972"),
		testsupport.Movie(2, "Vertigo", "1958"),
	)

	out, _, err := runCLI(t, []string{"--json", "streaming"}, env.configPath)
	if err != nil {
		t.Fatalf("streaming: %v", err)
	}
	var report reportView
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report %q: %v", out, err)
	}
	if report.Refreshed != 1 || report.Failed != 1 || report.Queried != 2 || report.WithStreaming != 1 || report.Country != "US" {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.FailedTitles) != 1 || report.FailedTitles[0] != "Vertigo (1958)" {
		t.Fatalf("unexpected failed titles %v", report.FailedTitles)
	}

	out, _, err = runCLI(t, []string{"--json", "availability"}, env.configPath)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	var views []availabilityView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode availability %q: %v", out, err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 movies, got %d", len(views))
	}
	godfather := views[0]
	if !godfather.Checked || len(godfather.Streaming) != 1 || godfather.Streaming[0].Name != "Mubi" {
		t.Fatalf("unexpected godfather view %+v", godfather)
	}
	if views[1].Checked || len(views[1].Streaming) != 0 {
		t.Fatalf("failed lookup must stay unchecked: %+v", views[1])
	}

	out, _, err = runCLI(t, []string{"availability"}, env.configPath)
	if err != nil {
		t.Fatalf("availability table: %v", err)
	}
	requireContains(t, out, "Mubi")
	requireContains(t, out, "not checked")
	requireContains(t, out, "1 of 2 movies streaming")
}

func TestStreamingSkipsFreshMoviesOnSecondRun(t *testing.T) {
	env := setupCLITestEnv(t)
	seedGodfatherCatalog(env)
	testsupport.WriteMovies(t, env.cfg.MoviesPath(), testsupport.Movie(1, "The Godfather", "1972"))

	if _, _, err := runCLI(t, []string{"streaming"}, env.configPath); err != nil {
		t.Fatalf("first streaming run: %v", err)
	}
	out, _, err := runCLI(t, []string{"streaming"}, env.configPath)
	if err != nil {
		t.Fatalf("second streaming run: %v", err)
	}
	requireContains(t, out, "Skipped (fresh)")
	if got := len(env.catalog.Queries()); got != 1 {
		t.Fatalf("expected a single catalog query, got %d", got)
	}

	if _, _, err := runCLI(t, []string{"streaming", "--force"}, env.configPath); err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if got := len(env.catalog.Queries()); got != 2 {
		t.Fatalf("expected forced query, got %d", got)
	}
}

func TestStreamingRejectsInvalidCountry(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteMovies(t, env.cfg.MoviesPath(), testsupport.Movie(1, "Vertigo", "1958"))

	_, _, err := runCLI(t, []string{"streaming", "--country", "USA"}, env.configPath)
	if !errors.Is(err, resolver.ErrInvalidCountry) {
		t.Fatalf("expected ErrInvalidCountry, got %v", err)
	}
	if len(env.catalog.Queries()) != 0 {
		t.Fatal("no catalog calls expected")
	}
}

func TestStreamingRequiresMovieList(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"streaming"}, env.configPath); err == nil {
		t.Fatal("expected error without latest.json")
	}
}

func TestStreamingWritesMetricsTextfile(t *testing.T) {
	env := setupCLITestEnv(t)
	seedGodfatherCatalog(env)
	testsupport.WriteMovies(t, env.cfg.MoviesPath(), testsupport.Movie(1, "The Godfather", "1972"))

	metricsPath := env.cfg.Paths.DataDir + "/metrics/mubi1000.prom"
	t.Setenv("MUBI_METRICS_TEXTFILE_PATH", metricsPath)
	if _, _, err := runCLI(t, []string{"streaming"}, env.configPath); err != nil {
		t.Fatalf("streaming: %v", err)
	}
	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	requireContains(t, string(data), `mubi1000_lookups_total{country="US",outcome="refreshed"} 1`)
}
