package main

import (
	"os"
	"path/filepath"
	"testing"

	"mubi1000/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Cache backend: json")
	requireContains(t, out, "included_monetization: FLATRATE, FREE")
	requireContains(t, out, "plexplayer -> plex")

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateRejectsBadCountry(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("MUBI_STREAMING_COUNTRY", "United States")
	if _, _, err := runCLI(t, []string{"config", "validate"}, env.configPath); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestStatusOffline(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteMovies(t, env.cfg.MoviesPath(), testsupport.Movie(1, "Vertigo", "1958"))

	out, _, err := runCLI(t, []string{"status", "--offline"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	requireContains(t, out, "Movie list")
	requireContains(t, out, "1 movies")
}

func TestStatusReportsCatalog(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteMovies(t, env.cfg.MoviesPath(), testsupport.Movie(1, "Vertigo", "1958"))

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	requireContains(t, out, "JustWatch catalog")
}
