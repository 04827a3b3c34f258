package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"mubi1000/internal/movies"
)

// WriteJSON marshals value to path, creating parent directories.
func WriteJSON(t testing.TB, path string, value any) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteMovies writes a movie list in the scraper's latest.json format.
func WriteMovies(t testing.TB, path string, records ...movies.Record) {
	t.Helper()
	if records == nil {
		records = []movies.Record{}
	}
	WriteJSON(t, path, records)
}

// Movie builds a ranked movie record.
func Movie(rank int, title, year string) movies.Record {
	return movies.Record{Rank: rank, Title: title, Year: year}
}

// MustMovies converts records into validated movies.
func MustMovies(t testing.TB, records ...movies.Record) []movies.Movie {
	t.Helper()
	out := make([]movies.Movie, 0, len(records))
	for _, rec := range records {
		m, err := movies.New(rec)
		if err != nil {
			t.Fatalf("movies.New(%+v): %v", rec, err)
		}
		out = append(out, m)
	}
	return out
}
