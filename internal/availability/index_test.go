package availability

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"mubi1000/internal/streamcache"
)

func writeMovies(t *testing.T, path, content string, mod time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write movies: %v", err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestIndexMergesAndReloadsOnChange(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	moviesPath := filepath.Join(dir, "latest.json")
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	writeMovies(t, moviesPath, `[
  {"rank": 1, "title": "The Godfather", "year": "1972"},
  {"rank": 2, "title": "Stalker", "year": "1979"}
]`, base)

	backend := streamcache.NewMemoryBackend()
	if err := backend.Put(ctx, streamcache.Record{
		Key:        "thegodfather|1972",
		Offers:     []streamcache.Offer{offer("Mubi", "mubi", "FLATRATE"), offer("Apple TV", "itunes", "RENT")},
		LookedUpAt: base,
		MatchFound: true,
	}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	index := NewIndex(moviesPath, backend, DefaultPolicy(), nil)
	entries, err := index.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[0].Cached || !reflect.DeepEqual(TechnicalNames(entries[0].Services), []string{"mubi"}) {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Cached || len(entries[1].Services) != 0 {
		t.Fatalf("uncached movie should have no services: %+v", entries[1])
	}

	if _, err := index.Entries(ctx); err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if index.Reloads() != 1 {
		t.Fatalf("unchanged sources should not trigger a rebuild, got %d", index.Reloads())
	}

	if err := backend.Put(ctx, streamcache.Record{
		Key:        "stalker|1979",
		Offers:     []streamcache.Offer{offer("Kanopy", "kanopy", "FREE")},
		LookedUpAt: base,
		MatchFound: true,
	}); err != nil {
		t.Fatalf("update cache: %v", err)
	}
	entries, err = index.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if index.Reloads() != 2 || !entries[1].Cached {
		t.Fatalf("expected cache change to be picked up, reloads=%d entry=%+v", index.Reloads(), entries[1])
	}

	writeMovies(t, moviesPath, `[{"rank": 1, "title": "Stalker", "year": "1979"}]`, base.Add(time.Hour))
	entries, err = index.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Movie.Title != "Stalker" {
		t.Fatalf("expected reloaded movie list, got %+v", entries)
	}
}

func TestIndexMissingMovieList(t *testing.T) {
	index := NewIndex(filepath.Join(t.TempDir(), "latest.json"), streamcache.NewMemoryBackend(), DefaultPolicy(), nil)
	entries, err := index.Entries(context.Background())
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestServiceFilter(t *testing.T) {
	entries := []Entry{
		{Services: []DisplayOffer{{TechnicalName: "mubi"}}},
		{Services: []DisplayOffer{{TechnicalName: "plex"}, {TechnicalName: "kanopy"}}},
		{},
	}
	if got := ParseServiceFilter("").Apply(entries, nil); len(got) != 3 {
		t.Fatalf("empty filter should keep everything, got %d", len(got))
	}
	if got := ParseServiceFilter("Kanopy, netflix").Apply(entries, nil); len(got) != 1 {
		t.Fatalf("expected one kanopy entry, got %d", len(got))
	}
	if got := ParseServiceFilter(MyServicesToken).Apply(entries, NewServiceSet("mubi")); len(got) != 1 {
		t.Fatalf("expected one mubi entry, got %d", len(got))
	}
	if got := ParseServiceFilter(MyServicesToken).Apply(entries, nil); len(got) != 2 {
		t.Fatalf("without my services any streaming entry matches, got %d", len(got))
	}
}

func TestCountServices(t *testing.T) {
	entries := []Entry{
		{Services: []DisplayOffer{{Name: "Mubi", TechnicalName: "mubi"}}},
		{Services: []DisplayOffer{{Name: "Plex", TechnicalName: "plex"}, {Name: "Mubi", TechnicalName: "mubi"}}},
	}
	counts := CountServices(entries)
	if len(counts) != 2 || counts[0].TechnicalName != "mubi" || counts[0].Count != 2 || counts[1].Count != 1 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}
