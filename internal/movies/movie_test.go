package movies

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewValidatesRecords(t *testing.T) {
	tests := []struct {
		name    string
		rec     Record
		wantErr bool
	}{
		{"valid", Record{Rank: 1, Title: " The Godfather ", Year: "1972"}, false},
		{"missing year", Record{Rank: 2, Title: "Stalker"}, false},
		{"blank title", Record{Rank: 3, Title: "   "}, true},
		{"punctuation title", Record{Rank: 4, Title: "?!"}, true},
		{"negative rank", Record{Rank: -1, Title: "Persona"}, true},
		{"bad year", Record{Rank: 5, Title: "Persona", Year: "sixties"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			movie, err := New(tt.rec)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMovie) {
					t.Fatalf("expected ErrInvalidMovie, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if movie.Title != strings.TrimSpace(tt.rec.Title) {
				t.Fatalf("expected trimmed title, got %q", movie.Title)
			}
		})
	}
}

func TestMovieKeyUsesIdentity(t *testing.T) {
	movie, err := New(Record{Title: "The Godfather", Year: "1972"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if movie.Key() != "thegodfather|1972" {
		t.Fatalf("unexpected key %q", movie.Key())
	}
	if movie.DisplayTitle() != "The Godfather (1972)" {
		t.Fatalf("unexpected display title %q", movie.DisplayTitle())
	}
}

func TestLoadFileKeepsOrderAndReportsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest.json")
	content := `[
  {"rank": 1, "title": "Tokyo Story", "director": "Yasujirō Ozu", "country": "Japan", "year": "1953", "url": "https://mubi.com/films/tokyo-story", "watchable": true},
  {"rank": 2, "title": "", "year": "1960"},
  {"rank": 3, "title": "Vertigo", "director": "Alfred Hitchcock", "year": "1958"}
]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write list: %v", err)
	}
	result, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(result.Movies) != 2 {
		t.Fatalf("expected 2 movies, got %d", len(result.Movies))
	}
	if result.Movies[0].Title != "Tokyo Story" || result.Movies[1].Title != "Vertigo" {
		t.Fatalf("unexpected order: %+v", result.Movies)
	}
	if !result.Movies[0].Watchable {
		t.Fatal("expected watchable flag to survive")
	}
	if len(result.Invalid) != 1 || !errors.Is(result.Invalid[0], ErrInvalidMovie) {
		t.Fatalf("expected one invalid record, got %v", result.Invalid)
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	if _, err := Load(strings.NewReader(`{"rank": 1}`)); err == nil {
		t.Fatal("expected decode error for non-array input")
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
