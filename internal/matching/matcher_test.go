package matching

import (
	"testing"

	"mubi1000/internal/identity"
	"mubi1000/internal/justwatch"
	"mubi1000/internal/logging"
)

func movie(title string, year int) justwatch.Candidate {
	return justwatch.Candidate{Title: title, ReleaseYear: year, ObjectType: justwatch.ObjectTypeMovie}
}

func TestTitleScore(t *testing.T) {
	tests := []struct {
		target, candidate string
		want              float64
	}{
		{"The Godfather", "The Godfather", TitleExact},
		{"the godfather", "THE GODFATHER!", TitleExact},
		{"The Godfather", "The Godfather Part II", TitleContains},
		{"Godfather Part II", "Godfather", TitleContains},
		{"Stalker", "Solaris", 0},
		{"", "Solaris", 0},
		{"Solaris", "", 0},
		{"?!", "Solaris", 0}, // normalizes to empty
	}
	for _, tt := range tests {
		if got := TitleScore(tt.target, tt.candidate); got != tt.want {
			t.Errorf("TitleScore(%q, %q) = %v, want %v", tt.target, tt.candidate, got, tt.want)
		}
	}
}

func TestYearScore(t *testing.T) {
	tests := []struct {
		target, candidate int
		want              float64
	}{
		{1972, 1972, YearExact},
		{1972, 1973, YearNear},
		{1972, 1971, YearNear},
		{1972, 1974, YearClose},
		{1972, 1975, YearClose},
		{1972, 1976, 0},
		{1972, 0, 0},
	}
	for _, tt := range tests {
		if got := YearScore(tt.target, tt.candidate); got != tt.want {
			t.Errorf("YearScore(%d, %d) = %v, want %v", tt.target, tt.candidate, got, tt.want)
		}
	}
}

func TestMatchSelection(t *testing.T) {
	tests := []struct {
		name       string
		target     identity.MovieIdentity
		candidates []justwatch.Candidate
		wantTitle  string
		wantMatch  bool
	}{
		{
			name:   "exact title and year",
			target: identity.New("The Godfather", "1972"),
			candidates: []justwatch.Candidate{
				movie("The Godfather", 1972),
				movie("The Godfather Part II", 1974),
			},
			wantTitle: "The Godfather",
			wantMatch: true,
		},
		{
			name:       "empty candidate list",
			target:     identity.New("The Godfather", "1972"),
			candidates: nil,
		},
		{
			name:       "exact title distant year still reaches threshold",
			target:     identity.New("Solaris", "1972"),
			candidates: []justwatch.Candidate{movie("Solaris", 2002), movie("Solaris Redux", 1990)},
			wantTitle:  "Solaris",
			wantMatch:  true,
		},
		{
			name:       "partial title distant year single candidate",
			target:     identity.New("Solaris", "1972"),
			candidates: []justwatch.Candidate{movie("Solaris Redux", 1990)},
			wantTitle:  "Solaris Redux",
			wantMatch:  true,
		},
		{
			name:       "partial title distant year among several",
			target:     identity.New("Solaris", "1972"),
			candidates: []justwatch.Candidate{movie("Solaris Redux", 1990), movie("Stalker", 1979)},
		},
		{
			name:       "unrelated single candidate",
			target:     identity.New("Solaris", "1972"),
			candidates: []justwatch.Candidate{movie("Mirror", 1975)},
		},
		{
			name:       "partial title near year reaches threshold",
			target:     identity.New("Ran", "1985"),
			candidates: []justwatch.Candidate{movie("Ran Away", 1986), movie("Ransom", 1996)},
			wantTitle:  "Ran Away",
			wantMatch:  true,
		},
		{
			name:       "missing target year is neutral",
			target:     identity.New("Stalker", ""),
			candidates: []justwatch.Candidate{movie("Stalker", 1979), movie("Stalker", 1993)},
			wantTitle:  "Stalker",
			wantMatch:  true,
		},
		{
			name:   "missing candidate year scores zero",
			target: identity.New("Stalker", "1979"),
			candidates: []justwatch.Candidate{
				{Title: "Stalker Redux", ObjectType: justwatch.ObjectTypeMovie},
				movie("Stalker Redux", 1980),
			},
			wantTitle: "Stalker Redux",
			wantMatch: true,
		},
		{
			name:   "shows are ignored and do not count",
			target: identity.New("Solaris", "1972"),
			candidates: []justwatch.Candidate{
				{Title: "Solaris", ReleaseYear: 1972, ObjectType: "SHOW"},
				movie("Solaris Redux", 1990),
			},
			wantTitle: "Solaris Redux",
			wantMatch: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Match(logging.NewNop(), tt.target, tt.candidates)
			if ok != tt.wantMatch {
				t.Fatalf("Match ok = %v, want %v (got %+v)", ok, tt.wantMatch, got)
			}
			if ok && got.Candidate.Title != tt.wantTitle {
				t.Fatalf("matched %q, want %q", got.Candidate.Title, tt.wantTitle)
			}
		})
	}
}

func TestMatchTieKeepsFirstCandidate(t *testing.T) {
	first := movie("Heat", 1995)
	first.EntryID = "tm-first"
	second := movie("Heat", 1995)
	second.EntryID = "tm-second"

	got, ok := Match(nil, identity.New("Heat", "1995"), []justwatch.Candidate{first, second})
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Candidate.EntryID != "tm-first" || got.Index != 0 {
		t.Fatalf("expected first candidate to win the tie, got %+v", got)
	}
}

func TestMatchMissingCandidateYearIsNotNeutral(t *testing.T) {
	withYear := movie("Mirror Images", 1976)
	noYear := justwatch.Candidate{Title: "Mirror Images", ObjectType: justwatch.ObjectTypeMovie}

	got, ok := Match(nil, identity.New("Mirror", "1975"), []justwatch.Candidate{noYear, withYear})
	if !ok {
		t.Fatal("expected a match")
	}
	if got.Candidate.ReleaseYear != 1976 || got.Total() != TitleContains+YearNear {
		t.Fatalf("expected dated candidate to win, got %+v", got)
	}
}
