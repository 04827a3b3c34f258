package movies

import (
	"errors"
	"fmt"
	"strings"

	"mubi1000/internal/identity"
)

// ErrInvalidMovie reports a record that failed validation.
var ErrInvalidMovie = errors.New("invalid movie record")

// Record mirrors one entry of the scraped list as stored on disk.
type Record struct {
	Rank      int    `json:"rank"`
	Title     string `json:"title"`
	Director  string `json:"director,omitempty"`
	Country   string `json:"country,omitempty"`
	Year      string `json:"year,omitempty"`
	URL       string `json:"url,omitempty"`
	Watchable bool   `json:"watchable"`
}

// Movie is a validated list entry. Optional fields are empty strings when the
// upstream record omitted them.
type Movie struct {
	Rank      int
	Title     string
	Director  string
	Country   string
	Year      string
	URL       string
	Watchable bool
}

// New validates a raw record and returns the corresponding Movie.
func New(rec Record) (Movie, error) {
	title := strings.TrimSpace(rec.Title)
	if title == "" {
		return Movie{}, fmt.Errorf("%w: title is required", ErrInvalidMovie)
	}
	if identity.Normalize(title) == "" {
		return Movie{}, fmt.Errorf("%w: title %q has no letters or digits", ErrInvalidMovie, title)
	}
	if rec.Rank < 0 {
		return Movie{}, fmt.Errorf("%w: %q has negative rank %d", ErrInvalidMovie, title, rec.Rank)
	}
	year := strings.TrimSpace(rec.Year)
	if year != "" {
		if _, ok := identity.ParseYear(year); !ok {
			return Movie{}, fmt.Errorf("%w: %q has malformed year %q", ErrInvalidMovie, title, rec.Year)
		}
	}
	return Movie{
		Rank:      rec.Rank,
		Title:     title,
		Director:  strings.TrimSpace(rec.Director),
		Country:   strings.TrimSpace(rec.Country),
		Year:      year,
		URL:       strings.TrimSpace(rec.URL),
		Watchable: rec.Watchable,
	}, nil
}

// Identity returns the title/year pair used for matching.
func (m Movie) Identity() identity.MovieIdentity {
	return identity.New(m.Title, m.Year)
}

// Key returns the availability cache key for the movie.
func (m Movie) Key() string {
	return identity.Key(m.Title, m.Year)
}

// Record converts the movie back to its on-disk shape.
func (m Movie) Record() Record {
	return Record{
		Rank:      m.Rank,
		Title:     m.Title,
		Director:  m.Director,
		Country:   m.Country,
		Year:      m.Year,
		URL:       m.URL,
		Watchable: m.Watchable,
	}
}

// DisplayTitle renders "Title (Year)".
func (m Movie) DisplayTitle() string {
	return m.Identity().String()
}
