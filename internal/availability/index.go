package availability

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"mubi1000/internal/logging"
	"mubi1000/internal/movies"
	"mubi1000/internal/streamcache"
)

// Entry is a movie merged with its projected availability.
type Entry struct {
	Movie    movies.Movie
	Record   streamcache.Record
	Cached   bool
	Services []DisplayOffer
}

// Index caches the merged movie list for readers. It reloads the movie list
// when its file changes and the availability cache when the backend's
// modification time changes; otherwise reads are served from memory.
type Index struct {
	moviesPath string
	backend    streamcache.Backend
	policy     Policy
	logger     *slog.Logger

	mu          sync.Mutex
	moviesMod   time.Time
	cacheMod    time.Time
	movieList   []movies.Movie
	records     map[string]streamcache.Record
	entries     []Entry
	loadedOnce  bool
	reloadCount int
}

// NewIndex creates an Index over the movie list at moviesPath and backend.
func NewIndex(moviesPath string, backend streamcache.Backend, policy Policy, logger *slog.Logger) *Index {
	return &Index{
		moviesPath: moviesPath,
		backend:    backend,
		policy:     policy,
		logger:     logging.NewComponentLogger(logger, "availability"),
		records:    map[string]streamcache.Record{},
	}
}

// Entries returns the merged list in list order. The returned slice must not
// be modified.
func (x *Index) Entries(ctx context.Context) ([]Entry, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	moviesMod, err := fileModTime(x.moviesPath)
	if err != nil {
		return nil, err
	}
	cacheMod, err := x.backend.ModTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("cache mod time: %w", err)
	}

	dirty := !x.loadedOnce
	if !moviesMod.Equal(x.moviesMod) || !x.loadedOnce {
		if err := x.reloadMovies(); err != nil {
			return nil, err
		}
		x.moviesMod = moviesMod
		dirty = true
	}
	if !cacheMod.Equal(x.cacheMod) || !x.loadedOnce {
		if err := x.reloadCache(ctx); err != nil {
			return nil, err
		}
		x.cacheMod = cacheMod
		dirty = true
	}
	x.loadedOnce = true
	if dirty {
		x.merge()
	}
	return x.entries, nil
}

// Reloads returns how many times the merged list was rebuilt.
func (x *Index) Reloads() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.reloadCount
}

func (x *Index) reloadMovies() error {
	result, err := movies.LoadFile(x.moviesPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			x.movieList = nil
			return nil
		}
		return err
	}
	for _, invalid := range result.Invalid {
		logging.WarnWithContext(x.logger, "skipping invalid movie record", "movie_invalid",
			logging.Error(invalid),
			logging.String(logging.FieldImpact, "movie omitted from the list"),
			logging.String(logging.FieldErrorHint, "re-run the scraper or fix latest.json"))
	}
	x.movieList = result.Movies
	return nil
}

func (x *Index) reloadCache(ctx context.Context) error {
	store, err := streamcache.Open(ctx, x.backend, x.logger)
	if err != nil {
		return err
	}
	x.records = store.Snapshot()
	return nil
}

func (x *Index) merge() {
	entries := make([]Entry, 0, len(x.movieList))
	for _, movie := range x.movieList {
		rec, ok := x.records[movie.Key()]
		entries = append(entries, Entry{
			Movie:    movie,
			Record:   rec,
			Cached:   ok,
			Services: x.policy.Project(rec, nil),
		})
	}
	x.entries = entries
	x.reloadCount++
}

func fileModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.ModTime(), nil
}
