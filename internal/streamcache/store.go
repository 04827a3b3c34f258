package streamcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"mubi1000/internal/logging"
)

// Store provides thread-safe access to the availability cache.
type Store struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	records map[string]Record
	meta    Metadata
	// reset is set when the persisted data was corrupt; the first write
	// clears the backend so old garbage is not mixed with new records.
	reset bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open loads the backend's contents. Corrupt data is logged and the store
// starts empty; any other load error is returned.
func Open(ctx context.Context, backend Backend, logger *slog.Logger, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("cache backend required")
	}
	s := &Store{
		backend: backend,
		logger:  logging.NewComponentLogger(logger, "streamcache"),
		now:     time.Now,
		records: make(map[string]Record),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the in-memory copy with what the backend holds now. A
// refresh calls it after taking the lock so changes made by another process
// since Open are not overwritten.
func (s *Store) Reload(ctx context.Context) error {
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) error {
	snapshot, err := s.backend.Load(ctx)
	switch {
	case errors.Is(err, ErrCorruptCache):
		logging.WarnWithContext(s.logger, "failed to load availability cache", "cache_corrupt",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the cache will be rebuilt by the next refresh"),
			logging.String(logging.FieldImpact, "every movie is treated as never looked up"))
		s.mu.Lock()
		s.records = make(map[string]Record)
		s.meta = Metadata{}
		s.reset = true
		s.mu.Unlock()
		return nil
	case err != nil:
		return fmt.Errorf("load cache: %w", err)
	}

	records := make(map[string]Record, len(snapshot.Records))
	for key, rec := range snapshot.Records {
		rec.Key = key
		records[key] = rec
	}
	for key, skipErr := range snapshot.Skipped {
		logging.WarnWithContext(s.logger, "skipping unreadable cache record", "cache_record_invalid",
			logging.Error(skipErr),
			logging.String(logging.FieldCacheKey, key),
			logging.String(logging.FieldImpact, "movie is treated as never looked up"),
			logging.String(logging.FieldErrorHint, "the next refresh looks the movie up again"))
	}
	if snapshot.MetadataErr != nil {
		logging.WarnWithContext(s.logger, "ignoring unreadable cache metadata", "cache_metadata_invalid",
			logging.Error(snapshot.MetadataErr),
			logging.String(logging.FieldImpact, "last run summary is unknown until the next refresh"),
			logging.String(logging.FieldErrorHint, "the next refresh rewrites the metadata"))
	}

	s.mu.Lock()
	s.records = records
	s.meta = snapshot.Metadata
	s.reset = false
	s.mu.Unlock()
	s.logger.Debug("loaded availability cache", logging.Int("entry_count", len(records)))
	return nil
}

// Lookup returns the record stored under key.
func (s *Store) Lookup(key string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[strings.TrimSpace(key)]
	return rec, ok
}

// IsStale reports whether key needs a new lookup under a skipDays window.
func (s *Store) IsStale(key string, skipDays int) bool {
	rec, ok := s.Lookup(key)
	return IsStale(rec, ok, skipDays, s.now())
}

// Upsert replaces the record for rec.Key. The backend write happens before
// the in-memory copy changes, so a failed write leaves the old record intact.
func (s *Store) Upsert(ctx context.Context, rec Record) error {
	rec, err := rec.normalized()
	if err != nil {
		return err
	}
	rec.Offers = DedupeOffers(rec.Offers)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resetIfNeeded(ctx); err != nil {
		return err
	}
	if err := s.backend.Put(ctx, rec); err != nil {
		return fmt.Errorf("persist cache record: %w", err)
	}
	s.records[rec.Key] = rec
	s.logger.Debug("cached availability",
		logging.String(logging.FieldCacheKey, rec.Key),
		logging.Int("offer_count", len(rec.Offers)),
		logging.Bool("match_found", rec.MatchFound))
	return nil
}

// Remove deletes the record for key.
func (s *Store) Remove(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("cache key cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("persist cache removal: %w", err)
	}
	delete(s.records, key)
	s.logger.Debug("removed cache record", logging.String(logging.FieldCacheKey, key))
	return nil
}

// Clear removes every record and the metadata.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	s.records = make(map[string]Record)
	s.meta = Metadata{}
	s.reset = false
	s.logger.Debug("cleared availability cache")
	return nil
}

// Records returns every record, most recently looked up first.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LookedUpAt.Equal(out[j].LookedUpAt) {
			return out[i].LookedUpAt.After(out[j].LookedUpAt)
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Snapshot returns a copy of the records keyed by cache key.
func (s *Store) Snapshot() map[string]Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Record, len(s.records))
	for key, rec := range s.records {
		out[key] = rec
	}
	return out
}

// Count returns the number of records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Metadata returns the last batch summary.
func (s *Store) Metadata() Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// SetMetadata persists a batch summary.
func (s *Store) SetMetadata(ctx context.Context, meta Metadata) error {
	meta.LastFullRun = meta.LastFullRun.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resetIfNeeded(ctx); err != nil {
		return err
	}
	if err := s.backend.PutMetadata(ctx, meta); err != nil {
		return fmt.Errorf("persist cache metadata: %w", err)
	}
	s.meta = meta
	return nil
}

// ModTime reports when the persisted cache last changed.
func (s *Store) ModTime(ctx context.Context) (time.Time, error) {
	return s.backend.ModTime(ctx)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) resetIfNeeded(ctx context.Context) error {
	if !s.reset {
		return nil
	}
	if err := s.backend.Clear(ctx); err != nil {
		return fmt.Errorf("reset corrupt cache: %w", err)
	}
	s.reset = false
	return nil
}
