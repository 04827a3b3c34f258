package testsupport

import (
	"context"
	"testing"
	"time"

	"mubi1000/internal/logging"
	"mubi1000/internal/streamcache"
)

// MustOpenStore opens a streamcache.Store over backend and registers cleanup.
func MustOpenStore(t testing.TB, backend streamcache.Backend, opts ...streamcache.Option) *streamcache.Store {
	t.Helper()

	store, err := streamcache.Open(context.Background(), backend, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("streamcache.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedRecord upserts a cached lookup result for title/year.
func SeedRecord(t testing.TB, store *streamcache.Store, key, title, year string, lookedUpAt time.Time, offers ...streamcache.Offer) streamcache.Record {
	t.Helper()

	if offers == nil {
		offers = []streamcache.Offer{}
	}
	rec := streamcache.Record{
		Key:        key,
		Title:      title,
		Year:       year,
		Offers:     offers,
		LookedUpAt: lookedUpAt,
		MatchFound: len(offers) > 0,
	}
	if err := store.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("store.Upsert: %v", err)
	}
	return rec
}
