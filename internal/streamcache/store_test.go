package streamcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"mubi1000/internal/logging"
)

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func TestIsStale(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		rec      Record
		found    bool
		skipDays int
		want     bool
	}{
		{"absent", Record{}, false, 7, true},
		{"within window", Record{LookedUpAt: now.Add(-2 * 24 * time.Hour)}, true, 7, false},
		{"older than window", Record{LookedUpAt: now.Add(-8 * 24 * time.Hour)}, true, 7, true},
		{"exactly at window", Record{LookedUpAt: now.Add(-7 * 24 * time.Hour)}, true, 7, true},
		{"force mode", Record{LookedUpAt: now.Add(-time.Minute)}, true, 0, true},
		{"zero timestamp", Record{}, true, 7, true},
		{"other zone", Record{LookedUpAt: now.Add(-time.Hour).In(time.FixedZone("EST", -5*3600))}, true, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStale(tt.rec, tt.found, tt.skipDays, now); got != tt.want {
				t.Fatalf("IsStale = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStoreUpsertLookupAndStaleness(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	backend := NewMemoryBackend()
	store, err := Open(ctx, backend, logging.NewNop(), WithClock(fixedClock(now)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if !store.IsStale("thegodfather|1972", 7) {
		t.Fatal("missing record should be stale")
	}

	rec := Record{
		Key:   "thegodfather|1972",
		Title: "The Godfather",
		Year:  "1972",
		Offers: []Offer{
			{ServiceName: "Mubi", TechnicalName: "mubi", MonetizationType: "FLATRATE"},
			{ServiceName: "Mubi", TechnicalName: "mubi", MonetizationType: "FLATRATE"},
			{ServiceName: "Mubi", TechnicalName: "mubi", MonetizationType: "RENT"},
		},
		CatalogID:  "tm1",
		LookedUpAt: now.Add(-48 * time.Hour),
		MatchFound: true,
	}
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, ok := store.Lookup(rec.Key)
	if !ok {
		t.Fatal("expected record after upsert")
	}
	if len(got.Offers) != 2 {
		t.Fatalf("expected offers deduplicated by service and type, got %+v", got.Offers)
	}
	if store.IsStale(rec.Key, 7) {
		t.Fatal("two-day-old record should be fresh for a 7 day window")
	}
	if !store.IsStale(rec.Key, 1) {
		t.Fatal("two-day-old record should be stale for a 1 day window")
	}
	if backend.PutCalls() != 1 {
		t.Fatalf("expected one backend write, got %d", backend.PutCalls())
	}

	rec.Offers = nil
	rec.MatchFound = false
	rec.LookedUpAt = now
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}
	if store.Count() != 1 {
		t.Fatalf("expected one record per key, got %d", store.Count())
	}
	got, _ = store.Lookup(rec.Key)
	if got.MatchFound || got.Offers == nil || len(got.Offers) != 0 {
		t.Fatalf("expected empty non-nil offers for no-match record, got %+v", got)
	}
}

func TestStoreUpsertValidates(t *testing.T) {
	store, err := Open(context.Background(), NewMemoryBackend(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Upsert(context.Background(), Record{LookedUpAt: time.Now()}); err == nil {
		t.Fatal("expected error for empty key")
	}
	if err := store.Upsert(context.Background(), Record{Key: "x"}); err == nil {
		t.Fatal("expected error for missing lookup time")
	}
}

func TestStoreTreatsCorruptBackendAsEmpty(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	if err := backend.Put(ctx, Record{Key: "stale", LookedUpAt: time.Now()}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	backend.FailLoad(ErrCorruptCache)

	store, err := Open(ctx, backend, nil)
	if err != nil {
		t.Fatalf("Open should recover from corruption, got %v", err)
	}
	if store.Count() != 0 {
		t.Fatalf("expected empty store, got %d records", store.Count())
	}

	if err := store.Upsert(ctx, Record{Key: "fresh", LookedUpAt: time.Now()}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	snapshot, err := backend.Load(ctx)
	if err != nil {
		t.Fatalf("Load after reset: %v", err)
	}
	if _, ok := snapshot.Records["stale"]; ok {
		t.Fatal("expected corrupt contents to be cleared before the first write")
	}
	if _, ok := snapshot.Records["fresh"]; !ok {
		t.Fatal("expected new record to be persisted")
	}
}

func TestStoreOpenPropagatesOtherErrors(t *testing.T) {
	backend := NewMemoryBackend()
	backend.FailLoad(errors.New("disk on fire"))
	if _, err := Open(context.Background(), backend, nil); err == nil {
		t.Fatal("expected non-corruption load error to be returned")
	}
}

func TestStoreRemoveClearAndRecordsOrder(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store, err := Open(ctx, NewMemoryBackend(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i, key := range []string{"a", "b", "c"} {
		if err := store.Upsert(ctx, Record{Key: key, LookedUpAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("Upsert %s: %v", key, err)
		}
	}
	records := store.Records()
	if len(records) != 3 || records[0].Key != "c" || records[2].Key != "a" {
		t.Fatalf("expected newest first, got %+v", records)
	}

	if err := store.Remove(ctx, "b"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.Remove(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.SetMetadata(ctx, Metadata{Country: "US", TotalQueried: 3}); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if store.Count() != 0 || store.Metadata().Country != "" {
		t.Fatalf("expected empty store after clear")
	}
}
