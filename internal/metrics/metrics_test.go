package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRecorderWritesTextfile(t *testing.T) {
	rec := New()
	rec.ObserveLookup(OutcomeRefreshed, "US")
	rec.ObserveLookup(OutcomeRefreshed, "US")
	rec.ObserveLookup(OutcomeFailed, "US")
	rec.ObserveRun(time.Unix(1_700_000_000, 0), 90*time.Second, 12, 7)

	path := filepath.Join(t.TempDir(), "textfile", "mubi1000.prom")
	if err := rec.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`mubi1000_lookups_total{country="US",outcome="refreshed"} 2`,
		`mubi1000_lookups_total{country="US",outcome="failed"} 1`,
		`mubi1000_cache_records 12`,
		`mubi1000_movies_with_streaming 7`,
		`mubi1000_last_refresh_duration_seconds 90`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in textfile:\n%s", want, text)
		}
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	rec.ObserveLookup(OutcomeFailed, "US")
	rec.ObserveRun(time.Now(), time.Second, 1, 1)
	if err := rec.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err == nil {
		t.Fatal("expected error from nil recorder")
	}
}
