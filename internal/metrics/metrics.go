// Package metrics records refresh outcomes as Prometheus metrics and writes
// them in the node_exporter textfile format.
package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mubi1000"

// Lookup outcome label values.
const (
	OutcomeRefreshed    = "refreshed"
	OutcomeSkippedFresh = "skipped_fresh"
	OutcomeNotFound     = "not_found"
	OutcomeFailed       = "failed"
)

// Recorder owns a private registry so repeated runs in one process (and
// tests) do not collide on the default registerer.
type Recorder struct {
	registry *prometheus.Registry

	// LookupsTotal tracks per-movie outcomes.
	// Labels:
	//   - outcome: refreshed, skipped_fresh, not_found, failed
	//   - country: catalog region
	LookupsTotal *prometheus.CounterVec

	LastRunTimestamp prometheus.Gauge
	LastRunDuration  prometheus.Gauge
	CacheRecords     prometheus.Gauge
	MoviesMatched    prometheus.Gauge
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookups_total",
				Help:      "Movies processed by availability refreshes, by outcome",
			},
			[]string{"outcome", "country"},
		),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time the last refresh finished",
		}),
		LastRunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_refresh_duration_seconds",
			Help:      "Wall-clock duration of the last refresh",
		}),
		CacheRecords: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_records",
			Help:      "Records in the availability cache after the last refresh",
		}),
		MoviesMatched: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "movies_with_streaming",
			Help:      "Movies with at least one cached offer after the last refresh",
		}),
	}
}

// ObserveLookup counts one movie outcome.
func (r *Recorder) ObserveLookup(outcome, country string) {
	if r == nil {
		return
	}
	r.LookupsTotal.WithLabelValues(outcome, country).Inc()
}

// ObserveRun records the batch summary gauges.
func (r *Recorder) ObserveRun(finishedAt time.Time, duration time.Duration, cacheRecords, matched int) {
	if r == nil {
		return
	}
	r.LastRunTimestamp.Set(float64(finishedAt.Unix()))
	r.LastRunDuration.Set(duration.Seconds())
	r.CacheRecords.Set(float64(cacheRecords))
	r.MoviesMatched.Set(float64(matched))
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return errors.New("metrics recorder unavailable")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
