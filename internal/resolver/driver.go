package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"mubi1000/internal/config"
	"mubi1000/internal/justwatch"
	"mubi1000/internal/logging"
	"mubi1000/internal/matching"
	"mubi1000/internal/metrics"
	"mubi1000/internal/movies"
	"mubi1000/internal/streamcache"
)

// Options selects how one batch runs.
type Options struct {
	Country  string
	SkipDays int
	Force    bool
	// Delay overrides the driver's pacing delay when non-nil.
	Delay *time.Duration
}

// Driver refreshes cached availability for a movie list.
type Driver struct {
	searcher justwatch.Searcher
	store    *streamcache.Store
	logger   *slog.Logger
	now      func() time.Time
	sleep    justwatch.Sleeper
	delay    time.Duration
	lockPath string
	metrics  *metrics.Recorder
	newRunID func() string
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithClock overrides the time source.
func WithClock(now func() time.Time) DriverOption {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}

// WithSleeper overrides the pacing sleep; tests use a recording no-op.
func WithSleeper(sleep justwatch.Sleeper) DriverOption {
	return func(d *Driver) {
		if sleep != nil {
			d.sleep = sleep
		}
	}
}

// WithDelay sets the default pacing delay between catalog calls.
func WithDelay(delay time.Duration) DriverOption {
	return func(d *Driver) {
		if delay >= 0 {
			d.delay = delay
		}
	}
}

// WithLockPath makes Refresh hold a file lock at path for the whole batch.
func WithLockPath(path string) DriverOption {
	return func(d *Driver) {
		d.lockPath = strings.TrimSpace(path)
	}
}

// WithMetrics records per-movie outcomes and batch gauges.
func WithMetrics(rec *metrics.Recorder) DriverOption {
	return func(d *Driver) {
		d.metrics = rec
	}
}

// WithRunID fixes the run identifier generator.
func WithRunID(fn func() string) DriverOption {
	return func(d *Driver) {
		if fn != nil {
			d.newRunID = fn
		}
	}
}

// NewDriver constructs a Driver over an opened cache store.
func NewDriver(searcher justwatch.Searcher, store *streamcache.Store, logger *slog.Logger, opts ...DriverOption) (*Driver, error) {
	if searcher == nil {
		return nil, errors.New("catalog searcher required")
	}
	if store == nil {
		return nil, errors.New("cache store required")
	}
	d := &Driver{
		searcher: searcher,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "resolver"),
		now:      time.Now,
		sleep:    justwatch.SleepWithContext,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Refresh looks up every movie whose record is missing or stale (or every
// movie when Force is set) and returns the batch report. The returned error
// is non-nil only when the batch could not start.
func (d *Driver) Refresh(ctx context.Context, list []movies.Movie, opts Options) (Report, error) {
	country := strings.ToUpper(strings.TrimSpace(opts.Country))
	if !config.IsCountryCode(country) {
		return Report{}, fmt.Errorf("%w: %q", ErrInvalidCountry, opts.Country)
	}
	delay := d.delay
	if opts.Delay != nil && *opts.Delay >= 0 {
		delay = *opts.Delay
	}

	if d.lockPath != "" {
		lock, err := streamcache.AcquireLock(d.lockPath)
		if err != nil {
			return Report{}, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				d.logger.Warn("failed to release refresh lock",
					logging.String("path", lock.Path()),
					logging.Error(err))
			}
		}()
		// Pick up writes made by other processes before the lock was taken.
		if err := d.store.Reload(ctx); err != nil {
			return Report{}, fmt.Errorf("reload cache: %w", err)
		}
	}

	report := Report{
		RunID:     d.newRunID(),
		Country:   country,
		Total:     len(list),
		StartedAt: d.now(),
	}
	logger := d.logger.With(
		logging.String(logging.FieldRunID, report.RunID),
		logging.String(logging.FieldCountry, country),
	)
	logger.Info("availability refresh started",
		logging.Int("movie_count", report.Total),
		logging.Bool("force", opts.Force),
		logging.Int("skip_days", opts.SkipDays),
		logging.Duration("delay", delay))

	called := false
	for i, movie := range list {
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		key := movie.Key()

		if !opts.Force && !d.store.IsStale(key, opts.SkipDays) {
			report.SkippedFresh++
			if rec, ok := d.store.Lookup(key); ok && rec.HasOffers() {
				report.WithStreaming++
			}
			d.metrics.ObserveLookup(metrics.OutcomeSkippedFresh, country)
			continue
		}

		if called && delay > 0 {
			if err := d.sleep(ctx, delay); err != nil {
				report.Interrupted = true
				break
			}
		}
		called = true

		// A started lookup runs to completion so its record is never half-written.
		outcome := d.refreshOne(context.WithoutCancel(ctx), logger, movie, country)
		progress := fmt.Sprintf("[%d/%d]", i+1, report.Total)
		switch outcome.kind {
		case outcomeFailed:
			report.Failed++
			report.FailedTitles = append(report.FailedTitles, movie.DisplayTitle())
			d.metrics.ObserveLookup(metrics.OutcomeFailed, country)
		case outcomeNotFound:
			report.NotFound++
			d.metrics.ObserveLookup(metrics.OutcomeNotFound, country)
			logger.Info(progress+" "+movie.DisplayTitle()+" -> no streaming found",
				logging.String(logging.FieldCacheKey, key))
		default:
			report.Refreshed++
			d.metrics.ObserveLookup(metrics.OutcomeRefreshed, country)
			if len(outcome.offers) > 0 {
				report.WithStreaming++
				logger.Info(progress+" "+movie.DisplayTitle()+" -> "+serviceNames(outcome.offers),
					logging.String(logging.FieldCacheKey, key),
					logging.Int("offer_count", len(outcome.offers)))
			} else {
				logger.Info(progress+" "+movie.DisplayTitle()+" -> no streaming found",
					logging.String(logging.FieldCacheKey, key),
					logging.String("catalog_id", outcome.catalogID))
			}
		}
	}

	finished := d.now()
	report.Duration = finished.Sub(report.StartedAt)

	meta := streamcache.Metadata{
		Country:      country,
		LastFullRun:  finished,
		TotalQueried: report.Total,
		TotalMatched: report.WithStreaming,
	}
	if err := d.store.SetMetadata(context.WithoutCancel(ctx), meta); err != nil {
		logging.WarnWithContext(logger, "failed to persist refresh metadata", "cache_metadata_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "last run summary is out of date; cached records are unaffected"),
			logging.String(logging.FieldErrorHint, "check the cache backend is writable"))
	}
	d.metrics.ObserveRun(finished, report.Duration, d.store.Count(), report.WithStreaming)

	summary := []logging.Attr{
		logging.Int("refreshed", report.Refreshed),
		logging.Int("not_found", report.NotFound),
		logging.Int("skipped_fresh", report.SkippedFresh),
		logging.Int("failed", report.Failed),
		logging.Int("with_streaming", report.WithStreaming),
		logging.Int("total", report.Total),
		logging.Duration("duration", report.Duration),
	}
	if report.Interrupted {
		logging.WarnWithContext(logger, "availability refresh interrupted", "refresh_interrupted",
			append(summary,
				logging.String(logging.FieldImpact, "remaining movies keep their previous cache records"),
				logging.String(logging.FieldErrorHint, "rerun the refresh; fresh records are skipped"))...)
	} else {
		logger.Info("availability refresh finished", logging.Args(summary...)...)
	}
	return report, nil
}

type outcomeKind int

const (
	outcomeMatched outcomeKind = iota
	outcomeNotFound
	outcomeFailed
)

type lookupOutcome struct {
	kind      outcomeKind
	offers    []streamcache.Offer
	catalogID string
}

func (d *Driver) refreshOne(ctx context.Context, logger *slog.Logger, movie movies.Movie, country string) lookupOutcome {
	target := movie.Identity()
	movieLogger := logger.With(logging.String(logging.FieldMovie, target.String()))

	candidates, err := d.searcher.Search(ctx, movie.Title, country)
	if err != nil {
		logging.WarnWithContext(movieLogger, "catalog lookup failed", "catalog_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "movie keeps its previous cache record"),
			logging.String(logging.FieldErrorHint, "the next refresh retries this movie"))
		return lookupOutcome{kind: outcomeFailed}
	}

	rec := streamcache.Record{
		Key:        movie.Key(),
		Title:      movie.Title,
		Year:       movie.Year,
		Offers:     []streamcache.Offer{},
		LookedUpAt: d.now(),
	}
	kind := outcomeNotFound
	if best, ok := matching.Match(movieLogger, target, candidates); ok {
		kind = outcomeMatched
		rec.MatchFound = true
		rec.CatalogID = best.Candidate.EntryID
		rec.Offers = cacheOffers(best.Candidate.Offers)
	}

	if err := d.store.Upsert(ctx, rec); err != nil {
		logging.ErrorWithContext(movieLogger, "failed to cache lookup result", "cache_write_failed",
			logging.Error(err),
			logging.String(logging.FieldCacheKey, rec.Key),
			logging.String(logging.FieldImpact, "lookup result discarded"),
			logging.String(logging.FieldErrorHint, "check the cache backend is writable"))
		return lookupOutcome{kind: outcomeFailed}
	}
	return lookupOutcome{kind: kind, offers: rec.Offers, catalogID: rec.CatalogID}
}

func cacheOffers(offers []justwatch.Offer) []streamcache.Offer {
	out := make([]streamcache.Offer, 0, len(offers))
	for _, offer := range offers {
		out = append(out, streamcache.Offer{
			ServiceName:      offer.ServiceName,
			TechnicalName:    offer.TechnicalName,
			MonetizationType: offer.MonetizationType,
			ProviderChannel:  offer.ProviderChannel,
		})
	}
	return streamcache.DedupeOffers(out)
}

func serviceNames(offers []streamcache.Offer) string {
	names := make([]string, 0, len(offers))
	seen := make(map[string]struct{}, len(offers))
	for _, offer := range offers {
		if _, ok := seen[offer.ServiceName]; ok {
			continue
		}
		seen[offer.ServiceName] = struct{}{}
		names = append(names, offer.ServiceName)
	}
	return strings.Join(names, ", ")
}
