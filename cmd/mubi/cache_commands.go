package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mubi1000/internal/availability"
	"mubi1000/internal/identity"
	"mubi1000/internal/streamcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the availability cache",
		Long: `Inspect and manage the availability cache.

The cache stores the raw JustWatch offers for every movie looked up by
'mubi streaming', including movies with no offers, so unchanged movies are
not queried again within the skip window.

Commands:
  list     - List cached movies, most recently looked up first
  show     - Show raw and projected offers for a title
  remove   - Remove a specific entry by number (see 'list' for numbers)
  clear    - Remove all cached entries
  stats    - Summarize the cache and the last refresh`,
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheShowCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))

	return cacheCmd
}

type cacheEntryView struct {
	Number     int                 `json:"number"`
	Key        string              `json:"key"`
	Title      string              `json:"title"`
	Year       string              `json:"year,omitempty"`
	MatchFound bool                `json:"match_found"`
	CatalogID  string              `json:"justwatch_id,omitempty"`
	LookedUpAt time.Time           `json:"last_updated"`
	Offers     []streamcache.Offer `json:"services"`
}

func newCacheEntryView(number int, rec streamcache.Record) cacheEntryView {
	title := rec.Title
	if title == "" {
		title = rec.Key
	}
	return cacheEntryView{
		Number:     number,
		Key:        rec.Key,
		Title:      title,
		Year:       rec.Year,
		MatchFound: rec.MatchFound,
		CatalogID:  rec.CatalogID,
		LookedUpAt: rec.LookedUpAt,
		Offers:     rec.Offers,
	}
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached movies",
		Long:  "Display every cached lookup, sorted by most recently looked up.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCLIStore(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			records := store.Records()
			views := make([]cacheEntryView, 0, len(records))
			for i, rec := range records {
				views = append(views, newCacheEntryView(i+1, rec))
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "Availability cache: empty")
				return nil
			}
			fmt.Fprintf(out, "Availability cache: %d entries\n\n", len(views))

			rows := make([][]string, 0, len(views))
			for _, view := range views {
				title := view.Title
				if view.Year != "" {
					title = fmt.Sprintf("%s (%s)", title, view.Year)
				}
				rows = append(rows, []string{
					strconv.Itoa(view.Number),
					title,
					yesNo(view.MatchFound),
					strconv.Itoa(len(view.Offers)),
					view.LookedUpAt.Local().Format(time.DateOnly),
				})
			}
			fmt.Fprintln(out, renderTable(out, []string{"#", "Title", "Matched", "Offers", "Looked up"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft}))
			return nil
		},
	}
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <title>",
		Short: "Show cached offers for a title",
		Long: `Show the raw cached offers for a title next to what 'mubi availability'
displays after filtering. Titles are matched after normalization, so case,
accents, and punctuation do not matter.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := openCLIStore(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			policy, err := availability.PolicyFromConfig(cfg.Availability)
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			matches := findRecords(store.Records(), query)
			if len(matches) == 0 {
				return fmt.Errorf("no cached entry for %q", query)
			}

			type showView struct {
				cacheEntryView
				Projected []availability.DisplayOffer `json:"projected"`
			}
			views := make([]showView, 0, len(matches))
			for i, rec := range matches {
				projected := policy.Project(rec, nil)
				if projected == nil {
					projected = []availability.DisplayOffer{}
				}
				views = append(views, showView{cacheEntryView: newCacheEntryView(i+1, rec), Projected: projected})
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			for _, view := range views {
				fmt.Fprintf(out, "%s", view.Title)
				if view.Year != "" {
					fmt.Fprintf(out, " (%s)", view.Year)
				}
				fmt.Fprintf(out, "\n  Key: %s | Matched: %s | Looked up: %s\n",
					view.Key, yesNo(view.MatchFound), view.LookedUpAt.Local().Format(time.DateTime))
				if view.CatalogID != "" {
					fmt.Fprintf(out, "  JustWatch: %s\n", view.CatalogID)
				}
				if len(view.Offers) == 0 {
					fmt.Fprintln(out, "  No offers cached")
				} else {
					rows := make([][]string, 0, len(view.Offers))
					for _, offer := range view.Offers {
						rows = append(rows, []string{offer.ServiceName, offer.TechnicalName, offer.MonetizationType})
					}
					fmt.Fprintln(out, renderTable(out, []string{"Service", "Technical name", "Type"}, rows, nil))
				}
				if len(view.Projected) == 0 {
					fmt.Fprintln(out, "  Streaming: none")
				} else {
					fmt.Fprintf(out, "  Streaming: %s\n", formatServices(view.Projected))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

// findRecords returns records whose key or normalized title equals query.
func findRecords(records []streamcache.Record, query string) []streamcache.Record {
	query = strings.TrimSpace(query)
	normalized := identity.Normalize(query)
	var out []streamcache.Record
	for _, rec := range records {
		if rec.Key == query {
			return []streamcache.Record{rec}
		}
		if normalized != "" && identity.Normalize(rec.Title) == normalized {
			out = append(out, rec)
		}
	}
	return out
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <number>",
		Short: "Remove a specific cache entry by number",
		Long: `Remove a specific cache entry by its number from 'mubi cache list'.
The movie is looked up again by the next 'mubi streaming' run.

Example:
  mubi cache list        # Shows numbered list of cached movies
  mubi cache remove 2    # Removes entry #2 from the list`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entryNum, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil || entryNum < 1 {
				return fmt.Errorf("invalid entry number: %s (must be a positive integer)", args[0])
			}

			release, err := lockCache(ctx)
			if err != nil {
				return err
			}
			defer release()

			store, err := openCLIStore(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			records := store.Records()
			if entryNum > len(records) {
				return fmt.Errorf("cache entry %d out of range (only %d entries exist)", entryNum, len(records))
			}
			rec := records[entryNum-1]
			if err := store.Remove(cmd.Context(), rec.Key); err != nil {
				return err
			}

			view := newCacheEntryView(entryNum, rec)
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"removed": true,
					"entry":   entryNum,
					"title":   view.Title,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed availability cache entry %d (%s)\n", entryNum, view.Title)
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cache entries",
		Long:  "Delete every cached lookup. The next 'mubi streaming' run looks up every movie again.",
		RunE: func(cmd *cobra.Command, args []string) error {
			release, err := lockCache(ctx)
			if err != nil {
				return err
			}
			defer release()

			store, err := openCLIStore(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			count := store.Count()
			if count == 0 {
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"removed": 0})
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Availability cache is already empty")
				return nil
			}

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{"removed": count})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d availability cache entries\n", count)
			return nil
		},
	}
}

type cacheStatsView struct {
	Backend      string    `json:"backend"`
	Entries      int       `json:"entries"`
	Matched      int       `json:"matched"`
	WithOffers   int       `json:"with_offers"`
	Stale        int       `json:"stale"`
	SkipDays     int       `json:"skip_days"`
	Country      string    `json:"country,omitempty"`
	LastFullRun  time.Time `json:"last_full_run"`
	TotalQueried int       `json:"total_queried"`
	TotalMatched int       `json:"total_matched"`
	LastModified time.Time `json:"last_modified"`
	OldestLookup time.Time `json:"oldest_lookup"`
	NewestLookup time.Time `json:"newest_lookup"`
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the availability cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := openCLIStore(cmd, ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			meta := store.Metadata()
			view := cacheStatsView{
				Backend:      cfg.Cache.Backend,
				SkipDays:     cfg.Streaming.SkipDays,
				Country:      meta.Country,
				LastFullRun:  meta.LastFullRun,
				TotalQueried: meta.TotalQueried,
				TotalMatched: meta.TotalMatched,
			}
			now := time.Now()
			records := store.Records()
			view.Entries = len(records)
			for i, rec := range records {
				if rec.MatchFound {
					view.Matched++
				}
				if rec.HasOffers() {
					view.WithOffers++
				}
				if streamcache.IsStale(rec, true, cfg.Streaming.SkipDays, now) {
					view.Stale++
				}
				if i == 0 {
					view.NewestLookup = rec.LookedUpAt
				}
				view.OldestLookup = rec.LookedUpAt
			}
			if mod, err := store.ModTime(cmd.Context()); err == nil {
				view.LastModified = mod
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Backend", view.Backend},
				{"Entries", strconv.Itoa(view.Entries)},
				{"Matched", strconv.Itoa(view.Matched)},
				{"With offers", strconv.Itoa(view.WithOffers)},
				{"Stale", fmt.Sprintf("%d (older than %d days)", view.Stale, view.SkipDays)},
				{"Oldest lookup", formatStamp(view.OldestLookup)},
				{"Newest lookup", formatStamp(view.NewestLookup)},
				{"Last refresh", formatStamp(view.LastFullRun)},
			}
			if view.Country != "" {
				rows = append(rows, []string{"Last country", view.Country})
				rows = append(rows, []string{"Last streaming", fmt.Sprintf("%d/%d", view.TotalMatched, view.TotalQueried)})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}

func formatStamp(ts time.Time) string {
	if ts.IsZero() {
		return "never"
	}
	return ts.Local().Format(time.DateTime)
}

// openCLIStore opens the cache store with a quiet logger.
func openCLIStore(cmd *cobra.Command, ctx *commandContext) (*streamcache.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := ctx.newCLILogger(cfg, true)
	if err != nil {
		return nil, err
	}
	return openStore(cmd.Context(), cfg, logger)
}

// lockCache takes the refresh lock so maintenance never races a refresh.
func lockCache(ctx *commandContext) (func(), error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	lock, err := streamcache.AcquireLock(cfg.LockPath())
	if err != nil {
		if errors.Is(err, streamcache.ErrLocked) {
			return nil, errors.New("a streaming refresh is running; try again when it finishes")
		}
		return nil, err
	}
	return func() { _ = lock.Release() }, nil
}
