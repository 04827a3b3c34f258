package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mubi1000/internal/availability"
	"mubi1000/internal/justwatch"
	"mubi1000/internal/streamcache"
)

func newAvailabilityCommand(ctx *commandContext) *cobra.Command {
	var serviceFilter string
	var mine bool

	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Show where each movie streams",
		Long: `Show projected streaming availability for every movie in latest.json.

Offers come from the cache only; this command never calls JustWatch.
Rentals, purchases, ad-supported tiers, and reseller channels are hidden.

--service takes a comma-separated list of technical names (for example
"mubi,criterionchannel") or __my__ for the services saved with
'mubi services set'. --mine hides services outside that saved list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newCLILogger(cfg, true)
			if err != nil {
				return err
			}
			policy, err := availability.PolicyFromConfig(cfg.Availability)
			if err != nil {
				return err
			}

			backend, err := streamcache.OpenBackend(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer backend.Close()

			index := availability.NewIndex(cfg.MoviesPath(), backend, policy, logger)
			entries, err := index.Entries(cmd.Context())
			if err != nil {
				return err
			}

			my := availability.LoadMyServices(cfg.MyServicesPath(), logger)
			if mine {
				entries = restrictToMine(entries, policy, my)
			}
			filter := availability.ParseServiceFilter(serviceFilter)
			total := len(entries)
			entries = filter.Apply(entries, my)

			if ctx.JSONMode() {
				return writeJSON(cmd, newAvailabilityViews(entries))
			}
			printAvailability(cmd.OutOrStdout(), entries, total, filter.Active())
			return nil
		},
	}

	cmd.Flags().StringVar(&serviceFilter, "service", "", "Only movies on these services (comma-separated technical names, or __my__)")
	cmd.Flags().BoolVar(&mine, "mine", false, "Only show services saved with 'mubi services set'")
	return cmd
}

// restrictToMine re-projects each entry through the my-services filter. With
// no saved services the entries are returned unchanged.
func restrictToMine(entries []availability.Entry, policy availability.Policy, my availability.ServiceSet) []availability.Entry {
	if my == nil {
		return entries
	}
	out := make([]availability.Entry, len(entries))
	for i, entry := range entries {
		entry.Services = policy.Project(entry.Record, my)
		out[i] = entry
	}
	return out
}

type availabilityView struct {
	Rank      int                         `json:"rank"`
	Title     string                      `json:"title"`
	Director  string                      `json:"director,omitempty"`
	Country   string                      `json:"country,omitempty"`
	Year      string                      `json:"year,omitempty"`
	URL       string                      `json:"url,omitempty"`
	Watchable bool                        `json:"watchable"`
	Checked   bool                        `json:"streaming_checked"`
	CheckedAt string                      `json:"streaming_checked_at,omitempty"`
	Streaming []availability.DisplayOffer `json:"streaming"`
}

func newAvailabilityViews(entries []availability.Entry) []availabilityView {
	views := make([]availabilityView, 0, len(entries))
	for _, entry := range entries {
		view := availabilityView{
			Rank:      entry.Movie.Rank,
			Title:     entry.Movie.Title,
			Director:  entry.Movie.Director,
			Country:   entry.Movie.Country,
			Year:      entry.Movie.Year,
			URL:       entry.Movie.URL,
			Watchable: entry.Movie.Watchable,
			Checked:   entry.Cached,
			Streaming: entry.Services,
		}
		if view.Streaming == nil {
			view.Streaming = []availability.DisplayOffer{}
		}
		if entry.Cached {
			view.CheckedAt = entry.Record.LookedUpAt.UTC().Format(time.RFC3339)
		}
		views = append(views, view)
	}
	return views
}

func printAvailability(out io.Writer, entries []availability.Entry, total int, filtered bool) {
	if len(entries) == 0 {
		if filtered {
			fmt.Fprintln(out, "No movies match the service filter")
		} else {
			fmt.Fprintln(out, "No movies loaded; run the scraper to produce latest.json")
		}
		return
	}

	streaming := 0
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		services := "-"
		switch {
		case len(entry.Services) > 0:
			streaming++
			services = formatServices(entry.Services)
		case !entry.Cached:
			services = "not checked"
		}
		rows = append(rows, []string{
			strconv.Itoa(entry.Movie.Rank),
			entry.Movie.Title,
			entry.Movie.Year,
			services,
		})
	}
	fmt.Fprintln(out, renderTable(out, []string{"#", "Title", "Year", "Streaming"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
	if filtered {
		fmt.Fprintf(out, "%d of %d movies match\n", len(entries), total)
		return
	}
	fmt.Fprintf(out, "%d of %d movies streaming\n", streaming, len(entries))
}

// formatServices renders "Mubi, Kanopy (Free)": subscription offers are
// shown bare and other tiers carry their monetization label.
func formatServices(offers []availability.DisplayOffer) string {
	parts := make([]string, 0, len(offers))
	for _, offer := range offers {
		label := offer.Name
		if offer.MonetizationType != "" && offer.MonetizationType != justwatch.MonetizationFlatrate {
			label = fmt.Sprintf("%s (%s)", label, cases.Title(language.English).String(strings.ToLower(offer.MonetizationType)))
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, ", ")
}
