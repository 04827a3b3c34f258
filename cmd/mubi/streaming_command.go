package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mubi1000/internal/config"
	"mubi1000/internal/justwatch"
	"mubi1000/internal/logging"
	"mubi1000/internal/metrics"
	"mubi1000/internal/movies"
	"mubi1000/internal/preflight"
	"mubi1000/internal/resolver"
)

func newStreamingCommand(ctx *commandContext) *cobra.Command {
	var country string
	var force bool
	var skipDays int
	var delaySeconds float64

	cmd := &cobra.Command{
		Use:   "streaming",
		Short: "Refresh streaming availability from JustWatch",
		Long: `Look up every movie in latest.json on JustWatch and cache the offers.

Movies looked up within --skip-days are skipped unless --force is given.
Lookups are sequential and paced by --delay seconds between catalog calls.
Per-movie failures are reported at the end; they do not stop the run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newCLILogger(cfg, false)
			if err != nil {
				return err
			}

			opts := resolver.Options{
				Country:  cfg.Streaming.Country,
				SkipDays: cfg.Streaming.SkipDays,
				Force:    force,
			}
			if cmd.Flags().Changed("country") {
				opts.Country = country
			}
			if cmd.Flags().Changed("skip-days") {
				if skipDays < 0 {
					return errors.New("--skip-days must be >= 0")
				}
				opts.SkipDays = skipDays
			}
			if cmd.Flags().Changed("delay") {
				if delaySeconds < 0 {
					return errors.New("--delay must be >= 0")
				}
				delay := config.SecondsToDuration(delaySeconds)
				opts.Delay = &delay
			}

			if check := preflight.CheckDirectoryAccess("Data directory", cfg.Paths.DataDir); !check.Passed {
				return fmt.Errorf("data directory not usable: %s", check.Detail)
			}

			loaded, err := movies.LoadFile(cfg.MoviesPath())
			if err != nil {
				return fmt.Errorf("load movie list: %w", err)
			}
			for _, invalid := range loaded.Invalid {
				logging.WarnWithContext(logger, "skipping invalid movie record", "movie_invalid",
					logging.Error(invalid),
					logging.String(logging.FieldImpact, "movie is not looked up"),
					logging.String(logging.FieldErrorHint, "fix the record in latest.json"))
			}

			runCtx := cmd.Context()
			store, err := openStore(runCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			client, err := newCatalogClient(cfg, logger)
			if err != nil {
				return err
			}

			recorder := metrics.New()
			driver, err := resolver.NewDriver(client, store, logger,
				resolver.WithDelay(cfg.RequestDelay()),
				resolver.WithLockPath(cfg.LockPath()),
				resolver.WithMetrics(recorder),
			)
			if err != nil {
				return err
			}

			report, err := driver.Refresh(runCtx, loaded.Movies, opts)
			if err != nil {
				return err
			}
			writeMetrics(cfg, recorder, logger)

			if ctx.JSONMode() {
				return writeJSON(cmd, newReportView(report))
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVar(&country, "country", "", "Catalog region (two-letter code, default from config)")
	cmd.Flags().BoolVar(&force, "force", false, "Look up every movie regardless of cache age")
	cmd.Flags().IntVar(&skipDays, "skip-days", 0, "Skip movies looked up within this many days (default from config)")
	cmd.Flags().Float64Var(&delaySeconds, "delay", 0, "Seconds to wait between catalog calls (default from config)")
	return cmd
}

func newCatalogClient(cfg *config.Config, logger *slog.Logger) (*justwatch.Client, error) {
	return justwatch.New(cfg.Catalog.BaseURL,
		justwatch.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Catalog.TimeoutSeconds) * time.Second}),
		justwatch.WithLanguage(cfg.Streaming.Language),
		justwatch.WithResultsPerQuery(cfg.Streaming.ResultsPerQuery),
		justwatch.WithBestOnly(cfg.Streaming.BestOnly),
		justwatch.WithMinInterval(time.Duration(cfg.Catalog.MinIntervalMS)*time.Millisecond),
		justwatch.WithRetryPolicy(justwatch.RetryPolicy{
			MaxRetries:     cfg.Catalog.MaxRetries,
			InitialBackoff: time.Duration(cfg.Catalog.InitialBackoffMS) * time.Millisecond,
			MaxBackoff:     time.Duration(cfg.Catalog.MaxBackoffMS) * time.Millisecond,
		}),
		justwatch.WithLogger(logger),
	)
}

func writeMetrics(cfg *config.Config, recorder *metrics.Recorder, logger *slog.Logger) {
	path := strings.TrimSpace(cfg.Metrics.TextfilePath)
	if path == "" {
		return
	}
	if err := recorder.WriteTextfile(path); err != nil {
		logging.WarnWithContext(logger, "failed to write metrics textfile", "metrics_write_failed",
			logging.Error(err),
			logging.String("path", path),
			logging.String(logging.FieldImpact, "refresh metrics are not exported"),
			logging.String(logging.FieldErrorHint, "check metrics.textfile_path is writable"))
	}
}

type reportView struct {
	RunID           string   `json:"run_id"`
	Country         string   `json:"country"`
	Total           int      `json:"total"`
	Refreshed       int      `json:"refreshed"`
	NotFound        int      `json:"not_found"`
	SkippedFresh    int      `json:"skipped_fresh"`
	Failed          int      `json:"failed"`
	Queried         int      `json:"queried"`
	FailedTitles    []string `json:"failed_titles"`
	WithStreaming   int      `json:"with_streaming"`
	DurationSeconds float64  `json:"duration_seconds"`
	Interrupted     bool     `json:"interrupted"`
}

func newReportView(report resolver.Report) reportView {
	failed := report.FailedTitles
	if failed == nil {
		failed = []string{}
	}
	return reportView{
		RunID:           report.RunID,
		Country:         report.Country,
		Total:           report.Total,
		Refreshed:       report.Refreshed,
		NotFound:        report.NotFound,
		SkippedFresh:    report.SkippedFresh,
		Failed:          report.Failed,
		Queried:         report.Queried(),
		FailedTitles:    failed,
		WithStreaming:   report.WithStreaming,
		DurationSeconds: report.Duration.Seconds(),
		Interrupted:     report.Interrupted,
	}
}

func printReport(out io.Writer, report resolver.Report) {
	rows := [][]string{
		{"Refreshed", strconv.Itoa(report.Refreshed)},
		{"Not found", strconv.Itoa(report.NotFound)},
		{"Skipped (fresh)", strconv.Itoa(report.SkippedFresh)},
		{"Failed", strconv.Itoa(report.Failed)},
		{"Catalog searches", strconv.Itoa(report.Queried())},
		{"With streaming", fmt.Sprintf("%d/%d", report.WithStreaming, report.Total)},
	}
	fmt.Fprintf(out, "Streaming refresh %s (%s)\n", report.RunID, report.Country)
	fmt.Fprintln(out, renderTable(out, []string{"Outcome", "Movies"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintf(out, "Duration: %s\n", report.Duration.Round(time.Second))
	if report.Interrupted {
		fmt.Fprintf(out, "Interrupted after %d of %d movies; rerun to continue\n", report.Processed(), report.Total)
	}
	if len(report.FailedTitles) > 0 {
		fmt.Fprintln(out, "\nFailed lookups:")
		for _, title := range report.FailedTitles {
			fmt.Fprintf(out, "  - %s\n", title)
		}
	}
}
