package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mubi1000/internal/availability"
	"mubi1000/internal/streamcache"
)

func newServicesCommand(ctx *commandContext) *cobra.Command {
	servicesCmd := &cobra.Command{
		Use:   "services",
		Short: "List streaming services and manage your own",
		Long: `List the streaming services carrying Mubi 1000 movies and manage the
services you subscribe to. Saved services drive --service __my__ and
--mine on 'mubi availability'.`,
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

			entries, err := availability.NewIndex(cfg.MoviesPath(), backend, policy, logger).Entries(cmd.Context())
			if err != nil {
				return err
			}
			counts := availability.CountServices(entries)
			my := availability.LoadMyServices(cfg.MyServicesPath(), logger)

			if ctx.JSONMode() {
				type serviceView struct {
					availability.ServiceCount
					Mine bool `json:"mine"`
				}
				views := make([]serviceView, 0, len(counts))
				for _, c := range counts {
					views = append(views, serviceView{ServiceCount: c, Mine: my.Has(c.TechnicalName)})
				}
				return writeJSON(cmd, views)
			}

			out := cmd.OutOrStdout()
			if len(counts) == 0 {
				fmt.Fprintln(out, "No streaming services cached; run 'mubi streaming' first")
				return nil
			}
			rows := make([][]string, 0, len(counts))
			for _, c := range counts {
				mine := ""
				if my.Has(c.TechnicalName) {
					mine = "*"
				}
				rows = append(rows, []string{c.Name, c.TechnicalName, strconv.Itoa(c.Count), mine})
			}
			fmt.Fprintln(out, renderTable(out, []string{"Service", "Technical name", "Movies", "Mine"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
			if my == nil {
				fmt.Fprintln(out, "No saved services; use 'mubi services set <technical name>...'")
			}
			return nil
		},
	}

	servicesCmd.AddCommand(newServicesSetCommand(ctx))
	servicesCmd.AddCommand(newServicesClearCommand(ctx))
	return servicesCmd
}

func newServicesSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <technical name>...",
		Short: "Save the services you subscribe to",
		Long: `Save the services you subscribe to, by technical name (see 'mubi services').
Names may be separated by spaces or commas. The list replaces any saved one.

Example:
  mubi services set mubi criterionchannel kanopy`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var names []string
			for _, arg := range args {
				names = append(names, strings.Split(arg, ",")...)
			}
			set := availability.NewServiceSet(names...)
			if len(set) == 0 {
				return fmt.Errorf("no service names given")
			}
			if err := availability.SaveMyServices(cfg.MyServicesPath(), set.Names()); err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, set.Names())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d services: %s\n", len(set), strings.Join(set.Names(), ", "))
			return nil
		},
	}
}

func newServicesClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget your saved services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := availability.SaveMyServices(cfg.MyServicesPath(), nil); err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, []string{})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared saved services")
			return nil
		},
	}
}
