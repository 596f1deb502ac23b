package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/hookline/internal/mod"
	"github.com/dshills/hookline/internal/version"
)

func newModsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mods",
		Short: "List discovered mods and whether this loader can run them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			manifests, err := mod.NewLoader(cfg.Mods.Dir, mod.WithLoaderLogger(logger)).Discover()
			if err != nil {
				return err
			}

			disabled := make(map[string]bool, len(cfg.Mods.Disabled))
			for _, id := range cfg.Mods.Disabled {
				disabled[id] = true
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tVERSION\tREQUIRES\tSTATUS")
			for _, m := range manifests {
				required := "-"
				if m.RequiredVersion != nil {
					required = m.RequiredVersion.String()
				}
				status := m.Compatibility(version.Current).String()
				if disabled[m.ID] {
					status = "disabled"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Version, required, status)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d %s in %s\n", len(manifests), mod.Plural(len(manifests), "mod"), cfg.Mods.Dir)
			return nil
		},
	}
}
