package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/hookline/internal/census"
	"github.com/dshills/hookline/internal/session"
)

func newSymbolsCmd() *cobra.Command {
	var (
		funcsOnly bool
		hooks     bool
	)

	cmd := &cobra.Command{
		Use:   "symbols",
		Short: "List the globals the game scripts define",
		Long: `List the globals the game scripts define. With --hooks the game is booted
with its mods and each function is shown with the hooks they registered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if hooks {
				s, err := session.Boot(cfg, session.WithLogger(newLogger(cfg)))
				if err != nil {
					return err
				}
				defer s.Close()
				return printHooks(out, s)
			}

			res, err := session.Census(cfg)
			if err != nil {
				return err
			}
			printSymbols(out, res, funcsOnly)
			return nil
		},
	}

	cmd.Flags().BoolVar(&funcsOnly, "functions", false, "list functions only")
	cmd.Flags().BoolVar(&hooks, "hooks", false, "boot with mods and show hook counts per function")
	return cmd
}

func printSymbols(out io.Writer, res census.Result, funcsOnly bool) {
	for _, name := range res.Functions {
		fmt.Fprintf(out, "function %s\n", name)
	}
	if funcsOnly {
		return
	}
	for _, name := range res.Vars {
		fmt.Fprintf(out, "var      %s\n", name)
	}
}

func printHooks(out io.Writer, s *session.Session) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FUNCTION\tPRE\tPOST\tREPLACED")
	for _, name := range s.Registry.Names() {
		pre, post := s.Registry.HookCounts(name)
		replaced := "no"
		if s.Registry.FunctionOverwritten(name) {
			replaced = "yes"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", name, pre, post, replaced)
	}
	return tw.Flush()
}
