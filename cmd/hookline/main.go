// Package main is the entry point for the hookline mod host.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dshills/hookline/internal/config"
	"github.com/dshills/hookline/internal/logging"
	"github.com/dshills/hookline/internal/version"
)

// Version information (set via ldflags during build).
var (
	buildVersion = "dev"
	commit       = "unknown"
	date         = "unknown"
)

var (
	cfgFile  string
	logLevel string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hookline",
		Short: "Run a Lua game with runtime-loaded mods",
		Long: `hookline runs a game written as Lua scripts, wraps every global function
the game defines, and loads mods that hook, replace or observe those calls.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       versionString(),
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultPath, "config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newSymbolsCmd())
	root.AddCommand(newModsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func versionString() string {
	if buildVersion == "dev" {
		return fmt.Sprintf("dev (loader %s)", version.Current)
	}
	return fmt.Sprintf("%s (commit: %s, built: %s, loader %s)", buildVersion, commit, date, version.Current)
}

// loadConfig reads the config file and applies the --log-level flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *log.Logger {
	return logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Output:     os.Stderr,
		Timestamps: true,
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hookline %s\n", versionString())
		},
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
