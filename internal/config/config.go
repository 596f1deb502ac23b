// Package config loads hookline configuration from a TOML file overlaid by
// HOOKLINE_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/hookline/internal/logging"
	"github.com/dshills/hookline/internal/mod"
	"github.com/dshills/hookline/internal/trace"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "hookline.toml"

// Config errors.
var (
	ErrNoScripts       = errors.New("config: game.scripts must name at least one script")
	ErrInvalidLogLevel = errors.New("config: invalid logging.level")
	ErrInvalidKeep     = errors.New("config: trace.keep must be positive")
	ErrInvalidStack    = errors.New("config: game.call_stack_size must not be negative")
)

// Config is the complete hookline configuration.
type Config struct {
	Game      GameConfig      `toml:"game"`
	Mods      ModsConfig      `toml:"mods"`
	Bootstrap BootstrapConfig `toml:"bootstrap"`
	Logging   LoggingConfig   `toml:"logging"`
	Trace     TraceConfig     `toml:"trace"`
}

// GameConfig names the game scripts and the function that starts the game.
type GameConfig struct {
	// Scripts run in order before the census.
	Scripts []string `toml:"scripts" env:"HOOKLINE_GAME_SCRIPTS" envSeparator:","`

	// Entry is the global function Run calls. Empty means no entry call.
	Entry string `toml:"entry" env:"HOOKLINE_GAME_ENTRY"`

	// CallStackSize is the Lua call stack size. Zero uses the interpreter default.
	CallStackSize int `toml:"call_stack_size"`

	// GoStackTrace adds Go stack traces to Lua errors.
	GoStackTrace bool `toml:"go_stack_trace" env:"HOOKLINE_GO_STACK_TRACE"`
}

// ModsConfig locates mods.
type ModsConfig struct {
	Dir      string   `toml:"dir" env:"HOOKLINE_MODS_DIR"`
	Disabled []string `toml:"disabled"`
}

// BootstrapConfig controls the trusted bootstrap phase that runs before
// raw primitives are sealed.
type BootstrapConfig struct {
	// BannerFunction gets a raw post-hook that logs the loader version
	// and mod count whenever it is called.
	BannerFunction string `toml:"banner_function"`

	// Scripts are trusted Lua files run with the raw primitives available.
	Scripts []string `toml:"scripts"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `toml:"level" env:"HOOKLINE_LOG_LEVEL"`
}

// TraceConfig controls the call tracer.
type TraceConfig struct {
	Enabled              bool `toml:"enabled" env:"HOOKLINE_TRACE"`
	PrintDuringExecution bool `toml:"print_during_execution"`
	Keep                 int  `toml:"keep"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Game: GameConfig{
			Scripts: []string{"game.lua"},
			Entry:   "main",
		},
		Mods: ModsConfig{
			Dir: mod.DefaultDir,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Trace: TraceConfig{
			Keep: trace.DefaultKeep,
		},
	}
}

// Load reads the TOML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := Parse(data, cfg); err != nil {
				return nil, fmt.Errorf("config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML data into cfg. Keys absent from data keep their
// current values; unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("line %d, column %d: %w", row, col, err)
		}
		return err
	}
	return nil
}

// ApplyEnv overlays HOOKLINE_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config env: %w", err)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Game.Scripts) == 0 {
		errs = append(errs, ErrNoScripts)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level))
	}
	if c.Trace.Keep <= 0 {
		errs = append(errs, ErrInvalidKeep)
	}
	if c.Game.CallStackSize < 0 {
		errs = append(errs, ErrInvalidStack)
	}
	return errors.Join(errs...)
}

// Encode returns cfg as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
