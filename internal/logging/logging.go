// Package logging builds the structured loggers used across hookline.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Prefix tags every diagnostic emitted by hookline.
const Prefix = "hookline"

// Config configures the root logger.
type Config struct {
	// Level is the minimum level to output (debug, info, warn, error).
	Level string
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Timestamps enables a timestamp on each line.
	Timestamps bool
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Output: os.Stderr,
	}
}

// New creates the root logger.
func New(cfg Config) *log.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	return log.NewWithOptions(cfg.Output, log.Options{
		Prefix:          Prefix,
		Level:           ParseLevel(cfg.Level),
		ReportTimestamp: cfg.Timestamps,
		TimeFormat:      time.TimeOnly,
	})
}

// ParseLevel parses a level name. "warning" is accepted for warn; unknown
// names map to info.
func ParseLevel(s string) log.Level {
	lvl, err := log.ParseLevel(normalize(s))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// ValidLevel reports whether s names a known level.
func ValidLevel(s string) bool {
	_, err := log.ParseLevel(normalize(s))
	return err == nil
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return "warn"
	}
	return s
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// Component returns a child logger tagged with the component name.
func Component(l *log.Logger, name string) *log.Logger {
	if l == nil {
		l = Discard()
	}
	return l.With("component", name)
}
