package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
	if cfg.Mods.Dir != "mods" {
		t.Errorf("Mods.Dir = %q, want mods", cfg.Mods.Dir)
	}
	if cfg.Game.Entry != "main" {
		t.Errorf("Game.Entry = %q, want main", cfg.Game.Entry)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hookline.toml")
	data := `
[game]
scripts = ["a.lua", "b.lua"]
entry = "start"
call_stack_size = 512
go_stack_trace = true

[mods]
dir = "addons"
disabled = ["noisy"]

[bootstrap]
banner_function = "addIntroMenu"
scripts = ["debug.lua"]

[logging]
level = "debug"

[trace]
enabled = true
keep = 4
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if strings.Join(cfg.Game.Scripts, ",") != "a.lua,b.lua" || cfg.Game.Entry != "start" {
		t.Errorf("Game = %+v", cfg.Game)
	}
	if cfg.Game.CallStackSize != 512 || !cfg.Game.GoStackTrace {
		t.Errorf("Game Lua options = %d, %v, want 512, true", cfg.Game.CallStackSize, cfg.Game.GoStackTrace)
	}
	if cfg.Mods.Dir != "addons" || len(cfg.Mods.Disabled) != 1 {
		t.Errorf("Mods = %+v", cfg.Mods)
	}
	if cfg.Bootstrap.BannerFunction != "addIntroMenu" || cfg.Bootstrap.Scripts[0] != "debug.lua" {
		t.Errorf("Bootstrap = %+v", cfg.Bootstrap)
	}
	if !cfg.Trace.Enabled || cfg.Trace.Keep != 4 || cfg.Trace.PrintDuringExecution {
		t.Errorf("Trace = %+v", cfg.Trace)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hookline.toml")
	if err := os.WriteFile(path, []byte("[game]\nscript = \"x.lua\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() with unknown key expected error")
	}
}

func TestLoadSyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hookline.toml")
	if err := os.WriteFile(path, []byte("[game\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "line") {
		t.Errorf("Load() error = %v, want position", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOOKLINE_LOG_LEVEL", "warn")
	t.Setenv("HOOKLINE_MODS_DIR", "/tmp/mods")
	t.Setenv("HOOKLINE_GAME_SCRIPTS", "one.lua,two.lua")
	t.Setenv("HOOKLINE_GAME_ENTRY", "boot")
	t.Setenv("HOOKLINE_TRACE", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Mods.Dir != "/tmp/mods" {
		t.Errorf("Mods.Dir = %q", cfg.Mods.Dir)
	}
	if strings.Join(cfg.Game.Scripts, ",") != "one.lua,two.lua" {
		t.Errorf("Game.Scripts = %v", cfg.Game.Scripts)
	}
	if cfg.Game.Entry != "boot" || !cfg.Trace.Enabled {
		t.Errorf("Game.Entry = %q, Trace.Enabled = %v", cfg.Game.Entry, cfg.Trace.Enabled)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"no scripts", func(c *Config) { c.Game.Scripts = nil }, ErrNoScripts},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, ErrInvalidLogLevel},
		{"bad keep", func(c *Config) { c.Trace.Keep = 0 }, ErrInvalidKeep},
		{"negative stack", func(c *Config) { c.Game.CallStackSize = -1 }, ErrInvalidStack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	data, err := Default().Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	cfg := &Config{}
	if err := Parse(data, cfg); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Game.Entry != "main" {
		t.Errorf("Game.Entry = %q after round trip", cfg.Game.Entry)
	}
}
