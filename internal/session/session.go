// Package session boots a hookline host: it runs the game scripts, wraps
// their functions, loads mods and hands control to the game's entry point.
package session

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/hookline/internal/bindable"
	"github.com/dshills/hookline/internal/census"
	"github.com/dshills/hookline/internal/config"
	"github.com/dshills/hookline/internal/intercept"
	"github.com/dshills/hookline/internal/logging"
	"github.com/dshills/hookline/internal/mod"
	"github.com/dshills/hookline/internal/script"
	"github.com/dshills/hookline/internal/trace"
	"github.com/dshills/hookline/internal/version"
)

// ReadyEvent is the host event fired once every mod has initialised.
const ReadyEvent = "onReady"

// Session is one booted host. Each session owns a fresh Lua state and
// registry; nothing is shared between sessions.
type Session struct {
	cfg    *config.Config
	logger *log.Logger

	State    *script.State
	Registry *intercept.Registry
	API      *script.API
	Mods     *mod.Host
	Symbols  census.Result

	// Tracer is nil unless tracing is enabled.
	Tracer *trace.Tracer

	ready *bindable.Event
}

// Option configures Boot.
type Option func(*Session)

// WithLogger sets the root logger. Components derive from it.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// Boot builds a session from cfg. The steps run in a fixed order: game
// scripts and census, wrapper installation, API, tracer, mod loading,
// trusted bootstrap, sealing of raw primitives, mod init and the ready
// event.
func Boot(cfg *config.Config, opts ...Option) (*Session, error) {
	s := &Session{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.New(logging.Config{Level: cfg.Logging.Level})
	}
	root := s.logger
	s.logger = logging.Component(root, "session")

	s.logger.Info(fmt.Sprintf("hookline loader (%s)", version.Current))

	s.State = script.NewState(stateOptions(cfg)...)
	L := s.State.L

	syms, err := runGame(s.State, cfg.Game.Scripts)
	if err != nil {
		_ = s.State.Close()
		return nil, err
	}
	s.Symbols = syms

	s.Registry = intercept.NewRegistry(intercept.WithLogger(root))
	if err := s.Registry.Install(script.Targets(L, syms.Functions), script.GlobalBinder(L)); err != nil {
		_ = s.State.Close()
		return nil, fmt.Errorf("install wrappers: %w", err)
	}
	s.logger.Debug("wrapped game functions", "functions", len(syms.Functions), "vars", len(syms.Vars))

	s.API = script.NewAPI(L, s.Registry, syms, script.WithAPILogger(root))
	s.API.Install()
	s.ready = s.API.Event(ReadyEvent)

	if cfg.Trace.Enabled {
		s.Tracer = trace.New(
			trace.WithLogger(root),
			trace.WithKeep(cfg.Trace.Keep),
			trace.WithLive(cfg.Trace.PrintDuringExecution),
		)
		if err := s.Tracer.Attach(s.Registry, syms.Functions); err != nil {
			_ = s.State.Close()
			return nil, err
		}
	}

	if err := s.loadMods(root); err != nil {
		_ = s.State.Close()
		return nil, err
	}

	if err := s.bootstrap(); err != nil {
		_ = s.State.Close()
		return nil, err
	}
	s.API.SealRaw()

	_ = s.Mods.InitAll()
	s.API.SetMods(s.Mods.Loaded())

	if err := s.ready.Fire(s.Mods.Count()); err != nil {
		s.logger.Error("ready listener failed", "err", err)
	}

	s.logger.Info(mod.Summary(s.Mods.Count()))
	return s, nil
}

// Census runs the game scripts in a throwaway state and returns the
// globals they define.
func Census(cfg *config.Config) (census.Result, error) {
	st := script.NewState(stateOptions(cfg)...)
	defer st.Close()
	return runGame(st, cfg.Game.Scripts)
}

func stateOptions(cfg *config.Config) []script.StateOption {
	opts := []script.StateOption{script.WithGoStackTrace(cfg.Game.GoStackTrace)}
	if cfg.Game.CallStackSize > 0 {
		opts = append(opts, script.WithCallStackSize(cfg.Game.CallStackSize))
	}
	return opts
}

func runGame(st *script.State, scripts []string) (census.Result, error) {
	before := script.Snapshot(st.L)
	for _, path := range scripts {
		if err := st.DoFile(path); err != nil {
			return census.Result{}, fmt.Errorf("game script %s: %w", path, err)
		}
	}
	return census.Diff(before, script.Snapshot(st.L)), nil
}

func (s *Session) loadMods(root *log.Logger) error {
	loader := mod.NewLoader(s.cfg.Mods.Dir, mod.WithLoaderLogger(root))
	manifests, err := loader.Discover()
	if err != nil {
		return err
	}

	s.Mods = mod.NewHost(
		script.NewEntryLoader(s.State.L),
		mod.WithLogger(root),
		mod.WithDisabled(s.cfg.Mods.Disabled...),
	)
	// Failures are logged per mod.
	_ = s.Mods.Load(manifests)
	s.API.SetMods(s.Mods.Loaded())
	return nil
}

// bootstrap runs the trusted phase while raw primitives are still open.
func (s *Session) bootstrap() error {
	if name := s.cfg.Bootstrap.BannerFunction; name != "" {
		err := s.Registry.Raw().PostHook(name, func(_ []any, _ any, _ string) error {
			n := s.Mods.Count()
			s.logger.Info(fmt.Sprintf("Running hookline (%s)", version.Current))
			s.logger.Info(fmt.Sprintf("%d %s loaded", n, mod.Plural(n, "mod")))
			return nil
		})
		if err != nil {
			s.logger.Warn("banner function not available", "function", name)
		}
	}

	for _, path := range s.cfg.Bootstrap.Scripts {
		if err := s.State.DoFile(path); err != nil {
			return fmt.Errorf("bootstrap script %s: %w", path, err)
		}
	}
	return nil
}

// Run calls the configured entry function through its wrapper. It returns
// the entry's results. Cancelling ctx stops running Lua code.
func (s *Session) Run(ctx context.Context) ([]lua.LValue, error) {
	entry := s.cfg.Game.Entry
	if entry == "" {
		return nil, nil
	}
	if !s.Registry.Has(entry) {
		s.logger.Warn("entry function is not intercepted", "function", entry)
	}

	s.State.SetContext(ctx)
	results, err := s.State.CallGlobal(entry)
	if err != nil {
		if s.Tracer != nil {
			s.Tracer.Unwind()
		}
		return nil, fmt.Errorf("entry %s: %w", entry, err)
	}
	return results, nil
}

// Close releases the session's Lua state.
func (s *Session) Close() error {
	if s.Tracer != nil {
		s.Tracer.Detach()
	}
	return s.State.Close()
}
