package script

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/hookline/internal/bindable"
	"github.com/dshills/hookline/internal/census"
	"github.com/dshills/hookline/internal/intercept"
	"github.com/dshills/hookline/internal/logging"
	"github.com/dshills/hookline/internal/mod"
	"github.com/dshills/hookline/internal/version"
)

// GlobalName is the Lua global holding the API table.
const GlobalName = "hookline"

// rawFunctions are the privileged entries removed from the table by SealRaw.
var rawFunctions = []string{"createRawPreHook", "createRawPostHook", "insertRawReplacement"}

// API builds and owns the "hookline" global:
//
//	hookline.version           {major, minor, revision, string}
//	hookline.symbols           {functions = {...}, vars = {...}}
//	hookline.functions.*       registry operations, plus the raw primitives until sealed
//	hookline.mods              {count, loaded, registry}
//	hookline.events.<name>     host events such as onReady
//	hookline.event.new(name)   create a mod event
type API struct {
	L      *lua.LState
	reg    *intercept.Registry
	logger *log.Logger

	table     *lua.LTable
	functions *lua.LTable
	mods      *lua.LTable
	events    *lua.LTable

	mu          sync.Mutex
	hostEvents  map[string]*bindable.Event
	sealed      bool
	installOnce sync.Once
}

// APIOption configures an API.
type APIOption func(*API)

// WithAPILogger sets the logger used by the API.
func WithAPILogger(l *log.Logger) APIOption {
	return func(a *API) {
		a.logger = l
	}
}

// NewAPI builds the API table for reg. symbols is the census the registry
// was installed from.
func NewAPI(L *lua.LState, reg *intercept.Registry, symbols census.Result, opts ...APIOption) *API {
	a := &API{
		L:          L,
		reg:        reg,
		hostEvents: make(map[string]*bindable.Event),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.Component(a.logger, "api")

	a.table = L.NewTable()
	a.table.RawSetString("version", versionTable(L, version.Current))

	syms := L.NewTable()
	syms.RawSetString("functions", stringList(L, symbols.Functions))
	syms.RawSetString("vars", stringList(L, symbols.Vars))
	a.table.RawSetString("symbols", syms)

	a.functions = a.buildFunctions()
	a.table.RawSetString("functions", a.functions)

	a.mods = L.NewTable()
	a.SetMods(nil)
	a.table.RawSetString("mods", a.mods)

	a.events = L.NewTable()
	a.table.RawSetString("events", a.events)

	eventLib := L.NewTable()
	eventLib.RawSetString("new", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(eventObject(L, bindable.New(name)))
		return 1
	}))
	a.table.RawSetString("event", eventLib)

	return a
}

// Install sets the API table as the hookline global.
func (a *API) Install() {
	a.installOnce.Do(func() {
		a.L.SetGlobal(GlobalName, a.table)
	})
}

// Table returns the API table.
func (a *API) Table() *lua.LTable {
	return a.table
}

// Event returns the host event name, creating it and exposing it as
// hookline.events.<name> on first use.
func (a *API) Event(name string) *bindable.Event {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ev, ok := a.hostEvents[name]; ok {
		return ev
	}
	ev := bindable.New(name)
	a.hostEvents[name] = ev
	a.events.RawSetString(name, eventObject(a.L, ev))
	return ev
}

// SetMods replaces hookline.mods with the given loaded set.
func (a *API) SetMods(mods []*mod.Mod) {
	L := a.L
	loaded := L.CreateTable(len(mods), 0)
	registry := L.NewTable()
	for _, m := range mods {
		t := modTable(L, m)
		loaded.Append(t)
		registry.RawSetString(m.Manifest.ID, t)
	}
	a.mods.RawSetString("count", lua.LNumber(len(mods)))
	a.mods.RawSetString("loaded", loaded)
	a.mods.RawSetString("registry", registry)
}

// SealRaw removes the raw primitives from the API table and seals them in
// the registry. Both effects are permanent.
func (a *API) SealRaw() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return
	}
	for _, name := range rawFunctions {
		a.functions.RawSetString(name, lua.LNil)
	}
	a.reg.Raw().Seal()
	a.sealed = true
	a.logger.Debug("raw primitives sealed")
}

func (a *API) buildFunctions() *lua.LTable {
	reg := a.reg
	raw := reg.Raw()

	return a.L.SetFuncs(a.L.NewTable(), map[string]lua.LGFunction{
		"registerReplacement": func(L *lua.LState) int {
			name := L.CheckString(1)
			fn := L.CheckFunction(2)
			err := reg.RegisterReplacement(name, LuaFunc(L, fn))
			if errors.Is(err, intercept.ErrReplacementConflict) {
				L.RaiseError("%s", err.Error())
				return 0
			}
			L.Push(lua.LBool(err == nil))
			return 1
		},

		"registerPreHook": func(L *lua.LState) int {
			idx, _ := reg.RegisterPreHook(L.CheckString(1), luaPreHook(L, L.CheckFunction(2)))
			L.Push(lua.LNumber(idx))
			return 1
		},

		"registerPostHook": func(L *lua.LState) int {
			idx, _ := reg.RegisterPostHook(L.CheckString(1), luaPostHook(L, L.CheckFunction(2)))
			L.Push(lua.LNumber(idx))
			return 1
		},

		"deregisterPreHook": func(L *lua.LState) int {
			err := reg.DeregisterPreHook(L.CheckString(1), L.CheckInt(2))
			L.Push(lua.LBool(err == nil))
			return 1
		},

		"deregisterPostHook": func(L *lua.LState) int {
			err := reg.DeregisterPostHook(L.CheckString(1), L.CheckInt(2))
			L.Push(lua.LBool(err == nil))
			return 1
		},

		"getOriginalFunction": func(L *lua.LState) int {
			fn, err := reg.OriginalFunction(L.CheckString(1))
			if err != nil {
				L.RaiseError("%s", err.Error())
				return 0
			}
			L.Push(GoFunction(L, fn))
			return 1
		},

		"getFunctionOverwritten": func(L *lua.LState) int {
			L.Push(lua.LBool(reg.FunctionOverwritten(L.CheckString(1))))
			return 1
		},

		"createRawPreHook": func(L *lua.LState) int {
			err := raw.PreHook(L.CheckString(1), luaRawPreHook(L, L.CheckFunction(2)))
			L.Push(lua.LBool(err == nil))
			return 1
		},

		"createRawPostHook": func(L *lua.LState) int {
			err := raw.PostHook(L.CheckString(1), luaRawPostHook(L, L.CheckFunction(2)))
			L.Push(lua.LBool(err == nil))
			return 1
		},

		"insertRawReplacement": func(L *lua.LState) int {
			err := raw.Replace(L.CheckString(1), LuaFunc(L, L.CheckFunction(2)))
			L.Push(lua.LBool(err == nil))
			return 1
		},
	})
}

func versionTable(L *lua.LState, v version.Version) *lua.LTable {
	t := L.CreateTable(0, 4)
	t.RawSetString("major", lua.LNumber(v.Major))
	t.RawSetString("minor", lua.LNumber(v.Minor))
	t.RawSetString("revision", lua.LNumber(v.Revision))
	t.RawSetString("string", lua.LString(v.String()))
	return t
}

func modTable(L *lua.LState, m *mod.Mod) *lua.LTable {
	man := m.Manifest
	t := L.NewTable()
	t.RawSetString("id", lua.LString(man.ID))
	t.RawSetString("name", lua.LString(man.Name))
	t.RawSetString("version", versionTable(L, man.Version))
	t.RawSetString("author", lua.LString(man.Author))
	t.RawSetString("description", lua.LString(man.Description))
	t.RawSetString("state", lua.LString(m.State.String()))
	if e, ok := m.Entry.(*Entry); ok && e.Exports != nil {
		t.RawSetString("exports", e.Exports)
	}
	return t
}
