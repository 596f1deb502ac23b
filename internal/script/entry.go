package script

import (
	"fmt"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/hookline/internal/mod"
)

// Entry is a mod entry script that has run. Its exports are the table
// the script returned; exports.init, when a function, is the init callback.
type Entry struct {
	L       *lua.LState
	Exports *lua.LTable
}

// Init calls exports.init with the exports table.
func (e *Entry) Init() error {
	if e.Exports == nil {
		return nil
	}
	fn, ok := e.Exports.RawGetString("init").(*lua.LFunction)
	if !ok {
		return nil
	}
	_, err := call(e.L, fn, e.Exports)
	return err
}

// EntryLoader runs mod entry scripts in a shared state.
type EntryLoader struct {
	L *lua.LState
}

// NewEntryLoader creates a loader for L.
func NewEntryLoader(L *lua.LState) *EntryLoader {
	return &EntryLoader{L: L}
}

// LoadEntry implements mod.EntryLoader. The mod directory is added to
// package.path so the entry can require its own modules.
func (l *EntryLoader) LoadEntry(m *mod.Manifest) (mod.Entry, error) {
	l.addPackagePath(m.Dir)

	fn, err := l.L.LoadFile(m.EntryPath())
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", m.Main, err)
	}
	ret, err := call(l.L, fn)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", m.Main, err)
	}

	exports, _ := ret.(*lua.LTable)
	return &Entry{L: l.L, Exports: exports}, nil
}

func (l *EntryLoader) addPackagePath(dir string) {
	pkg, ok := l.L.GetGlobal("package").(*lua.LTable)
	if !ok {
		return
	}
	pattern := filepath.Join(dir, "?.lua")
	current := lua.LVAsString(pkg.RawGetString("path"))
	if strings.Contains(current, pattern) {
		return
	}
	pkg.RawSetString("path", lua.LString(pattern+";"+current))
}
