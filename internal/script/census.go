package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/hookline/internal/census"
)

// Snapshot records every string-keyed global of L and its kind.
func Snapshot(L *lua.LState) census.Snapshot {
	snap := make(census.Snapshot)
	L.G.Global.ForEach(func(k, v lua.LValue) {
		name, ok := k.(lua.LString)
		if !ok {
			return
		}
		if v.Type() == lua.LTFunction {
			snap[string(name)] = census.KindFunction
		} else {
			snap[string(name)] = census.KindValue
		}
	})
	return snap
}
