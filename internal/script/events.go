package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/hookline/internal/bindable"
)

// eventObject exposes ev to Lua. Methods use colon syntax:
//
//	ev:registerListener(fn) -> connection with connection:deregister()
//	ev:deregisterListener(fn)
//	ev:fire(...)
//
// A listener is called as fn(firing, ...) where firing.baseEvent is the
// event object and firing:deregister() removes the listener after the pass.
func eventObject(L *lua.LState, ev *bindable.Event) *lua.LTable {
	obj := L.NewTable()
	conns := make(map[*lua.LFunction][]*bindable.Connection)

	obj.RawSetString("name", lua.LString(ev.Name()))

	obj.RawSetString("registerListener", L.NewFunction(func(L *lua.LState) int {
		fn := L.CheckFunction(2)
		conn, err := ev.RegisterListener(luaListener(L, obj, fn))
		if err != nil {
			L.RaiseError("%s", err.Error())
			return 0
		}
		conns[fn] = append(conns[fn], conn)

		handle := L.NewTable()
		handle.RawSetString("deregister", L.NewFunction(func(L *lua.LState) int {
			conn.Deregister()
			return 0
		}))
		L.Push(handle)
		return 1
	}))

	obj.RawSetString("deregisterListener", L.NewFunction(func(L *lua.LState) int {
		fn := L.CheckFunction(2)
		list := conns[fn]
		for len(list) > 0 {
			conn := list[0]
			list = list[1:]
			if conn.Bound() {
				conns[fn] = list
				_ = ev.DeregisterListener(conn)
				return 0
			}
		}
		delete(conns, fn)
		L.RaiseError("attempted to unbind function not bound to event %s", ev.Name())
		return 0
	}))

	obj.RawSetString("fire", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		args := make([]any, 0, n)
		for i := 2; i <= n; i++ {
			args = append(args, L.Get(i))
		}
		if err := ev.Fire(args...); err != nil {
			L.RaiseError("%s", err.Error())
		}
		return 0
	}))

	return obj
}

func luaListener(L *lua.LState, obj *lua.LTable, fn *lua.LFunction) bindable.Listener {
	return func(f *bindable.Firing, args ...any) error {
		firing := L.NewTable()
		firing.RawSetString("baseEvent", obj)
		firing.RawSetString("deregister", L.NewFunction(func(L *lua.LState) int {
			f.Deregister()
			return 0
		}))

		largs := make([]lua.LValue, 0, len(args)+1)
		largs = append(largs, firing)
		for _, a := range args {
			largs = append(largs, ToLua(L, a))
		}
		_, err := call(L, fn, largs...)
		return err
	}
}
