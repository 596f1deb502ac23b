package script

import (
	"errors"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/hookline/internal/intercept"
)

// Targets returns an intercept target for each name bound to a Lua
// function in L's globals. Other names are skipped.
func Targets(L *lua.LState, names []string) []intercept.Target {
	targets := make([]intercept.Target, 0, len(names))
	for _, name := range names {
		fn, ok := L.GetGlobal(name).(*lua.LFunction)
		if !ok {
			continue
		}
		targets = append(targets, intercept.Target{Name: name, Fn: LuaFunc(L, fn)})
	}
	return targets
}

// GlobalBinder installs each wrapper as the Lua global of the same name.
func GlobalBinder(L *lua.LState) intercept.Binder {
	return intercept.BinderFunc(func(name string, wrapper intercept.Func) error {
		L.SetGlobal(name, GoFunction(L, wrapper))
		return nil
	})
}

// LuaFunc adapts a Lua function to an intercept.Func. Arguments that are
// not already Lua values are converted; only the first Lua result is kept.
func LuaFunc(L *lua.LState, fn *lua.LFunction) intercept.Func {
	return func(args []any) (any, error) {
		largs := make([]lua.LValue, len(args))
		for i, a := range args {
			largs[i] = ToLua(L, a)
		}
		ret, err := call(L, fn, largs...)
		if err != nil {
			return nil, err
		}
		return result(ret), nil
	}
}

// GoFunction exposes an intercept.Func to Lua. Errors from fn are raised
// as Lua errors; a Lua error value travelling through fn is re-raised as is.
func GoFunction(L *lua.LState, fn intercept.Func) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		args := make([]any, n)
		for i := 1; i <= n; i++ {
			args[i-1] = L.Get(i)
		}

		ret, err := fn(args)
		if err != nil {
			raise(L, err)
			return 0
		}
		if ret == nil {
			return 0
		}
		L.Push(ToLua(L, ret))
		return 1
	})
}

// call runs fn on L in protected mode and returns its first result.
func call(L *lua.LState, fn *lua.LFunction, args ...lua.LValue) (lua.LValue, error) {
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return nil, err
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// raise converts err into a Lua error on L.
func raise(L *lua.LState, err error) {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		L.Error(apiErr.Object, 0)
		return
	}
	L.RaiseError("%s", err.Error())
}

// hookArgs is the Lua array a hook receives in place of the Go argument list.
type hookArgs struct {
	table *lua.LTable
	sent  []lua.LValue
}

func newHookArgs(L *lua.LState, args []any) *hookArgs {
	h := &hookArgs{
		table: L.CreateTable(len(args), 0),
		sent:  make([]lua.LValue, len(args)),
	}
	for i, a := range args {
		h.sent[i] = ToLua(L, a)
		h.table.RawSetInt(i+1, h.sent[i])
	}
	return h
}

// writeBack copies the hook's edits to the table into args, so hooks and
// the body share one argument list. Untouched slots keep their Go value.
func (h *hookArgs) writeBack(args []any) {
	for i := range args {
		if v := h.table.RawGetInt(i + 1); v != h.sent[i] {
			args[i] = result(v)
		}
	}
}

func luaPreHook(L *lua.LState, fn *lua.LFunction) intercept.PreHook {
	return func(args []any, name string, slot int) error {
		h := newHookArgs(L, args)
		_, err := call(L, fn, h.table, lua.LString(name), lua.LNumber(slot))
		h.writeBack(args)
		return err
	}
}

func luaPostHook(L *lua.LState, fn *lua.LFunction) intercept.PostHook {
	return func(args []any, ret any, name string, slot int) error {
		h := newHookArgs(L, args)
		_, err := call(L, fn, h.table, ToLua(L, ret), lua.LString(name), lua.LNumber(slot))
		return err
	}
}

func luaRawPreHook(L *lua.LState, fn *lua.LFunction) intercept.RawPreHook {
	return func(args []any, name string) error {
		h := newHookArgs(L, args)
		_, err := call(L, fn, h.table, lua.LString(name))
		h.writeBack(args)
		return err
	}
}

func luaRawPostHook(L *lua.LState, fn *lua.LFunction) intercept.RawPostHook {
	return func(args []any, ret any, name string) error {
		h := newHookArgs(L, args)
		_, err := call(L, fn, h.table, ToLua(L, ret), lua.LString(name))
		return err
	}
}
