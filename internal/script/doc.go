// Package script hosts the game's Lua environment and connects it to the
// interception engine.
//
// The game is a set of Lua scripts run in one shared state. After they run,
// the new global functions are wrapped through an intercept.Registry and
// the wrappers are written back as globals, so every later call from game
// code, mods or Go goes through the hook pipeline. Mods reach the registry
// through the "hookline" global table built by API.
//
// Lua state is single threaded. Functions here that take a *lua.LState must
// be called on the goroutine that is running that state; hook and wrapper
// callbacks call straight back into the state without locking, which keeps
// nested and recursive calls from deadlocking.
package script
