// Package intercept wraps a host's global functions so that independently
// loaded mods can observe, augment, or replace them.
//
// Every intercepted name gets one registry entry holding the original
// callable, an optional replacement, and two sparse slot tables of pre-call
// and post-call hooks. Install binds a wrapper for each entry into the host's
// namespace exactly once; from then on every host call runs:
//
//	pre-hooks (ascending slot, failures logged and skipped)
//	replacement if set, otherwise original (chosen per call)
//	post-hooks (ascending slot, observe-only, failures logged and skipped)
//
// Hook slots are claimed lowest-free-index first, so a caller must keep the
// index returned by registration to deregister the same hook later.
//
// Slot tables are snapshotted when each phase starts. A hook registered or
// vacated while a dispatch is running is seen by the next dispatch, never by
// the one in progress. No lock is held while a hook, replacement, or original
// runs, so hooks may freely call other wrapped functions or this registry.
//
// Raw primitives (see Raw) splice behavior directly into the original slot
// during bootstrap and are sealed before any mod is initialized.
package intercept
