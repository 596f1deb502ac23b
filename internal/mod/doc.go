// Package mod discovers, loads and initialises mods.
//
// A mod is a directory holding a manifest (manifest.json or manifest.yaml)
// and an entry script. Discovery reads manifests only; Host.Load runs each
// compatible mod's entry through an EntryLoader, and Host.InitAll then calls
// every loaded mod's init callback in load order.
//
// Loading policy:
//   - A mod whose required loader version is newer than the running loader
//     is skipped.
//   - When two mods share an id, the newer version wins. An older or equal
//     duplicate loaded later is skipped; a newer one takes the older one's
//     place in load order.
//   - Entry and init failures are logged and never stop other mods.
package mod
