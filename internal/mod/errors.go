package mod

import "errors"

// Errors for mod loading.
var (
	// ErrMissingID is returned for a manifest without an id.
	ErrMissingID = errors.New("manifest: id is required")

	// ErrNoManifest is returned when a mod directory has no manifest.
	ErrNoManifest = errors.New("no manifest found")

	// ErrNoEntryPoint is returned when a mod's entry script is missing.
	ErrNoEntryPoint = errors.New("no entry point found")

	// ErrUnsupportedVersion is returned when a mod requires a newer loader.
	ErrUnsupportedVersion = errors.New("required loader version too high")

	// ErrOlderDuplicate is returned when a mod id is already loaded at a newer version.
	ErrOlderDuplicate = errors.New("newer version already loaded")

	// ErrDisabled is returned for mods disabled by configuration.
	ErrDisabled = errors.New("mod disabled")
)
