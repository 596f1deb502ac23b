// Package version describes loader versions and the compatibility check
// mods declare against. Versions are ordered by major, minor and revision;
// the display label takes no part in ordering.
package version

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// ErrInvalidVersion is returned for strings that are not major.minor.revision.
var ErrInvalidVersion = errors.New("version: invalid version")

// Version is a loader or mod version.
type Version struct {
	Major    int
	Minor    int
	Revision int

	// Label is the display string, e.g. "b0.1.1".
	Label string
}

// Current is the running loader version.
var Current = Version{Major: 0, Minor: 1, Revision: 1, Label: "b0.1.1"}

// Parse reads a version such as "1.2.3", "v1.2.3" or "b0.1.1". A missing
// minor or revision component is zero. Any letters ahead of the first digit
// are kept only in the label.
func Parse(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	body := strings.TrimLeftFunc(raw, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if body == "" {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	// Drop pre-release and build suffixes.
	if i := strings.IndexAny(body, "-+ "); i >= 0 {
		body = body[:i]
	}

	parts := strings.Split(body, ".")
	if len(parts) > 3 {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Revision: nums[2], Label: raw}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Semver returns the canonical "vMAJOR.MINOR.PATCH" form.
func (v Version) Semver() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Revision)
}

// String returns the label, or the numeric form when no label is set.
func (v Version) String() string {
	if v.Label != "" {
		return v.Label
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision)
}

// IsZero reports whether v is the zero version with no label.
func (v Version) IsZero() bool {
	return v == Version{}
}

// Compare returns -1, 0 or +1 as v is older than, equal to, or newer than other.
func (v Version) Compare(other Version) int {
	return semver.Compare(v.Semver(), other.Semver())
}

// Compatibility is the verdict of checking a required version against a
// running one.
type Compatibility int

const (
	// Unsupported means the required version is newer than the running one.
	Unsupported Compatibility = iota
	// Exact means both versions are equal.
	Exact
	// Older means the required version is older than the running one.
	Older
)

// String returns the verdict name.
func (c Compatibility) String() string {
	switch c {
	case Unsupported:
		return "unsupported"
	case Exact:
		return "exact"
	case Older:
		return "older"
	default:
		return "unknown"
	}
}

// Satisfied returns true when a mod with this verdict may load.
func (c Compatibility) Satisfied() bool {
	return c == Exact || c == Older
}

// Check compares a required version against the running version.
func Check(required, running Version) Compatibility {
	switch required.Compare(running) {
	case 1:
		return Unsupported
	case -1:
		return Older
	default:
		return Exact
	}
}

// versionObject is the structured manifest form.
type versionObject struct {
	Major    int    `json:"major" yaml:"major"`
	Minor    int    `json:"minor" yaml:"minor"`
	Revision int    `json:"revision" yaml:"revision"`
	String   string `json:"string" yaml:"string"`
}

func (o versionObject) version() Version {
	return Version{Major: o.Major, Minor: o.Minor, Revision: o.Revision, Label: o.String}
}

// MarshalJSON writes the structured form.
func (v Version) MarshalJSON() ([]byte, error) {
	return json.Marshal(versionObject{
		Major:    v.Major,
		Minor:    v.Minor,
		Revision: v.Revision,
		String:   v.String(),
	})
}

// UnmarshalJSON accepts either {"major":..,"minor":..,"revision":..,"string":..}
// or a plain version string.
func (v *Version) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		*v = parsed
		return nil
	}

	var o versionObject
	if err := json.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVersion, err)
	}
	*v = o.version()
	return nil
}

// UnmarshalYAML accepts the same two forms as UnmarshalJSON.
func (v *Version) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parsed, err := Parse(node.Value)
		if err != nil {
			return err
		}
		*v = parsed
		return nil
	}

	var o versionObject
	if err := node.Decode(&o); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidVersion, err)
	}
	*v = o.version()
	return nil
}
