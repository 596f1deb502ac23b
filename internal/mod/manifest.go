package mod

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/hookline/internal/version"
)

// DefaultDescription is used when a manifest has no description.
const DefaultDescription = "No description provided."

// DefaultMain is the entry script used when a manifest names none.
const DefaultMain = "main.lua"

// ManifestFiles are the manifest names looked for in a mod directory, in order.
var ManifestFiles = []string{"manifest.json", "manifest.yaml", "manifest.yml"}

// Manifest describes a mod.
type Manifest struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Version     version.Version `json:"version" yaml:"version"`
	Author      string          `json:"author" yaml:"author"`
	Description string          `json:"description" yaml:"description"`

	// Main is the entry script relative to the mod directory.
	Main string `json:"main" yaml:"main"`

	// RequiredVersion is the minimum loader version, if any.
	RequiredVersion *version.Version `json:"required_loader_version" yaml:"required_loader_version"`

	// Dir is the mod directory. Set by LoadManifest.
	Dir string `json:"-" yaml:"-"`
}

// LoadManifest reads the manifest at path. JSON and YAML are chosen by
// extension.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m.Dir = filepath.Dir(path)
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifestFromDir loads the first manifest file found in dir.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	for _, name := range ManifestFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadManifest(path)
		}
	}
	return nil, fmt.Errorf("%s: %w", dir, ErrNoManifest)
}

func (m *Manifest) applyDefaults() {
	if m.Description == "" {
		m.Description = DefaultDescription
	}
	if m.Main == "" {
		m.Main = DefaultMain
	}
	if m.Name == "" {
		m.Name = m.ID
	}
}

// Validate checks the manifest's required fields.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return ErrMissingID
	}
	return nil
}

// EntryPath returns the absolute or dir-relative path of the entry script.
func (m *Manifest) EntryPath() string {
	return filepath.Join(m.Dir, m.Main)
}

// Compatibility checks the manifest's required version against running.
// A manifest with no requirement is treated as an exact match.
func (m *Manifest) Compatibility(running version.Version) version.Compatibility {
	if m.RequiredVersion == nil {
		return version.Exact
	}
	return version.Check(*m.RequiredVersion, running)
}

// Label formats the mod as "name [id]" for log messages.
func (m *Manifest) Label() string {
	return fmt.Sprintf("%s [%s]", m.Name, m.ID)
}
