// Writes and reads the manifest sidecar describing a produced dataset file.

package papyrus

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// manifestVersion is the current manifest format version.
const manifestVersion = 1

// Manifest records the provenance of a filtered dataset file: which dump it
// came from, which filters produced it, and the known column definitions.
type Manifest struct {
	Version        int          `yaml:"version"`
	GeneratedAt    time.Time    `yaml:"generated_at"`
	Source         string       `yaml:"source"`
	Keys           []string     `yaml:"keys"`
	MinQuality     string       `yaml:"min_quality"`
	Stereo         bool         `yaml:"stereo,omitempty"`
	PlusPlus       bool         `yaml:"plusplus,omitempty"`
	DropDuplicates bool         `yaml:"drop_duplicates"`
	Scanned        int          `yaml:"scanned"`
	Rows           int          `yaml:"rows"`
	Duplicates     int          `yaml:"duplicates_removed"`
	Columns        []ColumnInfo `yaml:"columns"`
}

// Validate checks that the manifest is well-formed.
func (m *Manifest) Validate() error {
	if m.Version != manifestVersion {
		return fmt.Errorf("unsupported manifest version: %d", m.Version)
	}
	if len(m.Keys) == 0 {
		return fmt.Errorf("manifest has no accession keys")
	}
	return nil
}

// writeRunManifest writes the manifest sidecar for a completed filter run.
func writeRunManifest(cfg *Config, res *Result) error {
	cols, err := RecordColumns()
	if err != nil {
		return err
	}
	m := &Manifest{
		Version:        manifestVersion,
		GeneratedAt:    time.Now().UTC(),
		Source:         DumpName(cfg.Stereo, cfg.PlusPlus),
		Keys:           cfg.Keys,
		MinQuality:     cfg.MinQuality,
		Stereo:         cfg.Stereo,
		PlusPlus:       cfg.PlusPlus,
		DropDuplicates: cfg.DropDuplicates,
		Scanned:        res.Scanned,
		Rows:           res.Kept,
		Duplicates:     res.Duplicates,
		Columns:        cols,
	}
	return WriteManifest(cfg.ManifestPath(), m)
}

// WriteManifest marshals the manifest to path.
func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: manifest is not sensitive
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest reads and validates a manifest sidecar.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path derives from the configured data directory
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}
