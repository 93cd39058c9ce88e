// The acquisition batch job: stream the Papyrus dump, keep rows matching the
// requested targets and quality, deduplicate, and write one TSV of surviving
// compound records.

package papyrus

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/molset/molset/internal/table"
	"gopkg.in/yaml.v3"
)

// StructureColumn is the structure-string column of the produced file, and
// the column the dataset store is later pointed at.
const StructureColumn = "SMILES"

// Quality labels in increasing strictness.
const (
	QualityLow    = "low"
	QualityMedium = "medium"
	QualityHigh   = "high"
)

// Config describes one filter run. The YAML tags allow the whole run to be
// described in a config file instead of flags.
type Config struct {
	// Keys are the UniProt accession keys of the wanted targets.
	Keys []string `yaml:"keys"`
	// MinQuality is the minimum curation quality to keep (low, medium, high).
	MinQuality string `yaml:"min_quality"`
	// OutDir holds both the raw dump and the produced file.
	OutDir string `yaml:"out_dir"`
	// Prefix overrides the default output file prefix of
	// "<key>_<key>..._<quality>".
	Prefix string `yaml:"prefix,omitempty"`
	// DropDuplicates removes rows whose InChIKey was already seen; the first
	// occurrence wins.
	DropDuplicates bool `yaml:"drop_duplicates"`
	// UseExisting reads the output file back verbatim when it already exists
	// instead of recomputing.
	UseExisting bool `yaml:"use_existing"`
	// ChunkSize is the number of rows per progress report.
	ChunkSize int `yaml:"chunk_size"`
	// Stereo selects the stereochemistry-aware dump variant.
	Stereo bool `yaml:"stereo"`
	// PlusPlus selects the high-quality Papyrus++ subset.
	PlusPlus bool `yaml:"plusplus"`
	// BaseURL overrides the dump download location.
	BaseURL string `yaml:"base_url,omitempty"`
}

// DefaultConfig returns a Config with the defaults applied.
func DefaultConfig() *Config {
	return &Config{
		MinQuality:     QualityHigh,
		OutDir:         "./data",
		DropDuplicates: true,
		UseExisting:    true,
		ChunkSize:      100000,
	}
}

// LoadConfig reads a YAML run description, applying defaults for absent
// fields. The path is provided by the CLI user, so file inclusion is
// expected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-specified config path
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the config describes a runnable filter.
func (c *Config) Validate() error {
	if len(c.Keys) == 0 {
		return errors.New("at least one accession key is required")
	}
	if qualityRank(c.MinQuality) == 0 {
		return fmt.Errorf("unknown quality %q: want low, medium or high", c.MinQuality)
	}
	if c.ChunkSize <= 0 {
		return errors.New("chunk size must be positive")
	}
	return nil
}

// prefix returns the configured prefix, or "<keys>_<quality>".
func (c *Config) prefix() string {
	if c.Prefix != "" {
		return c.Prefix
	}
	return strings.Join(c.Keys, "_") + "_" + c.MinQuality
}

// OutputPath returns the path of the produced TSV file.
func (c *Config) OutputPath() string {
	return filepath.Join(c.OutDir, c.prefix()+".tsv")
}

// ManifestPath returns the path of the manifest sidecar.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.OutDir, c.prefix()+".manifest.yml")
}

// Result is the outcome of one filter run.
type Result struct {
	// Table is the in-memory form of the produced file.
	Table *table.Table
	// Path is the produced TSV file.
	Path string
	// Scanned is the number of dump rows read.
	Scanned int
	// Kept is the number of rows written.
	Kept int
	// Duplicates is the number of rows dropped by deduplication.
	Duplicates int
	// Reused reports that an existing output file was read back instead of
	// recomputing.
	Reused bool
}

// Run executes the filter. When the output file already exists and reuse is
// requested it is read back verbatim; otherwise the dump is downloaded if
// absent, streamed, filtered and written, together with a manifest sidecar.
func Run(ctx context.Context, client *Client, cfg *Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	outPath := cfg.OutputPath()

	if cfg.UseExisting {
		if _, err := os.Stat(outPath); err == nil {
			slog.InfoContext(ctx, "Using existing data", "path", outPath)
			tbl, err := readTable(outPath)
			if err != nil {
				return nil, err
			}
			return &Result{Table: tbl, Path: outPath, Kept: tbl.RowCount(), Reused: true}, nil
		}
	}

	dumpPath, err := client.EnsureDump(ctx, cfg.OutDir, cfg.Stereo, cfg.PlusPlus)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Reading dump", "path", dumpPath)

	res, err := filterDump(ctx, dumpPath, outPath, cfg)
	if err != nil {
		return nil, err
	}

	if err := writeRunManifest(cfg, res); err != nil {
		return nil, err
	}

	res.Table, err = readTable(outPath)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Wrote filtered data", "path", outPath,
		"scanned", res.Scanned, "kept", res.Kept, "duplicates", res.Duplicates)
	return res, nil
}

// filterDump streams the gzipped dump row by row and writes survivors.
func filterDump(ctx context.Context, dumpPath, outPath string, cfg *Config) (*Result, error) {
	in, err := os.Open(dumpPath) //nolint:gosec // Path derives from the configured data directory
	if err != nil {
		return nil, fmt.Errorf("failed to open dump: %w", err)
	}
	defer func() { _ = in.Close() }()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress dump: %w", err)
	}
	defer func() { _ = gz.Close() }()

	cr := csv.NewReader(gz)
	cr.Comma = '\t'
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read dump header: %w", err)
	}
	idx, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	// Write through a temp file so a failed run never leaves a partial
	// output behind for a later run to reuse as a complete result.
	out, err := os.CreateTemp(filepath.Dir(outPath), filepath.Base(outPath)+".*")
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	tmpPath := out.Name()
	committed := false
	defer func() {
		if !committed {
			_ = out.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	cw := csv.NewWriter(out)
	cw.Comma = '\t'
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write output header: %w", err)
	}

	keys := make(map[string]bool, len(cfg.Keys))
	for _, k := range cfg.Keys {
		keys[k] = true
	}
	minRank := qualityRank(cfg.MinQuality)
	seen := make(map[string]bool)

	res := &Result{Path: outPath}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dump row: %w", err)
		}
		res.Scanned++
		if res.Scanned%cfg.ChunkSize == 0 {
			slog.InfoContext(ctx, "Filtering", "scanned", res.Scanned, "kept", res.Kept)
		}

		if qualityRank(row[idx.quality]) < minRank {
			continue
		}
		if !matchesAccession(row[idx.accession], keys) {
			continue
		}
		if cfg.DropDuplicates {
			key := row[idx.inchiKey]
			if seen[key] {
				res.Duplicates++
				continue
			}
			seen[key] = true
		}
		if err := cw.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write output row: %w", err)
		}
		res.Kept++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush output: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return nil, fmt.Errorf("failed to move output into place: %w", err)
	}
	committed = true
	return res, nil
}

// columnIndex locates the required record columns in a dump header.
type columnIndex struct {
	inchiKey  int
	accession int
	quality   int
}

func headerIndex(header []string) (*columnIndex, error) {
	required, err := RequiredColumns()
	if err != nil {
		return nil, err
	}
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[name] = i
	}
	for _, name := range required {
		if _, ok := pos[name]; !ok {
			return nil, fmt.Errorf("dump is missing required column %s", name)
		}
	}
	return &columnIndex{
		inchiKey:  pos["InChIKey"],
		accession: pos["accession"],
		quality:   pos["Quality"],
	}, nil
}

// matchesAccession reports whether any of the row's semicolon-separated
// accessions is a wanted key.
func matchesAccession(cell string, keys map[string]bool) bool {
	if keys[cell] {
		return true
	}
	if !strings.Contains(cell, ";") {
		return false
	}
	for _, acc := range strings.Split(cell, ";") {
		if keys[strings.TrimSpace(acc)] {
			return true
		}
	}
	return false
}

// qualityRank orders quality labels; zero means unknown.
func qualityRank(q string) int {
	switch strings.ToLower(strings.TrimSpace(q)) {
	case QualityLow:
		return 1
	case QualityMedium:
		return 2
	case QualityHigh:
		return 3
	default:
		return 0
	}
}

func readTable(path string) (*table.Table, error) {
	f, err := os.Open(path) //nolint:gosec // Path derives from the configured data directory
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}
	defer func() { _ = f.Close() }()
	tbl, err := table.ReadTSV(f, StructureColumn)
	if err != nil {
		return nil, fmt.Errorf("failed to load output file %s: %w", path, err)
	}
	return tbl, nil
}
