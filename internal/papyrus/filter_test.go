package papyrus

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// writeDump writes a gzipped tab-separated dump fixture in the standard
// variant's file name so EnsureDump finds it without downloading.
func writeDump(t *testing.T, dir string, rows [][]string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, DumpName(false, false)))
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(f)
	for _, row := range rows {
		if _, err := gz.Write([]byte(strings.Join(row, "\t") + "\n")); err != nil {
			t.Fatal(err)
		}
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

var dumpHeader = []string{"InChIKey", "SMILES", "accession", "Quality", "pchembl_value_Mean"}

func testConfig(dir string) *Config {
	cfg := DefaultConfig()
	cfg.Keys = []string{"P00533"}
	cfg.MinQuality = QualityMedium
	cfg.OutDir = dir
	return cfg
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, [][]string{
		dumpHeader,
		{"KEY-A", "CCO", "P00533", "High", "6.1"},
		{"KEY-B", "CCN", "P00533", "Low", "5.0"},         // below minimum quality
		{"KEY-C", "CCC", "Q9Y5Y9", "High", "7.2"},        // wrong target
		{"KEY-A", "CCO", "P00533", "Medium", "6.0"},      // duplicate InChIKey
		{"KEY-D", "CCS", "P11111;P00533", "High", "8.3"}, // multi-target row
	})
	cfg := testConfig(dir)

	res, err := Run(context.Background(), NewClient(""), cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Reused {
		t.Error("first run reported Reused")
	}
	if res.Scanned != 5 {
		t.Errorf("Scanned = %d, want 5", res.Scanned)
	}
	if res.Kept != 2 {
		t.Errorf("Kept = %d, want 2", res.Kept)
	}
	if res.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", res.Duplicates)
	}
	if res.Path != cfg.OutputPath() {
		t.Errorf("Path = %s, want %s", res.Path, cfg.OutputPath())
	}

	keys, err := res.Table.Values("InChIKey")
	if err != nil {
		t.Fatalf("Values failed: %v", err)
	}
	// First occurrence wins on deduplication.
	if want := []string{"KEY-A", "KEY-D"}; !slices.Equal(keys, want) {
		t.Errorf("kept keys = %v, want %v", keys, want)
	}
	if kind, err := res.Table.Kind(StructureColumn); err != nil || kind != "identity" {
		t.Errorf("Kind(%s) = %v, %v", StructureColumn, kind, err)
	}

	t.Run("manifest sidecar", func(t *testing.T) {
		m, err := ReadManifest(cfg.ManifestPath())
		if err != nil {
			t.Fatalf("ReadManifest failed: %v", err)
		}
		if !slices.Equal(m.Keys, cfg.Keys) || m.MinQuality != QualityMedium {
			t.Errorf("manifest filters = %v/%s", m.Keys, m.MinQuality)
		}
		if m.Rows != 2 || m.Scanned != 5 || m.Duplicates != 1 {
			t.Errorf("manifest counts = %d/%d/%d", m.Rows, m.Scanned, m.Duplicates)
		}
		if m.Source != DumpName(false, false) {
			t.Errorf("manifest source = %s", m.Source)
		}
		if len(m.Columns) == 0 {
			t.Error("manifest has no column definitions")
		}
	})

	t.Run("second run reuses output", func(t *testing.T) {
		res2, err := Run(context.Background(), NewClient(""), cfg)
		if err != nil {
			t.Fatalf("second Run failed: %v", err)
		}
		if !res2.Reused {
			t.Error("second run did not reuse the existing output")
		}
		if res2.Kept != 2 {
			t.Errorf("reused Kept = %d, want 2", res2.Kept)
		}
	})

	t.Run("reuse disabled recomputes", func(t *testing.T) {
		cfg := testConfig(dir)
		cfg.UseExisting = false
		res3, err := Run(context.Background(), NewClient(""), cfg)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if res3.Reused {
			t.Error("run with reuse disabled reported Reused")
		}
		if res3.Scanned != 5 {
			t.Errorf("Scanned = %d, want 5", res3.Scanned)
		}
	})
}

func TestRunFailureLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, [][]string{
		dumpHeader,
		{"KEY-A", "CCO", "P00533", "High", "6.1"},
		{"KEY-B", "CCN"}, // malformed row aborts the stream mid-run
	})
	cfg := testConfig(dir)

	if _, err := Run(context.Background(), NewClient(""), cfg); err == nil {
		t.Fatal("Run succeeded on a malformed dump")
	}
	if _, err := os.Stat(cfg.OutputPath()); !os.IsNotExist(err) {
		t.Errorf("failed run left an output file behind: %v", err)
	}

	// With no output materialized, a rerun recomputes instead of reusing a
	// partial result.
	res, err := Run(context.Background(), NewClient(""), cfg)
	if err == nil {
		t.Fatalf("rerun on the broken dump succeeded: %+v", res)
	}
}

func TestRunMissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeDump(t, dir, [][]string{
		{"InChIKey", "SMILES", "accession"}, // no Quality column
		{"KEY-A", "CCO", "P00533"},
	})
	cfg := testConfig(dir)
	if _, err := Run(context.Background(), NewClient(""), cfg); err == nil {
		t.Fatal("Run succeeded on a dump without the Quality column")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with keys", func(c *Config) {}, false},
		{"no keys", func(c *Config) { c.Keys = nil }, true},
		{"unknown quality", func(c *Config) { c.MinQuality = "great" }, true},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Keys = []string{"P00533"}
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}
}

func TestConfigPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Keys = []string{"P00533", "P28223"}
	cfg.OutDir = "/data"
	if got := cfg.OutputPath(); got != "/data/P00533_P28223_high.tsv" {
		t.Errorf("OutputPath() = %s", got)
	}
	cfg.Prefix = "egfr"
	if got := cfg.ManifestPath(); got != "/data/egfr.manifest.yml" {
		t.Errorf("ManifestPath() = %s", got)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yml")
	const doc = "keys: [P00533]\nmin_quality: medium\nout_dir: /tmp/papyrus\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !slices.Equal(cfg.Keys, []string{"P00533"}) || cfg.MinQuality != QualityMedium {
		t.Errorf("cfg = %+v", cfg)
	}
	// Absent fields keep their defaults.
	if cfg.ChunkSize != DefaultConfig().ChunkSize || !cfg.DropDuplicates {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("LoadConfig succeeded on a missing file")
	}
}

func TestMatchesAccession(t *testing.T) {
	keys := map[string]bool{"P00533": true}
	tests := []struct {
		cell string
		want bool
	}{
		{"P00533", true},
		{"Q9Y5Y9", false},
		{"Q9Y5Y9;P00533", true},
		{"Q9Y5Y9; P00533", true},
		{"Q9Y5Y9;P11111", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := matchesAccession(tt.cell, keys); got != tt.want {
			t.Errorf("matchesAccession(%q) = %t, want %t", tt.cell, got, tt.want)
		}
	}
}

func TestQualityRank(t *testing.T) {
	if !(qualityRank(QualityLow) < qualityRank(QualityMedium) &&
		qualityRank(QualityMedium) < qualityRank(QualityHigh)) {
		t.Error("quality ranks are not strictly increasing")
	}
	if qualityRank("High ") != qualityRank("high") {
		t.Error("rank is not case and space insensitive")
	}
	if qualityRank("unknown") != 0 {
		t.Error("unknown quality did not rank zero")
	}
}
