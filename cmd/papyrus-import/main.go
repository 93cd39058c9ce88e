// Package main is the entry point for the papyrus-import CLI tool.
//
// papyrus-import downloads the public Papyrus bioactivity dump, filters it by
// protein target and curation quality, deduplicates compounds and writes one
// tab-separated dataset file plus a manifest sidecar. The produced file is
// the input the molset dataset store is later pointed at.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/molset/molset/internal/cli"
	"github.com/molset/molset/internal/history"
	"github.com/molset/molset/internal/papyrus"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "papyrus-import: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML config file describing the run")
	keys := flag.String("keys", "", "Comma-separated UniProt accession keys (required unless set in config)")
	quality := flag.String("quality", "", "Minimum curation quality to keep: low, medium or high")
	outDir := flag.String("out", "", "Output directory for the dump and the filtered file")
	prefix := flag.String("prefix", "", "Output file prefix (default: <keys>_<quality>)")
	dropDuplicates := flag.Bool("drop-duplicates", true, "Drop rows with an already-seen InChIKey")
	useExisting := flag.Bool("use-existing", true, "Reuse the output file if it already exists")
	stereo := flag.Bool("stereo", false, "Use the stereochemistry-aware dump variant")
	plusplus := flag.Bool("plusplus", false, "Use the high-quality Papyrus++ subset")
	baseURL := flag.String("base-url", "", "Dump download base URL (default: the public Papyrus record)")
	snapshot := flag.Bool("snapshot", false, "Commit the produced files to the output directory's change log")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}
	if err := cli.SetupLogger(*logLevel); err != nil {
		return err
	}

	cfg := papyrus.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = papyrus.LoadConfig(*configPath)
		if err != nil {
			return err
		}
	}

	// Flags explicitly set on the command line override the config file.
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	if set["keys"] {
		cfg.Keys = splitKeys(*keys)
	}
	if set["quality"] {
		cfg.MinQuality = *quality
	}
	if set["out"] {
		cfg.OutDir = *outDir
	}
	if set["prefix"] {
		cfg.Prefix = *prefix
	}
	if set["drop-duplicates"] {
		cfg.DropDuplicates = *dropDuplicates
	}
	if set["use-existing"] {
		cfg.UseExisting = *useExisting
	}
	if set["stereo"] {
		cfg.Stereo = *stereo
	}
	if set["plusplus"] {
		cfg.PlusPlus = *plusplus
	}
	if set["base-url"] {
		cfg.BaseURL = *baseURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	client := papyrus.NewClient(cfg.BaseURL)
	res, err := papyrus.Run(ctx, client, cfg)
	if err != nil {
		return fmt.Errorf("filter failed: %w", err)
	}

	fmt.Printf("Output: %s (%d compounds", res.Path, res.Kept)
	if res.Reused {
		fmt.Printf(", reused")
	} else if cfg.DropDuplicates {
		fmt.Printf(", %d duplicates removed", res.Duplicates)
	}
	fmt.Println(")")

	if *snapshot && !res.Reused {
		repo, err := history.Open(cfg.OutDir)
		if err != nil {
			return err
		}
		outRel, err := repo.Rel(res.Path)
		if err != nil {
			return err
		}
		manifestRel, err := repo.Rel(cfg.ManifestPath())
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("Import %s (%s quality, %d compounds)",
			strings.Join(cfg.Keys, ", "), cfg.MinQuality, res.Kept)
		if err := repo.Snapshot(msg, outRel, manifestRel); err != nil {
			return err
		}
	}
	return nil
}

func splitKeys(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}
