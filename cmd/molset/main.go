// Package main is the entry point for the molset CLI.
//
// molset inspects and mutates a file-backed molecular dataset: listing its
// columns, collapsing rare scaffolds into groups, showing the dataset's git
// change log, and watching the backing file for rewrites.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/molset/molset/internal/chem"
	"github.com/molset/molset/internal/cli"
	"github.com/molset/molset/internal/dataset"
	"github.com/molset/molset/internal/history"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "molset: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	file := flag.String("file", "", "Dataset TSV file (required)")
	structureCol := flag.String("structure-col", "SMILES", "Name of the structure-string column")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	minGroupSize := flag.Int("min-size", 10, "Minimum molecules per scaffold group (group command)")
	snapshot := flag.Bool("snapshot", false, "Commit the dataset file to the change log after mutating (group command)")
	limit := flag.Int("n", 20, "Number of change log entries to show (history command)")
	flag.Usage = usage
	flag.Parse()

	if err := cli.SetupLogger(*logLevel); err != nil {
		return err
	}
	if flag.NArg() != 1 {
		usage()
		return errors.New("exactly one command is required")
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	switch cmd := flag.Arg(0); cmd {
	case "info":
		return runInfo(*file, *structureCol)
	case "group":
		return runGroup(*file, *structureCol, *minGroupSize, *snapshot)
	case "history":
		return runHistory(*file, *limit)
	case "watch":
		return runWatch(ctx, *file, *structureCol)
	default:
		usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: molset -file data.tsv [flags] <command>

Commands:
  info     Show row count, columns and annotation state
  group    Create scaffold groups (rare scaffolds collapse into "Other")
  history  Show the dataset directory's change log
  watch    Re-print the summary whenever the file is rewritten

Flags:
`)
	flag.PrintDefaults()
}

func openStore(file, structureCol string) (*dataset.TSVStore, error) {
	// Column-level commands never evaluate annotation functions, so the
	// passthrough parser is enough.
	return dataset.Open(file, structureCol, chem.Passthrough)
}

func runInfo(file, structureCol string) error {
	store, err := openStore(file, structureCol)
	if err != nil {
		return err
	}
	return printSummary(store, structureCol)
}

func printSummary(store *dataset.TSVStore, structureCol string) error {
	tbl, err := store.AsTable(structureCol)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d rows\n", store.Path(), tbl.RowCount())
	fmt.Printf("  descriptors: %v  scaffolds: %v  groups: %v\n",
		store.HasDescriptors(), store.HasScaffolds(), store.HasScaffoldGroups())
	for _, name := range tbl.ColumnNames() {
		kind, err := tbl.Kind(name)
		if err != nil {
			return err
		}
		fmt.Printf("  %-14s %s\n", kind, name)
	}
	return nil
}

func runGroup(file, structureCol string, minGroupSize int, snapshot bool) error {
	store, err := openStore(file, structureCol)
	if err != nil {
		return err
	}
	if !store.HasScaffolds() {
		return errors.New("dataset has no scaffold columns to group")
	}
	if err := store.CreateScaffoldGroups(minGroupSize); err != nil {
		return err
	}
	for _, name := range store.ScaffoldNames() {
		groups, err := store.ScaffoldGroups(name)
		if err != nil {
			return err
		}
		slog.Info("Grouped scaffold column", "column", name, "categories", distinct(groups))
	}
	if snapshot {
		if err := snapshotFile(file, fmt.Sprintf("Group scaffolds (min size %d)", minGroupSize)); err != nil {
			return err
		}
	}
	return nil
}

func distinct(values []string) int {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return len(set)
}

func snapshotFile(file, msg string) error {
	repo, err := history.Open(filepath.Dir(file))
	if err != nil {
		return err
	}
	rel, err := repo.Rel(file)
	if err != nil {
		return err
	}
	return repo.Snapshot(msg, rel)
}

func runHistory(file string, limit int) error {
	repo, err := history.Open(filepath.Dir(file))
	if err != nil {
		return err
	}
	rel, err := repo.Rel(file)
	if err != nil {
		return err
	}
	commits, err := repo.Log(rel, limit)
	if err != nil {
		return err
	}
	if len(commits) == 0 {
		fmt.Println("no history")
		return nil
	}
	for _, c := range commits {
		fmt.Printf("%s  %s  %s\n", c.Hash[:8], c.When.Format("2006-01-02 15:04"), c.Message)
	}
	return nil
}

// runWatch re-opens and summarizes the dataset whenever another process
// rewrites the backing file. It never writes, so it does not conflict with
// the store's single-writer ownership.
func runWatch(ctx context.Context, file, structureCol string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	// Watch the directory: whole-file rewrites replace the inode on some
	// platforms, which drops a watch set on the file itself.
	if err := w.Add(filepath.Dir(file)); err != nil {
		return err
	}

	store, err := openStore(file, structureCol)
	if err != nil {
		return err
	}
	if err := printSummary(store, structureCol); err != nil {
		return err
	}

	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if p, err := filepath.Abs(event.Name); err != nil || p != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			slog.InfoContext(ctx, "Dataset file changed, reloading")
			store, err := openStore(file, structureCol)
			if err != nil {
				slog.WarnContext(ctx, "Failed to reload dataset", "err", err)
				continue
			}
			if err := printSummary(store, structureCol); err != nil {
				return err
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "Error watching dataset file", "err", err)
		}
	}
}
