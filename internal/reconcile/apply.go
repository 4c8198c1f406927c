// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/icebridge-archive/internal/index"
	"github.com/pdiddy/icebridge-archive/pkg/types"
)

// NextDayMarker is the filename dropped in a flight directory when a
// fetch-next-day rule applies; the index stage picks it up.
const NextDayMarker = ".fetch-next-day"

// Summary counts rule outcomes for one apply run.
type Summary struct {
	Applied int
	Skipped int
	Failed  int
}

// Total returns the number of rules processed.
func (s Summary) Total() int {
	return s.Applied + s.Skipped + s.Failed
}

// Applier executes special-case rules against the local archive.
type Applier struct {
	cfg types.ReconcileConfig
}

// NewApplier returns an Applier for the configured archive.
func NewApplier(cfg types.ReconcileConfig) *Applier {
	return &Applier{cfg: cfg}
}

// Apply runs every rule, printing per-rule status. A rule whose flight
// directory does not exist locally is reported and skipped, not failed:
// the archive notes cover flights an operator may not have fetched.
func (a *Applier) Apply(rules []types.SpecialCase, w io.Writer) Summary {
	var summary Summary
	for _, rule := range rules {
		flight, err := rule.Flight()
		if err != nil {
			fmt.Fprintf(w, "failed:  %s_%s (%v)\n", rule.Site, rule.Date, err)
			summary.Failed++
			continue
		}

		flightDir := filepath.Join(a.cfg.ArchiveDir, flight.ID())
		if _, err := os.Stat(flightDir); os.IsNotExist(err) {
			fmt.Fprintf(w, "skipped: %s (%s): flight directory not present\n", flight.ID(), rule.Action)
			summary.Skipped++
			continue
		}

		var applyErr error
		switch rule.Action {
		case types.ActionFetchNextDay:
			applyErr = a.markNextDay(flightDir)
		case types.ActionConcatDirs:
			applyErr = a.concatDirs(flightDir, rule.Dirs[0], rule.Dirs[1], w)
		case types.ActionSplitHemisphere:
			applyErr = a.splitHemisphere(flight, flightDir, w)
		case types.ActionMergeInto:
			applyErr = a.mergeInto(flightDir, rule.Dirs[0], w)
		default:
			applyErr = fmt.Errorf("unknown action %q", rule.Action)
		}

		if applyErr != nil {
			fmt.Fprintf(w, "failed:  %s (%s): %v\n", flight.ID(), rule.Action, applyErr)
			summary.Failed++
			continue
		}
		fmt.Fprintf(w, "applied: %s (%s)\n", flight.ID(), rule.Action)
		summary.Applied++
	}

	fmt.Fprintf(w, "\nReconcile summary: %d applied, %d skipped, %d failed (total: %d)\n",
		summary.Applied, summary.Skipped, summary.Failed, summary.Total())
	return summary
}

func (a *Applier) markNextDay(flightDir string) error {
	if a.cfg.DryRun {
		return nil
	}
	return os.WriteFile(filepath.Join(flightDir, NextDayMarker), []byte{}, 0o644)
}

// concatDirs merges the secondary subdirectory into the primary: files
// move over (never overwriting) and every index present in either dir is
// unioned with primary entries winning frame collisions.
func (a *Applier) concatDirs(flightDir, primary, secondary string, w io.Writer) error {
	primaryDir := filepath.Join(flightDir, primary)
	secondaryDir := filepath.Join(flightDir, secondary)

	for _, dir := range []string{primaryDir, secondaryDir} {
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("subdirectory %s: %w", dir, err)
		}
	}

	entries, err := os.ReadDir(secondaryDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", secondaryDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, "_index.csv") {
			if err := a.concatIndex(primaryDir, secondaryDir, name, w); err != nil {
				return err
			}
			continue
		}
		if err := a.moveFile(filepath.Join(secondaryDir, name), filepath.Join(primaryDir, name), w); err != nil {
			return err
		}
	}

	if !a.cfg.DryRun {
		// Best effort: the directory only disappears once fully drained.
		os.Remove(secondaryDir)
	}
	return nil
}

// concatIndex unions one index file from the secondary dir into the
// primary dir. Frames already present in the primary index stay.
func (a *Applier) concatIndex(primaryDir, secondaryDir, name string, w io.Writer) error {
	secondaryEntries, err := index.ReadIndex(filepath.Join(secondaryDir, name))
	if err != nil {
		return fmt.Errorf("reading secondary index: %w", err)
	}

	primaryPath := filepath.Join(primaryDir, name)
	var primaryEntries []types.IndexEntry
	if index.FileNonEmpty(primaryPath) {
		primaryEntries, err = index.ReadIndex(primaryPath)
		if err != nil {
			return fmt.Errorf("reading primary index: %w", err)
		}
	}

	have := make(map[int]bool, len(primaryEntries))
	for _, e := range primaryEntries {
		have[e.Frame] = true
	}
	merged := primaryEntries
	added := 0
	for _, e := range secondaryEntries {
		if have[e.Frame] {
			continue
		}
		merged = append(merged, e)
		added++
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Frame < merged[j].Frame })

	fmt.Fprintf(w, "  concat %s: +%d entries (%d total)\n", name, added, len(merged))
	if a.cfg.DryRun {
		return nil
	}
	if err := index.WriteIndex(primaryPath, merged); err != nil {
		return err
	}
	return os.Remove(filepath.Join(secondaryDir, name))
}

// splitHemisphere walks a flight directory holding both hemispheres and
// moves wrong-latitude granules (with their sidecars) to the opposite
// flight's directory.
func (a *Applier) splitHemisphere(flight types.Flight, flightDir string, w io.Writer) error {
	otherDir := filepath.Join(a.cfg.ArchiveDir, flight.Other().ID())

	entries, err := os.ReadDir(flightDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", flightDir, err)
	}

	moved := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".xml") {
			continue
		}

		lat, err := index.ParseLatitude(filepath.Join(flightDir, name))
		if err != nil {
			continue
		}
		if flight.Site.HasGoodLatitude(lat) {
			continue
		}

		if !a.cfg.DryRun {
			if err := os.MkdirAll(otherDir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", otherDir, err)
			}
		}

		granule, err := index.XMLToGranule(name)
		if err != nil {
			continue
		}
		for _, f := range []string{name, granule} {
			src := filepath.Join(flightDir, f)
			if _, err := os.Stat(src); err != nil {
				continue
			}
			if err := a.moveFile(src, filepath.Join(otherDir, f), w); err != nil {
				return err
			}
		}
		moved++
	}

	fmt.Fprintf(w, "  moved %d granules to %s\n", moved, flight.Other().ID())
	return nil
}

// mergeInto drains a stray directory (relative to the archive root) into
// the flight directory, unioning index files along the way.
func (a *Applier) mergeInto(flightDir, strayRel string, w io.Writer) error {
	strayDir := filepath.Join(a.cfg.ArchiveDir, strayRel)
	if _, err := os.Stat(strayDir); err != nil {
		return fmt.Errorf("stray directory %s: %w", strayDir, err)
	}

	entries, err := os.ReadDir(strayDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", strayDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, "_index.csv") {
			if err := a.concatIndex(flightDir, strayDir, name, w); err != nil {
				return err
			}
			continue
		}
		if err := a.moveFile(filepath.Join(strayDir, name), filepath.Join(flightDir, name), w); err != nil {
			return err
		}
	}

	if !a.cfg.DryRun {
		os.Remove(strayDir)
	}
	return nil
}

// moveFile renames src to dst unless dst already exists; existing files
// win so a re-run never clobbers reconciled data.
func (a *Applier) moveFile(src, dst string, w io.Writer) error {
	if _, err := os.Stat(dst); err == nil {
		fmt.Fprintf(w, "  keep existing %s\n", filepath.Base(dst))
		if a.cfg.DryRun {
			return nil
		}
		return os.Remove(src)
	}
	if a.cfg.DryRun {
		fmt.Fprintf(w, "  would move %s -> %s\n", src, dst)
		return nil
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s: %w", src, err)
	}
	return nil
}
