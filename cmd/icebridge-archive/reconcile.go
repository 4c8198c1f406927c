// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/icebridge-archive/internal/reconcile"
	"github.com/pdiddy/icebridge-archive/pkg/types"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Apply special-case rules and pair images with lidar",
	Long: `Reconcile fixes the archive layout problems the NSIDC source
carries: flights whose data landed under the next day's folder, flights
split across two folders that need concatenating, Antarctic flights
stored under Arctic paths, and stray directories that belong inside a
flight. The rules live in a YAML file and are applied per flight.`,
}

// --- apply subcommand ---

var reconcileApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the special-case rules file to the archive",
	Long: `Apply reads the special-case rules file and applies each rule to its
flight directory. Rules for flights not yet fetched are skipped, not
failed, so the rules file can cover the whole campaign.`,
	RunE: runReconcileApply,
}

func runReconcileApply(cmd *cobra.Command, args []string) error {
	rulesFile, _ := cmd.Flags().GetString("rules")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg := types.ReconcileConfig{
		ArchiveDir: archiveDir(cmd),
		RulesFile:  rulesFile,
		DryRun:     dryRun,
	}

	rules, err := reconcile.LoadRules(cfg.RulesFile)
	if err != nil {
		return err
	}

	applier := reconcile.NewApplier(cfg)
	summary := applier.Apply(rules, os.Stdout)

	fmt.Printf("\napplied: %d, skipped: %d, failed: %d\n",
		summary.Applied, summary.Skipped, summary.Failed)
	if summary.Failed > 0 {
		return fmt.Errorf("%d rule(s) failed", summary.Failed)
	}
	return nil
}

// --- pair-lidar subcommand ---

var reconcilePairCmd = &cobra.Command{
	Use:   "pair-lidar <site> <date>",
	Short: "Pair each orthorectified frame with its closest lidar granule",
	Long: `Pair-lidar matches every granule in a flight's ortho index to the
lidar granule whose timestamp is closest, and writes the pairing to
lidar_pairs.yaml in the flight directory. Raw camera frames carry no
timestamp, so pairing runs off the orthorectified names. Both indexes
must exist.`,
	RunE: runReconcilePair,
}

func runReconcilePair(cmd *cobra.Command, args []string) error {
	flight, err := parseFlight(args)
	if err != nil {
		return err
	}

	flightDir := filepath.Join(archiveDir(cmd), flight.ID())

	path, pairs, err := reconcile.PairFlight(flightDir)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d pairs)\n", path, len(pairs))
	return nil
}

func init() {
	reconcileApplyCmd.Flags().String("rules", "special_cases.yaml", "special-case rules file")
	reconcileApplyCmd.Flags().Bool("dry-run", false, "report planned moves without touching the filesystem")

	reconcileCmd.AddCommand(reconcileApplyCmd)
	reconcileCmd.AddCommand(reconcilePairCmd)

	rootCmd.AddCommand(reconcileCmd)
}
