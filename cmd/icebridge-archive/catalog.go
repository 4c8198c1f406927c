// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/icebridge-archive/internal/catalog"
	"github.com/pdiddy/icebridge-archive/pkg/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the archive catalog (ingest, report, frames, export)",
	Long: `Catalog maintains a local SQLite database over the archive. Use
subcommands to ingest parsed indexes, report per-flight coverage, query
granules, or export.`,
}

// --- ingest subcommand ---

var catalogIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load every parsed flight index into the catalog",
	Long: `Ingest scans the archive for flight directories, loads each parsed
index CSV into the catalog, and records which granules exist on disk.
Unchanged indexes are skipped on subsequent runs.`,
	RunE: runCatalogIngest,
}

func runCatalogIngest(cmd *cobra.Command, args []string) error {
	store, err := catalog.NewStore(catalogConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(context.Background(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d index(es) failed ingest", summary.Failed)
	}
	return nil
}

// --- report subcommand ---

var catalogReportCmd = &cobra.Command{
	Use:   "report [flight-id]",
	Short: "Summarize per-flight coverage, with frame gaps",
	Long: `Report prints a per-flight, per-product summary of the catalog:
granule counts, how many are fetched and valid, the frame range, and any
gaps in frame coverage. Pass a flight ID like GR_20091016 to report a
single flight.`,
	RunE: runCatalogReport,
}

func runCatalogReport(cmd *cobra.Command, args []string) error {
	store, err := catalog.NewStore(catalogConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	flightID := ""
	if len(args) > 0 {
		flightID = args[0]
	}

	reports, err := store.Report(context.Background(), flightID)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	if len(reports) == 0 {
		fmt.Println("No flights in catalog.")
		return nil
	}

	for _, fr := range reports {
		fmt.Printf("%s\n", fr.FlightID)
		for _, pr := range fr.Products {
			fmt.Printf("  %-6s  %5d granules  %5d fetched  %5d valid  %5d failed  frames %d-%d\n",
				pr.Product, pr.Granules, pr.Fetched, pr.Valid, pr.Failed,
				pr.MinFrame, pr.MaxFrame)
			for _, gap := range pr.Gaps {
				fmt.Printf("          gap: frames %d-%d missing\n", gap.After+1, gap.Before-1)
			}
		}
	}
	return nil
}

// --- frames subcommand ---

var catalogFramesCmd = &cobra.Command{
	Use:   "frames",
	Short: "Query granules with structured filters",
	Long: `Frames queries the catalog for granules matching the given filters
and prints one line per granule. Combine --flight, --product, --status,
and a frame range.`,
	RunE: runCatalogFrames,
}

func runCatalogFrames(cmd *cobra.Command, args []string) error {
	store, err := catalog.NewStore(catalogConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd)
	if opts.IsEmpty() {
		return fmt.Errorf("filter required: provide --flight, --product, --status, or a frame range")
	}

	granules, err := store.Frames(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(granules)
	}

	if len(granules) == 0 {
		fmt.Println("No granules found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-12s  %-6s  %6s  %-45s  %-6s  %s\n",
		"Flight", "Prod", "Frame", "Name", "Status", "Size")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 95))
	for _, g := range granules {
		name := g.Name
		if len(name) > 45 {
			name = name[:42] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-12s  %-6s  %6d  %-45s  %-6s  %d\n",
			g.FlightID, g.Product, g.Frame, name, g.Status, g.Size)
	}
	fmt.Fprintf(os.Stdout, "\n%d granules\n", len(granules))
	return nil
}

// --- export subcommand ---

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog to YAML or JSON",
	Long: `Export writes the catalog (or a filtered subset) to
catalog/export.yaml or export.json under the archive root. Supports the
same filter flags as frames for partial exports.`,
	RunE: runCatalogExport,
}

func runCatalogExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := catalog.NewStore(catalogConfig(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd)

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to catalog/export.yaml")
	case "json":
		if err := store.ExportJSON(context.Background(), opts); err != nil {
			return err
		}
		fmt.Println("Exported to catalog/export.json")
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- shared helpers ---

func catalogConfig(cmd *cobra.Command) types.CatalogConfig {
	maxResults, _ := cmd.Flags().GetInt("max-results")
	gapThreshold, _ := cmd.Flags().GetInt("gap-threshold")

	return types.CatalogConfig{
		ArchiveDir:   archiveDir(cmd),
		MaxResults:   maxResults,
		GapThreshold: gapThreshold,
	}
}

func queryOptsFromFlags(cmd *cobra.Command) catalog.QueryOptions {
	flightID, _ := cmd.Flags().GetString("flight")
	product, _ := cmd.Flags().GetString("product")
	status, _ := cmd.Flags().GetString("status")
	minFrame, _ := cmd.Flags().GetInt("min-frame")
	maxFrame, _ := cmd.Flags().GetInt("max-frame")
	limit, _ := cmd.Flags().GetInt("limit")

	return catalog.QueryOptions{
		FlightID:   flightID,
		Product:    types.ProductType(product),
		Status:     types.ValidationStatus(status),
		MinFrame:   minFrame,
		MaxFrame:   maxFrame,
		MaxResults: limit,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	catalogCmd.PersistentFlags().Int("max-results", 50, "maximum number of query results")
	catalogCmd.PersistentFlags().Int("gap-threshold", 1, "frame step above which a coverage gap is reported")

	// Report flags.
	catalogReportCmd.Flags().Bool("json", false, "output the report as JSON")

	// Frames flags.
	catalogFramesCmd.Flags().String("flight", "", "filter by flight ID, e.g. GR_20091016")
	catalogFramesCmd.Flags().String("product", "", "filter by product: image, ortho, dem, lvis, atm1, atm2")
	catalogFramesCmd.Flags().String("status", "", "filter by validation status: none, ok, failed")
	catalogFramesCmd.Flags().Int("min-frame", 0, "lowest frame number to include")
	catalogFramesCmd.Flags().Int("max-frame", 0, "highest frame number to include")
	catalogFramesCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	catalogFramesCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	catalogExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	catalogExportCmd.Flags().String("flight", "", "filter by flight ID for partial export")
	catalogExportCmd.Flags().String("product", "", "filter by product for partial export")
	catalogExportCmd.Flags().String("status", "", "filter by validation status for partial export")
	catalogExportCmd.Flags().Int("min-frame", 0, "lowest frame number to include")
	catalogExportCmd.Flags().Int("max-frame", 0, "highest frame number to include")

	// Wire subcommands.
	catalogCmd.AddCommand(catalogIngestCmd)
	catalogCmd.AddCommand(catalogReportCmd)
	catalogCmd.AddCommand(catalogFramesCmd)
	catalogCmd.AddCommand(catalogExportCmd)

	rootCmd.AddCommand(catalogCmd)
}
