// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/icebridge-archive/internal/catalog"
	"github.com/pdiddy/icebridge-archive/internal/index"
	"github.com/pdiddy/icebridge-archive/internal/validate"
	"github.com/pdiddy/icebridge-archive/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate <site> <date> <product>",
	Short: "Check fetched files against their sidecars",
	Long: `Validate checks every fetched granule listed in a flight's parsed
index: image files must carry a recognized header (or pass gdalinfo when
--gdalinfo points at a binary or --gdal-image names a GDAL container
image), data files must match their sidecar
XML checksum, tfw world files must be well formed, and sidecars must
place the granule in the flight's hemisphere.

With --wipe, failing files are removed together with their companions
so the next fetch re-downloads them.

Per-granule outcomes are recorded in the catalog database, so reports
and frame queries reflect the latest validation.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().Bool("wipe", false, "remove files that fail validation")
	validateCmd.Flags().String("gdalinfo", "", "path to gdalinfo for full image validation")
	validateCmd.Flags().String("gdal-image", "", "GDAL container image to run gdalinfo from (docker or podman)")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	flight, err := parseFlight(args)
	if err != nil {
		return err
	}
	if len(args) < 3 {
		return fmt.Errorf("provide a product: image, ortho, dem, or lidar")
	}
	product, err := types.ParseProductType(args[2])
	if err != nil {
		return err
	}

	wipe, _ := cmd.Flags().GetBool("wipe")
	gdalinfo, _ := cmd.Flags().GetString("gdalinfo")
	gdalImage, _ := cmd.Flags().GetString("gdal-image")

	cfg := types.ValidateConfig{
		ArchiveDir:   archiveDir(cmd),
		Wipe:         wipe,
		GdalinfoPath: gdalinfo,
		GdalImage:    gdalImage,
	}

	flightDir := filepath.Join(cfg.ArchiveDir, flight.ID())
	indexPath := filepath.Join(flightDir, index.FileName(product))
	entries, err := index.ReadIndex(indexPath)
	if err != nil {
		return fmt.Errorf("no parsed index for %s %s (run index first): %w",
			flight.ID(), product, err)
	}

	var paths []string
	for _, e := range entries {
		paths = append(paths, validate.GranulePaths(flightDir, e.Name, product)...)
	}

	result := validate.Run(paths, product, flight.Site, cfg, os.Stdout)

	store, err := catalog.NewStore(types.CatalogConfig{ArchiveDir: cfg.ArchiveDir})
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := context.Background()
	for name, status := range validate.Statuses(entries, flightDir, product, paths, result) {
		if err := store.MarkStatus(ctx, flight.ID(), product, name, status); err != nil {
			return err
		}
	}

	fmt.Printf("\nChecked %d file(s), %d failed\n", result.Checked, result.Failed)
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed validation", result.Failed)
	}
	return nil
}
