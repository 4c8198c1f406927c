// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/icebridge-archive/internal/index"
	"github.com/pdiddy/icebridge-archive/internal/reconcile"
	"github.com/pdiddy/icebridge-archive/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultDelay     = 1 * time.Second
	defaultUserAgent = "icebridge-archive/0.1"
)

var indexCmd = &cobra.Command{
	Use:   "index <site> <date> <product>",
	Short: "Build the parsed frame index for a flight and product",
	Long: `Index fetches the NSIDC folder listing for one flight and product,
extracts granule names and frame numbers, and writes the parsed index CSV
into the flight directory. An existing non-empty index is reused unless
--refetch is given.

The product "lidar" probes the LVIS and ATM collections and settles on
whichever one covers the flight.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	indexCmd.Flags().Bool("fetch-next-day", false, "merge the next day's listing into the index")
	indexCmd.Flags().Bool("refetch", false, "refetch the listing even when a parsed index exists")
	indexCmd.Flags().String("rules", "special_cases.yaml", "special-case rules file consulted for next-day flights")

	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
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

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	fetchNextDay, _ := cmd.Flags().GetBool("fetch-next-day")
	refetch, _ := cmd.Flags().GetBool("refetch")
	rulesFile, _ := cmd.Flags().GetString("rules")

	cfg := types.IndexConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		ArchiveDir:   archiveDir(cmd),
		FetchNextDay: fetchNextDay,
		RefetchIndex: refetch,
	}

	// The special-case rules file names the flights whose frames spill
	// into the next day's folder. A missing rules file is fine.
	rules, err := reconcile.LoadRules(rulesFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if reconcile.WantsNextDay(rules, flight, product) {
		cfg.FetchNextDay = true
	}

	// A reconcile run may also have marked the flight directory itself.
	marker := filepath.Join(cfg.ArchiveDir, flight.ID(), reconcile.NextDayMarker)
	if _, err := os.Stat(marker); err == nil {
		cfg.FetchNextDay = true
	}

	client := &http.Client{Timeout: cfg.Timeout}
	builder := index.NewBuilder(client, cfg)

	result, err := builder.Build(context.Background(), flight, product, os.Stdout)
	if err != nil {
		return err
	}

	if result.Reused {
		fmt.Printf("Reusing %s (%d frames)\n", result.Path, len(result.Entries))
	} else {
		fmt.Printf("Wrote %s (%d frames)\n", result.Path, len(result.Entries))
	}
	return nil
}
