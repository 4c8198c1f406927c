// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/icebridge-archive/internal/catalog"
	"github.com/pdiddy/icebridge-archive/internal/fetch"
	"github.com/pdiddy/icebridge-archive/internal/index"
	"github.com/pdiddy/icebridge-archive/internal/validate"
	"github.com/pdiddy/icebridge-archive/pkg/types"
)

// maxFetchAttempts bounds the fetch-validate loop. Each attempt wipes
// files that fail validation and re-downloads them; the loop stops early
// once an attempt fixes nothing.
const maxFetchAttempts = 10

var fetchCmd = &cobra.Command{
	Use:   "fetch <site> <date> <product>",
	Short: "Download granules and sidecars for a flight",
	Long: `Fetch downloads the granules listed in a flight's parsed index,
sidecar files included, then validates them against sidecar checksums.
Files that fail validation are wiped and re-downloaded, up to ten
attempts or until an attempt makes no progress. Existing valid files
are skipped, so interrupted runs resume where they left off.

Earthdata credentials are read from .secrets/earthdata-token and sent
as a bearer token.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	fetchCmd.Flags().Duration("delay", 0, "delay between consecutive downloads (default 1s)")
	fetchCmd.Flags().Int("start-frame", 0, "first frame to fetch (default: whole index)")
	fetchCmd.Flags().Int("stop-frame", 0, "last frame to fetch (default: whole index)")
	fetchCmd.Flags().Int("max-files", 0, "cap on files fetched this run (0 = no cap)")
	fetchCmd.Flags().Int("max-attempts", maxFetchAttempts, "fetch-validate attempts before giving up")
	fetchCmd.Flags().Bool("dry-run", false, "print planned downloads without fetching")
	fetchCmd.Flags().Bool("skip-validate", false, "skip validation after fetching")

	rootCmd.AddCommand(fetchCmd)
}

// earthdataTransport adds the Earthdata bearer token to outgoing requests.
type earthdataTransport struct {
	token string
	base  http.RoundTripper
}

func (t *earthdataTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(r)
}

func runFetch(cmd *cobra.Command, args []string) error {
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
	delay, _ := cmd.Flags().GetDuration("delay")
	if delay == 0 {
		delay = defaultDelay
	}
	startFrame, _ := cmd.Flags().GetInt("start-frame")
	stopFrame, _ := cmd.Flags().GetInt("stop-frame")
	maxFiles, _ := cmd.Flags().GetInt("max-files")
	maxAttempts, _ := cmd.Flags().GetInt("max-attempts")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	skipValidate, _ := cmd.Flags().GetBool("skip-validate")
	allFrames := startFrame == 0 && stopFrame == 0

	cfg := types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		ArchiveDir:    archiveDir(cmd),
		DownloadDelay: delay,
		MaxFiles:      maxFiles,
		DryRun:        dryRun,
	}

	flightDir := filepath.Join(cfg.ArchiveDir, flight.ID())
	indexPath := filepath.Join(flightDir, index.FileName(product))
	entries, err := index.ReadIndex(indexPath)
	if err != nil {
		return fmt.Errorf("no parsed index for %s %s (run index first): %w",
			flight.ID(), product, err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("index %s is empty", indexPath)
	}

	token := loadedSecrets["earthdata-token"]
	if token == "" && !dryRun {
		return fmt.Errorf("no Earthdata token: put one in .secrets/earthdata-token")
	}

	client := &http.Client{Timeout: cfg.Timeout}
	if token != "" {
		client.Transport = &earthdataTransport{token: token, base: http.DefaultTransport}
	}
	fetcher := fetch.NewFetcher(client, cfg)

	ctx := context.Background()
	var runID string
	var store *catalog.Store
	if !dryRun {
		store, err = catalog.NewStore(types.CatalogConfig{ArchiveDir: cfg.ArchiveDir})
		if err != nil {
			return err
		}
		defer store.Close()
		runID, err = store.StartRun(ctx, flight, product)
		if err != nil {
			return err
		}
	}

	var total fetch.BatchResult
	prevFailed := -1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			fmt.Printf("\nAttempt %d of %d\n", attempt, maxAttempts)
		}

		plan := fetch.BuildPlan(entries, product, flightDir,
			startFrame, stopFrame, allFrames, maxFiles, os.Stdout)

		result := fetcher.Run(ctx, plan, os.Stdout)
		total.Fetched += result.Fetched
		total.Skipped = result.Skipped
		total.Failed = result.Failed

		if dryRun || skipValidate {
			break
		}

		paths := make([]string, len(plan.Items))
		for i, item := range plan.Items {
			paths[i] = item.DestPath
		}
		vres := validate.Run(paths, product, flight.Site,
			types.ValidateConfig{ArchiveDir: cfg.ArchiveDir, Wipe: true}, os.Stdout)

		if store != nil {
			for name, status := range validate.Statuses(entries, flightDir, product, paths, vres) {
				if err := store.MarkStatus(ctx, flight.ID(), product, name, status); err != nil {
					return err
				}
			}
		}

		failed := result.Failed + vres.Failed
		total.Failed = failed
		if failed == 0 {
			break
		}
		if prevFailed >= 0 && failed >= prevFailed {
			fmt.Printf("No progress on attempt %d, giving up with %d failure(s)\n", attempt, failed)
			break
		}
		prevFailed = failed
	}

	if store != nil {
		if err := store.FinishRun(ctx, runID, total); err != nil {
			return err
		}
	}
	if total.HasFailures() {
		return fmt.Errorf("%d file(s) failed to fetch cleanly", total.Failed)
	}
	return nil
}
