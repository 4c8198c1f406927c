// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads granules and their sidecars from the archive.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/icebridge-archive/internal/httputil"
	"github.com/pdiddy/icebridge-archive/internal/index"
	"github.com/pdiddy/icebridge-archive/pkg/types"
)

// Item is one planned download.
type Item struct {
	// URL is the full remote URL.
	URL string

	// DestPath is the local path the file lands at.
	DestPath string

	// Sidecar marks .xml/.tfw companions (they skip checksum validation).
	Sidecar bool
}

// Plan lists the downloads for one fetch run, in frame order.
type Plan struct {
	Items []Item
}

// BuildPlan selects the index entries inside [startFrame, stopFrame] and
// expands each granule into its download items, sidecars included. When
// allFrames is set the range covers the whole index. A requested endpoint
// frame that is absent from the index is a warning, not an error:
// Fireball DEMs in particular are routinely sparse.
func BuildPlan(entries []types.IndexEntry, product types.ProductType, flightDir string,
	startFrame, stopFrame int, allFrames bool, maxFiles int, w io.Writer) Plan {

	if len(entries) == 0 {
		return Plan{}
	}

	if allFrames {
		startFrame = entries[0].Frame
		stopFrame = entries[0].Frame
		for _, e := range entries {
			if e.Frame < startFrame {
				startFrame = e.Frame
			}
			if e.Frame > stopFrame {
				stopFrame = e.Frame
			}
		}
	} else {
		have := make(map[int]bool, len(entries))
		for _, e := range entries {
			have[e.Frame] = true
		}
		if !have[startFrame] {
			fmt.Fprintf(w, "warning: frame %d is not in this flight\n", startFrame)
		}
		if stopFrame != 0 && !have[stopFrame] {
			fmt.Fprintf(w, "warning: frame %d is not in this flight\n", stopFrame)
		}
	}

	var plan Plan
	for _, e := range entries {
		if e.Frame < startFrame || e.Frame > stopFrame {
			continue
		}

		plan.Items = append(plan.Items, Item{
			URL:      e.FolderURL + "/" + e.Name,
			DestPath: filepath.Join(flightDir, e.Name),
		})
		if product.HasXMLSidecar() {
			name := index.XMLSidecarName(e.Name)
			plan.Items = append(plan.Items, Item{
				URL:      e.FolderURL + "/" + name,
				DestPath: filepath.Join(flightDir, name),
				Sidecar:  true,
			})
		}
		if product.HasTFWSidecar() {
			name := index.TFWSidecarName(e.Name)
			plan.Items = append(plan.Items, Item{
				URL:      e.FolderURL + "/" + name,
				DestPath: filepath.Join(flightDir, name),
				Sidecar:  true,
			})
		}
	}

	if maxFiles > 0 && len(plan.Items) > maxFiles {
		plan.Items = plan.Items[:maxFiles]
	}
	return plan
}

// BatchResult holds the outcome of one fetch run.
type BatchResult struct {
	Fetched int
	Skipped int
	Failed  int
}

// Total returns the number of items processed.
func (r BatchResult) Total() int {
	return r.Fetched + r.Skipped + r.Failed
}

// HasFailures reports whether any downloads failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Fetcher downloads planned items.
type Fetcher struct {
	client *http.Client
	cfg    types.FetchConfig
}

// NewFetcher returns a Fetcher using the given HTTP client.
func NewFetcher(client *http.Client, cfg types.FetchConfig) *Fetcher {
	return &Fetcher{client: client, cfg: cfg}
}

// Run downloads every item in the plan, printing per-batch progress.
// Existing non-empty files are skipped. Individual failures are counted
// and do not abort the run. In dry-run mode the planned URLs are printed
// and nothing is fetched.
func (f *Fetcher) Run(ctx context.Context, plan Plan, w io.Writer) BatchResult {
	batchSize := f.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	var result BatchResult
	inBatch := 0
	for _, item := range plan.Items {
		select {
		case <-ctx.Done():
			result.Failed += len(plan.Items) - result.Total()
			fmt.Fprintf(w, "cancelled: %v\n", ctx.Err())
			return result
		default:
		}

		if index.FileNonEmpty(item.DestPath) {
			result.Skipped++
			continue
		}

		if f.cfg.DryRun {
			fmt.Fprintf(w, "would fetch: %s\n", item.URL)
			result.Skipped++
			continue
		}

		if result.Fetched > 0 && f.cfg.DownloadDelay > 0 {
			time.Sleep(f.cfg.DownloadDelay)
		}

		if err := f.download(ctx, item.URL, item.DestPath); err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", filepath.Base(item.DestPath), err)
			result.Failed++
			continue
		}
		result.Fetched++

		inBatch++
		if inBatch >= batchSize {
			fmt.Fprintf(w, "fetched %d of %d files\n", result.Fetched, len(plan.Items))
			inBatch = 0
		}
	}

	fmt.Fprintf(w, "\nFetch summary: %d fetched, %d skipped, %d failed (total: %d)\n",
		result.Fetched, result.Skipped, result.Failed, result.Total())
	return result
}

// download fetches url to destPath through a temporary file so partial
// downloads never land under the final name.
func (f *Fetcher) download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, f.client, req, 0)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
