// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/icebridge-archive/internal/httputil"
	"github.com/pdiddy/icebridge-archive/pkg/types"
)

// Builder fetches remote folder listings and writes parsed flight indexes.
type Builder struct {
	client *http.Client
	cfg    types.IndexConfig
}

// NewBuilder returns a Builder using the given HTTP client.
func NewBuilder(client *http.Client, cfg types.IndexConfig) *Builder {
	return &Builder{client: client, cfg: cfg}
}

// FileName returns the parsed index filename for a product. The lidar
// sources share one index: a flight has at most one lidar source, found
// by probing.
func FileName(product types.ProductType) string {
	if product.IsLidar() {
		return "lidar_index.csv"
	}
	return string(product) + "_index.csv"
}

// Path returns the parsed index path for a flight and product.
func Path(archiveDir string, flight types.Flight, product types.ProductType) string {
	return filepath.Join(archiveDir, flight.ID(), FileName(product))
}

// FileNonEmpty reports whether path exists with nonzero size.
func FileNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// Result holds the outcome of building one flight index.
type Result struct {
	// Path is where the parsed index was written (or reused from).
	Path string

	// Entries are the index rows, sorted by frame.
	Entries []types.IndexEntry

	// Product is the resolved product; for lidar requests this is the
	// source the probe settled on.
	Product types.ProductType

	// Reused reports that an existing parsed index was kept.
	Reused bool
}

// Build fetches and parses the remote listing for one flight and product
// and writes the parsed index CSV. An existing non-empty index is reused
// unless the config forces a refetch. When FetchNextDay is set, the next
// day's listing is merged in and frames already seen keep their first
// day's entry.
func (b *Builder) Build(ctx context.Context, flight types.Flight, product types.ProductType, w io.Writer) (Result, error) {
	flightDir := filepath.Join(b.cfg.ArchiveDir, flight.ID())
	if err := os.MkdirAll(flightDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating flight directory: %w", err)
	}

	path := filepath.Join(flightDir, FileName(product))
	if !b.cfg.RefetchIndex && FileNonEmpty(path) {
		entries, err := ReadIndex(path)
		if err == nil {
			fmt.Fprintf(w, "reusing index %s (%d entries)\n", path, len(entries))
			return Result{Path: path, Entries: entries, Product: product, Reused: true}, nil
		}
		// Legacy or corrupt index: rebuild it.
		fmt.Fprintf(w, "index %s unreadable (%v), refetching\n", path, err)
	}

	days := []int{0}
	if b.cfg.FetchNextDay {
		days = append(days, 1)
	}

	resolved := product
	byFrame := make(map[int]types.IndexEntry)

	for _, dayShift := range days {
		date := flight.Date
		if dayShift != 0 {
			date = date.AddDays(dayShift)
		}
		dayFlight := types.Flight{Site: flight.Site, Date: date}

		var folderURL string
		var err error
		if product.IsLidar() {
			folderURL, resolved, err = b.resolveLidar(ctx, dayFlight, w)
			if err != nil {
				return Result{}, err
			}
			if folderURL == "" {
				fmt.Fprintf(w, "warning: no lidar data found for %s\n", dayFlight.ID())
				continue
			}
		} else {
			folderURL, err = FolderURL(dayFlight, product)
			if err != nil {
				return Result{}, err
			}
		}

		fmt.Fprintf(w, "fetching listing: %s\n", folderURL)
		entries, err := b.fetchAndParse(ctx, flight.Site, folderURL, resolved)
		if err != nil {
			return Result{}, fmt.Errorf("indexing %s: %w", folderURL, err)
		}

		// An already-seen frame is never overwritten by a later day;
		// mixing days per frame is a recipe for mix-ups.
		for _, e := range entries {
			if _, seen := byFrame[e.Frame]; !seen {
				byFrame[e.Frame] = e
			}
		}
	}

	all := make([]types.IndexEntry, 0, len(byFrame))
	for _, e := range byFrame {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Frame < all[j].Frame })

	if err := WriteIndex(path, all); err != nil {
		return Result{}, err
	}
	fmt.Fprintf(w, "wrote %s (%d entries)\n", path, len(all))

	return Result{Path: path, Entries: all, Product: resolved}, nil
}

// resolveLidar probes the lidar collections for a flight date. A folder
// URL exists when the archive answers HEAD with 403 or 301. With a single
// candidate the answer is direct; with several, the first sidecar's
// latitude picks the source whose data is in the flight's hemisphere.
func (b *Builder) resolveLidar(ctx context.Context, flight types.Flight, w io.Writer) (string, types.ProductType, error) {
	type candidate struct {
		url     string
		product types.ProductType
	}
	var candidates []candidate

	for _, lp := range types.LidarProducts {
		folderURL, err := FolderURL(flight, lp)
		if err != nil {
			return "", "", err
		}
		exists, err := b.urlExists(ctx, folderURL)
		if err != nil {
			return "", "", fmt.Errorf("probing %s: %w", folderURL, err)
		}
		if exists {
			fmt.Fprintf(w, "found lidar source %s at %s\n", lp, folderURL)
			candidates = append(candidates, candidate{url: folderURL, product: lp})
		}
	}

	switch len(candidates) {
	case 0:
		return "", types.ProductLVIS, nil
	case 1:
		return candidates[0].url, candidates[0].product, nil
	}

	// Multiple sources: pick by the hemisphere of the first granule.
	for _, c := range candidates {
		entries, err := b.fetchAndParse(ctx, flight.Site, c.url, c.product)
		if err != nil || len(entries) == 0 {
			continue
		}
		sidecarURL := c.url + "/" + XMLSidecarName(entries[0].Name)
		lat, err := b.fetchLatitude(ctx, sidecarURL)
		if err != nil {
			continue
		}
		if flight.Site.HasGoodLatitude(lat) {
			return c.url, c.product, nil
		}
	}

	urls := make([]string, len(candidates))
	for i, c := range candidates {
		urls[i] = c.url
	}
	return "", "", fmt.Errorf("none of the lidar folders matched hemisphere %s: %s",
		flight.Site, strings.Join(urls, " "))
}

// fetchAndParse downloads a folder listing and turns it into index
// entries. Orthoimage folders can hold both hemispheres with colliding
// frame numbers; those are separated by sidecar latitude.
func (b *Builder) fetchAndParse(ctx context.Context, site types.Site, folderURL string, product types.ProductType) ([]types.IndexEntry, error) {
	listing, err := b.get(ctx, folderURL)
	if err != nil {
		return nil, err
	}

	names, err := ParseListing(listing, product)
	if err != nil {
		return nil, err
	}

	// Detect hemisphere mixing: the same frame number appearing twice.
	mixed := false
	if product == types.ProductOrtho {
		seen := make(map[int]bool)
		for _, name := range names {
			frame, err := FrameNumber(name)
			if err != nil {
				continue
			}
			if seen[frame] {
				mixed = true
				break
			}
			seen[frame] = true
		}
	}

	dropped := make(map[string]bool)
	if mixed {
		for _, name := range names {
			lat, err := b.fetchLatitude(ctx, folderURL+"/"+XMLSidecarName(name))
			if err != nil {
				dropped[name] = true
				continue
			}
			if !site.HasGoodLatitude(lat) {
				dropped[name] = true
			}
		}
	}

	seen := make(map[int]int) // frame -> position in out
	var out []types.IndexEntry
	for _, name := range names {
		if dropped[name] {
			continue
		}
		frame, err := FrameNumber(name)
		if err != nil {
			return nil, err
		}
		if pos, ok := seen[frame]; ok {
			if mixed {
				// After hemisphere separation a collision means bad data.
				return nil, fmt.Errorf("two granules share frame %d: %s and %s", frame, out[pos].Name, name)
			}
			// Within one listing the later occurrence of a frame wins.
			out[pos] = types.IndexEntry{Frame: frame, Name: name, FolderURL: folderURL}
			continue
		}
		seen[frame] = len(out)
		out = append(out, types.IndexEntry{Frame: frame, Name: name, FolderURL: folderURL})
	}
	return out, nil
}

func (b *Builder) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", b.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, b.client, req, 0)
	if err != nil {
		return "", fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return string(data), nil
}

// urlExists probes a folder URL with HEAD. Valid archive folders answer
// 403 or 301; anything else (typically 404) means the folder is absent.
func (b *Builder) urlExists(ctx context.Context, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", b.cfg.UserAgent)

	// Redirects must surface as 301, not be followed.
	noRedirect := *b.client
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := noRedirect.Do(req)
	if err != nil {
		return false, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusMovedPermanently, nil
}

func (b *Builder) fetchLatitude(ctx context.Context, sidecarURL string) (float64, error) {
	body, err := b.get(ctx, sidecarURL)
	if err != nil {
		return 0, err
	}
	return ParseLatitudeReader(strings.NewReader(body))
}

// ReadIndex parses an index CSV. Rows with two or fewer columns are the
// legacy format and fail the read; callers refetch.
func ReadIndex(path string) ([]types.IndexEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []types.IndexEntry
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) <= 2 {
			return nil, fmt.Errorf("legacy index format in %s", path)
		}
		frame, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("bad frame number in %s: %q", path, parts[0])
		}
		entries = append(entries, types.IndexEntry{
			Frame:     frame,
			Name:      strings.TrimSpace(parts[1]),
			FolderURL: strings.TrimSpace(parts[2]),
		})
	}
	return entries, nil
}

// WriteIndex writes entries as "frame, name, folderURL" rows.
func WriteIndex(path string, entries []types.IndexEntry) error {
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%d, %s, %s\n", e.Frame, e.Name, e.FolderURL)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("writing index %s: %w", path, err)
	}
	return nil
}
