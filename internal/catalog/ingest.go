// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/icebridge-archive/internal/index"
	"github.com/pdiddy/icebridge-archive/pkg/types"
)

// IngestSummary holds counts from a catalog ingest run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of flight indexes processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest scans the archive for flight directories and loads every parsed
// index into the catalog. Unchanged index files (by mtime) are skipped;
// changed ones replace the flight's granule rows for that product
// transactionally. Local file state (path, size) is recorded for
// granules present on disk.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	dirEntries, err := os.ReadDir(s.archiveDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading archive %s: %w", s.archiveDir, err)
	}

	var summary IngestSummary
	for _, dirEntry := range dirEntries {
		if !dirEntry.IsDir() || dirEntry.Name() == catalogDir {
			continue
		}
		flight, err := parseFlightDir(dirEntry.Name())
		if err != nil {
			continue // not a flight directory
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		flightDir := filepath.Join(s.archiveDir, dirEntry.Name())
		indexFiles, err := filepath.Glob(filepath.Join(flightDir, "*_index.csv"))
		if err != nil {
			return summary, err
		}

		for _, indexPath := range indexFiles {
			s.ingestIndex(ctx, flight, flightDir, indexPath, w, &summary)
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)
	return summary, nil
}

func (s *Store) ingestIndex(ctx context.Context, flight types.Flight, flightDir, indexPath string, w io.Writer, summary *IngestSummary) {
	label := flight.ID() + "/" + filepath.Base(indexPath)

	info, err := os.Stat(indexPath)
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", label, err)
		summary.Failed++
		return
	}
	modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

	entries, err := index.ReadIndex(indexPath)
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", label, err)
		summary.Failed++
		return
	}

	product, err := productFromIndex(indexPath, entries)
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", label, err)
		summary.Failed++
		return
	}

	// Skip indexes that have not changed since the last ingest.
	var storedModTime string
	err = s.db.QueryRowContext(ctx,
		`SELECT index_mod_time FROM ingest_status WHERE flight_id = ? AND product = ?`,
		flight.ID(), string(product),
	).Scan(&storedModTime)
	if err == nil && storedModTime == modTime {
		fmt.Fprintf(w, "skipped %s\n", label)
		summary.Skipped++
		return
	}
	isUpdate := err == nil

	if err := s.replaceGranules(ctx, flight, product, flightDir, entries, modTime, isUpdate); err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", label, err)
		summary.Failed++
		return
	}

	if isUpdate {
		fmt.Fprintf(w, "updated %s (%d granules)\n", label, len(entries))
		summary.Updated++
	} else {
		fmt.Fprintf(w, "indexed %s (%d granules)\n", label, len(entries))
		summary.Indexed++
	}
}

func (s *Store) replaceGranules(ctx context.Context, flight types.Flight, product types.ProductType,
	flightDir string, entries []types.IndexEntry, modTime string, isUpdate bool) error {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO flights (id, site, date) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		flight.ID(), string(flight.Site), flight.Date.String(),
	)
	if err != nil {
		return fmt.Errorf("upserting flight: %w", err)
	}

	if isUpdate {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM granules WHERE flight_id = ? AND product = ?`,
			flight.ID(), string(product))
		if err != nil {
			return fmt.Errorf("deleting old granules: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO granules
			(flight_id, product, frame, name, source_url, local_path, size, checksum, status, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		localPath := filepath.Join(flightDir, e.Name)
		var size int64
		status := types.ValidationNone
		fetchedAt := ""
		if info, statErr := os.Stat(localPath); statErr == nil && info.Size() > 0 {
			size = info.Size()
			fetchedAt = info.ModTime().UTC().Format(time.RFC3339)
		} else {
			localPath = ""
		}

		_, err := stmt.ExecContext(ctx,
			flight.ID(), string(product), e.Frame, e.Name,
			e.FolderURL+"/"+e.Name, localPath, size, sidecarChecksum(flightDir, e.Name),
			string(status), fetchedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting granule %s: %w", e.Name, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ingest_status (flight_id, product, index_mod_time) VALUES (?, ?, ?)
		 ON CONFLICT(flight_id, product) DO UPDATE SET index_mod_time=excluded.index_mod_time`,
		flight.ID(), string(product), modTime,
	)
	if err != nil {
		return fmt.Errorf("updating ingest status: %w", err)
	}

	return tx.Commit()
}

// sidecarChecksum reads the granule's declared MD5 from its .xml
// sidecar. Granules without a fetched sidecar get an empty checksum.
func sidecarChecksum(flightDir, name string) string {
	data, err := os.ReadFile(filepath.Join(flightDir, index.XMLSidecarName(name)))
	if err != nil {
		return ""
	}
	sum, err := index.ParseChecksum(data, name)
	if err != nil {
		return ""
	}
	return sum
}

// MarkStatus records a validation outcome for one granule.
func (s *Store) MarkStatus(ctx context.Context, flightID string, product types.ProductType, name string, status types.ValidationStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE granules SET status = ? WHERE flight_id = ? AND product = ? AND name = ?`,
		string(status), flightID, string(product), name,
	)
	if err != nil {
		return fmt.Errorf("marking %s: %w", name, err)
	}
	return nil
}

// parseFlightDir turns a directory name like "GR_20091016a" into a Flight.
func parseFlightDir(name string) (types.Flight, error) {
	parts := strings.SplitN(name, "_", 2)
	if len(parts) != 2 {
		return types.Flight{}, fmt.Errorf("not a flight directory: %s", name)
	}
	site := types.Site(parts[0])
	if !site.Valid() {
		return types.Flight{}, fmt.Errorf("bad site in %s", name)
	}
	date, err := types.ParseFlightDate(parts[1])
	if err != nil {
		return types.Flight{}, err
	}
	return types.Flight{Site: site, Date: date}, nil
}

// productFromIndex resolves the product family an index file covers.
// The lidar index is shared between sources, so the granule names decide.
func productFromIndex(indexPath string, entries []types.IndexEntry) (types.ProductType, error) {
	stem := strings.TrimSuffix(filepath.Base(indexPath), "_index.csv")
	if stem != "lidar" {
		return types.ParseProductType(stem)
	}

	if len(entries) == 0 {
		return types.ProductLVIS, nil
	}
	name := strings.ToLower(entries[0].Name)
	switch {
	case strings.HasPrefix(name, "ilvis"):
		return types.ProductLVIS, nil
	case strings.HasSuffix(name, ".qi"):
		return types.ProductATM1, nil
	case strings.HasSuffix(name, ".h5"):
		return types.ProductATM2, nil
	}
	return "", fmt.Errorf("cannot resolve lidar source from %q", entries[0].Name)
}
