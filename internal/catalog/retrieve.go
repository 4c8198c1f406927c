// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/icebridge-archive/pkg/types"
)

// QueryOptions holds filters for granule queries.
type QueryOptions struct {
	// FlightID filters by flight, e.g. "GR_20091016".
	FlightID string

	// Product filters by product family.
	Product types.ProductType

	// Status filters by validation status.
	Status types.ValidationStatus

	// MinFrame and MaxFrame bound the frame number range. Zero means
	// unbounded.
	MinFrame int
	MaxFrame int

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no filters.
func (q QueryOptions) IsEmpty() bool {
	return q.FlightID == "" && q.Product == "" && q.Status == "" &&
		q.MinFrame == 0 && q.MaxFrame == 0
}

// Frames queries the catalog for granules matching the given filters,
// sorted by flight, product, frame.
func (s *Store) Frames(ctx context.Context, opts QueryOptions) ([]types.Granule, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT flight_id, product, frame, name, source_url, local_path,
			size, checksum, status, fetched_at
		FROM granules
		WHERE 1=1`)

	if opts.FlightID != "" {
		qb.WriteString(` AND flight_id = ?`)
		args = append(args, opts.FlightID)
	}
	if opts.Product != "" {
		qb.WriteString(` AND product = ?`)
		args = append(args, string(opts.Product))
	}
	if opts.Status != "" {
		qb.WriteString(` AND status = ?`)
		args = append(args, string(opts.Status))
	}
	if opts.MinFrame > 0 {
		qb.WriteString(` AND frame >= ?`)
		args = append(args, opts.MinFrame)
	}
	if opts.MaxFrame > 0 {
		qb.WriteString(` AND frame <= ?`)
		args = append(args, opts.MaxFrame)
	}

	qb.WriteString(` ORDER BY flight_id, product, frame LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var results []types.Granule
	for rows.Next() {
		var (
			g         types.Granule
			product   string
			status    string
			fetchedAt string
		)
		if err := rows.Scan(
			&g.FlightID, &product, &g.Frame, &g.Name, &g.SourceURL,
			&g.LocalPath, &g.Size, &g.Checksum, &status, &fetchedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		g.Product = types.ProductType(product)
		g.Status = types.ValidationStatus(status)
		if fetchedAt != "" {
			g.FetchedAt, _ = time.Parse(time.RFC3339, fetchedAt)
		}
		results = append(results, g)
	}

	return results, rows.Err()
}

// ProductReport summarizes one product family within a flight.
type ProductReport struct {
	Product  types.ProductType `json:"product" yaml:"product"`
	Granules int               `json:"granules" yaml:"granules"`
	Fetched  int               `json:"fetched" yaml:"fetched"`
	Valid    int               `json:"valid" yaml:"valid"`
	Failed   int               `json:"failed" yaml:"failed"`
	MinFrame int               `json:"min_frame" yaml:"min_frame"`
	MaxFrame int               `json:"max_frame" yaml:"max_frame"`
	Gaps     []FrameGap        `json:"gaps,omitempty" yaml:"gaps,omitempty"`
}

// FrameGap marks a run of frame numbers with no granule between two
// indexed frames.
type FrameGap struct {
	After  int `json:"after" yaml:"after"`
	Before int `json:"before" yaml:"before"`
}

// FlightReport summarizes one flight's catalog state.
type FlightReport struct {
	FlightID string          `json:"flight_id" yaml:"flight_id"`
	Site     types.Site      `json:"site" yaml:"site"`
	Date     string          `json:"date" yaml:"date"`
	Products []ProductReport `json:"products" yaml:"products"`
}

// Report builds a per-flight, per-product coverage summary. Frame gaps
// wider than the store's gap threshold are reported for camera frames
// so missing coverage stands out.
func (s *Store) Report(ctx context.Context, flightID string) ([]FlightReport, error) {
	qb := `SELECT id, site, date FROM flights`
	var args []any
	if flightID != "" {
		qb += ` WHERE id = ?`
		args = append(args, flightID)
	}
	qb += ` ORDER BY date, site`

	rows, err := s.db.QueryContext(ctx, qb, args...)
	if err != nil {
		return nil, fmt.Errorf("querying flights: %w", err)
	}
	defer rows.Close()

	var reports []FlightReport
	for rows.Next() {
		var fr FlightReport
		var site string
		if err := rows.Scan(&fr.FlightID, &site, &fr.Date); err != nil {
			return nil, fmt.Errorf("scanning flight: %w", err)
		}
		fr.Site = types.Site(site)
		reports = append(reports, fr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range reports {
		products, err := s.productReports(ctx, reports[i].FlightID)
		if err != nil {
			return nil, err
		}
		reports[i].Products = products
	}

	return reports, nil
}

func (s *Store) productReports(ctx context.Context, flightID string) ([]ProductReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product,
			COUNT(*),
			SUM(CASE WHEN local_path != '' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'ok' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
			MIN(frame), MAX(frame)
		FROM granules WHERE flight_id = ?
		GROUP BY product ORDER BY product`,
		flightID)
	if err != nil {
		return nil, fmt.Errorf("querying granules for %s: %w", flightID, err)
	}
	defer rows.Close()

	var reports []ProductReport
	for rows.Next() {
		var pr ProductReport
		var product string
		if err := rows.Scan(&product, &pr.Granules, &pr.Fetched,
			&pr.Valid, &pr.Failed, &pr.MinFrame, &pr.MaxFrame); err != nil {
			return nil, fmt.Errorf("scanning product summary: %w", err)
		}
		pr.Product = types.ProductType(product)
		reports = append(reports, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range reports {
		gaps, err := s.frameGaps(ctx, flightID, reports[i].Product)
		if err != nil {
			return nil, err
		}
		reports[i].Gaps = gaps
	}

	return reports, nil
}

// frameGaps finds runs of missing frame numbers within a product's
// indexed range. Adjacent indexed frames whose numbers differ by more
// than the gap threshold bound a gap.
func (s *Store) frameGaps(ctx context.Context, flightID string, product types.ProductType) ([]FrameGap, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT frame FROM granules
		WHERE flight_id = ? AND product = ? AND frame > 0
		ORDER BY frame`,
		flightID, string(product))
	if err != nil {
		return nil, fmt.Errorf("querying frames: %w", err)
	}
	defer rows.Close()

	var gaps []FrameGap
	prev := -1
	for rows.Next() {
		var frame int
		if err := rows.Scan(&frame); err != nil {
			return nil, fmt.Errorf("scanning frame: %w", err)
		}
		if prev >= 0 && frame-prev > s.gapThreshold {
			gaps = append(gaps, FrameGap{After: prev, Before: frame})
		}
		prev = frame
	}

	return gaps, rows.Err()
}
