// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog persists the flight/granule inventory in SQLite and
// answers the completeness queries the archive notes describe operators
// doing by hand.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/icebridge-archive/internal/fetch"
	"github.com/pdiddy/icebridge-archive/pkg/types"
)

const (
	catalogDir = "catalog"
	dbFile     = "icebridge.db"
)

// Store manages the catalog SQLite database.
type Store struct {
	db           *sql.DB
	archiveDir   string
	maxResults   int
	gapThreshold int
}

// NewStore opens or creates the catalog database at
// archiveDir/catalog/icebridge.db, creating the schema if needed.
func NewStore(cfg types.CatalogConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.ArchiveDir, catalogDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}
	gapThreshold := cfg.GapThreshold
	if gapThreshold <= 0 {
		gapThreshold = 1
	}

	s := &Store{
		db:           db,
		archiveDir:   cfg.ArchiveDir,
		maxResults:   maxResults,
		gapThreshold: gapThreshold,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS flights (
			id TEXT PRIMARY KEY,
			site TEXT NOT NULL,
			date TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS granules (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			flight_id TEXT NOT NULL REFERENCES flights(id),
			product TEXT NOT NULL,
			frame INTEGER NOT NULL,
			name TEXT NOT NULL,
			source_url TEXT,
			local_path TEXT,
			size INTEGER,
			checksum TEXT,
			status TEXT,
			fetched_at TEXT,
			UNIQUE(flight_id, product, name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_granules_flight ON granules(flight_id)`,
		`CREATE INDEX IF NOT EXISTS idx_granules_product ON granules(product)`,
		`CREATE TABLE IF NOT EXISTS fetch_runs (
			id TEXT PRIMARY KEY,
			flight_id TEXT NOT NULL,
			product TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			fetched INTEGER,
			skipped INTEGER,
			failed INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS ingest_status (
			flight_id TEXT NOT NULL,
			product TEXT NOT NULL,
			index_mod_time TEXT,
			PRIMARY KEY (flight_id, product)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// StartRun records the beginning of a fetch run and returns its ID.
func (s *Store) StartRun(ctx context.Context, flight types.Flight, product types.ProductType) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fetch_runs (id, flight_id, product, started_at) VALUES (?, ?, ?, ?)`,
		id, flight.ID(), string(product), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("recording fetch run: %w", err)
	}
	return id, nil
}

// FinishRun stores the outcome counts for a fetch run.
func (s *Store) FinishRun(ctx context.Context, runID string, result fetch.BatchResult) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE fetch_runs SET finished_at = ?, fetched = ?, skipped = ?, failed = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), result.Fetched, result.Skipped, result.Failed, runID,
	)
	if err != nil {
		return fmt.Errorf("finishing fetch run: %w", err)
	}
	return nil
}
