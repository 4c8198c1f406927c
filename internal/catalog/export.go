// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/icebridge-archive/pkg/types"
)

const exportLimit = 1000000

// ExportYAML writes matching granules to catalog/export.yaml. It
// supports the same filters as Frames.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) error {
	granules, err := s.exportGranules(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.archiveDir, catalogDir, "export.yaml")
	data, err := yaml.Marshal(granules)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes matching granules to catalog/export.json. It
// supports the same filters as Frames.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) error {
	granules, err := s.exportGranules(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.archiveDir, catalogDir, "export.json")
	data, err := json.MarshalIndent(granules, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) exportGranules(ctx context.Context, opts QueryOptions) ([]types.Granule, error) {
	opts.MaxResults = exportLimit
	granules, err := s.Frames(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	return granules, nil
}
