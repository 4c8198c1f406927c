// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdiddy/icebridge-archive/internal/container"
)

// DefaultGdalImage is the GDAL container image used when none is
// configured.
const DefaultGdalImage = "ghcr.io/osgeo/gdal:alpine-small-latest"

// GdalChecker validates images by piping them through gdalinfo inside a
// GDAL container. GDAL reads the stream via its /vsistdin/ virtual file,
// so the archive directory never needs to be mounted.
type GdalChecker struct {
	runtime container.Runtime
	image   string
}

// NewGdalChecker creates a checker backed by the given container
// runtime. It verifies that the GDAL image exists locally before
// returning.
func NewGdalChecker(rt container.Runtime, image string) (*GdalChecker, error) {
	if image == "" {
		image = DefaultGdalImage
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("gdal image not available in %s: %w", rt.Name(), err)
	}
	return &GdalChecker{runtime: rt, image: image}, nil
}

// Check runs gdalinfo over the file's content. A non-zero exit or empty
// report means GDAL could not read the file as an image.
func (g *GdalChecker) Check(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := g.runtime.Run(g.image, []string{"gdalinfo", "/vsistdin/"}, f, &out); err != nil {
		return fmt.Errorf("gdalinfo rejected %s: %w", filepath.Base(path), err)
	}
	if out.Len() == 0 {
		return fmt.Errorf("gdalinfo produced no output for %s", filepath.Base(path))
	}
	return nil
}
