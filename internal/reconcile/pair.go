// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/icebridge-archive/internal/index"
	"github.com/pdiddy/icebridge-archive/pkg/types"
)

// Pair links an image granule to its closest lidar granule by timestamp.
type Pair struct {
	Image string        `json:"image" yaml:"image"`
	Lidar string        `json:"lidar" yaml:"lidar"`
	Delta time.Duration `json:"delta" yaml:"delta"`
}

// FindMatchingLidar returns the lidar granule whose timestamp is closest
// to the image's. Lidar timestamps use the 1-60 second convention, so
// they get the one-second fix. Lidar names that fail to parse are
// ignored; an image that matches nothing is an error.
func FindMatchingLidar(imageName string, lidarNames []string) (string, time.Duration, error) {
	imageTime, err := index.GranuleTime(imageName, false)
	if err != nil {
		return "", 0, fmt.Errorf("no timestamp in image %s: %w", imageName, err)
	}

	best := ""
	var bestDelta time.Duration
	for _, lidar := range lidarNames {
		lidarTime, err := index.GranuleTime(lidar, true)
		if err != nil {
			continue
		}
		delta := imageTime.Sub(lidarTime)
		if delta < 0 {
			delta = -delta
		}
		if best == "" || delta < bestDelta {
			best = lidar
			bestDelta = delta
		}
	}

	if best == "" {
		return "", 0, fmt.Errorf("no lidar granule matches image %s", imageName)
	}
	return best, bestDelta, nil
}

// BuildPairs matches every image granule to its closest lidar granule.
// Images without a parseable timestamp fail the build; the frame lineup
// depends on every image being paired.
func BuildPairs(imageNames, lidarNames []string) ([]Pair, error) {
	if len(lidarNames) == 0 {
		return nil, fmt.Errorf("no lidar granules to pair against")
	}

	pairs := make([]Pair, 0, len(imageNames))
	for _, image := range imageNames {
		lidar, delta, err := FindMatchingLidar(image, lidarNames)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, Pair{Image: image, Lidar: lidar, Delta: delta})
	}
	return pairs, nil
}

// PairFlight pairs a flight's orthorectified granules against its lidar
// granules and writes the result to lidar_pairs.yaml in the flight
// directory. Raw camera names carry no timestamp, so the ortho index
// supplies the image side of each pair. Both indexes must already exist.
func PairFlight(flightDir string) (string, []Pair, error) {
	orthoEntries, err := index.ReadIndex(filepath.Join(flightDir, index.FileName(types.ProductOrtho)))
	if err != nil {
		return "", nil, fmt.Errorf("no ortho index in %s (run index first): %w", flightDir, err)
	}
	lidarEntries, err := index.ReadIndex(filepath.Join(flightDir, index.FileName(types.ProductLVIS)))
	if err != nil {
		return "", nil, fmt.Errorf("no lidar index in %s (run index first): %w", flightDir, err)
	}

	imageNames := make([]string, len(orthoEntries))
	for i, e := range orthoEntries {
		imageNames[i] = e.Name
	}
	lidarNames := make([]string, len(lidarEntries))
	for i, e := range lidarEntries {
		lidarNames[i] = e.Name
	}

	pairs, err := BuildPairs(imageNames, lidarNames)
	if err != nil {
		return "", nil, err
	}
	path, err := WritePairs(flightDir, pairs)
	if err != nil {
		return "", nil, err
	}
	return path, pairs, nil
}

// WritePairs writes the pairing to flightDir/lidar_pairs.yaml.
func WritePairs(flightDir string, pairs []Pair) (string, error) {
	data, err := yaml.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("marshaling pairs: %w", err)
	}
	path := filepath.Join(flightDir, "lidar_pairs.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
