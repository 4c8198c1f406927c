// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// XMLSidecarName returns the name of the .xml sidecar for a granule.
// DEM tiles drop the "_DEM.tif"/"_DEM.tfw" suffix: file_DEM.tif pairs
// with file.xml. Every other granule appends ".xml" to the full name.
func XMLSidecarName(name string) string {
	if len(name) >= 8 && name[len(name)-7:len(name)-4] == "DEM" {
		return name[:len(name)-8] + ".xml"
	}
	return name + ".xml"
}

// TFWSidecarName returns the name of the .tfw world file for a DEM tile.
func TFWSidecarName(name string) string {
	return name[:len(name)-4] + ".tfw"
}

// XMLToGranule returns the data file an .xml sidecar belongs to.
func XMLToGranule(name string) (string, error) {
	if !strings.HasSuffix(strings.ToLower(name), ".xml") {
		return "", fmt.Errorf("not an XML sidecar: %s", name)
	}
	return name[:len(name)-4], nil
}

var (
	latitudePattern = regexp.MustCompile(`(?i)<PointLatitude>(.*?)<`)
	checksumPattern = regexp.MustCompile(`(?i)<Checksum>(\w+)(\||<)`)
	distFilePattern = regexp.MustCompile(`(?i)<DistributedFileName>(.*?)<`)
)

// ParseLatitude reads a sidecar XML file and returns its PointLatitude.
func ParseLatitude(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening sidecar %s: %w", path, err)
	}
	defer f.Close()
	return ParseLatitudeReader(f)
}

// ParseLatitudeReader extracts the first PointLatitude value from sidecar
// XML content. The sidecars are read line-free: the whole document is
// scanned for the first match.
func ParseLatitudeReader(r io.Reader) (float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("reading sidecar: %w", err)
	}
	m := latitudePattern.FindSubmatch(data)
	if m == nil {
		return 0, fmt.Errorf("no PointLatitude in sidecar")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(string(m[1])), 64)
	if err != nil {
		return 0, fmt.Errorf("bad PointLatitude %q", m[1])
	}
	return lat, nil
}

// ParseChecksum extracts the expected MD5 digest for baseName from
// sidecar XML content. A sidecar can list several distributed files,
// each with its own checksum; the DistributedFileName entries hint which
// checksum belongs to which file. Without hints the first checksum wins.
func ParseChecksum(data []byte, baseName string) (string, error) {
	var expected string
	var current string
	count := 0

	for _, line := range strings.Split(string(data), "\n") {
		if m := distFilePattern.FindStringSubmatch(line); m != nil {
			current = m[1]
		}
		if m := checksumPattern.FindStringSubmatch(line); m != nil {
			count++
			if current != "" {
				if current == baseName {
					expected = m[1]
				}
			} else if count == 1 {
				expected = m[1]
			}
		}
	}

	if expected == "" {
		return "", fmt.Errorf("no checksum for %s in sidecar", baseName)
	}
	return expected, nil
}
