// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate checks fetched granules: file presence, image magic
// bytes, sidecar MD5 checksums, tfw shape, and hemisphere latitude.
package validate

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdiddy/icebridge-archive/internal/container"
	"github.com/pdiddy/icebridge-archive/internal/index"
	"github.com/pdiddy/icebridge-archive/pkg/types"
)

// HasImageExtension reports whether the file is an image product.
func HasImageExtension(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tif", ".jpg", ".jpeg", ".ntf":
		return true
	}
	return false
}

// Image magic prefixes: little/big-endian TIFF, JPEG, NITF.
var imageMagics = [][]byte{
	{'I', 'I', 0x2a, 0x00},
	{'M', 'M', 0x00, 0x2a},
	{0xff, 0xd8, 0xff},
	[]byte("NITF"),
}

// IsValidImage reports whether the file opens as a known image format.
// When gdalinfoPath is set the check shells out to gdalinfo instead,
// matching how the archive operators verified data by hand.
func IsValidImage(path, gdalinfoPath string) bool {
	if gdalinfoPath != "" {
		return exec.Command(gdalinfoPath, path).Run() == nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	header := make([]byte, 4)
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}
	for _, magic := range imageMagics {
		if bytes.HasPrefix(header, magic) {
			return true
		}
	}
	return false
}

// HasValidChecksum compares the file's MD5 digest against the one its
// .xml sidecar declares. This is the archive's real integrity signal for
// orthoimages, DEMs, and tfw files.
func HasValidChecksum(path string) error {
	sidecarPath := filepath.Join(filepath.Dir(path), index.XMLSidecarName(filepath.Base(path)))
	sidecarData, err := os.ReadFile(sidecarPath)
	if err != nil {
		return fmt.Errorf("reading sidecar: %w", err)
	}

	expected, err := index.ParseChecksum(sidecarData, filepath.Base(path))
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hashing %s: %w", path, err)
	}
	actual := fmt.Sprintf("%x", h.Sum(nil))

	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("checksum mismatch for %s: computed %s, sidecar says %s",
			filepath.Base(path), actual, expected)
	}
	return nil
}

// IsValidTFW checks a DEM world file: a valid sidecar checksum plus at
// least six float lines.
func IsValidTFW(path string) error {
	if strings.ToLower(filepath.Ext(path)) != ".tfw" {
		return fmt.Errorf("not a tfw file: %s", path)
	}
	if err := HasValidChecksum(path); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	count := 0
	for _, line := range strings.Split(string(data), "\n") {
		if _, err := strconv.ParseFloat(strings.TrimSpace(line), 64); err == nil {
			count++
		}
	}
	if count < 6 {
		return fmt.Errorf("tfw %s has %d float lines, want at least 6", filepath.Base(path), count)
	}
	return nil
}

// Result holds the outcome of a validation run.
type Result struct {
	Checked int
	Failed  int

	// FailedFiles lists the paths that failed, wiped or not.
	FailedFiles []string
}

// HasFailures reports whether any file failed validation.
func (r Result) HasFailures() bool {
	return r.Failed > 0
}

// GranulePaths lists the files validation covers for one granule: the
// granule itself plus whichever sidecars its product carries.
func GranulePaths(flightDir, name string, product types.ProductType) []string {
	paths := []string{filepath.Join(flightDir, name)}
	if product.HasXMLSidecar() {
		paths = append(paths, filepath.Join(flightDir, index.XMLSidecarName(name)))
	}
	if product.HasTFWSidecar() {
		paths = append(paths, filepath.Join(flightDir, index.TFWSidecarName(name)))
	}
	return paths
}

// Statuses maps each granule a run actually covered to its outcome. A
// granule fails when any of its files failed. Granules with no file in
// the checked set get no entry, so a partial fetch never marks
// untouched granules ok.
func Statuses(entries []types.IndexEntry, flightDir string, product types.ProductType, checked []string, result Result) map[string]types.ValidationStatus {
	checkedSet := make(map[string]bool, len(checked))
	for _, p := range checked {
		checkedSet[p] = true
	}
	failedSet := make(map[string]bool, len(result.FailedFiles))
	for _, p := range result.FailedFiles {
		failedSet[p] = true
	}

	statuses := make(map[string]types.ValidationStatus)
	for _, e := range entries {
		covered, failed := false, false
		for _, p := range GranulePaths(flightDir, e.Name, product) {
			if checkedSet[p] {
				covered = true
			}
			if failedSet[p] {
				failed = true
			}
		}
		if !covered {
			continue
		}
		if failed {
			statuses[e.Name] = types.ValidationFailed
		} else {
			statuses[e.Name] = types.ValidationOK
		}
	}
	return statuses
}

// Run validates the listed files for one flight and product. Sidecar
// XMLs are latitude-checked against the site; data files are checked for
// presence, image magic, and sidecar checksum; tfw files get the world
// file check. When cfg.Wipe is set, offending files are removed together
// with their companions so the next fetch attempt re-downloads them.
func Run(paths []string, product types.ProductType, site types.Site, cfg types.ValidateConfig, w io.Writer) Result {
	var result Result

	var gdal *GdalChecker
	if cfg.GdalImage != "" {
		rt, err := container.DetectRuntime()
		if err == nil {
			gdal, err = NewGdalChecker(rt, cfg.GdalImage)
		}
		if err != nil {
			fmt.Fprintf(w, "warning: containerized gdalinfo unavailable (%v), using header checks\n", err)
		}
	}

	fail := func(path string, reason error, companions ...string) {
		fmt.Fprintf(w, "invalid: %s (%v)\n", filepath.Base(path), reason)
		result.Failed++
		result.FailedFiles = append(result.FailedFiles, path)
		if cfg.Wipe {
			os.Remove(path)
			for _, c := range companions {
				os.Remove(c)
			}
		}
	}

	for _, path := range paths {
		result.Checked++
		ext := strings.ToLower(filepath.Ext(path))

		if !index.FileNonEmpty(path) {
			fail(path, fmt.Errorf("missing or empty"))
			continue
		}

		if ext == ".xml" {
			if err := checkSidecarLatitude(path, site, cfg, w, &result); err != nil {
				continue
			}
			continue
		}

		if HasImageExtension(path) && !validImage(path, cfg, gdal) {
			sidecar := filepath.Join(filepath.Dir(path), index.XMLSidecarName(filepath.Base(path)))
			fail(path, fmt.Errorf("not a readable image"), sidecar)
			continue
		}

		if ext == ".tfw" {
			if err := IsValidTFW(path); err != nil {
				sidecar := filepath.Join(filepath.Dir(path), index.XMLSidecarName(filepath.Base(path)))
				fail(path, err, sidecar)
			}
			continue
		}

		if product.HasXMLSidecar() {
			if err := HasValidChecksum(path); err != nil {
				sidecar := filepath.Join(filepath.Dir(path), index.XMLSidecarName(filepath.Base(path)))
				fail(path, err, sidecar)
				continue
			}
		}
	}

	if result.Failed > 0 {
		fmt.Fprintf(w, "\n%d of %d files failed validation\n", result.Failed, result.Checked)
	}
	return result
}

func validImage(path string, cfg types.ValidateConfig, gdal *GdalChecker) bool {
	if gdal != nil {
		return gdal.Check(path) == nil
	}
	return IsValidImage(path, cfg.GdalinfoPath)
}

// checkSidecarLatitude wipes sidecars (and their data files) whose
// latitude is in the wrong hemisphere. Returns non-nil when the sidecar
// failed.
func checkSidecarLatitude(path string, site types.Site, cfg types.ValidateConfig, w io.Writer, result *Result) error {
	lat, err := index.ParseLatitude(path)
	if err != nil {
		// Sidecars without a latitude are common for some products;
		// the checksum still protects the data file.
		return nil
	}
	if site.HasGoodLatitude(lat) {
		return nil
	}

	err = fmt.Errorf("latitude %.3f is in the wrong hemisphere for %s", lat, site)
	fmt.Fprintf(w, "invalid: %s (%v)\n", filepath.Base(path), err)
	result.Failed++
	result.FailedFiles = append(result.FailedFiles, path)

	if cfg.Wipe {
		os.Remove(path)
		if granule, gerr := index.XMLToGranule(filepath.Base(path)); gerr == nil {
			os.Remove(filepath.Join(filepath.Dir(path), granule))
		}
	}
	return err
}
