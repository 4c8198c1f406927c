// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

// ProductType identifies one IceBridge product family.
type ProductType string

const (
	ProductImage ProductType = "image" // raw DMS camera frames (IODMS0)
	ProductOrtho ProductType = "ortho" // orthorectified images (IODMS1B)
	ProductDEM   ProductType = "dem"   // Fireball DEM tiles (IODMS3)
	ProductLVIS  ProductType = "lvis"  // LVIS lidar granules (ILVIS2)
	ProductATM1  ProductType = "atm1"  // ATM lidar, qi format (ILATM1B.001)
	ProductATM2  ProductType = "atm2"  // ATM lidar, HDF5 format (ILATM1B.002)
)

// LidarProducts lists the lidar sources in probe order.
var LidarProducts = []ProductType{ProductLVIS, ProductATM1, ProductATM2}

// ParseProductType normalizes a user-supplied product name. "lidar" is
// accepted as an alias and resolved later by probing the archive.
func ParseProductType(s string) (ProductType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image":
		return ProductImage, nil
	case "ortho":
		return ProductOrtho, nil
	case "dem":
		return ProductDEM, nil
	case "lvis":
		return ProductLVIS, nil
	case "atm1":
		return ProductATM1, nil
	case "atm2":
		return ProductATM2, nil
	case "lidar":
		// Callers treat the first lidar type as "resolve by probing".
		return ProductLVIS, nil
	default:
		return "", fmt.Errorf("unknown product type %q: use image, ortho, dem, lidar, lvis, atm1, or atm2", s)
	}
}

// IsLidar reports whether the product is one of the lidar sources.
func (p ProductType) IsLidar() bool {
	return p == ProductLVIS || p == ProductATM1 || p == ProductATM2
}

// HasXMLSidecar reports whether granules of this product carry an .xml
// sidecar with checksum and latitude metadata.
func (p ProductType) HasXMLSidecar() bool {
	return p.IsLidar() || p == ProductOrtho || p == ProductDEM
}

// HasTFWSidecar reports whether granules of this product carry a .tfw
// world file. Only Fireball DEMs do.
func (p ProductType) HasTFWSidecar() bool {
	return p == ProductDEM
}

// ValidationStatus records the outcome of granule validation.
type ValidationStatus string

const (
	ValidationNone   ValidationStatus = "none"
	ValidationOK     ValidationStatus = "ok"
	ValidationFailed ValidationStatus = "failed"
)

// IndexEntry is one row of a parsed flight index: a frame number, the
// granule filename, and the remote folder it came from. The folder URL
// can differ between entries of one index when frames spill into the
// next day's directory.
type IndexEntry struct {
	Frame     int    `json:"frame" yaml:"frame"`
	Name      string `json:"name" yaml:"name"`
	FolderURL string `json:"folder_url" yaml:"folder_url"`
}

// Granule is the catalog record for one archive file.
type Granule struct {
	// FlightID is the canonical flight identifier (e.g. "GR_20091016").
	FlightID string `json:"flight_id" yaml:"flight_id"`

	// Product is the product family the granule belongs to.
	Product ProductType `json:"product" yaml:"product"`

	// Frame is the frame number parsed from the filename.
	Frame int `json:"frame" yaml:"frame"`

	// Name is the granule filename as it appears in the archive.
	Name string `json:"name" yaml:"name"`

	// SourceURL is the full remote URL the granule was (or would be) fetched from.
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`

	// LocalPath is the path of the fetched file, empty if not fetched.
	LocalPath string `json:"local_path,omitempty" yaml:"local_path,omitempty"`

	// Size is the local file size in bytes, zero if not fetched.
	Size int64 `json:"size,omitempty" yaml:"size,omitempty"`

	// Checksum is the MD5 digest from the sidecar XML, when present.
	Checksum string `json:"checksum,omitempty" yaml:"checksum,omitempty"`

	// Status is the validation outcome.
	Status ValidationStatus `json:"status" yaml:"status"`

	// FetchedAt is when the granule was downloaded.
	FetchedAt time.Time `json:"fetched_at,omitempty" yaml:"fetched_at,omitempty"`
}
