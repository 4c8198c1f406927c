// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index builds parsed flight indexes from remote NSIDC folder
// listings: one (frame, filename, folderURL) row per granule.
package index

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/pdiddy/icebridge-archive/pkg/types"
)

// Base URLs for the NSIDC archive collections. Declared as vars so tests
// can substitute httptest servers.
var (
	rawImageBase = "https://n5eil01u.ecs.nsidc.org/ICEBRIDGE_FTP/IODMS0_DMSraw_v01"
	orthoBase    = "https://n5eil01u.ecs.nsidc.org/ICEBRIDGE/IODMS1B.001"
	demBase      = "https://n5eil01u.ecs.nsidc.org/ICEBRIDGE/IODMS3.001"
	lvisBase     = "https://n5eil01u.ecs.nsidc.org/ICEBRIDGE/ILVIS2.001"
	atm1Base     = "https://n5eil01u.ecs.nsidc.org/ICEBRIDGE/ILATM1B.001"
	atm2Base     = "https://n5eil01u.ecs.nsidc.org/ICEBRIDGE/ILATM1B.002"
)

// YearFolder returns the year directory component used for raw images,
// e.g. "2009_GR_NASA".
func YearFolder(year int, site types.Site) string {
	return fmt.Sprintf("%d_%s_NASA", year, site)
}

// DateFolder returns the date directory component. Raw images use
// MMDDYYYY with a "_raw" suffix; every other product uses YYYY.MM.DD.
// The flight date extension is appended before the suffix.
func DateFolder(date types.FlightDate, product types.ProductType) string {
	if product == types.ProductImage {
		return fmt.Sprintf("%02d%02d%04d%s_raw", date.Month, date.Day, date.Year, date.Ext)
	}
	return fmt.Sprintf("%04d.%02d.%02d%s", date.Year, date.Month, date.Day, date.Ext)
}

// FolderURL returns the full URL of the remote directory holding the
// flight's granules for the given product.
func FolderURL(flight types.Flight, product types.ProductType) (string, error) {
	date := flight.Date
	switch product {
	case types.ProductImage:
		return rawImageBase + "/" + YearFolder(date.Year, flight.Site) + "/" + DateFolder(date, product), nil
	case types.ProductOrtho:
		return orthoBase + "/" + DateFolder(date, product), nil
	case types.ProductDEM:
		return demBase + "/" + DateFolder(date, product), nil
	case types.ProductLVIS:
		return lvisBase + "/" + DateFolder(date, product), nil
	case types.ProductATM1:
		return atm1Base + "/" + DateFolder(date, product), nil
	case types.ProductATM2:
		return atm2Base + "/" + DateFolder(date, product), nil
	default:
		return "", fmt.Errorf("unknown product type %q", product)
	}
}

// listingPatterns extracts granule filenames from a folder listing page.
// The listings are not well-formed HTML; these regexes are the de-facto
// contract for each collection's filename shapes.
var listingPatterns = map[types.ProductType]*regexp.Regexp{
	types.ProductImage: regexp.MustCompile(`(?i)>[0-9_]*.JPG`),
	types.ProductOrtho: regexp.MustCompile(`(?i)>DMS\w*.tif<`),
	types.ProductDEM:   regexp.MustCompile(`(?i)>IODMS\w*DEM.tif`),
	types.ProductLVIS:  regexp.MustCompile(`(?i)>ILVIS\w+.TXT`),
	// e.g. ILATM1B_20111018_145455.ATM4BT4.qi or ...atm4cT3.qi
	types.ProductATM1: regexp.MustCompile(`(?i)>ILATM1B[0-9_]*.ATM4\w+.qi`),
	// e.g. ILATM1B_20160713_195419.ATM5BT5.h5
	types.ProductATM2: regexp.MustCompile(`(?i)>ILATM1B[0-9_]*.ATM\w+.h5`),
}

// ParseListing extracts the granule filenames for a product from a raw
// folder listing page.
func ParseListing(listing string, product types.ProductType) ([]string, error) {
	pattern, ok := listingPatterns[product]
	if !ok {
		return nil, fmt.Errorf("no listing pattern for product %q", product)
	}
	matches := pattern.FindAllString(listing, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m
		name = trimMarkup(name)
		names = append(names, name)
	}
	return names, nil
}

func trimMarkup(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '>' || s[i] == '<' {
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

// framePatterns match the frame number in each product family's filename
// shape. The frame is always the second capture group.
var framePatterns = []*regexp.Regexp{
	// 2009_10_16_<frame>.JPG
	regexp.MustCompile(`(?i)^.*?(\d+_\d+_\d+_)(\d+)(\.JPG)`),
	// DMS_1000109_03939_20091016_23310503_V02.tif
	regexp.MustCompile(`(?i)^.*?(DMS_\d+_)(\d+)(\w+\.tif)`),
	// IODMS3_20111018_14295436_00347_DEM.tif
	regexp.MustCompile(`(?i)^.*?(IODMS[a-zA-Z0-9]*?_\d+_\d+_)(\d+)(\w+DEM\.tif)`),
	// ILVIS2_AQ2015_0929_R1605_060226.TXT
	regexp.MustCompile(`(?i)^.*?(ILVIS.*?_)(\d+)(.TXT)`),
	// ILATM1B_20091016_193033.atm4cT3.qi or ILATM1B_20160713_195419.ATM5BT5.h5
	regexp.MustCompile(`(?i)^.*?(ILATM\w+_\d+_)(\d+)\.\w+\.(h5|qi)`),
}

// FrameNumber extracts the frame number from a granule filename of any
// product family.
func FrameNumber(filename string) (int, error) {
	for _, p := range framePatterns {
		if m := p.FindStringSubmatch(filename); m != nil {
			n, err := strconv.Atoi(m[2])
			if err != nil {
				return 0, fmt.Errorf("frame %q in %s is not a number", m[2], filename)
			}
			return n, nil
		}
	}
	return 0, fmt.Errorf("cannot parse frame number from %q", filename)
}
