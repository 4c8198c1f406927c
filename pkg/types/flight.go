// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strconv"
	"time"
)

// Site identifies the survey campaign hemisphere.
type Site string

const (
	SiteAN Site = "AN" // Antarctica
	SiteGR Site = "GR" // Greenland
)

// Valid reports whether the site is one of the two campaign tags.
func (s Site) Valid() bool {
	return s == SiteAN || s == SiteGR
}

// IsSouth reports whether the site is in the southern hemisphere.
func (s Site) IsSouth() bool {
	return s == SiteAN
}

// HasGoodLatitude reports whether a latitude value belongs to this site's
// hemisphere. Zero latitude belongs to neither.
func (s Site) HasGoodLatitude(latitude float64) bool {
	if s.IsSouth() {
		return latitude < 0
	}
	return latitude > 0
}

// Other returns the opposite campaign site.
func (s Site) Other() Site {
	if s == SiteAN {
		return SiteGR
	}
	return SiteAN
}

// FlightDate is the date of a flight plus the optional single-letter
// extension some archive directories carry ("20111018a").
type FlightDate struct {
	Year  int    `json:"year" yaml:"year"`
	Month int    `json:"month" yaml:"month"`
	Day   int    `json:"day" yaml:"day"`
	Ext   string `json:"ext,omitempty" yaml:"ext,omitempty"`
}

// ParseFlightDate parses a YYYYMMDD string, optionally followed by a
// single-letter extension.
func ParseFlightDate(s string) (FlightDate, error) {
	if len(s) != 8 && len(s) != 9 {
		return FlightDate{}, fmt.Errorf("invalid flight date %q: want YYYYMMDD or YYYYMMDDx", s)
	}
	year, err := strconv.Atoi(s[0:4])
	if err != nil {
		return FlightDate{}, fmt.Errorf("invalid year in %q", s)
	}
	month, err := strconv.Atoi(s[4:6])
	if err != nil || month < 1 || month > 12 {
		return FlightDate{}, fmt.Errorf("invalid month in %q", s)
	}
	day, err := strconv.Atoi(s[6:8])
	if err != nil || day < 1 || day > 31 {
		return FlightDate{}, fmt.Errorf("invalid day in %q", s)
	}
	fd := FlightDate{Year: year, Month: month, Day: day}
	if len(s) == 9 {
		fd.Ext = s[8:9]
	}
	return fd, nil
}

// String returns the YYYYMMDD form with any extension appended.
func (d FlightDate) String() string {
	return fmt.Sprintf("%04d%02d%02d%s", d.Year, d.Month, d.Day, d.Ext)
}

// Time returns the date at midnight UTC. The extension is ignored.
func (d FlightDate) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date shifted by n days. The extension is dropped:
// shifted dates address plain archive folders.
func (d FlightDate) AddDays(n int) FlightDate {
	t := d.Time().AddDate(0, 0, n)
	return FlightDate{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// Flight identifies one survey flight: a hemisphere tag plus a date.
type Flight struct {
	Site Site       `json:"site" yaml:"site"`
	Date FlightDate `json:"date" yaml:"date"`
}

// ID returns the canonical flight identifier, e.g. "GR_20091016".
func (f Flight) ID() string {
	return string(f.Site) + "_" + f.Date.String()
}

// Other returns the same flight under the opposite hemisphere tag.
// Used when splitting a mixed directory.
func (f Flight) Other() Flight {
	return Flight{Site: f.Site.Other(), Date: f.Date}
}
