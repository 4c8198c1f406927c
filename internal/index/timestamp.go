// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ParseTimeStamps pulls the date (YYYYMMDD) and time (hhmmss or hhmmssff,
// ff being hundredths of a second) stamps out of a granule filename. The
// name is split on '_' after dots and dashes are normalized, and the
// first 8-digit field becomes the date, the next 6-or-8-digit field the
// time.
func ParseTimeStamps(fileName string) (dateStr, timeStr string, err error) {
	base := filepath.Base(fileName)
	base = strings.ReplaceAll(base, ".", "_")
	base = strings.ReplaceAll(base, "-", "_")

	for _, part := range strings.Split(base, "_") {
		if len(part) != 6 && len(part) != 8 {
			continue
		}
		if !allDigits(part) {
			continue
		}
		if dateStr == "" && len(part) == 8 {
			dateStr = part
			continue
		}
		if timeStr == "" {
			timeStr = part
			continue
		}
	}

	if dateStr == "" || timeStr == "" {
		return "", "", fmt.Errorf("no date/time stamps in %q", fileName)
	}
	return dateStr, timeStr, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseDateTime combines stamps from ParseTimeStamps into a time.Time.
// secFix subtracts one second: some lidar granules number seconds 1-60.
func ParseDateTime(dateStr, timeStr string, secFix bool) (time.Time, error) {
	if len(dateStr) != 8 || (len(timeStr) != 6 && len(timeStr) != 8) {
		return time.Time{}, fmt.Errorf("bad stamps %q %q", dateStr, timeStr)
	}

	year, _ := strconv.Atoi(dateStr[0:4])
	month, _ := strconv.Atoi(dateStr[4:6])
	day, _ := strconv.Atoi(dateStr[6:8])
	hour, _ := strconv.Atoi(timeStr[0:2])
	minute, _ := strconv.Atoi(timeStr[2:4])
	second, _ := strconv.Atoi(timeStr[4:6])
	if secFix {
		second--
	}

	nsec := 0
	if len(timeStr) == 8 {
		hundredths, _ := strconv.Atoi(timeStr[6:8])
		nsec = hundredths * int(10*time.Millisecond)
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, nsec, time.UTC), nil
}

// GranuleTime parses a granule filename's embedded timestamp.
func GranuleTime(fileName string, secFix bool) (time.Time, error) {
	dateStr, timeStr, err := ParseTimeStamps(fileName)
	if err != nil {
		return time.Time{}, err
	}
	return ParseDateTime(dateStr, timeStr, secFix)
}
