package robot

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// isoLayout is used by Robot Framework 7 and later.
	isoLayout = "2006-01-02T15:04:05.999999"

	// legacyLayout is used by Robot Framework 6 and earlier.
	legacyLayout = "20060102 15:04:05.000"

	notAvailable = "N/A"
)

// parseTimestamp parses either timestamp layout. Reports carry no zone
// information; times are interpreted in the local zone, matching the
// machine that produced them. Empty and N/A values yield the zero time.
func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == notAvailable {
		return time.Time{}, nil
	}

	layout := legacyLayout
	if strings.Contains(value, "T") || strings.Contains(value, "-") {
		layout = isoLayout
	}

	t, err := time.ParseInLocation(layout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", value, err)
	}

	return t, nil
}

// parseElapsed parses an elapsed attribute holding float seconds.
func parseElapsed(value string) (time.Duration, error) {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing elapsed %q: %w", value, err)
	}

	return time.Duration(seconds * float64(time.Second)).Round(time.Microsecond), nil
}

// FormatTimestamp renders t the way Robot Framework serializes result
// timestamps. The zero time renders as an empty string.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format("2006-01-02T15:04:05.000000")
}
