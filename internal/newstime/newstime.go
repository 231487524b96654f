// Package newstime normalizes the publication timestamps that arrive from
// upstream feeds in a handful of incompatible formats.
package newstime

import (
	"regexp"
	"strings"
	"time"
)

// layouts are tried in order against a raw published string after the
// timezone abbreviation has been rewritten to a numeric offset.
var layouts = []string{
	time.RFC3339,
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02 15:04:05 -0700",
}

var clockRe = regexp.MustCompile(`\b(\d{1,2}:\d{2})\b`)

// Parse attempts to interpret a raw published string. Trailing "GMT" and
// "UTC" abbreviations are rewritten to "+0000" before matching, since feed
// sources mix named zones and numeric offsets freely.
func Parse(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}

	if strings.HasSuffix(value, "GMT") {
		value = strings.TrimSpace(strings.TrimSuffix(value, "GMT")) + " +0000"
	} else if strings.HasSuffix(value, "UTC") {
		value = strings.TrimSpace(strings.TrimSuffix(value, "UTC")) + " +0000"
	}

	for _, layout := range layouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Normalize converts a raw published string to RFC 3339 in UTC. Strings that
// cannot be parsed are returned unchanged so the original value is never
// lost.
func Normalize(raw string) string {
	ts, ok := Parse(raw)
	if !ok {
		return raw
	}
	return ts.UTC().Format(time.RFC3339)
}

// Newer reports whether raw was published strictly after reference. An empty
// reference always reports true so the first item from a fresh store is
// accepted. When either side is non-empty but unparseable the comparison
// cannot be made and Newer reports false.
func Newer(raw, reference string) bool {
	if strings.TrimSpace(reference) == "" {
		return true
	}
	rawTS, rawOK := Parse(raw)
	if !rawOK {
		return false
	}
	refTS, refOK := Parse(reference)
	if !refOK {
		return false
	}
	return rawTS.After(refTS)
}

// Clock extracts an HH:MM display string from a raw published value,
// converted into loc when the value parses. Unparseable values fall back to
// scanning for an embedded clock fragment.
func Clock(raw string, loc *time.Location) string {
	if ts, ok := Parse(raw); ok {
		if loc != nil {
			ts = ts.In(loc)
		}
		return ts.Format("15:04")
	}
	if match := clockRe.FindStringSubmatch(raw); match != nil {
		return match[1]
	}
	return ""
}
