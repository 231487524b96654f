// Package textutil holds the small string transforms applied to feed
// titles and summaries before storage and display.
package textutil

import "strings"

// DescriptionLimit is the number of runes kept from a feed summary.
const DescriptionLimit = 100

// Clean collapses all whitespace runs in raw to single spaces.
func Clean(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// Truncate clips text to maxChars runes and appends an ASCII ellipsis when
// anything was removed.
func Truncate(raw string, maxChars int) string {
	trimmed := strings.TrimSpace(raw)
	if maxChars <= 0 {
		return trimmed
	}

	runes := []rune(trimmed)
	if len(runes) <= maxChars {
		return trimmed
	}

	return strings.TrimSpace(string(runes[:maxChars])) + "..."
}

// Summary cleans and clips a feed summary to the storage limit.
func Summary(raw string) string {
	return Truncate(Clean(raw), DescriptionLimit)
}

// Line renders a single display line of the form "title (HH:MM) | summary".
// Empty components are omitted so a record with no clock or summary still
// renders cleanly.
func Line(title, clock, summary string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(title))
	if clock != "" {
		b.WriteString(" (")
		b.WriteString(clock)
		b.WriteString(")")
	}
	if summary = strings.TrimSpace(summary); summary != "" {
		b.WriteString(" | ")
		b.WriteString(summary)
	}
	return strings.TrimSpace(b.String())
}
