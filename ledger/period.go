/*
period.go - Sortable keys for free-form billing interval labels

PURPOSE:
  Bills carry operator-entered period labels like "2025.8.6-2026.8.5"
  or "2024年8月-2025年8月". Settlement pays oldest obligations first,
  so each label is reduced to a sortable key at creation time.

KEY FORMAT:
  The first recognizable start date in the label, zero-padded to
  YYYY-MM-DD so lexical order equals chronological order. A label with
  a year and month but no day keys as YYYY-MM-01. A label with no
  recognizable date keys as the raw label behind a high sentinel
  prefix, so undated labels sort after every dated key regardless of
  their leading characters (ties are broken downstream by creation
  time and id, so settlement order stays total).
*/
package ledger

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	ymdPattern = regexp.MustCompile(`(\d{4})\s*[.\-/年]\s*(\d{1,2})\s*[.\-/月]\s*(\d{1,2})`)
	ymPattern  = regexp.MustCompile(`(\d{4})\s*[.\-/年]\s*(\d{1,2})`)
)

// undatedPrefix sorts above every digit, so "~<label>" keys always
// follow YYYY-MM-DD keys under both Go string order and SQLite's
// BINARY collation.
const undatedPrefix = "~"

// PeriodKey derives the sortable key for a billing period label.
func PeriodKey(label string) string {
	if m := ymdPattern.FindStringSubmatch(label); m != nil {
		return formatKey(m[1], m[2], m[3])
	}
	if m := ymPattern.FindStringSubmatch(label); m != nil {
		return formatKey(m[1], m[2], "1")
	}
	return undatedPrefix + label
}

func formatKey(year, month, day string) string {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return fmt.Sprintf("%04d-01-01", y)
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, mo, d)
}
