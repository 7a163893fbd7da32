// Package transform holds the pure derivations that turn raw-table
// snapshots into the staging and analytics tables. Nothing here touches
// storage; every function is a deterministic function of its input rows.
package transform

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Layouts tried in order when a raw timestamp is typed. Values without a
// zone are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// ParseDecimal types a raw numeric cell. Empty or unparsable text is null.
func ParseDecimal(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// ParseTimestamp types a raw timestamp cell. Empty or unparsable text is nil.
//
// Besides the layouts above, an all-digit value is read as Unix epoch
// seconds, or milliseconds when it has more than 11 digits.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if isDigits(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil
		}
		var ts time.Time
		if len(s) > 11 {
			ts = time.UnixMilli(n).UTC()
		} else {
			ts = time.Unix(n, 0).UTC()
		}
		return &ts
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}
	return nil
}

// ParseDate types a raw date cell to midnight UTC of its calendar day.
func ParseDate(s string) *time.Time {
	ts := ParseTimestamp(s)
	if ts == nil {
		return nil
	}
	d := truncateDay(*ts)
	return &d
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
