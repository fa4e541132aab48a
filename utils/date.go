package utils

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type dateLayout struct {
	layout  string
	hasTime bool
}

// Accepted layouts, most specific first. Two-digit years come after their
// four-digit counterparts so "01/02/2024" is never read as year 20.
var dateLayouts = []dateLayout{
	{time.RFC3339, true},
	{"2006-01-02T15:04:05", true},
	{"2006-01-02 15:04:05", true},
	{"2006-01-02 15:04", true},
	{"02/01/2006 15:04:05", true},
	{"02/01/2006 15:04", true},
	{"2006-01-02", false},
	{"2006/01/02", false},
	{"02/01/2006", false},
	{"02-01-2006", false},
	{"02.01.2006", false},
	{"2006-1-2", false},
	{"2/1/2006", false},
	{"20060102", false},
	{"02/01/06", false},
	{"02-01-06", false},
}

// ParseDate parses a raw cell into a time. The second result reports success,
// the third whether the source carried a time of day.
func ParseDate(v any) (time.Time, bool, bool) {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false, false
		}
		return val, true, val.Hour() != 0 || val.Minute() != 0 || val.Second() != 0
	case *time.Time:
		if val == nil || val.IsZero() {
			return time.Time{}, false, false
		}
		return *val, true, val.Hour() != 0 || val.Minute() != 0 || val.Second() != 0
	case string:
		return parseDateString(val)
	case []byte:
		return parseDateString(string(val))
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return parseCompactDate(n)
		}
		return parseDateString(val.String())
	case int:
		// FEC exports sometimes arrive as yyyymmdd integers.
		return parseCompactDate(int64(val))
	case int64:
		return parseCompactDate(val)
	case float64:
		if val == float64(int64(val)) {
			return parseCompactDate(int64(val))
		}
	}
	return time.Time{}, false, false
}

func parseDateString(s string) (time.Time, bool, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, false
	}
	for _, l := range dateLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		return t, true, l.hasTime && (t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0)
	}
	return time.Time{}, false, false
}

func parseCompactDate(n int64) (time.Time, bool, bool) {
	if n < 19000101 || n > 29991231 {
		return time.Time{}, false, false
	}
	return parseDateString(strconv.FormatInt(n, 10))
}

// DaysBetween returns the whole number of days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// MonthKey formats t as "2006-01".
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
