// Package datenorm converts the many timestamp shapes found in scraped
// pages and legacy database rows into one canonical UTC ISO-8601 form.
package datenorm

import (
	"strconv"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

// canonical form: microsecond precision, explicit offset.
// formatting through time.UTC always renders the offset as +00:00.
const canonicalLayout = "2006-01-02T15:04:05.000000-07:00"

// epoch values at or below this bound are interpreted as seconds,
// anything larger as milliseconds.
const epochMillisBound = 1e12

// priority-ordered parse patterns. the canonical layout itself comes
// first so that Normalize is idempotent.
var layouts = []string{
	canonicalLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// textual fallback layouts, tried through monday so month names in the
// supported locales parse too.
var textualLayouts = []string{
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

var textualLocales = []monday.Locale{
	monday.LocaleEnUS,
	monday.LocaleEnGB,
	monday.LocaleDeDE,
	monday.LocaleFrFR,
}

// NormalizeTime renders a time in the canonical form.
func NormalizeTime(t time.Time) string {
	return t.UTC().Format(canonicalLayout)
}

// Normalize converts a timestamp in any supported representation
// (string in an assorted format, epoch seconds or milliseconds, or
// time.Time) into the canonical UTC ISO-8601 string. The second return
// is false when the value is absent or unparsable; it never panics.
//
// Normalize(Normalize(x)) == Normalize(x) for every accepted input.
func Normalize(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case time.Time:
		if v.IsZero() {
			return "", false
		}
		return NormalizeTime(v), true
	case string:
		return normalizeString(v)
	case int:
		return normalizeEpoch(float64(v))
	case int32:
		return normalizeEpoch(float64(v))
	case int64:
		return normalizeEpoch(float64(v))
	case float32:
		return normalizeEpoch(float64(v))
	case float64:
		return normalizeEpoch(v)
	}
	return "", false
}

func normalizeEpoch(v float64) (string, bool) {
	if v <= 0 {
		return "", false
	}
	var t time.Time
	if v <= epochMillisBound {
		secs := int64(v)
		frac := v - float64(secs)
		t = time.Unix(secs, int64(frac*float64(time.Second)))
	} else {
		t = time.UnixMilli(int64(v))
	}
	return NormalizeTime(t), true
}

func normalizeString(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	// bare numeric strings are epoch timestamps
	if num, err := strconv.ParseFloat(raw, 64); err == nil {
		return normalizeEpoch(num)
	}

	for _, layout := range layouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return NormalizeTime(t), true
		}
	}

	for _, layout := range textualLayouts {
		for _, locale := range textualLocales {
			t, err := monday.ParseInLocation(layout, raw, time.UTC, locale)
			if err == nil {
				return NormalizeTime(t), true
			}
		}
	}

	return "", false
}

// NormalizeFields applies Normalize to the named keys of a record,
// recursing into nested maps. Keys that fail to normalize are set to
// nil; keys not named in `fields` are left untouched.
func NormalizeFields(record map[string]any, fields map[string]bool) map[string]any {
	out := make(map[string]any, len(record))
	for key, value := range record {
		if nested, ok := value.(map[string]any); ok {
			out[key] = NormalizeFields(nested, fields)
			continue
		}
		if !fields[key] {
			out[key] = value
			continue
		}
		normalized, ok := Normalize(value)
		if !ok {
			out[key] = nil
			continue
		}
		out[key] = normalized
	}
	return out
}
