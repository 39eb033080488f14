// Package metricval coerces raw scraped strings into typed metric
// values. Every function is total: garbage, empty strings and sentinel
// values yield ok=false instead of an error.
package metricval

import (
	"strconv"
	"strings"
)

// strings the target dashboards emit when a value is unavailable.
var sentinels = map[string]bool{
	"":                   true,
	"na":                 true,
	"n/a":                true,
	"none":               true,
	"null":               true,
	"-":                  true,
	"--":                 true,
	"selector not found": true,
}

func IsSentinel(raw string) bool {
	return sentinels[strings.ToLower(strings.TrimSpace(raw))]
}

func stripNumericNoise(raw string) string {
	var out strings.Builder
	for _, c := range raw {
		switch {
		case c >= '0' && c <= '9', c == '.', c == '-':
			out.WriteRune(c)
		}
	}
	return out.String()
}

// ToInteger strips thousands separators, currency symbols and
// whitespace before conversion.
func ToInteger(raw string) (int64, bool) {
	if IsSentinel(raw) {
		return 0, false
	}
	cleaned := stripNumericNoise(raw)
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		// scraped "integers" are sometimes rendered with decimals
		f, ferr := strconv.ParseFloat(cleaned, 64)
		if ferr != nil {
			return 0, false
		}
		return int64(f), true
	}
	return n, true
}

// ToNumeric strips percent signs and separators before conversion.
func ToNumeric(raw string) (float64, bool) {
	if IsSentinel(raw) {
		return 0, false
	}
	cleaned := stripNumericNoise(strings.ReplaceAll(raw, ",", ""))
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ToDurationSeconds accepts "MM:SS" (or "HH:MM:SS") clock strings and
// bare numeric strings (already in seconds).
func ToDurationSeconds(raw string) (float64, bool) {
	if IsSentinel(raw) {
		return 0, false
	}
	raw = strings.TrimSpace(raw)

	if strings.Contains(raw, ":") {
		parts := strings.Split(raw, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return 0, false
		}
		var total float64
		for _, p := range parts {
			n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return 0, false
			}
			total = total*60 + n
		}
		return total, true
	}

	return ToNumeric(raw)
}

// ToText trims whitespace; sentinel values collapse to absent.
func ToText(raw string) (string, bool) {
	if IsSentinel(raw) {
		return "", false
	}
	return strings.TrimSpace(raw), true
}

var compactSuffixes = map[byte]float64{
	'K': 1e3,
	'M': 1e6,
	'B': 1e9,
}

// ParseCompact parses numbers in the dashboards' compact notation
// ("1.2K", "3M", "45,6K", "1.1B") into a plain float.
func ParseCompact(raw string) (float64, bool) {
	if IsSentinel(raw) {
		return 0, false
	}
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	multiplier := 1.0
	if len(cleaned) > 0 {
		if m, ok := compactSuffixes[cleaned[len(cleaned)-1]]; ok {
			multiplier = m
			cleaned = cleaned[:len(cleaned)-1]
		}
	}

	f, ok := ToNumeric(cleaned)
	if !ok {
		return 0, false
	}
	return f * multiplier, true
}

// ToCount parses integer counts that may be rendered either plainly
// ("1,234") or in compact notation ("12.5K").
func ToCount(raw string) (int64, bool) {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	if len(trimmed) > 0 {
		if _, ok := compactSuffixes[trimmed[len(trimmed)-1]]; ok {
			f, ok := ParseCompact(trimmed)
			if !ok {
				return 0, false
			}
			return int64(f), true
		}
	}
	return ToInteger(raw)
}

// NormalizeFraction maps a percentage in 0-100 form down to the 0-1
// decimal form; values already below 1 pass through unchanged.
func NormalizeFraction(v float64) float64 {
	if v > 1 {
		return v / 100
	}
	return v
}
