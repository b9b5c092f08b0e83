package pipeline

import (
	"math"
	"strconv"
	"strings"

	"heatmap/internal"
	"heatmap/internal/util"
)

const minLocationFields = 6

// ParseTone returns the first field of a V2Tone vector (the average tone).
func ParseTone(raw *string) *float64 {
	if raw == nil || *raw == "" {
		return nil
	}
	first, _, _ := strings.Cut(*raw, ",")
	return parseFinite(first)
}

// ParseLocations decodes a V2Locations list. Entries that are too short or
// carry an unparsable number are skipped.
func ParseLocations(raw *string) []internal.Location {
	if raw == nil || *raw == "" {
		return []internal.Location{}
	}

	out := []internal.Location{}
	for _, entry := range strings.Split(*raw, ";") {
		loc, ok := parseLocationEntry(entry)
		if !ok {
			continue
		}
		out = append(out, loc)
	}
	return out
}

func parseLocationEntry(entry string) (internal.Location, bool) {
	parts := strings.Split(entry, "#")
	if len(parts) < minLocationFields {
		return internal.Location{}, false
	}

	locType, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return internal.Location{}, false
	}

	loc := internal.Location{
		Type:        locType,
		Name:        parts[1],
		CountryCode: util.NonEmptyPtr(parts[2]),
		ADM1Code:    util.NonEmptyPtr(parts[3]),
	}
	if parts[4] != "" {
		if loc.Latitude = parseFinite(parts[4]); loc.Latitude == nil {
			return internal.Location{}, false
		}
	}
	if parts[5] != "" {
		if loc.Longitude = parseFinite(parts[5]); loc.Longitude == nil {
			return internal.Location{}, false
		}
	}
	return loc, true
}

// ParseDate turns a YYYYMMDDhhmmss timestamp into YYYY-MM-DD. Values are
// sliced, not validated as calendar dates.
func ParseDate(raw *string) *string {
	if raw == nil {
		return nil
	}
	digits, ok := integerDigits(*raw)
	if !ok || len(digits) < 8 {
		return nil
	}
	date := digits[:4] + "-" + digits[4:6] + "-" + digits[6:8]
	return &date
}

// integerDigits normalizes an integer-valued string ("+0020250615", "20250615.0")
// to its canonical decimal digits. Plain digit strings of any length are kept
// as text.
func integerDigits(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	digits := strings.TrimPrefix(s, "+")
	if digits != "" && isASCIIDigits(digits) {
		digits = strings.TrimLeft(digits, "0")
		if digits == "" {
			digits = "0"
		}
		return digits, true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) || f >= math.MaxInt64 {
		return "", false
	}
	return strconv.FormatInt(int64(f), 10), true
}

func isASCIIDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseThemes splits V2Themes, drops the ",offset" suffix of each entry and
// removes duplicates keeping the first occurrence.
func ParseThemes(raw *string) []string {
	if raw == nil || *raw == "" {
		return []string{}
	}

	seen := map[string]struct{}{}
	out := []string{}
	for _, entry := range strings.Split(*raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, _, _ := strings.Cut(entry, ",")
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func parseFinite(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
