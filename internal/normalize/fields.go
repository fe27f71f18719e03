package normalize

import (
	"math"
	"strconv"
	"strings"
)

// The POS API is loosely typed: the same concept shows up under several
// field names, numbers arrive as strings, and envelopes vary between
// deployments. Every lookup here is an ordered table of candidate paths
// evaluated first-match-wins, so the policy stays auditable in one place.

// StringAtPaths walks a decoded JSON object through each dotted path in
// order and returns the first string value of at least minLen characters.
func StringAtPaths(payload interface{}, paths []string, minLen int) (string, bool) {
	for _, path := range paths {
		value := atPath(payload, path)
		if s, ok := value.(string); ok && len(s) >= minLen {
			return s, true
		}
	}
	return "", false
}

// atPath resolves a dotted path ("data.token") against nested
// map[string]interface{} values. A missing segment yields nil.
func atPath(payload interface{}, path string) interface{} {
	current := payload
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = m[segment]
	}
	return current
}

// asFloat coerces a JSON value into a float64, accepting real numbers and
// numeric strings ("12.50", "12,50").
func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// asInt coerces a JSON value into an int.
func asInt(value interface{}) (int, bool) {
	f, ok := asFloat(value)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// asString returns the value as a non-empty string.
func asString(value interface{}) (string, bool) {
	s, ok := value.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// firstFloat returns the first positive numeric value found under the
// given keys, in order.
func firstFloat(m map[string]interface{}, keys []string) (float64, bool) {
	for _, key := range keys {
		if f, ok := asFloat(m[key]); ok && f > 0 {
			return f, true
		}
	}
	return 0, false
}

// firstString returns the first non-empty string found under the given
// keys, in order.
func firstString(m map[string]interface{}, keys []string) (string, bool) {
	for _, key := range keys {
		if s, ok := asString(m[key]); ok {
			return s, true
		}
	}
	return "", false
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
