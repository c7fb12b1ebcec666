package routing

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumberOr converts a provider numeric string to a float, returning def
// when the value is blank, an empty-array placeholder, non-numeric or not finite.
func ParseNumberOr(raw string, def float64) float64 {
	s := strings.TrimSpace(raw)
	if s == "" || s == "[]" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

// ParseIntOr is ParseNumberOr truncated to an int.
func ParseIntOr(raw string, def int) int {
	v := ParseNumberOr(raw, math.NaN())
	if math.IsNaN(v) {
		return def
	}
	return int(v)
}
