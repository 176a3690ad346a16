package entities

import "strings"

// Dimension is the physical class a unit of measure belongs to
type Dimension int

const (
	Mass Dimension = iota
	Volume
	Count
)

// String method for Dimension enum
func (d Dimension) String() string {
	switch d {
	case Mass:
		return "Mass"
	case Volume:
		return "Volume"
	case Count:
		return "Count"
	default:
		return "Unknown"
	}
}

// NormalizeUnit canonicalizes a unit symbol for comparison and lookup
func NormalizeUnit(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}

// SameUnit reports whether two symbols name the same unit
func SameUnit(a, b string) bool {
	return NormalizeUnit(a) == NormalizeUnit(b)
}
