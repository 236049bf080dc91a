package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// Unit is a measurement unit recognized in vendor text.
type Unit int

const (
	UnitNone Unit = iota
	UnitInch
	UnitCentimeter
	UnitMillimeter
	UnitFoot
	UnitPound
	UnitOunce
	UnitKilogram
	UnitGram
)

// Conversion factors into the canonical units (inches, pounds).
const (
	cmToInch   = 0.39
	mmToInch   = 0.039
	footToInch = 12.0
	ozPerPound = 16.0
	kgToPound  = 2.2046
	gToPound   = 0.0022046
)

var (
	reMixedFraction = regexp.MustCompile(`^(\d+)[\s-]+(\d+)/(\d+)$`)
	reFraction      = regexp.MustCompile(`^(\d+)/(\d+)$`)
	reThousands     = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
	reSpaces        = regexp.MustCompile(`\s+`)

	vulgarFractions = strings.NewReplacer("½", " 1/2", "¼", " 1/4", "¾", " 3/4", "⅓", " 1/3", "⅔", " 2/3", "⅛", " 1/8")
)

// ParseUnit maps a unit token such as `"`, "cm" or "lbs" to a Unit.
func ParseUnit(s string) Unit {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, ".")
	switch s {
	case `"`, "''", "”", "″", "in", "inch", "inches":
		return UnitInch
	case "cm", "centimeter", "centimeters", "centimetre", "centimetres":
		return UnitCentimeter
	case "mm", "millimeter", "millimeters", "millimetre", "millimetres":
		return UnitMillimeter
	case "'", "’", "′", "ft", "foot", "feet":
		return UnitFoot
	case "lb", "lbs", "pound", "pounds":
		return UnitPound
	case "oz", "ounce", "ounces":
		return UnitOunce
	case "kg", "kgs", "kilogram", "kilograms":
		return UnitKilogram
	case "g", "gr", "gram", "grams":
		return UnitGram
	default:
		return UnitNone
	}
}

// IsWeight reports whether u measures mass.
func (u Unit) IsWeight() bool {
	switch u {
	case UnitPound, UnitOunce, UnitKilogram, UnitGram:
		return true
	}
	return false
}

// Canonical converts v into inches (length units) or pounds (weight units).
// UnitNone and the canonical units are the identity.
func (u Unit) Canonical(v float64) float64 {
	switch u {
	case UnitCentimeter:
		return v * cmToInch
	case UnitMillimeter:
		return v * mmToInch
	case UnitFoot:
		return v * footToInch
	case UnitOunce:
		return v / ozPerPound
	case UnitKilogram:
		return v * kgToPound
	case UnitGram:
		return v * gToPound
	default:
		return v
	}
}

// ParseNumber reads the numeric forms vendors use in measurement text: plain
// and decimal-comma numbers, thousands separators, mixed and bare fractions.
func ParseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(s, "\u00A0", " ")
	s = vulgarFractions.Replace(s)
	s = strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
	if s == "" {
		return 0, false
	}

	if m := reMixedFraction.FindStringSubmatch(s); m != nil {
		whole, _ := strconv.ParseFloat(m[1], 64)
		frac, ok := fraction(m[2], m[3])
		if !ok {
			return 0, false
		}
		return whole + frac, true
	}

	if m := reFraction.FindStringSubmatch(s); m != nil {
		return fraction(m[1], m[2])
	}

	if reThousands.MatchString(s) {
		s = strings.ReplaceAll(s, ",", "")
	} else if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return val, true
}

func fraction(num, den string) (float64, bool) {
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, false
	}
	return n / d, true
}

// normalizeSpaces collapses runs of whitespace and trims the result.
func normalizeSpaces(s string) string {
	s = strings.ReplaceAll(s, "\u00A0", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}
