package plate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	spaceRe = regexp.MustCompile(`\s+`)
	// Standard series registrations like MH12AB1234; the series letters are
	// optional to cover older two-part numbers. The district match is lazy so
	// a run of digits with no series letters splits as district then a 3-4
	// digit registration number.
	plateRe = regexp.MustCompile(`^([A-Z]{2})(\d{1,2}?)([A-Z]{0,3})(\d{3,4})$`)
)

// Normalize uppercases a raw registration number and strips all whitespace.
// Every lookup and stored plate uses this form. Normalize is idempotent.
func Normalize(raw string) string {
	return spaceRe.ReplaceAllString(strings.ToUpper(raw), "")
}

// ParsedPlate holds the structural parts of a normalized registration number.
type ParsedPlate struct {
	StateCode string
	District  int
	Series    string
	Number    int
}

// Parse splits a registration number into its structural parts. It is a
// best-effort check used to drop garbage ANPR reads; plates that do not match
// the standard layout are still accepted by the gate itself.
func Parse(raw string) (ParsedPlate, error) {
	s := Normalize(raw)
	m := plateRe.FindStringSubmatch(s)
	if m == nil {
		return ParsedPlate{}, fmt.Errorf("unrecognized plate format: %q", raw)
	}

	district, err := strconv.Atoi(m[2])
	if err != nil {
		return ParsedPlate{}, fmt.Errorf("invalid district in plate %q: %w", raw, err)
	}
	number, err := strconv.Atoi(m[4])
	if err != nil {
		return ParsedPlate{}, fmt.Errorf("invalid number in plate %q: %w", raw, err)
	}

	return ParsedPlate{
		StateCode: m[1],
		District:  district,
		Series:    m[3],
		Number:    number,
	}, nil
}

// Plausible reports whether a raw read looks like a real registration number.
func Plausible(raw string) bool {
	_, err := Parse(raw)
	return err == nil
}
