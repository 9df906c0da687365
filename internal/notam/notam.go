// Package notam holds the NOTAM vocabulary shared by the oracle, the
// offline classifier and the stamper: category codes, tag formatting and
// notice identifier detection.
package notam

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Category is a short operational classification code for a NOTAM
type Category string

const (
	CategoryRunway     Category = "RWY"
	CategoryNavaid     Category = "NAV"
	CategoryTaxiway    Category = "TWY"
	CategoryAirspace   Category = "AIR"
	CategoryObstacle   Category = "OBS"
	CategoryIrrelevant Category = "IRR"
)

// MaxAge is the largest age (in days) a tag can express
const MaxAge = 999

// Age padding characters accepted by FormatAge
const (
	PadZero       = '0'
	PadUnderscore = '_'
)

// UnknownAge is written when a notice carries no usable start date
const UnknownAge = "---"

// Categories lists every category in the order the taxonomy presents them
func Categories() []Category {
	return []Category{
		CategoryRunway,
		CategoryNavaid,
		CategoryTaxiway,
		CategoryAirspace,
		CategoryObstacle,
		CategoryIrrelevant,
	}
}

// Description returns the one-line meaning of the category
func (c Category) Description() string {
	switch c {
	case CategoryRunway:
		return "runway closures, runway restrictions, runway lighting"
	case CategoryNavaid:
		return "navigation aid outages (ILS, VOR, DME, NDB, GNSS)"
	case CategoryTaxiway:
		return "taxiway closures and apron restrictions"
	case CategoryAirspace:
		return "airspace restrictions, danger, prohibited and restricted areas"
	case CategoryObstacle:
		return "obstacles, cranes, unlit towers"
	case CategoryIrrelevant:
		return "administrative or fleet-irrelevant notices"
	default:
		return ""
	}
}

// ParseCategory parses a category code, case-insensitively
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Categories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown NOTAM category: %q", s)
}

// FormatAge renders an age in days as a 3-character field, left-padded
// with pad and capped at MaxAge. Negative ages render as zero.
func FormatAge(days int, pad rune) string {
	if days < 0 {
		days = 0
	}
	if days > MaxAge {
		days = MaxAge
	}
	s := strconv.Itoa(days)
	if len(s) < 3 {
		s = strings.Repeat(string(pad), 3-len(s)) + s
	}
	return s
}

// FormatTag renders the stamp text for a notice, e.g. "[ RWY | 012 ]"
func FormatTag(c Category, age string) string {
	return fmt.Sprintf("[ %s | %s ]", c, age)
}

var tagPattern = regexp.MustCompile(`^\[ ([A-Z]{3}) \| ([0-9_]{3}|---) \]$`)

// ParseTag splits a tag produced by FormatTag back into its parts
func ParseTag(tag string) (Category, string, error) {
	m := tagPattern.FindStringSubmatch(tag)
	if m == nil {
		return "", "", fmt.Errorf("malformed tag: %q", tag)
	}
	c, err := ParseCategory(m[1])
	if err != nil {
		return "", "", err
	}
	return c, m[2], nil
}

// IsWellFormedTag reports whether tag matches the "[ TYPE | AGE ]" shape
func IsWellFormedTag(tag string) bool {
	_, _, err := ParseTag(tag)
	return err == nil
}

// TagMap maps a notice identifier to the tag stamped next to it
type TagMap map[string]string

// IDs returns the identifiers in ascending order
func (m TagMap) IDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Identifiers look like 1A293/26, A1234/25 or B0012/24: a series letter
// (optionally preceded by a digit) and a number, then a two digit year.
var idPattern = regexp.MustCompile(`\b(?:\d?[A-Z])\d{3,4}/\d{2}\b`)

// ExtractIDs returns the distinct notice identifiers in text, in order of
// first appearance
func ExtractIDs(text string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, id := range idPattern.FindAllString(text, -1) {
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// IDLocations returns the byte offsets of every identifier match in text
func IDLocations(text string) [][]int {
	return idPattern.FindAllStringIndex(text, -1)
}
