// Package symver implements the SemanticVersion value type used to
// identify SymCache format versions throughout the cache and HTTP layers.
package symver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var pattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-([0-9A-Za-z-]+))?$`)

// Version is a three-part semantic version with an optional prerelease tag.
//
// Two versions with no prerelease tag are compared purely on (Major, Minor,
// Patch). When those are equal, a version carrying a prerelease tag is
// always less than one without; two versions both carrying tags are
// resolved by ordinal byte comparison of the tags. Two versions with no
// tag at all compare equal — HasPrerelease false on both sides, never
// "less than", regardless of which source of truth is asked.
type Version struct {
	Major      uint16
	Minor      uint8
	Patch      uint8
	Prerelease string // empty means no tag
}

// HasPrerelease reports whether v carries a non-empty prerelease tag.
func (v Version) HasPrerelease() bool {
	return v.Prerelease != ""
}

// Parse parses a version string of the form "major.minor.patch[-prerelease]".
func Parse(s string) (Version, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("symver: %q is not a valid semantic version", s)
	}

	major, err := strconv.ParseUint(m[1], 10, 16)
	if err != nil {
		return Version{}, fmt.Errorf("symver: major component out of range in %q: %w", s, err)
	}
	minor, err := strconv.ParseUint(m[2], 10, 8)
	if err != nil {
		return Version{}, fmt.Errorf("symver: minor component out of range in %q: %w", s, err)
	}
	patch, err := strconv.ParseUint(m[3], 10, 8)
	if err != nil {
		return Version{}, fmt.Errorf("symver: patch component out of range in %q: %w", s, err)
	}

	return Version{
		Major:      uint16(major),
		Minor:      uint8(minor),
		Patch:      uint8(patch),
		Prerelease: m[4],
	}, nil
}

// MustParse parses s and panics on failure. Intended for constants derived
// from configuration that has already been validated.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String formats v back into its canonical textual form; Parse(v.String())
// always reproduces v.
func (v Version) String() string {
	base := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease == "" {
		return base
	}
	return base + "-" + v.Prerelease
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other, per the ordering rules: numeric triple first, then prerelease
// presence (tagged < untagged), then ordinal tag comparison when both carry
// one. Two untagged versions with equal triples compare equal.
func (v Version) Compare(other Version) int {
	if c := compareUint(uint64(v.Major), uint64(other.Major)); c != 0 {
		return c
	}
	if c := compareUint(uint64(v.Minor), uint64(other.Minor)); c != 0 {
		return c
	}
	if c := compareUint(uint64(v.Patch), uint64(other.Patch)); c != 0 {
		return c
	}

	vTagged, oTagged := v.HasPrerelease(), other.HasPrerelease()
	switch {
	case vTagged && !oTagged:
		return -1
	case !vTagged && oTagged:
		return 1
	case !vTagged && !oTagged:
		return 0
	default:
		return strings.Compare(v.Prerelease, other.Prerelease)
	}
}

// Less reports whether v sorts strictly before other.
func (v Version) Less(other Version) bool { return v.Compare(other) < 0 }

// Equal reports whether v and other are identical, including prerelease tag.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
