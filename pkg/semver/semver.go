// Package semver parses and orders the MAJOR.MINOR.PATCH triples carried by
// component release tags.
package semver

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	xsemver "golang.org/x/mod/semver"
)

// ErrInvalid reports a string that is not a release triple.
var ErrInvalid = errors.New("invalid semantic version")

// Version is a release triple. Pre-release and build metadata are not part of
// a component release tag.
type Version struct {
	Major int
	Minor int
	Patch int
}

// Default is the version assumed when a component has no matching tag.
var Default = Version{Major: 0, Minor: 0, Patch: 1}

// Part selects the field bumped by Bump.
type Part int

const (
	Patch Part = iota
	Minor
	Major
)

func (p Part) String() string {
	switch p {
	case Major:
		return "major"
	case Minor:
		return "minor"
	default:
		return "patch"
	}
}

// Parse parses "X.Y.Z" with an optional leading "v".
func Parse(s string) (Version, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "v")
	if strings.Count(raw, ".") != 2 || strings.ContainsAny(raw, "-+") {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	if !xsemver.IsValid("v" + raw) {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	parts := strings.Split(raw, ".")
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalid, s)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// String renders the bare triple.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or +1 following semver precedence.
func Compare(a, b Version) int {
	return xsemver.Compare("v"+a.String(), "v"+b.String())
}

// Bump returns the next version for part. Lower fields reset to zero.
func (v Version) Bump(part Part) Version {
	switch part {
	case Major:
		return Version{Major: v.Major + 1}
	case Minor:
		return Version{Major: v.Major, Minor: v.Minor + 1}
	default:
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	}
}

var describeFormat = regexp.MustCompile(`^v?\d+\.\d+\.\d+\.\d+-[0-9A-Za-z]+$`)

// CheckForced validates a forced version string syntactically. Both full
// semver (pre-release and build metadata allowed) and the development
// "X.Y.Z.N-ref" form are accepted.
func CheckForced(s string) error {
	if s == "" || strings.TrimSpace(s) != s {
		return fmt.Errorf("%w: forced version %q", ErrInvalid, s)
	}
	if xsemver.IsValid("v"+strings.TrimPrefix(s, "v")) && strings.Count(strings.SplitN(strings.SplitN(s, "-", 2)[0], "+", 2)[0], ".") == 2 {
		return nil
	}
	if describeFormat.MatchString(s) {
		return nil
	}
	return fmt.Errorf("%w: forced version %q", ErrInvalid, s)
}
