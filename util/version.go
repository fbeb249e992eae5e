// Package util provides utility functions for the backend.
//
//revive:disable-next-line:var-naming
package util

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	npm "github.com/aquasecurity/go-npm-version/pkg"
	pep440 "github.com/aquasecurity/go-pep440-version"
)

// CompareVersions orders two version strings using the rules of the given PURL type
// (npm, pypi, anything else as semver). It returns -1, 0 or 1. Versions that do not
// parse sort after the ones that do and fall back to string comparison among themselves.
func CompareVersions(purlType, a, b string) int {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == b {
		return 0
	}

	switch strings.ToLower(purlType) {
	case "npm":
		va, errA := npm.NewVersion(a)
		vb, errB := npm.NewVersion(b)
		if errA == nil && errB == nil {
			return order(va.LessThan(vb), va.GreaterThan(vb))
		}
		return fallback(errA == nil, errB == nil, a, b)
	case "pypi":
		va, errA := pep440.Parse(a)
		vb, errB := pep440.Parse(b)
		if errA == nil && errB == nil {
			return order(va.LessThan(vb), va.GreaterThan(vb))
		}
		return fallback(errA == nil, errB == nil, a, b)
	}

	// Strip "go" prefix for Go stdlib versions (e.g., "go1.22.2")
	va, errA := semver.NewVersion(strings.TrimPrefix(a, "go"))
	vb, errB := semver.NewVersion(strings.TrimPrefix(b, "go"))
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return fallback(errA == nil, errB == nil, a, b)
}

func order(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

func fallback(okA, okB bool, a, b string) int {
	switch {
	case okA && !okB:
		return -1
	case !okA && okB:
		return 1
	}
	return strings.Compare(a, b)
}
