// Package util provides small helpers shared across the service: string handling,
// Package URL parsing, CVSS scoring, ecosystem-aware version ordering and logging.
//
//revive:disable-next-line:var-naming
package util

import (
	"fmt"
	"os"
	"strings"

	"github.com/package-url/packageurl-go"
)

// GetEnvDefault is a convenience function for handling env vars
func GetEnvDefault(key, defVal string) string {
	val, ex := os.LookupEnv(key) // get the env var
	if !ex {                     // not found return default
		return defVal
	}
	return val // return value for env var
}

// IsEmpty checks if a string is empty or contains only whitespace
func IsEmpty(s string) bool {
	return len(strings.TrimSpace(s)) == 0
}

// FirstNonEmpty returns the first value that is not blank, or "" when all are
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if !IsEmpty(v) {
			return v
		}
	}
	return ""
}

// Truncate cuts s to at most maxLen runes
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// SanitizeKey ensures the database key is valid for ArangoDB
// ArangoDB keys cannot contain spaces, slashes, or brackets
func SanitizeKey(key string) string {
	key = strings.TrimSpace(key)

	replacer := strings.NewReplacer(
		" ", "-",
		"/", "-",
		"[", "",
		"]", "",
		"(", "",
		")", "",
	)

	return replacer.Replace(key)
}

// EcosystemToPurlType converts OSV ecosystem to PURL type
func EcosystemToPurlType(ecosystem string) string {
	mapping := map[string]string{
		"npm":       "npm",
		"PyPI":      "pypi",
		"Maven":     "maven",
		"Go":        "golang",
		"NuGet":     "nuget",
		"RubyGems":  "gem",
		"crates.io": "cargo",
		"Packagist": "composer",
		"Pub":       "pub",
		"Hex":       "hex",
		"Alpine":    "apk",
		"Wolfi":     "apk",
		"Debian":    "deb",
		"Ubuntu":    "deb",
	}

	if purlType, exists := mapping[ecosystem]; exists {
		return purlType
	}

	for key, value := range mapping {
		if strings.EqualFold(key, ecosystem) {
			return value
		}
	}

	return strings.ToLower(ecosystem)
}

// ParsePURL parses a PURL string and returns the parsed PackageURL
func ParsePURL(purlStr string) (*packageurl.PackageURL, error) {
	parsed, err := packageurl.FromString(purlStr)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// ProductName renders a PURL as "namespace/name" (or just "name"), the form shown
// in the Affected_Product column
func ProductName(purlStr string) (string, error) {
	parsed, err := ParsePURL(purlStr)
	if err != nil {
		return "", fmt.Errorf("invalid purl %q: %w", purlStr, err)
	}
	if parsed.Namespace != "" {
		return parsed.Namespace + "/" + parsed.Name, nil
	}
	return parsed.Name, nil
}
