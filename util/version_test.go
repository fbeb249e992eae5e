package util

import "testing"

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name     string
		purlType string
		a, b     string
		want     int
	}{
		{"semver_less", "maven", "2.14.1", "2.17.0", -1},
		{"semver_numeric_not_lexical", "golang", "1.10.0", "1.9.0", 1},
		{"go_prefix", "golang", "go1.22.2", "go1.21.0", 1},
		{"equal", "npm", "1.0.0", "1.0.0", 0},
		{"npm", "npm", "4.17.20", "4.17.21", -1},
		{"pypi", "pypi", "2.0.0rc1", "2.0.0", -1},
		{"unparsable_sorts_last", "maven", "n/a", "1.0.0", 1},
		{"both_unparsable", "maven", "beta", "alpha", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompareVersions(tt.purlType, tt.a, tt.b); got != tt.want {
				t.Errorf("CompareVersions(%q, %q, %q) = %d, want %d", tt.purlType, tt.a, tt.b, got, tt.want)
			}
		})
	}
}
