package util

import "testing"

func TestFirstNonEmpty(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{"first_wins", []string{"x", "y"}, "x"},
		{"skips_blank", []string{"", "  ", "y"}, "y"},
		{"all_blank", []string{"", " "}, ""},
		{"none", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FirstNonEmpty(tt.values...); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo wörld", 5); got != "héllo" {
		t.Errorf("unexpected truncation %q", got)
	}
	if got := Truncate("short", 600); got != "short" {
		t.Errorf("unexpected truncation %q", got)
	}
	if got := Truncate("abc", 0); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestSanitizeKey(t *testing.T) {
	if got := SanitizeKey(" CVE-2021-44228 (log4j)/x "); got != "CVE-2021-44228-log4j-x" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestProductName(t *testing.T) {
	tests := []struct {
		purl string
		want string
	}{
		{"pkg:maven/org.apache.logging.log4j/log4j-core@2.14.1", "org.apache.logging.log4j/log4j-core"},
		{"pkg:npm/lodash@4.17.20", "lodash"},
	}
	for _, tt := range tests {
		got, err := ProductName(tt.purl)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}

	if _, err := ProductName("not a purl"); err == nil {
		t.Error("expected error for invalid purl")
	}
}

func TestEcosystemToPurlType(t *testing.T) {
	if got := EcosystemToPurlType("PyPI"); got != "pypi" {
		t.Errorf("expected pypi, got %s", got)
	}
	if got := EcosystemToPurlType("crates.IO"); got != "cargo" {
		t.Errorf("expected cargo, got %s", got)
	}
	if got := EcosystemToPurlType("Unknown"); got != "unknown" {
		t.Errorf("expected unknown, got %s", got)
	}
}
