package database

import (
	"testing"
	"time"
)

func TestCacheKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CVE-2021-44228", "CVE-2021-44228"},
		{"cve-2021-44228", "CVE-2021-44228"},
		{" GHSA/xxxx ", "GHSA-XXXX"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CacheKey(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCacheCutoff(t *testing.T) {
	c := NewEnrichmentCache(nil, 24*time.Hour, nil)
	c.now = func() time.Time { return time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC) }
	if got := c.cutoff(); got != "2024-03-01T12:00:00Z" {
		t.Errorf("unexpected cutoff %q", got)
	}
}
