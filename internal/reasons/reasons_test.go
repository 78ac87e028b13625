package reasons

import (
	"strings"
	"testing"

	"github.com/phishguard/phishguard/internal/features"
)

// cleanVector triggers no rule: everything absent, HTTPS present.
func cleanVector() features.Vector {
	var v features.Vector
	for i := range v {
		v[i] = -1
	}
	v[features.IdxHTTPS] = 1
	return v
}

func TestExplainCleanVectorReassures(t *testing.T) {
	got := Explain(cleanVector(), "https://example.com")
	if len(got) != 2 {
		t.Fatalf("expected reassurance + summary, got %d messages: %v", len(got), got)
	}
	if got[0] != "No obvious heuristic indicators found." {
		t.Errorf("first message = %q, want reassurance", got[0])
	}
	// The tally counts every strict 1, so the HTTPS slot itself lands in it.
	if got[1] != "Detected 1 suspicious indicator(s)." {
		t.Errorf("summary = %q", got[1])
	}
}

func TestExplainAllNegativeFlagsMissingTLS(t *testing.T) {
	var v features.Vector
	for i := range v {
		v[i] = -1
	}
	got := Explain(v, "http://example.com")
	if len(got) != 2 {
		t.Fatalf("expected not-HTTPS + summary, got %v", got)
	}
	if !strings.Contains(got[0], "not HTTPS") {
		t.Errorf("first message = %q, want missing-TLS warning", got[0])
	}
	if got[1] != "Detected 0 suspicious indicator(s)." {
		t.Errorf("summary = %q, want 0 indicators", got[1])
	}
}

func TestExplainSummaryCountsStrictPositives(t *testing.T) {
	// The count depends only on how many slots hold 1, not which ones.
	cases := [][]int{
		{features.IdxIPHost, features.IdxShortener, features.IdxAtSymbol},
		{features.IdxHyphenHost, features.IdxPort, features.IdxGoogleHosted},
	}
	for _, idxs := range cases {
		var v features.Vector
		for i := range v {
			v[i] = -1
		}
		v[features.IdxURLLength] = 0 // 0 must not count
		for _, i := range idxs {
			v[i] = 1
		}
		got := Explain(v, "http://x")
		last := got[len(got)-1]
		if last != "Detected 3 suspicious indicator(s)." {
			t.Errorf("indices %v: summary = %q, want 3", idxs, last)
		}
	}
}

func TestExplainValuesWrongLength(t *testing.T) {
	for _, vals := range [][]int{nil, {}, {1, -1, 1, -1, 1}, make([]int, 12)} {
		got := ExplainValues(vals, "http://x")
		if len(got) != 1 {
			t.Fatalf("len %d input: expected single diagnostic, got %v", len(vals), got)
		}
		if !strings.Contains(got[0], "unexpected vector length") {
			t.Errorf("diagnostic = %q", got[0])
		}
	}
}

func TestExplainIndexOrdering(t *testing.T) {
	var v features.Vector
	for i := range v {
		v[i] = -1
	}
	v[features.IdxIPHost] = 1
	v[features.IdxURLLength] = 0
	v[features.IdxShortener] = 1
	// IdxHTTPS stays -1 and contributes its warning in slot order.

	got := Explain(v, "http://x")
	wantPrefixes := []string{
		"Hostname is an IP address",
		"URL length is medium",
		"URL uses a shortening service",
		"URL is not HTTPS",
		"Detected 2 suspicious indicator(s).",
	}
	if len(got) != len(wantPrefixes) {
		t.Fatalf("got %d messages %v, want %d", len(got), got, len(wantPrefixes))
	}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(got[i], prefix) {
			t.Errorf("message %d = %q, want prefix %q", i, got[i], prefix)
		}
	}
}

func TestExplainEachRuleRow(t *testing.T) {
	tests := []struct {
		idx     int
		value   int
		keyword string
	}{
		{features.IdxIPHost, 1, "IP address"},
		{features.IdxURLLength, 1, "URL is long"},
		{features.IdxURLLength, 0, "medium"},
		{features.IdxShortener, 1, "shortening service"},
		{features.IdxAtSymbol, 1, "'@'"},
		{features.IdxDoubleSlash, 1, "'//'"},
		{features.IdxHyphenHost, 1, "Hyphen"},
		{features.IdxSubdomains, 1, "Many subdomains"},
		{features.IdxSubdomains, 0, "Multiple subdomains"},
		{features.IdxHTTPS, -1, "not HTTPS"},
		{features.IdxPort, 1, "Non-standard port"},
		{features.IdxQuery, 1, "query parameters"},
		{features.IdxGoogleHosted, 1, "Google Sites/Drive"},
	}
	for _, tt := range tests {
		v := cleanVector()
		v[tt.idx] = tt.value
		got := Explain(v, "http://x")
		found := false
		for _, msg := range got {
			if strings.Contains(msg, tt.keyword) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("idx %d value %d: no message containing %q in %v", tt.idx, tt.value, tt.keyword, got)
		}
	}
}

func TestExplainBucketMessagesMutuallyExclusive(t *testing.T) {
	v := cleanVector()
	v[features.IdxURLLength] = 1
	got := Explain(v, "http://x")
	for _, msg := range got {
		if strings.Contains(msg, "medium") {
			t.Errorf("long URL also produced medium-length message: %v", got)
		}
	}
}
