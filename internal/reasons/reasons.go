// Package reasons turns a feature vector back into the ordered, human-readable
// findings shown alongside the classifier verdict.
package reasons

import (
	"fmt"

	"github.com/phishguard/phishguard/internal/features"
)

const (
	malformedVectorMessage = "Feature extraction failed or returned an unexpected vector length."
	reassuranceMessage     = "No obvious heuristic indicators found."
	summaryFormat          = "Detected %d suspicious indicator(s)."
)

// rule maps one vector slot to the message emitted when the slot holds
// trigger. Bucketed features contribute one row per noteworthy band, and the
// HTTPS slot is the one whose negative value is the finding.
type rule struct {
	idx     int
	trigger int
	message string
}

var ruleTable = []rule{
	{features.IdxIPHost, 1, "Hostname is an IP address (possible obfuscation)."},
	{features.IdxURLLength, 1, "URL is long (length > 75), common in phishing links."},
	{features.IdxURLLength, 0, "URL length is medium (54-75), somewhat suspicious."},
	{features.IdxShortener, 1, "URL uses a shortening service (obscures destination)."},
	{features.IdxAtSymbol, 1, "URL contains '@' which can hide the real domain."},
	{features.IdxDoubleSlash, 1, "Multiple '//' found in URL path, suspicious structure."},
	{features.IdxHyphenHost, 1, "Hyphen found in hostname, may imitate legitimate domains."},
	{features.IdxSubdomains, 1, "Many subdomains detected, may be used to mimic trusted sites."},
	{features.IdxSubdomains, 0, "Multiple subdomains present (moderately suspicious)."},
	{features.IdxHTTPS, -1, "URL is not HTTPS (no TLS), insecure connection."},
	{features.IdxPort, 1, "Non-standard port used (not 80/443), unusual setup."},
	{features.IdxQuery, 1, "URL contains query parameters, sometimes used in credential-stealing pages."},
	{features.IdxGoogleHosted, 1, "Hosted on Google Sites/Drive, attackers sometimes host phishing content here."},
}

// Explain maps a vector to its ordered findings. The list is never empty: a
// reassurance line stands in when nothing triggered, and the final line is
// always the strict-positive indicator tally. The URL is accepted for future
// contextual messages and not otherwise inspected.
func Explain(v features.Vector, rawURL string) []string {
	return ExplainValues(v[:], rawURL)
}

// ExplainValues is the loosely-typed boundary form of Explain. A vector of
// the wrong length is a contract violation between extractor and caller; it
// degrades to a single diagnostic line rather than panicking.
func ExplainValues(vals []int, rawURL string) []string {
	if len(vals) != features.Len {
		return []string{malformedVectorMessage}
	}

	out := make([]string, 0, len(ruleTable)+2)
	for _, r := range ruleTable {
		if vals[r.idx] == r.trigger {
			out = append(out, r.message)
		}
	}

	if len(out) == 0 {
		out = append(out, reassuranceMessage)
	}

	positives := 0
	for _, f := range vals {
		if f == 1 {
			positives++
		}
	}
	return append(out, fmt.Sprintf(summaryFormat, positives))
}
