// Package features derives the fixed-length heuristic vector the phishing
// classifier consumes from a raw URL string.
package features

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Len is the number of slots in a Vector. The classifier's input layer is
// sized to it, so it never changes without retraining the model.
const Len = 11

// Slot indices. Order is part of the classifier input contract and must stay
// in sync with the rule table in the reasons package.
const (
	IdxIPHost = iota
	IdxURLLength
	IdxShortener
	IdxAtSymbol
	IdxDoubleSlash
	IdxHyphenHost
	IdxSubdomains
	IdxHTTPS
	IdxPort
	IdxQuery
	IdxGoogleHosted
)

// Vector holds one heuristic signal per slot. Every slot is -1 (absent) or 1
// (present); the URL-length and subdomain-depth buckets additionally use 0
// for their middle band.
type Vector [Len]int

// Floats returns the vector in the float32 encoding the ONNX graph expects.
func (v Vector) Floats() []float32 {
	out := make([]float32, Len)
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

// PositiveCount is the number of slots holding a strict 1.
func (v Vector) PositiveCount() int {
	n := 0
	for _, f := range v {
		if f == 1 {
			n++
		}
	}
	return n
}

// Suspicious is the fail-closed vector: every signal flagged. A URL too
// malformed to parse is itself a strong phishing indicator, so extraction
// degrades to this instead of surfacing an error.
func Suspicious() Vector {
	var v Vector
	for i := range v {
		v[i] = 1
	}
	return v
}

// Shorteners are matched as substrings anywhere in the URL. Data, not logic:
// extend the list without touching Extract.
var Shorteners = []string{
	"bit.ly", "goo.gl", "tinyurl.com", "ow.ly", "t.co", "bit.do",
	"mcaf.ee", "su.pr", "is.gd", "buff.ly", "tiny.cc", "lnkd.in",
	"shorturl.at", "cutt.ly", "rb.gy", "v.gd", "tiny.one",
}

// GoogleHosts flag content hosted on Google's free hosting surfaces, a
// common home for throwaway phishing pages.
var GoogleHosts = []string{"sites.google.com", "drive.google.com"}

var (
	ipHostRe     = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}(:\d+)?$`)
	schemeRe     = regexp.MustCompile(`(?i)^https?://`)
	schemeNameRe = regexp.MustCompile(`(?i)^https?:`)
)

// Extract maps a raw URL to its heuristic vector. It never fails: any
// unrecoverable parse problem yields Suspicious(). A malformed port is
// absorbed locally and treated as "no port".
func Extract(rawURL string) Vector {
	// Defuse the [.] obfuscation trick common in pasted/shared samples.
	u := strings.ReplaceAll(rawURL, "[.]", ".")
	if !schemeRe.MatchString(u) {
		u = "http://" + u
	}

	parsed, port, ok := parseLenient(u)
	if !ok {
		return Suspicious()
	}
	host := strings.ToLower(parsed.Hostname())
	// Hostname() strips the brackets of a well-formed IPv6 literal, so any
	// bracket still present marks a host url.Parse tolerated but that is not
	// actually parseable as an authority.
	if strings.ContainsAny(host, "[]") {
		return Suspicious()
	}

	var v Vector
	v[IdxIPHost] = flag(ipHostRe.MatchString(host))
	v[IdxURLLength] = lengthBucket(len(u))
	v[IdxShortener] = flag(containsAny(u, Shorteners))
	v[IdxAtSymbol] = flag(strings.Contains(u, "@"))
	v[IdxDoubleSlash] = flag(extraDoubleSlash(u))
	v[IdxHyphenHost] = flag(strings.Contains(host, "-"))
	v[IdxSubdomains] = subdomainBucket(host)
	v[IdxHTTPS] = flag(strings.EqualFold(parsed.Scheme, "https"))
	v[IdxPort] = flag(port != "" && port != "80" && port != "443")
	v[IdxQuery] = flag(parsed.RawQuery != "")
	v[IdxGoogleHosted] = flag(containsAny(u, GoogleHosts))
	return v
}

func flag(b bool) int {
	if b {
		return 1
	}
	return -1
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func lengthBucket(n int) int {
	switch {
	case n < 54:
		return -1
	case n <= 75:
		return 0
	default:
		return 1
	}
}

// parseLenient wraps url.Parse so that only structural failures bubble up.
// net/url rejects a malformed port up front; here that means "no port", not
// an unparseable URL, so the parse is retried with the port stripped.
func parseLenient(raw string) (*url.URL, string, bool) {
	u, err := url.Parse(raw)
	if err == nil {
		return u, validPort(u.Port()), true
	}
	if strings.Contains(err.Error(), "invalid port") {
		if stripped, ok := stripPort(raw); ok {
			if u, err := url.Parse(stripped); err == nil {
				return u, "", true
			}
		}
	}
	return nil, "", false
}

// validPort keeps only ports in the 0-65535 range. url.Parse checks digits,
// not range, so an oversized port would otherwise slip through; it counts as
// "no port" like every other malformed port.
func validPort(p string) string {
	if p == "" {
		return ""
	}
	n, err := strconv.Atoi(p)
	if err != nil || n > 65535 {
		return ""
	}
	return p
}

// stripPort removes the :port suffix from the authority component.
func stripPort(raw string) (string, bool) {
	prefix := schemeRe.FindString(raw)
	rest := raw[len(prefix):]

	authority := rest
	tail := ""
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		authority, tail = rest[:i], rest[i:]
	}

	colon := strings.LastIndex(authority, ":")
	if colon < 0 || colon < strings.LastIndex(authority, "]") {
		return "", false
	}
	return prefix + authority[:colon] + tail, true
}

// extraDoubleSlash reports whether "//" appears more than once after the
// scheme name, i.e. anywhere beyond the authority separator. This counts
// path-embedded "//" as well, which is a known over-flagging quirk of the
// heuristic; it is kept as-is.
func extraDoubleSlash(raw string) bool {
	rest := raw
	if m := schemeNameRe.FindString(raw); m != "" {
		rest = raw[len(m):]
	}
	return strings.Count(rest, "//") > 1
}

// subdomainBucket classifies how many labels sit left of the registrable
// domain: at most one is normal, two is borderline, more is suspicious.
func subdomainBucket(host string) int {
	switch n := subdomainLabels(host); {
	case n <= 1:
		return -1
	case n == 2:
		return 0
	default:
		return 1
	}
}

func subdomainLabels(host string) int {
	host = strings.TrimSuffix(host, ".")
	if ipHostRe.MatchString(host) {
		// An IP literal has no subdomain portion; the suffix lookup would
		// otherwise misread the trailing octets as a registrable domain.
		return 0
	}
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// IP literals and bare suffixes have no subdomain portion.
		return 0
	}
	if len(host) <= len(etld1) {
		return 0
	}
	sub := strings.TrimSuffix(host[:len(host)-len(etld1)], ".")
	if sub == "" {
		return 0
	}
	return strings.Count(sub, ".") + 1
}
