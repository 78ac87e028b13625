// Package redact keeps request-derived strings safe to log: candidate URLs
// arrive from untrusted callers and may embed credentials or control bytes.
package redact

import (
	"fmt"
	"log"
	"regexp"
	"strings"
)

// Matches the userinfo component of an http(s) URL, through the "@".
var userinfoRe = regexp.MustCompile(`(?i)(https?://)[^/?#@\s]+@`)

// Logf logs through the standard logger after sanitizing the formatted line.
func Logf(format string, args ...interface{}) {
	log.Printf("%s", Sanitize(fmt.Sprintf(format, args...)))
}

// Sanitize strips URL userinfo and replaces control characters so a crafted
// URL cannot leak credentials into the process log or forge log lines.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	out := userinfoRe.ReplaceAllString(s, "${1}[REDACTED]@")
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, out)
}
