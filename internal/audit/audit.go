// Package audit records one event per classification so operators can review
// verdicts after the fact. Delivery is asynchronous and best-effort: the
// request path never blocks on a sink.
package audit

import (
	"strings"
	"time"

	"github.com/phishguard/phishguard/internal/redact"
)

// EventVersion tags the event schema for downstream consumers.
const EventVersion = "1"

// Verdict is the outcome of one classification.
type Verdict string

const (
	VerdictPhishing Verdict = "phishing"
	VerdictBenign   Verdict = "benign"
)

// Level controls how much request-derived data an event carries.
type Level string

const (
	LevelOff      Level = "off"
	LevelMetadata Level = "metadata"
	LevelFull     Level = "full"
)

// ParseLevel normalizes a configured level, defaulting to metadata.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return LevelOff
	case "full":
		return LevelFull
	default:
		return LevelMetadata
	}
}

const previewLimit = 256

// Event is the canonical audit payload.
type Event struct {
	Version     string    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id"`
	Verdict     Verdict   `json:"verdict"`
	Indicators  int       `json:"indicators"`
	Features    []int     `json:"features,omitempty"`
	Probability []float32 `json:"probability,omitempty"`
	ReasonCount int       `json:"reason_count"`
	LatencyMs   float64   `json:"latency_ms"`
	// URLPreview is populated only at LevelFull, sanitized and truncated.
	URLPreview string `json:"url_preview,omitempty"`
}

// EventParams carries the raw material for one event.
type EventParams struct {
	RequestID   string
	Verdict     Verdict
	Features    []int
	Probability []float32
	ReasonCount int
	Latency     time.Duration
	URL         string
}

// NewEvent builds an event, gating request-derived fields by level.
func NewEvent(p EventParams, level Level) *Event {
	ev := &Event{
		Version:     EventVersion,
		Timestamp:   time.Now().UTC(),
		RequestID:   p.RequestID,
		Verdict:     p.Verdict,
		Features:    p.Features,
		Probability: p.Probability,
		ReasonCount: p.ReasonCount,
		LatencyMs:   float64(p.Latency) / float64(time.Millisecond),
	}
	for _, f := range p.Features {
		if f == 1 {
			ev.Indicators++
		}
	}
	if level == LevelFull {
		ev.URLPreview = truncate(redact.Sanitize(p.URL), previewLimit)
	}
	return ev
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
