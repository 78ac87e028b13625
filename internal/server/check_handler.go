package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/phishguard/phishguard/internal/audit"
	"github.com/phishguard/phishguard/internal/features"
	"github.com/phishguard/phishguard/internal/reasons"
	"github.com/phishguard/phishguard/internal/redact"
	"github.com/phishguard/phishguard/internal/telemetry"
)

type checkRequest struct {
	URL string `json:"url"`
}

type probabilityPair struct {
	Class0 float64 `json:"class_0"`
	Class1 float64 `json:"class_1"`
}

// checkResponse is the full response payload: verdict, raw vector for
// transparency, optional class probabilities, and the findings.
type checkResponse struct {
	IsPhishing  bool             `json:"isPhishing"`
	Features    []int            `json:"features"`
	Probability *probabilityPair `json:"probability,omitempty"`
	Reasons     []string         `json:"reasons"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	requestID := newRequestID()
	w.Header().Set("X-Phishguard-Request-Id", requestID)

	ctx, span := s.tel.Tracer().Start(r.Context(), "phishguard.check",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(telemetry.SafeAttributes(map[string]interface{}{
			"phishguard.version":      version,
			"http.method":             r.Method,
			"http.route":              "/check_phishing",
			"phishguard.model_loaded": s.model != nil,
		})...),
	)
	defer span.End()

	if s.model == nil {
		writeError(w, http.StatusServiceUnavailable, "Model not loaded on server.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxRequestBodyBytes)
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isRequestTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid or missing JSON body")
		return
	}

	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "No URL provided")
		return
	}

	start := time.Now()
	vec := features.Extract(rawURL)

	inferenceStart := time.Now()
	pred, err := s.model.Predict(vec)
	inferenceDur := time.Since(inferenceStart)
	if err != nil {
		redact.Logf("check %s: inference failed: %v", requestID, err)
		writeError(w, http.StatusInternalServerError, "Failed to process URL")
		return
	}

	resp := checkResponse{
		IsPhishing: pred.Phishing,
		Features:   vec[:],
		Reasons:    reasons.Explain(vec, rawURL),
	}
	if pred.Probabilities != nil {
		resp.Probability = &probabilityPair{
			Class0: float64(pred.Probabilities[0]),
			Class1: float64(pred.Probabilities[1]),
		}
	}

	total := time.Since(start)
	verdict := audit.VerdictBenign
	if pred.Phishing {
		verdict = audit.VerdictPhishing
	}

	var proba []float32
	if pred.Probabilities != nil {
		proba = pred.Probabilities[:]
	}
	s.audit.Emit(ctx, audit.NewEvent(audit.EventParams{
		RequestID:   requestID,
		Verdict:     verdict,
		Features:    vec[:],
		Probability: proba,
		ReasonCount: len(resp.Reasons),
		Latency:     total,
		URL:         rawURL,
	}, s.auditLevel))

	s.tel.RecordCheckMetrics(string(verdict),
		float64(total)/float64(time.Millisecond),
		float64(inferenceDur)/float64(time.Millisecond),
		vec.PositiveCount(),
	)

	writeJSON(w, http.StatusOK, resp)
}

func isRequestTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
