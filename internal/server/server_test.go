package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phishguard/phishguard/internal/classifier"
	"github.com/phishguard/phishguard/internal/config"
	"github.com/phishguard/phishguard/internal/features"
)

type stubClassifier struct {
	pred classifier.Prediction
	err  error
	last features.Vector
}

func (s *stubClassifier) Predict(v features.Vector) (classifier.Prediction, error) {
	s.last = v
	return s.pred, s.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	return cfg
}

func newTestServer(t *testing.T, model Classifier) *Server {
	t.Helper()
	return New(testConfig(t), model, nil, nil)
}

func postCheck(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/check_phishing", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeCheck(t *testing.T, rec *httptest.ResponseRecorder) checkResponse {
	t.Helper()
	var resp checkResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestCheckPhishingVerdict(t *testing.T) {
	model := &stubClassifier{pred: classifier.Prediction{
		Phishing:      true,
		Probabilities: &[2]float32{0.12, 0.88},
	}}
	s := newTestServer(t, model)

	rec := postCheck(t, s, `{"url":"http://192.168.1.1//login?user=x"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Phishguard-Request-Id") == "" {
		t.Errorf("missing request id header")
	}

	resp := decodeCheck(t, rec)
	if !resp.IsPhishing {
		t.Errorf("isPhishing = false, want true")
	}
	if len(resp.Features) != features.Len {
		t.Errorf("features length = %d, want %d", len(resp.Features), features.Len)
	}
	if resp.Probability == nil {
		t.Fatalf("probability pair missing")
	}
	if resp.Probability.Class0 != 0.12 || resp.Probability.Class1 != 0.88 {
		t.Errorf("probability = %+v", resp.Probability)
	}
	if len(resp.Reasons) == 0 {
		t.Errorf("reasons empty")
	}
	if !strings.HasPrefix(resp.Reasons[len(resp.Reasons)-1], "Detected ") {
		t.Errorf("last reason = %q, want summary line", resp.Reasons[len(resp.Reasons)-1])
	}
	if model.last != features.Extract("http://192.168.1.1//login?user=x") {
		t.Errorf("model saw vector %v", model.last)
	}
}

func TestCheckBenignOmitsProbabilityWhenUnavailable(t *testing.T) {
	s := newTestServer(t, &stubClassifier{pred: classifier.Prediction{Phishing: false}})

	rec := postCheck(t, s, `{"url":"https://example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "probability") {
		t.Errorf("probability should be omitted: %s", rec.Body)
	}
	resp := decodeCheck(t, rec)
	if resp.IsPhishing {
		t.Errorf("isPhishing = true, want false")
	}
}

func TestCheckRejectsNonPost(t *testing.T) {
	s := newTestServer(t, &stubClassifier{})
	req := httptest.NewRequest(http.MethodGet, "/check_phishing", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestCheckWithoutModelReturns503(t *testing.T) {
	s := newTestServer(t, nil)
	rec := postCheck(t, s, `{"url":"http://example.com"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Model not loaded on server.") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestCheckBadBodies(t *testing.T) {
	s := newTestServer(t, &stubClassifier{})
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "url=http://example.com"},
		{"missing url key", `{"link":"http://example.com"}`},
		{"blank url", `{"url":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postCheck(t, s, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body=%s)", rec.Code, rec.Body)
			}
		})
	}
}

func TestCheckBodyTooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MaxRequestBodyBytes = 32
	s := New(cfg, &stubClassifier{}, nil, nil)

	body := `{"url":"http://example.com/` + strings.Repeat("a", 200) + `"}`
	rec := postCheck(t, s, body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestCheckInferenceFailure(t *testing.T) {
	s := newTestServer(t, &stubClassifier{err: errors.New("session exploded")})
	rec := postCheck(t, s, `{"url":"http://example.com"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Failed to process URL") {
		t.Errorf("body = %s", rec.Body)
	}
	if strings.Contains(rec.Body.String(), "session exploded") {
		t.Errorf("internal error detail leaked: %s", rec.Body)
	}
}

func TestHealthz(t *testing.T) {
	for _, tt := range []struct {
		model Classifier
		want  bool
	}{
		{&stubClassifier{}, true},
		{nil, false},
	} {
		s := newTestServer(t, tt.model)
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var body struct {
			Status      string `json:"status"`
			Version     string `json:"version"`
			ModelLoaded bool   `json:"model_loaded"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Status != "ok" || body.Version != version {
			t.Errorf("body = %+v", body)
		}
		if body.ModelLoaded != tt.want {
			t.Errorf("model_loaded = %v, want %v", body.ModelLoaded, tt.want)
		}
	}
}

func TestIndexFallbackPage(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "Phishing detection API") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestIndexServesStaticFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.StaticDir = t.TempDir()
	page := "<html><body>custom frontend</body></html>"
	if err := os.WriteFile(filepath.Join(cfg.Server.StaticDir, "index.html"), []byte(page), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	s := New(cfg, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "custom frontend") {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestUnknownPath404(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
