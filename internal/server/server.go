// Package server exposes the classification core over HTTP. Transport only:
// all decision logic lives in features, reasons, and classifier.
package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/phishguard/phishguard/internal/audit"
	"github.com/phishguard/phishguard/internal/classifier"
	"github.com/phishguard/phishguard/internal/config"
	"github.com/phishguard/phishguard/internal/features"
	"github.com/phishguard/phishguard/internal/telemetry"
)

const version = "0.1.0"

// Classifier is the narrow view of the model the handlers need; the real
// implementation is *classifier.Model, tests substitute stubs.
type Classifier interface {
	Predict(features.Vector) (classifier.Prediction, error)
}

// Server wraps the HTTP surface of phishguard.
type Server struct {
	mux        *http.ServeMux
	cfg        *config.Config
	model      Classifier // nil while no model is loaded
	audit      *audit.Emitter
	auditLevel audit.Level
	tel        *telemetry.Provider
}

// New builds the server. model may be nil (degraded mode: health and static
// serving work, classification returns 503). emitter and tel may be nil.
func New(cfg *config.Config, model Classifier, emitter *audit.Emitter, tel *telemetry.Provider) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		cfg:        cfg,
		model:      model,
		audit:      emitter,
		auditLevel: audit.ParseLevel(cfg.Audit.Level),
		tel:        tel,
	}

	s.mux.HandleFunc("/check_phishing", s.handleCheck)
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/", s.handleIndex)

	return s
}

// Handler exposes the mux for embedding and tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: time.Duration(s.cfg.Server.ReadHeaderTimeoutSeconds) * time.Second,
		ReadTimeout:       time.Duration(s.cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Server.IdleTimeoutSeconds) * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"version":      version,
		"model_loaded": s.model != nil,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	index := filepath.Join(s.cfg.Server.StaticDir, "index.html")
	if _, err := os.Stat(index); err == nil {
		http.ServeFile(w, r, index)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<h3>Phishing detection API</h3><p>Place a frontend in the <code>static/</code> folder, or POST to /check_phishing.</p>"))
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func newRequestID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return hex.EncodeToString(buf[:])
	}
	return hex.EncodeToString(buf[:])
}
