package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/phishguard/phishguard/internal/audit"
	"github.com/phishguard/phishguard/internal/classifier"
	"github.com/phishguard/phishguard/internal/config"
	"github.com/phishguard/phishguard/internal/redact"
	"github.com/phishguard/phishguard/internal/server"
	"github.com/phishguard/phishguard/internal/telemetry"
)

func main() {
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "phishguard.yaml", "Path to phishguard config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx := context.Background()

	tel, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:  cfg.Telemetry.Enabled,
		Endpoint: cfg.Telemetry.Endpoint,
		Protocol: cfg.Telemetry.Protocol,
		Service:  "phishguard",
		Version:  "0.1.0",
	})
	if err != nil {
		log.Fatalf("failed to set up telemetry: %v", err)
	}
	defer tel.Shutdown(ctx)

	model, mode := loadModel(cfg)

	emitter := buildAuditEmitter(cfg)
	if emitter != nil {
		defer emitter.Close(ctx)
	}

	// A typed nil must not end up inside the interface.
	var clf server.Classifier
	if model != nil {
		clf = model
	}
	srv := server.New(cfg, clf, emitter, tel)

	addr := cfg.Server.Addr
	if *addrFlag != "" {
		addr = *addrFlag
	}

	redact.Logf("Starting phishguard on %s (model=%s)...", addr, mode)
	if err := srv.Start(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func loadModel(cfg *config.Config) (*classifier.Model, string) {
	dir, err := classifier.ResolveActiveDir(cfg.Model.Dir)
	if err == nil {
		err = classifier.VerifyIntegrity(dir)
	}
	var model *classifier.Model
	if err == nil {
		model, err = classifier.Load(dir, classifier.Options{
			Probabilities:     cfg.Model.ProbabilitiesEnabled(),
			SharedLibraryPath: cfg.Model.SharedLibraryPath,
		})
	}

	mode, decideErr := classifier.DecideStartup(err, cfg.Model.Require)
	if decideErr != nil {
		log.Fatalf("%v", decideErr)
	}
	if mode == "degraded" {
		redact.Logf("model unavailable (%v); predictions disabled until one is installed", err)
		return nil, mode
	}
	redact.Logf("Loaded model from %s", dir)
	return model, mode
}

func buildAuditEmitter(cfg *config.Config) *audit.Emitter {
	if audit.ParseLevel(cfg.Audit.Level) == audit.LevelOff {
		return nil
	}
	var sinks []audit.Sink
	for _, sc := range cfg.Audit.Sinks {
		switch strings.ToLower(strings.TrimSpace(sc.Type)) {
		case "file_jsonl":
			s, err := audit.NewFileSink(sc.Path)
			if err != nil {
				log.Fatalf("audit file sink: %v", err)
			}
			sinks = append(sinks, s)
		case "webhook":
			s, err := audit.NewWebhookSink(sc.URL, sc.Headers, time.Duration(sc.TimeoutSeconds)*time.Second)
			if err != nil {
				log.Fatalf("audit webhook sink: %v", err)
			}
			sinks = append(sinks, s)
		}
	}
	if len(sinks) == 0 {
		return nil
	}
	return audit.NewEmitter(audit.EmitterConfig{
		QueueSize: cfg.Audit.QueueSize,
		Workers:   cfg.Audit.Workers,
	}, sinks)
}
