package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds phishguard configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Model     ModelConfig     `yaml:"model"`
	Audit     AuditConfig     `yaml:"audit"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Addr                     string `yaml:"addr"`       // HTTP listen address, e.g. ":8080"
	StaticDir                string `yaml:"static_dir"` // frontend assets; index.html served at /
	MaxRequestBodyBytes      int64  `yaml:"max_request_body_bytes"`
	ReadHeaderTimeoutSeconds int    `yaml:"read_header_timeout_seconds"`
	ReadTimeoutSeconds       int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds      int    `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds       int    `yaml:"idle_timeout_seconds"`
}

type ModelConfig struct {
	// Dir holds the ONNX artifact, either flat or as version subdirs tracked
	// by state.json.
	Dir string `yaml:"dir"`
	// Require makes a missing/broken model a startup error instead of
	// degraded (503) serving.
	Require bool `yaml:"require"`
	// Probabilities binds the optional probabilities output of the graph.
	// Set false for models exported without one.
	Probabilities *bool `yaml:"probabilities"`
	// SharedLibraryPath overrides onnxruntime shared library discovery.
	SharedLibraryPath string `yaml:"shared_library_path"`
}

// ProbabilitiesEnabled defaults to true when the field is omitted.
func (m ModelConfig) ProbabilitiesEnabled() bool {
	return m.Probabilities == nil || *m.Probabilities
}

type AuditConfig struct {
	// Level controls how much of each verdict event is recorded:
	// off | metadata | full (full includes a truncated URL preview).
	Level     string            `yaml:"level"`
	QueueSize int               `yaml:"queue_size"`
	Workers   int               `yaml:"workers"`
	Sinks     []AuditSinkConfig `yaml:"sinks"`
}

type AuditSinkConfig struct {
	Type           string            `yaml:"type"` // file_jsonl | webhook
	Path           string            `yaml:"path"`
	URL            string            `yaml:"url"`
	Headers        map[string]string `yaml:"headers"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol"` // grpc | http
}

// Load reads configuration from a YAML file.
// If the file doesn't exist, it returns a default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = "static"
	}
	if cfg.Server.MaxRequestBodyBytes <= 0 {
		cfg.Server.MaxRequestBodyBytes = 64 * 1024
	}
	if cfg.Server.ReadHeaderTimeoutSeconds <= 0 {
		cfg.Server.ReadHeaderTimeoutSeconds = 5
	}
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = 10
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		cfg.Server.WriteTimeoutSeconds = 10
	}
	if cfg.Server.IdleTimeoutSeconds <= 0 {
		cfg.Server.IdleTimeoutSeconds = 60
	}

	if cfg.Model.Dir == "" {
		cfg.Model.Dir = "model"
	}

	if cfg.Audit.Level == "" {
		cfg.Audit.Level = "metadata"
	}
	if cfg.Audit.QueueSize <= 0 {
		cfg.Audit.QueueSize = 1000
	}
	if cfg.Audit.Workers <= 0 {
		cfg.Audit.Workers = 1
	}
}
