// Package config provides configuration management for the paperglass
// extraction engine and CLI. It supports loading configuration from YAML
// files with environment-variable overrides.
//
// The confidence weights, routing thresholds, and tolerances default to the
// values the engine was tuned with, but they are policy, not domain law:
// every one of them can be overridden per deployment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/paperglass/paperglass/pkg/logging"
)

// Default configuration values.
const (
	DefaultAcceptConfidence = 0.5
	DefaultAutoApprove      = 0.9
	DefaultManualReview     = 0.7
	DefaultConsistencyTol   = 0.05
	DefaultBackendTimeout   = 30 * time.Second
	DefaultOCRTimeout       = 2 * time.Minute
	DefaultOCRDPI           = 300
	DefaultWorkerCount      = 4
	DefaultDocumentQueue    = "paperglass:documents"
	DefaultDecisionQueue    = "paperglass:decisions"
	DefaultConfigFileEnv    = "PAPERGLASS_CONFIG"
)

// Weights are the confidence-calculator component weights. They must be
// non-negative and sum to a positive value; the calculator normalizes them.
type Weights struct {
	Extraction  float64 `yaml:"extraction"`
	Fields      float64 `yaml:"fields"`
	Template    float64 `yaml:"template"`
	Consistency float64 `yaml:"consistency"`
}

// Thresholds hold the routing and acceptance cutoffs.
type Thresholds struct {
	// AcceptConfidence is the minimum backend confidence the coordinator
	// accepts without falling through to the next backend.
	AcceptConfidence float64 `yaml:"accept_confidence"`
	// AutoApprove and ManualReview are the review-router cutoffs.
	AutoApprove  float64 `yaml:"auto_approve"`
	ManualReview float64 `yaml:"manual_review"`
	// ConsistencyTolerance is the relative tolerance for the line-item sum
	// vs subtotal check.
	ConsistencyTolerance float64 `yaml:"consistency_tolerance"`
}

// OCRConfig configures the external OCR toolchain.
type OCRConfig struct {
	Pdftotext string `yaml:"pdftotext"` // binary name or absolute path
	Pdftoppm  string `yaml:"pdftoppm"`
	Tesseract string `yaml:"tesseract"`
	Language  string `yaml:"language"`
	DPI       int    `yaml:"dpi"`
	MaxPages  int    `yaml:"max_pages"` // 0 = no limit
}

// ExtractionConfig configures the coordinator and its backends.
type ExtractionConfig struct {
	// BackendTimeout bounds each non-OCR backend call.
	BackendTimeout time.Duration `yaml:"backend_timeout"`
	// OCRTimeout bounds the OCR backend, which shells out and rasterizes.
	OCRTimeout time.Duration `yaml:"ocr_timeout"`
	OCR        OCRConfig     `yaml:"ocr"`
}

// RedisConfig holds queue connection settings.
type RedisConfig struct {
	Addr          string `yaml:"addr"`
	Password      string `yaml:"password,omitempty"`
	DB            int    `yaml:"db"`
	DocumentQueue string `yaml:"document_queue"`
	DecisionQueue string `yaml:"decision_queue"`
}

// PostgresConfig holds the duplicate-check database settings.
type PostgresConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

// WorkerConfig configures the document worker pool.
type WorkerConfig struct {
	Count           int           `yaml:"count"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Config is the root engine configuration.
type Config struct {
	Weights    Weights          `yaml:"weights"`
	Thresholds Thresholds       `yaml:"thresholds"`
	Extraction ExtractionConfig `yaml:"extraction"`
	// PatternFile and TemplateFile optionally extend the built-in rule set.
	PatternFile  string         `yaml:"pattern_file,omitempty"`
	TemplateFile string         `yaml:"template_file,omitempty"`
	Redis        RedisConfig    `yaml:"redis"`
	Postgres     PostgresConfig `yaml:"postgres"`
	Workers      WorkerConfig   `yaml:"workers"`
	Logging      logging.Config `yaml:"logging"`
}

// Default returns the engine configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Weights: Weights{
			Extraction:  0.3,
			Fields:      0.3,
			Template:    0.2,
			Consistency: 0.2,
		},
		Thresholds: Thresholds{
			AcceptConfidence:     DefaultAcceptConfidence,
			AutoApprove:          DefaultAutoApprove,
			ManualReview:         DefaultManualReview,
			ConsistencyTolerance: DefaultConsistencyTol,
		},
		Extraction: ExtractionConfig{
			BackendTimeout: DefaultBackendTimeout,
			OCRTimeout:     DefaultOCRTimeout,
			OCR: OCRConfig{
				Pdftotext: "pdftotext",
				Pdftoppm:  "pdftoppm",
				Tesseract: "tesseract",
				Language:  "eng",
				DPI:       DefaultOCRDPI,
			},
		},
		Redis: RedisConfig{
			Addr:          "localhost:6379",
			DocumentQueue: DefaultDocumentQueue,
			DecisionQueue: DefaultDecisionQueue,
		},
		Workers: WorkerConfig{
			Count:           DefaultWorkerCount,
			PollInterval:    time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: *logging.DefaultConfig(),
	}
}

// Load reads configuration from path (optional), then applies environment
// overrides, then validates. An empty path loads defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(DefaultConfigFileEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides layers PAPERGLASS_* environment variables over the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PAPERGLASS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PAPERGLASS_POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("PAPERGLASS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = logging.Level(v)
	}
	if v := os.Getenv("PAPERGLASS_AUTO_APPROVE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Thresholds.AutoApprove = f
		}
	}
	if v := os.Getenv("PAPERGLASS_MANUAL_REVIEW"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Thresholds.ManualReview = f
		}
	}
	if v := os.Getenv("PAPERGLASS_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers.Count = n
		}
	}
	if v := os.Getenv("PAPERGLASS_TESSERACT"); v != "" {
		cfg.Extraction.OCR.Tesseract = v
	}
}

// Validate checks cross-field invariants.
func (c *Config) Validate() error {
	w := c.Weights
	if w.Extraction < 0 || w.Fields < 0 || w.Template < 0 || w.Consistency < 0 {
		return fmt.Errorf("config: confidence weights must be non-negative")
	}
	if w.Extraction+w.Fields+w.Template+w.Consistency <= 0 {
		return fmt.Errorf("config: confidence weights must sum to a positive value")
	}

	t := c.Thresholds
	for name, v := range map[string]float64{
		"accept_confidence": t.AcceptConfidence,
		"auto_approve":      t.AutoApprove,
		"manual_review":     t.ManualReview,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("config: threshold %s must be in [0,1], got %v", name, v)
		}
	}
	if t.ManualReview > t.AutoApprove {
		return fmt.Errorf("config: manual_review threshold (%v) must not exceed auto_approve (%v)",
			t.ManualReview, t.AutoApprove)
	}
	if t.ConsistencyTolerance < 0 || t.ConsistencyTolerance >= 1 {
		return fmt.Errorf("config: consistency_tolerance must be in [0,1), got %v", t.ConsistencyTolerance)
	}

	if c.Extraction.BackendTimeout <= 0 || c.Extraction.OCRTimeout <= 0 {
		return fmt.Errorf("config: backend timeouts must be positive")
	}
	if c.Extraction.OCR.DPI <= 0 {
		return fmt.Errorf("config: ocr dpi must be positive")
	}
	if c.Workers.Count <= 0 {
		return fmt.Errorf("config: worker count must be positive")
	}
	return nil
}
