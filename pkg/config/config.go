package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultConfigPath is read by Load when present.
const DefaultConfigPath = "config.yaml"

// Config holds all configuration for ekaya-erd.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"5000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:""`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	Storage   StorageConfig   `yaml:"storage"`
	Inference InferenceConfig `yaml:"inference"`
	Render    RenderConfig    `yaml:"render"`
	LLM       LLMConfig       `yaml:"llm"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// StorageConfig holds the workspace directories.
type StorageConfig struct {
	UploadDir   string `yaml:"upload_dir" env:"UPLOAD_DIR" env-default:"uploads"`
	OutputDir   string `yaml:"output_dir" env:"OUTPUT_DIR" env-default:"static"`
	MaxUploadMB int64  `yaml:"max_upload_mb" env:"MAX_UPLOAD_MB" env-default:"32"`
}

// MaxUploadBytes returns the upload limit in bytes.
func (s *StorageConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

// InferenceConfig tunes candidate-key extraction.
type InferenceConfig struct {
	// IncludeEmptyTables accepts vacuous uniqueness keys on zero-row tables.
	IncludeEmptyTables bool `yaml:"include_empty_tables" env:"INFERENCE_INCLUDE_EMPTY_TABLES" env-default:"false"`
	// ExtractionWorkers bounds per-table key extraction concurrency.
	ExtractionWorkers int `yaml:"extraction_workers" env:"INFERENCE_EXTRACTION_WORKERS" env-default:"4"`
	// MaxSampleRows caps rows read per database table. Zero reads all rows.
	MaxSampleRows int `yaml:"max_sample_rows" env:"INFERENCE_MAX_SAMPLE_ROWS" env-default:"10000"`
}

// RenderConfig configures the Graphviz renderer.
type RenderConfig struct {
	DotBinary string        `yaml:"dot_binary" env:"RENDER_DOT_BINARY" env-default:"dot"`
	Format    string        `yaml:"format" env:"RENDER_FORMAT" env-default:"png"`
	Timeout   time.Duration `yaml:"timeout" env:"RENDER_TIMEOUT" env-default:"30s"`
}

// LLMConfig configures the expression conversion model.
type LLMConfig struct {
	Provider    string        `yaml:"provider" env:"LLM_PROVIDER" env-default:"gemini"`
	BaseURL     string        `yaml:"base_url" env:"LLM_BASE_URL" env-default:""`
	Model       string        `yaml:"model" env:"LLM_MODEL" env-default:"gemini-1.5-flash"`
	APIKey      string        `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	MaxTokens   int           `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"1024"`
	Timeout     time.Duration `yaml:"timeout" env:"LLM_TIMEOUT" env-default:"60s"`
	MaxRetries  int           `yaml:"max_retries" env:"LLM_MAX_RETRIES" env-default:"3"`
	Temperature float64       `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0"`

	SourceDialect string `yaml:"source_dialect" env:"LLM_SOURCE_DIALECT" env-default:"Tableau"`
	TargetDialect string `yaml:"target_dialect" env:"LLM_TARGET_DIALECT" env-default:"DAX"`
}

// IsAvailable returns true if a model is configured.
func (c *LLMConfig) IsAvailable() bool {
	return c.Model != ""
}

// MCPConfig toggles the MCP endpoint.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. Without a config.yaml, configuration comes from the environment
// and defaults alone. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	if _, err := os.Stat(DefaultConfigPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", DefaultConfigPath, err)
		}
		cfg := &Config{Version: version}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
		return cfg.finish()
	}
	return LoadFromFile(DefaultConfigPath, version)
}

// LoadFromFile reads configuration from the given YAML file with environment
// variable overrides. The file must exist.
func LoadFromFile(path, version string) (*Config, error) {
	cfg := &Config{Version: version}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return cfg.finish()
}

func (c *Config) finish() (*Config, error) {
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	// Use HTTPS scheme if TLS is configured
	if c.BaseURL == "" {
		scheme := "http"
		if c.TLSCertPath != "" {
			scheme = "https"
		}
		c.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + c.Port,
		}).String()
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.Storage.UploadDir == "" || c.Storage.OutputDir == "" {
		return fmt.Errorf("storage.upload_dir and storage.output_dir are required")
	}
	if c.Storage.MaxUploadMB <= 0 {
		return fmt.Errorf("storage.max_upload_mb must be positive, got %d", c.Storage.MaxUploadMB)
	}
	if c.Inference.ExtractionWorkers < 0 {
		return fmt.Errorf("inference.extraction_workers must not be negative, got %d", c.Inference.ExtractionWorkers)
	}
	if c.Inference.MaxSampleRows < 0 {
		return fmt.Errorf("inference.max_sample_rows must not be negative, got %d", c.Inference.MaxSampleRows)
	}
	if c.Render.Timeout <= 0 {
		return fmt.Errorf("render.timeout must be positive")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must not be negative, got %d", c.LLM.MaxRetries)
	}
	return nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist and be readable.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	// Both must be provided together or both empty
	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}
