package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdirTemp moves the test into a fresh directory and optionally writes a
// config.yaml there.
func chdirTemp(t *testing.T, yamlContent string) string {
	t.Helper()
	tmpDir := t.TempDir()

	if yamlContent != "" {
		configPath := filepath.Join(tmpDir, DefaultConfigPath)
		if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
	}

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})

	// Clear env vars that might interfere with tests
	for _, key := range []string{"PORT", "ENVIRONMENT", "BASE_URL", "UPLOAD_DIR", "OUTPUT_DIR",
		"LLM_PROVIDER", "LLM_MODEL", "LLM_API_KEY", "RENDER_TIMEOUT", "TLS_CERT_PATH", "TLS_KEY_PATH"} {
		os.Unsetenv(key)
	}
	return tmpDir
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	chdirTemp(t, `
port: "5001"
env: "test"
storage:
  upload_dir: "data/in"
llm:
  model: "gpt-4o-mini"
  provider: "openai"
`)

	t.Setenv("PORT", "4443")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LLM_API_KEY", "secret-from-env")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "4443" {
		t.Errorf("expected Port=4443 (from env), got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Env)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
	if cfg.BaseURL != "http://localhost:4443" {
		t.Errorf("expected BaseURL=http://localhost:4443 (auto-derived from PORT), got %s", cfg.BaseURL)
	}
	if cfg.Storage.UploadDir != "data/in" {
		t.Errorf("expected Storage.UploadDir=data/in (from yaml), got %s", cfg.Storage.UploadDir)
	}
	if cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.Provider != "openai" {
		t.Errorf("expected openai/gpt-4o-mini (from yaml), got %s/%s", cfg.LLM.Provider, cfg.LLM.Model)
	}
	if cfg.LLM.APIKey != "secret-from-env" {
		t.Errorf("expected LLM.APIKey from env, got %q", cfg.LLM.APIKey)
	}
}

func TestLoad_APIKeyIgnoredInYAML(t *testing.T) {
	chdirTemp(t, `
llm:
  api_key: "should-not-load"
`)

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("expected empty LLM.APIKey, got %q", cfg.LLM.APIKey)
	}
}

func TestLoad_MissingConfigFileUsesEnv(t *testing.T) {
	chdirTemp(t, "")
	t.Setenv("PORT", "6000")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed without config.yaml: %v", err)
	}
	if cfg.Port != "6000" {
		t.Errorf("expected Port=6000 (from env), got %s", cfg.Port)
	}
	if cfg.Storage.OutputDir != "static" {
		t.Errorf("expected default OutputDir=static, got %s", cfg.Storage.OutputDir)
	}
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t, "")

	cfg, err := Load("v")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "5000" {
		t.Errorf("expected Port=5000, got %s", cfg.Port)
	}
	if cfg.Storage.UploadDir != "uploads" {
		t.Errorf("expected UploadDir=uploads, got %s", cfg.Storage.UploadDir)
	}
	if cfg.Storage.MaxUploadBytes() != 32<<20 {
		t.Errorf("expected 32MB upload limit, got %d", cfg.Storage.MaxUploadBytes())
	}
	if cfg.Inference.IncludeEmptyTables {
		t.Error("expected IncludeEmptyTables=false")
	}
	if cfg.Inference.ExtractionWorkers != 4 {
		t.Errorf("expected ExtractionWorkers=4, got %d", cfg.Inference.ExtractionWorkers)
	}
	if cfg.Render.DotBinary != "dot" || cfg.Render.Format != "png" {
		t.Errorf("expected dot/png, got %s/%s", cfg.Render.DotBinary, cfg.Render.Format)
	}
	if cfg.Render.Timeout != 30*time.Second {
		t.Errorf("expected Render.Timeout=30s, got %s", cfg.Render.Timeout)
	}
	if cfg.LLM.Provider != "gemini" || cfg.LLM.Model != "gemini-1.5-flash" {
		t.Errorf("expected gemini/gemini-1.5-flash, got %s/%s", cfg.LLM.Provider, cfg.LLM.Model)
	}
	if cfg.LLM.SourceDialect != "Tableau" || cfg.LLM.TargetDialect != "DAX" {
		t.Errorf("expected Tableau -> DAX, got %s -> %s", cfg.LLM.SourceDialect, cfg.LLM.TargetDialect)
	}
	if !cfg.MCP.Enabled {
		t.Error("expected MCP enabled by default")
	}
}

func TestLoad_DurationsFromYAMLAndEnv(t *testing.T) {
	chdirTemp(t, `
render:
  timeout: "45s"
llm:
  timeout: "2m"
`)
	t.Setenv("RENDER_TIMEOUT", "5s")

	cfg, err := Load("v")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Render.Timeout != 5*time.Second {
		t.Errorf("expected Render.Timeout=5s (from env), got %s", cfg.Render.Timeout)
	}
	if cfg.LLM.Timeout != 2*time.Minute {
		t.Errorf("expected LLM.Timeout=2m (from yaml), got %s", cfg.LLM.Timeout)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative workers", "inference:\n  extraction_workers: -1\n"},
		{"zero upload limit", "storage:\n  max_upload_mb: 0\n"},
		{"negative retries", "llm:\n  max_retries: -2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t, tt.yaml)
			if _, err := Load("v"); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := chdirTemp(t, "")
	path := filepath.Join(tmpDir, "erd.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  output_dir: \"diagrams\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(path, "cli")
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}
	if cfg.Storage.OutputDir != "diagrams" {
		t.Errorf("expected OutputDir=diagrams, got %s", cfg.Storage.OutputDir)
	}

	if _, err := LoadFromFile(filepath.Join(tmpDir, "missing.yaml"), "cli"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_BaseURLExplicit(t *testing.T) {
	chdirTemp(t, `base_url: "http://my-server.internal:8080"`)

	cfg, err := Load("v")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.BaseURL != "http://my-server.internal:8080" {
		t.Errorf("expected explicit BaseURL, got %s", cfg.BaseURL)
	}
}

// TLS Configuration Tests

func TestValidateTLS_BothProvided(t *testing.T) {
	tmpDir := t.TempDir()
	certPath := filepath.Join(tmpDir, "test-cert.pem")
	keyPath := filepath.Join(tmpDir, "test-key.pem")

	if err := os.WriteFile(certPath, []byte("fake-cert-content"), 0644); err != nil {
		t.Fatalf("failed to write test cert: %v", err)
	}
	if err := os.WriteFile(keyPath, []byte("fake-key-content"), 0644); err != nil {
		t.Fatalf("failed to write test key: %v", err)
	}

	chdirTemp(t, fmt.Sprintf("port: \"3443\"\ntls_cert_path: %q\ntls_key_path: %q\n", certPath, keyPath))

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.TLSCertPath != certPath {
		t.Errorf("expected TLSCertPath=%s, got %s", certPath, cfg.TLSCertPath)
	}
	if cfg.BaseURL != "https://localhost:3443" {
		t.Errorf("expected https BaseURL with TLS, got %s", cfg.BaseURL)
	}
}

func TestValidateTLS_OnlyCertProvided(t *testing.T) {
	cfg := &Config{TLSCertPath: "/tmp/cert.pem"}
	if err := cfg.validateTLS(); err == nil {
		t.Error("expected error when only cert is provided")
	}
}

func TestValidateTLS_CertFileNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	keyPath := filepath.Join(tmpDir, "key.pem")
	if err := os.WriteFile(keyPath, []byte("k"), 0644); err != nil {
		t.Fatalf("failed to write key: %v", err)
	}

	cfg := &Config{TLSCertPath: filepath.Join(tmpDir, "missing.pem"), TLSKeyPath: keyPath}
	if err := cfg.validateTLS(); err == nil {
		t.Error("expected error for missing cert file")
	}
}
