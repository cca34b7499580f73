package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PROCPULSE_CONFIG", "PROCPULSE_API_URL", "PROCPULSE_OLLAMA_URL", "PROCPULSE_MODEL",
		"PROCPULSE_INTERVAL", "PROCPULSE_LOG_LEVEL", "PROCPULSE_SEED",
	} {
		t.Setenv(k, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Interval != 10*time.Second {
		t.Errorf("expected Interval=10s, got %s", cfg.Interval)
	}
	if cfg.APIURL != "http://localhost:8080" {
		t.Errorf("expected APIURL=http://localhost:8080, got %s", cfg.APIURL)
	}
	if cfg.OllamaURL != "http://localhost:11434" {
		t.Errorf("expected OllamaURL=http://localhost:11434, got %s", cfg.OllamaURL)
	}
	if cfg.LogFile == "" {
		t.Error("expected LogFile to be set")
	}
	if cfg.Serve {
		t.Error("expected Serve to be false by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestFromFlags(t *testing.T) {
	clearEnv(t)

	cfg, err := FromFlags([]string{
		"-api", "http://10.0.0.5:5000", "-interval", "3s", "-model", "mistral",
		"-max-tokens", "64", "-serve", "-listen", ":9000",
	})
	if err != nil {
		t.Fatalf("FromFlags: %v", err)
	}
	if cfg.APIURL != "http://10.0.0.5:5000" {
		t.Errorf("APIURL = %s", cfg.APIURL)
	}
	if cfg.Interval != 3*time.Second {
		t.Errorf("Interval = %s", cfg.Interval)
	}
	if cfg.Model != "mistral" || cfg.MaxTokens != 64 {
		t.Errorf("Model/MaxTokens = %s/%d", cfg.Model, cfg.MaxTokens)
	}
	if !cfg.Serve || cfg.Listen != ":9000" {
		t.Errorf("Serve/Listen = %v/%s", cfg.Serve, cfg.Listen)
	}
}

func TestFromFlags_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROCPULSE_API_URL", "http://api.internal:7000")
	t.Setenv("PROCPULSE_INTERVAL", "30")
	t.Setenv("PROCPULSE_SEED", "1234")

	cfg, err := FromFlags([]string{"-api", "http://ignored:1"})
	if err != nil {
		t.Fatalf("FromFlags: %v", err)
	}
	if cfg.APIURL != "http://api.internal:7000" {
		t.Errorf("env should win over flags, got %s", cfg.APIURL)
	}
	if cfg.Interval != 30*time.Second {
		t.Errorf("bare seconds should parse, got %s", cfg.Interval)
	}
	if cfg.Seed != 1234 {
		t.Errorf("Seed = %d", cfg.Seed)
	}
}

func TestFromFlags_YAMLFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "procpulse.yaml")
	content := "api_url: http://yaml-host:8000\ninterval: 15s\nmodel: phi3\ntemperature: 0.1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := FromFlags([]string{"-config", path, "-model", "qwen2"})
	if err != nil {
		t.Fatalf("FromFlags: %v", err)
	}
	if cfg.APIURL != "http://yaml-host:8000" {
		t.Errorf("APIURL = %s", cfg.APIURL)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("Interval = %s", cfg.Interval)
	}
	if cfg.Model != "qwen2" {
		t.Errorf("flags should win over the file, got %s", cfg.Model)
	}
	if cfg.Temperature != 0.1 {
		t.Errorf("Temperature = %v", cfg.Temperature)
	}
	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}
}

func TestLoadFile(t *testing.T) {
	cfg := Default()
	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}
	if cfg.File != "" {
		t.Errorf("File should stay empty, got %q", cfg.File)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("interval: [not a duration"), 0o644)
	if err := cfg.LoadFile(bad); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"relative api", func(c *Config) { c.APIURL = "localhost:8080" }, "api must be an absolute URL"},
		{"bad ollama", func(c *Config) { c.OllamaURL = "" }, "ollama must be an absolute URL"},
		{"zero interval", func(c *Config) { c.Interval = 0 }, "interval must be positive"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout must be positive"},
		{"hot temperature", func(c *Config) { c.Temperature = 3 }, "temperature"},
		{"no tokens", func(c *Config) { c.MaxTokens = 0 }, "max-tokens"},
		{"serve without sampling", func(c *Config) { c.Serve = true; c.SampleInterval = 0 }, "sample-interval"},
		{"log level", func(c *Config) { c.LogLevel = "verbose" }, "log-level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for name, want := range tests {
		cfg := Default()
		cfg.LogLevel = name
		if got := cfg.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", name, got, want)
		}
	}
}
