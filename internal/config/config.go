package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config carries runtime options for procpulse.
type Config struct {
	APIURL         string        `yaml:"api_url"`
	OllamaURL      string        `yaml:"ollama_url"`
	Model          string        `yaml:"model"`
	Interval       time.Duration `yaml:"interval"`
	Timeout        time.Duration `yaml:"timeout"`
	Temperature    float64       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	NoticeTTL      time.Duration `yaml:"notice_ttl"`
	Seed           int64         `yaml:"seed"`
	LogFile        string        `yaml:"log_file"`
	LogLevel       string        `yaml:"log_level"`
	Serve          bool          `yaml:"serve"`
	Listen         string        `yaml:"listen"`
	SampleInterval time.Duration `yaml:"sample_interval"`

	// File is the YAML file the config was read from, if any.
	File string `yaml:"-"`
}

func Default() Config {
	return Config{
		APIURL:         "http://localhost:8080",
		OllamaURL:      "http://localhost:11434",
		Model:          "llama3",
		Interval:       10 * time.Second,
		Timeout:        5 * time.Second,
		Temperature:    0.7,
		MaxTokens:      500,
		NoticeTTL:      5 * time.Second,
		LogFile:        defaultLogFile(),
		LogLevel:       "info",
		Serve:          false,
		Listen:         ":8080",
		SampleInterval: 2 * time.Second,
	}
}

func defaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "procpulse.log"
	}
	return filepath.Join(dir, "procpulse", "procpulse.log")
}

// FromFlags builds the config: defaults, then the YAML file named by
// -config, then flags, then PROCPULSE_* environment overrides. A .env file
// in the working directory is loaded into the environment first.
func FromFlags(args []string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := configPath(args); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return cfg, err
		}
	}

	fs := flag.NewFlagSet("procpulse", flag.ContinueOnError)
	// Registered so Parse accepts it; configPath has already read the value.
	fs.String("config", cfg.File, "YAML config file")
	fs.StringVar(&cfg.APIURL, "api", cfg.APIURL, "process API base URL")
	fs.StringVar(&cfg.OllamaURL, "ollama", cfg.OllamaURL, "inference server base URL")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "model identifier for queries")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "refresh interval")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "process API request timeout")
	fs.Float64Var(&cfg.Temperature, "temperature", cfg.Temperature, "generation temperature")
	fs.IntVar(&cfg.MaxTokens, "max-tokens", cfg.MaxTokens, "maximum reply length in tokens")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "seed for synthetic data (0 = random)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file for the dashboard")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug|info|warn|error")
	fs.BoolVar(&cfg.Serve, "serve", cfg.Serve, "run the process API server instead of the dashboard")
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "listen address for -serve")
	fs.DurationVar(&cfg.SampleInterval, "sample-interval", cfg.SampleInterval, "sampling interval for -serve")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// configPath scans args for -config without consuming them.
func configPath(args []string) string {
	for i, a := range args {
		switch {
		case a == "-config" || a == "--config":
			if i+1 < len(args) {
				return args[i+1]
			}
		default:
			if v, ok := strings.CutPrefix(a, "-config="); ok {
				return v
			}
			if v, ok := strings.CutPrefix(a, "--config="); ok {
				return v
			}
		}
	}
	return os.Getenv("PROCPULSE_CONFIG")
}

// LoadFile merges a YAML file into c. A missing file is not an error.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	c.File = path
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PROCPULSE_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("PROCPULSE_OLLAMA_URL"); v != "" {
		c.OllamaURL = v
	}
	if v := os.Getenv("PROCPULSE_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("PROCPULSE_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			c.Interval = parsed
		} else if parsed, err2 := time.ParseDuration(v + "s"); err2 == nil {
			c.Interval = parsed
		}
	}
	if v := os.Getenv("PROCPULSE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PROCPULSE_SEED"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = parsed
		}
	}
}

// Validate checks URLs, durations and numeric ranges.
func (c Config) Validate() error {
	for name, raw := range map[string]string{"api": c.APIURL, "ollama": c.OllamaURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %v", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max-tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Serve && c.SampleInterval <= 0 {
		return fmt.Errorf("sample-interval must be positive, got %s", c.SampleInterval)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log-level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
