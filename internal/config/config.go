package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultListenAddr     = ":8080"
	DefaultPath           = "/api/gemini-proxy"
	DefaultModel          = "gemini-2.5-flash-preview-05-20"
	DefaultBaseURL        = "https://generativelanguage.googleapis.com"
	DefaultRequestTimeout = 60 * time.Second
	DefaultMaxBodyBytes   = 1 << 20
	DefaultMaxPromptChars = 8000
	DefaultA2APort        = 8000
)

// DefaultAllowedOrigins is the built-in allow-list. The first entry is the
// fallback origin; the localhost entry serves local frontend development.
func DefaultAllowedOrigins() []string {
	return []string{
		"https://nutricris.lat",
		"https://www.nutricris.lat",
		"http://localhost:5500",
	}
}

type Config struct {
	ListenAddr string
	// Path is the single gateway endpoint.
	Path string
	// AllowedOrigins is the CORS allow-list; the first entry is the fallback.
	AllowedOrigins []string
	// Environment is the deployment label shown by the liveness probe.
	Environment string

	// APIKey is only ever read from the environment.
	APIKey         string
	Model          string
	BaseURL        string
	ProxyURL       string
	RequestTimeout time.Duration

	MaxBodyBytes   int64
	MaxPromptChars int

	LogLevel  string
	LogFormat string

	// A2A
	A2AEnabled bool
	A2APort    int
	AgentName  string
	AgentDesc  string
}

// Default returns a Config with built-in defaults only.
func Default() *Config {
	return &Config{
		ListenAddr:     DefaultListenAddr,
		Path:           DefaultPath,
		AllowedOrigins: DefaultAllowedOrigins(),
		Model:          DefaultModel,
		BaseURL:        DefaultBaseURL,
		RequestTimeout: DefaultRequestTimeout,
		MaxBodyBytes:   DefaultMaxBodyBytes,
		MaxPromptChars: DefaultMaxPromptChars,
		LogLevel:       "info",
		LogFormat:      "json",
		A2APort:        DefaultA2APort,
		AgentName:      "gemini-gateway",
		AgentDesc:      "Gemini-backed single-shot agent exposed via A2A protocol",
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none
// are given) without overriding variables already set. Missing files are
// ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds a Config from defaults, then the TOML file at path (skipped
// when path is empty), then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot run without. A missing
// APIKey is not an error here; POST requests report it instead.
func (c *Config) Validate() error {
	var errs []error
	if len(nonBlank(c.AllowedOrigins)) == 0 {
		errs = append(errs, errors.New("allowed origins must not be empty"))
	}
	if !strings.HasPrefix(c.Path, "/") {
		errs = append(errs, fmt.Errorf("path %q must start with /", c.Path))
	}
	if c.Model == "" {
		errs = append(errs, errors.New("model must not be empty"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("max body bytes must be positive"))
	}
	if c.MaxPromptChars <= 0 {
		errs = append(errs, errors.New("max prompt chars must be positive"))
	}
	if c.A2AEnabled && (c.A2APort <= 0 || c.A2APort > 65535) {
		errs = append(errs, fmt.Errorf("a2a port %d out of range", c.A2APort))
	}
	return errors.Join(errs...)
}

func applyEnv(cfg *Config) error {
	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.Path = getEnv("GATEWAY_PATH", cfg.Path)
	if v := getEnv("ALLOWED_ORIGINS", ""); v != "" {
		cfg.AllowedOrigins = SplitList(v)
	}
	cfg.Environment = getEnv("DEPLOY_ENV", getEnv("VERCEL_ENV", cfg.Environment))

	cfg.APIKey = strings.TrimSpace(getEnv("GEMINI_API_KEY", ""))
	cfg.Model = getEnv("GEMINI_MODEL", cfg.Model)
	cfg.BaseURL = getEnv("GEMINI_BASE_URL", cfg.BaseURL)
	cfg.ProxyURL = getEnv("UPSTREAM_PROXY_URL", cfg.ProxyURL)

	if v := getEnv("REQUEST_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}
	cfg.MaxBodyBytes = int64(getEnvInt("MAX_BODY_BYTES", int(cfg.MaxBodyBytes)))
	cfg.MaxPromptChars = getEnvInt("MAX_PROMPT_CHARS", cfg.MaxPromptChars)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	cfg.A2AEnabled = getEnvBool("A2A_ENABLED", cfg.A2AEnabled)
	cfg.A2APort = getEnvInt("A2A_PORT", cfg.A2APort)
	cfg.AgentName = getEnv("AGENT_NAME", cfg.AgentName)
	cfg.AgentDesc = getEnv("AGENT_DESC", cfg.AgentDesc)
	return nil
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	return nonBlank(strings.Split(s, ","))
}

func nonBlank(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
