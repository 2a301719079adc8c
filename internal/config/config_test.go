package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"LISTEN_ADDR", "GATEWAY_PATH", "ALLOWED_ORIGINS", "DEPLOY_ENV", "VERCEL_ENV",
	"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL", "UPSTREAM_PROXY_URL",
	"REQUEST_TIMEOUT", "MAX_BODY_BYTES", "MAX_PROMPT_CHARS", "LOG_LEVEL", "LOG_FORMAT",
	"A2A_ENABLED", "A2A_PORT", "AGENT_NAME", "AGENT_DESC",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Load(\"\") = %+v, want defaults", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	if cfg.AllowedOrigins[0] != "https://nutricris.lat" {
		t.Errorf("fallback origin = %q, want the production site", cfg.AllowedOrigins[0])
	}
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "  secret  ")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("VERCEL_ENV", "preview")
	t.Setenv("REQUEST_TIMEOUT", "15s")
	t.Setenv("MAX_PROMPT_CHARS", "100")
	t.Setenv("A2A_ENABLED", "yes")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "secret" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.Environment != "preview" {
		t.Errorf("Environment = %q", cfg.Environment)
	}
	if cfg.RequestTimeout != 15*time.Second || cfg.MaxPromptChars != 100 || !cfg.A2AEnabled {
		t.Errorf("cfg = %+v", cfg)
	}

	t.Setenv("DEPLOY_ENV", "production")
	cfg, _ = Load("")
	if cfg.Environment != "production" {
		t.Errorf("DEPLOY_ENV should win over VERCEL_ENV, got %q", cfg.Environment)
	}
}

func TestLoad_BadTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("REQUEST_TIMEOUT", "soon")
	if _, err := Load(""); err == nil {
		t.Error("expected error")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "gateway.toml", `
listen_addr = ":9090"
allowed_origins = ["https://nutricris.lat", "https://www.nutricris.lat"]
environment = "staging"

[gemini]
model = "gemini-2.0-flash"
request_timeout = "30s"

[limits]
max_body_bytes = 4096

[log]
format = "text"

[a2a]
enabled = true
port = 9100
`)
	t.Setenv("GEMINI_MODEL", "gemini-1.5-pro")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.Environment != "staging" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.AllowedOrigins[0] != "https://nutricris.lat" || len(cfg.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.Model != "gemini-1.5-pro" {
		t.Errorf("env should override file, Model = %q", cfg.Model)
	}
	if cfg.RequestTimeout != 30*time.Second || cfg.MaxBodyBytes != 4096 || cfg.LogFormat != "text" {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.A2AEnabled || cfg.A2APort != 9100 {
		t.Errorf("a2a = %v %d", cfg.A2AEnabled, cfg.A2APort)
	}
	if cfg.MaxPromptChars != DefaultMaxPromptChars {
		t.Errorf("unset field changed: %d", cfg.MaxPromptChars)
	}
}

func TestLoad_FileErrors(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeFile(t, "bad.toml", "listen_addr = ")); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Load(writeFile(t, "dur.toml", "[gemini]\nrequest_timeout = \"forever\"\n")); err == nil {
		t.Error("expected duration error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.AllowedOrigins = []string{" "}
	cfg.Path = "api"
	cfg.RequestTimeout = 0
	cfg.MaxBodyBytes = -1
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"allowed origins", "path", "timeout", "body"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, ".env", "GEMINI_MODEL=gemini-from-dotenv\nLOG_LEVEL=debug\n")
	t.Setenv("LOG_LEVEL", "warn")
	// godotenv skips variables that exist at all, even when empty.
	os.Unsetenv("GEMINI_MODEL")

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "gemini-from-dotenv" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("existing env must not be overridden, LogLevel = %q", cfg.LogLevel)
	}
}

func TestSplitList(t *testing.T) {
	if got := SplitList(" a ,b,,c "); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("SplitList = %v", got)
	}
	if got := SplitList(""); got != nil {
		t.Errorf("SplitList(\"\") = %v", got)
	}
}
