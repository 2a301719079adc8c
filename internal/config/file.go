package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig is the on-disk TOML layout. Every field is optional; unset
// fields keep their current value. The API key is read from the environment only.
type fileConfig struct {
	ListenAddr     string   `toml:"listen_addr"`
	Path           string   `toml:"path"`
	AllowedOrigins []string `toml:"allowed_origins"`
	Environment    string   `toml:"environment"`

	Gemini struct {
		Model          string `toml:"model"`
		BaseURL        string `toml:"base_url"`
		ProxyURL       string `toml:"proxy_url"`
		RequestTimeout string `toml:"request_timeout"`
	} `toml:"gemini"`

	Limits struct {
		MaxBodyBytes   int64 `toml:"max_body_bytes"`
		MaxPromptChars int   `toml:"max_prompt_chars"`
	} `toml:"limits"`

	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`

	A2A struct {
		Enabled   *bool  `toml:"enabled"`
		Port      int    `toml:"port"`
		AgentName string `toml:"agent_name"`
		AgentDesc string `toml:"agent_desc"`
	} `toml:"a2a"`
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.ListenAddr, fc.ListenAddr)
	setString(&cfg.Path, fc.Path)
	if origins := nonBlank(fc.AllowedOrigins); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}
	setString(&cfg.Environment, fc.Environment)

	setString(&cfg.Model, fc.Gemini.Model)
	setString(&cfg.BaseURL, fc.Gemini.BaseURL)
	setString(&cfg.ProxyURL, fc.Gemini.ProxyURL)
	if fc.Gemini.RequestTimeout != "" {
		d, err := time.ParseDuration(fc.Gemini.RequestTimeout)
		if err != nil {
			return fmt.Errorf("parse config %s: gemini.request_timeout: %w", path, err)
		}
		cfg.RequestTimeout = d
	}

	if fc.Limits.MaxBodyBytes != 0 {
		cfg.MaxBodyBytes = fc.Limits.MaxBodyBytes
	}
	if fc.Limits.MaxPromptChars != 0 {
		cfg.MaxPromptChars = fc.Limits.MaxPromptChars
	}

	setString(&cfg.LogLevel, fc.Log.Level)
	setString(&cfg.LogFormat, fc.Log.Format)

	if fc.A2A.Enabled != nil {
		cfg.A2AEnabled = *fc.A2A.Enabled
	}
	if fc.A2A.Port != 0 {
		cfg.A2APort = fc.A2A.Port
	}
	setString(&cfg.AgentName, fc.A2A.AgentName)
	setString(&cfg.AgentDesc, fc.A2A.AgentDesc)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
