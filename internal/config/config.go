package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	GitHub    GitHubConfig    `yaml:"github"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Quests    QuestsConfig    `yaml:"quests"`
	Auth      AuthConfig      `yaml:"auth"`
	Refresh   RefreshConfig   `yaml:"refresh"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`    // file path for sqlite, connection string for postgres
}

type GitHubConfig struct {
	Token    string `yaml:"token"`
	Username string `yaml:"username"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
}

type QuestsConfig struct {
	ScanPath  string `yaml:"scan_path"`  // directory walked for TODO comments
	IdeasPath string `yaml:"ideas_path"` // checkbox-markdown ideas file
}

type AuthConfig struct {
	// PasswordHash is a bcrypt hash. Leaving it (or JWTSecret) empty keeps
	// the API open, the single-user local default.
	PasswordHash  string `yaml:"password_hash"`
	JWTSecret     string `yaml:"jwt_secret"`
	TokenDuration string `yaml:"token_duration"` // e.g. "24h"
}

type RefreshConfig struct {
	Interval string `yaml:"interval"` // e.g. "30m"; "0" disables the background loop
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// AuthEnabled reports whether dashboard auth is fully configured.
func (c *Config) AuthEnabled() bool {
	return c.Auth.PasswordHash != "" && c.Auth.JWTSecret != ""
}

// RefreshInterval parses the refresh interval; zero disables the loop.
func (c *Config) RefreshInterval() (time.Duration, error) {
	if c.Refresh.Interval == "" || c.Refresh.Interval == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Refresh.Interval)
	if err != nil {
		return 0, fmt.Errorf("parse refresh interval: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("refresh interval must not be negative")
	}
	return d, nil
}

// TokenDuration parses the auth token lifetime, defaulting to 24h.
func (c *Config) TokenDuration() (time.Duration, error) {
	if c.Auth.TokenDuration == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(c.Auth.TokenDuration)
	if err != nil {
		return 0, fmt.Errorf("parse token duration: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("token duration must be positive")
	}
	return d, nil
}

// placeholders are the sample values shipped in .env templates. Treated the
// same as unset credentials.
var placeholders = map[string]struct{}{
	"your_token_here":    {},
	"your_username_here": {},
	"your_api_key_here":  {},
}

func isPlaceholder(v string) bool {
	_, ok := placeholders[v]
	return ok
}

// ValidateServe checks the fields the serve subcommand depends on.
func (c *Config) ValidateServe() error {
	if c == nil {
		return fmt.Errorf("config is required")
	}
	if c.GitHub.Username == "" {
		return fmt.Errorf("GITHUB_USERNAME must be set")
	}
	if c.Auth.PasswordHash != "" {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("CODEDAILY_JWT_SECRET must be set when auth.password_hash is configured")
		}
		if len(c.Auth.JWTSecret) < 16 {
			return fmt.Errorf("CODEDAILY_JWT_SECRET must be at least 16 characters (current length: %d)", len(c.Auth.JWTSecret))
		}
	}
	if _, err := c.RefreshInterval(); err != nil {
		return err
	}
	if _, err := c.TokenDuration(); err != nil {
		return err
	}
	return nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "codedaily.db",
		},
		Quests: QuestsConfig{
			ScanPath:  ".",
			IdeasPath: "IDEAS.md",
		},
		Auth: AuthConfig{
			TokenDuration: "24h",
		},
		Refresh: RefreshConfig{
			Interval: "30m",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	// Placeholder credentials from copied .env templates behave like unset.
	if isPlaceholder(cfg.GitHub.Token) {
		cfg.GitHub.Token = ""
	}
	if isPlaceholder(cfg.GitHub.Username) {
		cfg.GitHub.Username = ""
	}
	if isPlaceholder(cfg.Anthropic.APIKey) {
		cfg.Anthropic.APIKey = ""
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CODEDAILY_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("CODEDAILY_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("CODEDAILY_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("CODEDAILY_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv("GITHUB_USERNAME"); v != "" {
		cfg.GitHub.Username = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Anthropic.APIKey = v
	}
	if v := os.Getenv("CODEDAILY_SCAN_PATH"); v != "" {
		cfg.Quests.ScanPath = v
	}
	if v := os.Getenv("CODEDAILY_IDEAS_PATH"); v != "" {
		cfg.Quests.IdeasPath = v
	}
	if v := os.Getenv("CODEDAILY_AUTH_PASSWORD_HASH"); v != "" {
		cfg.Auth.PasswordHash = v
	}
	if v := os.Getenv("CODEDAILY_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("CODEDAILY_TOKEN_DURATION"); v != "" {
		cfg.Auth.TokenDuration = v
	}
	if v := os.Getenv("CODEDAILY_REFRESH_INTERVAL"); v != "" {
		cfg.Refresh.Interval = v
	}
}
