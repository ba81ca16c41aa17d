package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig  `yaml:"server"`
	OIDC          OIDCConfig    `yaml:"oidc"`
	Store         StoreConfig   `yaml:"store"`
	Logging       LoggingConfig `yaml:"logging"`
	SessionSecret string        `yaml:"session_secret"`
}

type ServerConfig struct {
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	BaseURL    string        `yaml:"base_url"`
	CookieName string        `yaml:"cookie_name"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	StaticDir  string        `yaml:"static_dir"`
}

type OIDCConfig struct {
	TenantID     string   `yaml:"tenant_id"`
	Issuer       string   `yaml:"issuer"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}

type StoreConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the optional YAML config file, overlays environment
// variables on top, and applies defaults. An empty path skips the file
// and configures entirely from the environment.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.loadFromEnv()
	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) loadFromEnv() {
	setString(&c.Server.BaseURL, "BASE_URL")
	setString(&c.OIDC.TenantID, "TENANT_ID")
	setString(&c.OIDC.Issuer, "OIDC_ISSUER")
	setString(&c.OIDC.ClientID, "OIDC_CLIENT_ID")
	setString(&c.OIDC.ClientSecret, "OIDC_CLIENT_SECRET")
	setString(&c.SessionSecret, "SESSION_SECRET")
	setString(&c.Store.RedisAddr, "REDIS_ADDR")
	setString(&c.Store.RedisPassword, "REDIS_PASSWORD")
	setString(&c.Logging.Level, "LOG_LEVEL")

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("OIDC_SCOPES"); v != "" {
		c.OIDC.Scopes = strings.Fields(v)
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if c.Server.CookieName == "" {
		c.Server.CookieName = "authgate-session"
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = 24 * time.Hour
	}

	if c.OIDC.Issuer == "" && c.OIDC.TenantID != "" {
		c.OIDC.Issuer = fmt.Sprintf("https://login.microsoftonline.com/%s/v2.0", c.OIDC.TenantID)
	}
	if len(c.OIDC.Scopes) == 0 {
		c.OIDC.Scopes = []string{"openid", "profile", "email", "offline_access"}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// RedirectURL is the externally visible callback endpoint.
func (c *Config) RedirectURL() string {
	return strings.TrimRight(c.Server.BaseURL, "/") + "/auth/callback"
}

// CookieSecure reports whether the session cookie should carry the
// Secure flag, derived from the scheme of the external base URL.
func (c *Config) CookieSecure() bool {
	return strings.HasPrefix(c.Server.BaseURL, "https://")
}
