package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("TENANT_ID", "contoso")
	t.Setenv("OIDC_CLIENT_ID", "client-1")
	t.Setenv("OIDC_CLIENT_SECRET", "hush")
	t.Setenv("BASE_URL", "https://app.example.com")
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("PORT", "9000")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://login.microsoftonline.com/contoso/v2.0", cfg.OIDC.Issuer)
	assert.Equal(t, "client-1", cfg.OIDC.ClientID)
	assert.Equal(t, "hush", cfg.OIDC.ClientSecret)
	assert.Equal(t, "https://app.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "s3cret", cfg.SessionSecret)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
	assert.Equal(t, 9000, cfg.Server.Port)

	require.NoError(t, cfg.Validate())
}

func TestExplicitIssuerWinsOverTenant(t *testing.T) {
	t.Setenv("TENANT_ID", "contoso")
	t.Setenv("OIDC_ISSUER", "https://idp.example.com")
	t.Setenv("OIDC_CLIENT_ID", "client-1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://idp.example.com", cfg.OIDC.Issuer)
}

func TestDefaults(t *testing.T) {
	t.Setenv("OIDC_ISSUER", "https://idp.example.com")
	t.Setenv("OIDC_CLIENT_ID", "client-1")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "authgate-session", cfg.Server.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.Server.SessionTTL)
	assert.Contains(t, cfg.OIDC.Scopes, "openid")
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "http://localhost:8080/auth/callback", cfg.RedirectURL())
}

func TestYAMLFileWithEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  base_url: http://yaml.example.com
oidc:
  issuer: https://yaml-idp.example.com
  client_id: yaml-client
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("OIDC_CLIENT_ID", "env-client")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://yaml.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "https://yaml-idp.example.com", cfg.OIDC.Issuer)
	assert.Equal(t, "env-client", cfg.OIDC.ClientID, "environment overrides the file")
}

func TestValidateRejectsMissingIssuer(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.OIDC.Issuer = ""
	cfg.OIDC.ClientID = "client-1"

	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMissingClientID(t *testing.T) {
	t.Setenv("OIDC_ISSUER", "https://idp.example.com")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsRelativeIssuer(t *testing.T) {
	t.Setenv("OIDC_ISSUER", "idp.example.com/tenant")
	t.Setenv("OIDC_CLIENT_ID", "client-1")

	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an absolute URL")
}

func TestValidateRejectsRelativeBaseURL(t *testing.T) {
	t.Setenv("OIDC_ISSUER", "https://idp.example.com")
	t.Setenv("OIDC_CLIENT_ID", "client-1")
	t.Setenv("BASE_URL", "app.example.com")

	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an absolute URL")
}

func TestWarnGeneratesSessionSecret(t *testing.T) {
	t.Setenv("OIDC_ISSUER", "https://idp.example.com")
	t.Setenv("OIDC_CLIENT_ID", "client-1")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Empty(t, cfg.SessionSecret)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, cfg.Warn(logger))
	assert.NotEmpty(t, cfg.SessionSecret, "missing secret is generated, not fatal")
}

func TestCookieSecure(t *testing.T) {
	cfg := &Config{}
	cfg.Server.BaseURL = "https://app.example.com"
	assert.True(t, cfg.CookieSecure())

	cfg.Server.BaseURL = "http://localhost:8080"
	assert.False(t, cfg.CookieSecure())
}
