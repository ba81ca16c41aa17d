package config

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/mgoffin/authgate/pkg/security"
)

// Validate rejects configurations the server cannot run with. Weak but
// workable configurations (missing secrets) pass validation and are
// reported by Warn instead, so a development setup starts but is loud
// about its reduced guarantees.
func (c *Config) Validate() error {
	if c.OIDC.Issuer == "" {
		return fmt.Errorf("oidc issuer is required (set OIDC_ISSUER or TENANT_ID)")
	}
	if !isAbsoluteURL(c.OIDC.Issuer) {
		return fmt.Errorf("oidc issuer %q is not an absolute URL", c.OIDC.Issuer)
	}
	if c.OIDC.ClientID == "" {
		return fmt.Errorf("oidc client id is required (set OIDC_CLIENT_ID)")
	}
	if !isAbsoluteURL(c.Server.BaseURL) {
		return fmt.Errorf("base url %q is not an absolute URL", c.Server.BaseURL)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	return nil
}

// isAbsoluteURL reports whether s parses with both a scheme and a
// host. url.Parse alone accepts nearly anything, including bare paths.
func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Warn logs the degraded-security conditions and fills in a generated
// session secret when none was configured. Sessions signed with a
// generated secret do not survive a process restart.
func (c *Config) Warn(logger *slog.Logger) error {
	if c.OIDC.ClientSecret == "" {
		logger.Warn("no client secret configured; relying on PKCE alone for the token exchange")
	}
	if c.SessionSecret == "" {
		secret, err := security.GenerateRandomString(32)
		if err != nil {
			return fmt.Errorf("failed to generate session secret: %w", err)
		}
		c.SessionSecret = secret
		logger.Warn("no session secret configured; generated an ephemeral one, sessions will not survive a restart")
	}
	if !c.CookieSecure() {
		logger.Warn("base url is not https; session cookie will be sent without the Secure flag", "base_url", c.Server.BaseURL)
	}
	return nil
}
