package config

import "strings"

// OIDCConfig contains OIDC token verification configuration.
type OIDCConfig struct {
	// Issuer is the OIDC issuer URL used for discovery and token verification.
	Issuer string `env:"ISSUER"`

	// Audience is the expected audience claim on presented tokens.
	Audience string `env:"AUDIENCE" envDefault:"seqsearch"`

	// ClientID and ClientSecret are used by machine clients (the batch
	// client) to obtain tokens via the client credentials grant.
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`

	// TokenURL overrides the discovered token endpoint for client
	// credentials. Leave empty to use discovery.
	TokenURL string `env:"TOKEN_URL"`
}

// AuthConfig groups API authentication configuration. Authentication is
// disabled by default; the health endpoint is always open.
type AuthConfig struct {
	// Enabled turns on bearer token verification for API routes.
	Enabled bool `env:"AUTH_ENABLED" envDefault:"false"`

	// OIDC configuration (used when Enabled=true).
	OIDC OIDCConfig `envPrefix:"OIDC_"`
}

// Sanitize normalises auth configuration values. Verification cannot run
// without an issuer, so Enabled is forced off when one is missing.
func (a *AuthConfig) Sanitize() {
	a.OIDC.Issuer = strings.TrimSpace(a.OIDC.Issuer)
	a.OIDC.Audience = strings.TrimSpace(a.OIDC.Audience)
	if a.Enabled && a.OIDC.Issuer == "" {
		a.Enabled = false
	}
}
