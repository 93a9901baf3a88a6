// Package oidc verifies bearer tokens presented by machine clients against
// an OIDC issuer.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/seqbase/seqsearch/config"
)

// Verifier validates bearer JWTs using the issuer's published signing keys.
// Discovery runs once at construction; key rotation is handled by go-oidc's
// remote key set.
type Verifier struct {
	verifier *gooidc.IDTokenVerifier
}

// VerifierOptions holds configuration for NewVerifier.
type VerifierOptions struct {
	Config config.OIDCConfig

	// HTTPClient is used for discovery and key fetches. Optional.
	HTTPClient *http.Client
}

// NewVerifier discovers the issuer and prepares a token verifier. The
// audience claim must match the configured audience on every token.
func NewVerifier(ctx context.Context, opts VerifierOptions) (*Verifier, error) {
	issuer := strings.TrimSuffix(strings.TrimSpace(opts.Config.Issuer), "/")
	if issuer == "" {
		return nil, errors.New("oidc issuer is required")
	}
	if opts.Config.Audience == "" {
		return nil, errors.New("oidc audience is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	ctx = gooidc.ClientContext(ctx, httpClient)

	provider, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	return &Verifier{
		verifier: provider.Verifier(&gooidc.Config{ClientID: opts.Config.Audience}),
	}, nil
}

// Verify checks the token's signature, expiry, issuer and audience.
func (v *Verifier) Verify(ctx context.Context, rawToken string) error {
	if rawToken == "" {
		return errors.New("empty token")
	}
	if _, err := v.verifier.Verify(ctx, rawToken); err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	return nil
}

// ClientCredentialsTokenSource builds an oauth2 token source for machine
// clients using the client credentials grant. The token endpoint comes from
// the explicit TokenURL when set, otherwise from issuer discovery.
func ClientCredentialsTokenSource(ctx context.Context, cfg config.OIDCConfig) (oauth2.TokenSource, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("client id and secret are required")
	}

	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if tokenURL == "" {
		issuer := strings.TrimSuffix(strings.TrimSpace(cfg.Issuer), "/")
		if issuer == "" {
			return nil, errors.New("issuer or token url is required")
		}
		provider, err := gooidc.NewProvider(ctx, issuer)
		if err != nil {
			return nil, fmt.Errorf("oidc discovery: %w", err)
		}
		tokenURL = provider.Endpoint().TokenURL
	}

	conf := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{"openid"},
	}
	return conf.TokenSource(ctx), nil
}
