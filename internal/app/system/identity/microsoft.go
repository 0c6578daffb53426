package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

var (
	// ErrNoIDToken is returned when the token response carries no id_token.
	ErrNoIDToken = errors.New("token response has no id_token")
	// ErrForeignTenant is returned when the id_token was issued by a tenant
	// other than the configured one.
	ErrForeignTenant = errors.New("id_token issued by another tenant")
)

// MicrosoftProvider signs employees in with their work account.
type MicrosoftProvider struct {
	cfg    *oauth2.Config
	tenant string
}

// IsMultiTenant reports whether tenant names a shared Microsoft endpoint
// rather than one directory.
func IsMultiTenant(tenant string) bool {
	switch strings.ToLower(strings.TrimSpace(tenant)) {
	case "", "common", "organizations", "consumers":
		return true
	}
	return false
}

// NewMicrosoft returns a Microsoft provider for tenant ("common",
// "organizations", or a tenant id).
func NewMicrosoft(clientID, clientSecret, tenant, redirectURL string) *MicrosoftProvider {
	if tenant == "" {
		tenant = "organizations"
	}
	return &MicrosoftProvider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     microsoft.AzureADEndpoint(tenant),
		},
		tenant: tenant,
	}
}

// WithEndpoints points the provider at other authorize and token URLs.
// Used by tests.
func (p *MicrosoftProvider) WithEndpoints(authURL, tokenURL string) *MicrosoftProvider {
	p.cfg.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams}
	return p
}

func (p *MicrosoftProvider) Name() string { return Microsoft }

func (p *MicrosoftProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

type microsoftClaims struct {
	OID      string `json:"oid"`
	TenantID string `json:"tid"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// Exchange redeems the code and reads the identity from the id_token.
// The token comes straight from the token endpoint over TLS, so its
// claims are read without checking the signature. The tenant is checked
// against the configured one.
func (p *MicrosoftProvider) Exchange(ctx context.Context, code string) (auth.Identity, error) {
	token, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("exchange code: %w", err)
	}
	raw, _ := token.Extra("id_token").(string)
	if raw == "" {
		return auth.Identity{}, ErrNoIDToken
	}
	return parseMicrosoftIDToken(raw, p.tenant)
}

// parseMicrosoftIDToken reads the identity from an id_token. With a pinned
// tenant the tid claim must match it. On a shared endpoint any directory
// can assert any mail address, so the email is dropped and the identity
// cannot match the super-admin allowlist.
func parseMicrosoftIDToken(raw, tenant string) (auth.Identity, error) {
	var claims microsoftClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return auth.Identity{}, fmt.Errorf("parse id_token: %w", err)
	}

	email := claims.Email
	if IsMultiTenant(tenant) {
		email = ""
	} else if !strings.EqualFold(strings.TrimSpace(claims.TenantID), strings.TrimSpace(tenant)) {
		return auth.Identity{}, fmt.Errorf("%w: %q", ErrForeignTenant, claims.TenantID)
	}

	subject := claims.OID
	if subject == "" {
		subject = claims.Subject
	}
	return newIdentity(Microsoft, subject, email, claims.Name)
}
