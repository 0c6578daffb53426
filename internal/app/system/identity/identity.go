// Package identity wraps the OAuth2 clients for the two sign-in
// providers. Visitors sign in with Google; employees with Microsoft.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/dalemusser/tasktracker/internal/app/system/auth"
)

// Provider names. They prefix profile uids ("google:<sub>").
const (
	Google    = "google"
	Microsoft = "microsoft"
)

// ErrNoSubject is returned when the provider's answer lacks a stable
// subject identifier.
var ErrNoSubject = errors.New("identity provider returned no subject")

// Provider is one OAuth2 sign-in provider.
type Provider interface {
	Name() string
	// AuthCodeURL is the consent-screen URL carrying state.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for the signed-in identity.
	Exchange(ctx context.Context, code string) (auth.Identity, error)
}

// UID builds the profile key for a provider subject.
func UID(provider, subject string) string {
	return provider + ":" + subject
}

// NewState returns a random OAuth2 state token.
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func newIdentity(provider, subject, email, name string) (auth.Identity, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return auth.Identity{}, ErrNoSubject
	}
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if name == "" {
		name = email
	}
	return auth.Identity{
		UID:      UID(provider, subject),
		Email:    email,
		Name:     name,
		Provider: provider,
	}, nil
}
