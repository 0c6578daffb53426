// internal/domain/models/user.go
package models

import (
	"time"
)

// Roles a profile may carry. Anything else resolves to no dashboard.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UserProfile is the application-level record for a signed-in identity.
//
// The document key is the identity uid ("<provider>:<subject>"), so a
// profile is looked up directly by the value stored in the session.
// Role is the stored role; the effective role seen by handlers may differ
// for super-admins (see authz.ResolveEffectiveRole).
type UserProfile struct {
	UID       string    `bson:"_id" json:"uid"`
	Email     string    `bson:"email" json:"email"`
	Name      string    `bson:"name" json:"name"`
	NameCI    string    `bson:"name_ci" json:"-"` // folded name, sort key for the roster
	Role      string    `bson:"role" json:"role"`
	Provider  string    `bson:"provider,omitempty" json:"provider,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// DisplayName returns the name, falling back to the email when the
// identity provider did not supply one.
func (p UserProfile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}

// ValidRole reports whether role is one the app assigns.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
