// internal/app/system/authz/policy.go
package authz

import (
	"errors"
	"strings"

	"github.com/dalemusser/tasktracker/internal/domain/models"
)

var (
	// ErrNotSuperAdmin is returned when a non-super-admin tries to change a role.
	ErrNotSuperAdmin = errors.New("only a super-admin may change roles")
	// ErrTargetLocked is returned when the target of a role change is a super-admin.
	ErrTargetLocked = errors.New("super-admin roles cannot be changed")
	// ErrInvalidRole is returned for roles other than user and admin.
	ErrInvalidRole = errors.New("invalid role")
)

// Policy holds the super-admin allowlist. The zero value (or nil) has no
// super-admins.
type Policy struct {
	superAdmins map[string]struct{}
}

// NewPolicy builds a Policy from a list of super-admin emails.
// Emails are compared case-insensitively; blanks are ignored.
func NewPolicy(superAdminEmails []string) *Policy {
	p := &Policy{superAdmins: make(map[string]struct{}, len(superAdminEmails))}
	for _, e := range superAdminEmails {
		if k := foldEmail(e); k != "" {
			p.superAdmins[k] = struct{}{}
		}
	}
	return p
}

// ParseAllowlist splits a comma-separated config value into emails.
func ParseAllowlist(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if e := strings.TrimSpace(part); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// IsSuperAdmin reports whether email is on the allowlist.
func (p *Policy) IsSuperAdmin(email string) bool {
	if p == nil || len(p.superAdmins) == 0 {
		return false
	}
	_, ok := p.superAdmins[foldEmail(email)]
	return ok
}

// ResolveEffectiveRole returns the role the app acts on for a signed-in
// identity. Allowlisted emails are always admin, whatever the stored role
// says and even before a profile exists. Otherwise the stored role is
// returned, or "" when there is no profile.
//
// identityEmail is the email asserted by the identity provider for this
// session; when it is empty the profile email is checked instead.
func ResolveEffectiveRole(profile *models.UserProfile, identityEmail string, p *Policy) string {
	email := identityEmail
	if email == "" && profile != nil {
		email = profile.Email
	}
	if p.IsSuperAdmin(email) {
		return models.RoleAdmin
	}
	if profile == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(profile.Role))
}

// CanChangeRole checks whether actorEmail may set target's role to newRole.
// The actor must be a super-admin, the target must not be one, and the
// role must be one the app assigns.
func (p *Policy) CanChangeRole(actorEmail string, target models.UserProfile, newRole string) error {
	if !p.IsSuperAdmin(actorEmail) {
		return ErrNotSuperAdmin
	}
	if p.IsSuperAdmin(target.Email) {
		return ErrTargetLocked
	}
	if !models.ValidRole(newRole) {
		return ErrInvalidRole
	}
	return nil
}

func foldEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
