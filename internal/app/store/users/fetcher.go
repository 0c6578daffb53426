package userstore

import (
	"context"
	"errors"

	"github.com/dalemusser/tasktracker/internal/app/system/auth"
	"github.com/dalemusser/tasktracker/internal/app/system/authz"
	"github.com/dalemusser/tasktracker/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Fetcher implements auth.UserFetcher to load fresh profile data on each
// request and apply the super-admin override.
type Fetcher struct {
	store  *Store
	policy *authz.Policy
	log    *zap.Logger
}

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database, policy *authz.Policy, logger *zap.Logger) *Fetcher {
	return &Fetcher{store: New(db), policy: policy, log: logger}
}

// FetchUser resolves id into a SessionUser. It never creates a profile;
// a missing profile or a lookup error yields HasProfile=false (the error
// is logged), and the allowlist still applies.
func (f *Fetcher) FetchUser(ctx context.Context, id auth.Identity) *auth.SessionUser {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	profile, err := f.store.Get(ctx, id.UID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		f.log.Warn("profile lookup failed", zap.String("uid", id.UID), zap.Error(err))
	}

	su := &auth.SessionUser{
		ID:       id.UID,
		Name:     id.Name,
		Email:    id.Email,
		Provider: id.Provider,
	}
	if profile != nil {
		su.HasProfile = true
		if n := profile.DisplayName(); n != "" {
			su.Name = n
		}
		if su.Email == "" {
			su.Email = profile.Email
		}
	}
	if su.Name == "" {
		su.Name = su.Email
	}

	su.Role = authz.ResolveEffectiveRole(profile, id.Email, f.policy)
	su.IsSuperAdmin = f.policy.IsSuperAdmin(su.Email)
	return su
}
