package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/tasktracker/internal/app/system/authz"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// SuperAdminEmail is the allowlisted address used across tests.
const SuperAdminEmail = "boss@test.com"

// NewTestPolicy returns a policy whose allowlist holds SuperAdminEmail.
func NewTestPolicy() *authz.Policy {
	return authz.NewPolicy([]string{SuperAdminEmail})
}

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a profile document.
func (f *Fixtures) CreateUser(ctx context.Context, uid, name, email, role string) models.UserProfile {
	f.t.Helper()

	u := models.UserProfile{
		UID:       uid,
		Email:     email,
		Name:      name,
		NameCI:    text.Fold(name),
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateAvailableTask inserts a catalog entry.
func (f *Fixtures) CreateAvailableTask(ctx context.Context, title string, createdAt time.Time) models.AvailableTask {
	f.t.Helper()

	task := models.AvailableTask{
		ID:        primitive.NewObjectID(),
		Title:     title,
		CreatedAt: createdAt.UTC(),
	}
	if _, err := f.db.Collection("available_tasks").InsertOne(ctx, task); err != nil {
		f.t.Fatalf("failed to create catalog entry: %v", err)
	}
	return task
}

// CreateSubmission inserts a submitted task with the given timestamp and status.
func (f *Fixtures) CreateSubmission(ctx context.Context, title, uid, name string, ts time.Time, status string) models.SubmittedTask {
	f.t.Helper()

	st := models.SubmittedTask{
		ID:            primitive.NewObjectID(),
		TaskTitle:     title,
		SubmitterUID:  uid,
		SubmitterName: name,
		Timestamp:     ts.UTC().Truncate(time.Millisecond),
		Status:        status,
	}
	if _, err := f.db.Collection("submitted_tasks").InsertOne(ctx, st); err != nil {
		f.t.Fatalf("failed to create submission: %v", err)
	}
	return st
}
