package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/tasktracker/internal/app/system/paging"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no profile exists for a uid.
	ErrNotFound = errors.New("user profile not found")
	// ErrInvalidRole is returned by SetRole for roles other than user and admin.
	ErrInvalidRole = errors.New(`role must be "user"|"admin"`)
	// ErrBadCursor is returned when a paging cursor cannot be decoded.
	ErrBadCursor = errors.New("invalid paging cursor")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Get loads a profile by uid.
func (s *Store) Get(ctx context.Context, uid string) (*models.UserProfile, error) {
	var u models.UserProfile
	err := s.c.FindOne(ctx, bson.M{"_id": uid}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateIfAbsent writes a profile with role "user" unless one already
// exists for uid. An existing profile is never modified, so a role granted
// by an admin survives later sign-ins. It reports whether a profile was
// created.
func (s *Store) CreateIfAbsent(ctx context.Context, uid, email, name, provider string) (bool, error) {
	name = strings.TrimSpace(name)
	doc := bson.M{
		"email":      strings.TrimSpace(email),
		"name":       name,
		"name_ci":    text.Fold(name),
		"role":       models.RoleUser,
		"created_at": time.Now().UTC(),
	}
	if provider != "" {
		doc["provider"] = provider
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	return res.UpsertedCount == 1, nil
}

// Page returns up to size profiles ordered by folded name, starting
// strictly after the cursor (empty for the first page).
func (s *Store) Page(ctx context.Context, after string, size int) (paging.Page[models.UserProfile], error) {
	filter := bson.M{}
	if after != "" {
		c, ok := paging.DecodeCursor(after)
		if !ok {
			return paging.Page[models.UserProfile]{}, ErrBadCursor
		}
		filter = paging.After("name_ci", c.Key, c.ID, false)
	}

	cur, err := s.c.Find(ctx, filter, paging.FindOptions("name_ci", false, size))
	if err != nil {
		return paging.Page[models.UserProfile]{}, err
	}
	defer cur.Close(ctx)

	var rows []models.UserProfile
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.UserProfile]{}, err
	}
	return paging.NewPage(rows, size, func(u models.UserProfile) paging.Cursor {
		return paging.Cursor{Key: u.NameCI, ID: u.UID}
	}), nil
}

// SetRole changes a profile's stored role and returns the updated profile.
func (s *Store) SetRole(ctx context.Context, uid, role string) (*models.UserProfile, error) {
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	var u models.UserProfile
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": uid},
		bson.M{"$set": bson.M{"role": role}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
