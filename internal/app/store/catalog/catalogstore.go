package catalogstore

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/tasktracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no catalog entry has the given id.
	ErrNotFound = errors.New("catalog entry not found")
	// ErrEmptyTitle is returned by Create for a blank title.
	ErrEmptyTitle = errors.New("title is required")
	// ErrTitleTooLong is returned by Create for titles over MaxTitleLen.
	ErrTitleTooLong = errors.New("title is too long")
)

// MaxTitleLen bounds catalog titles, in characters.
const MaxTitleLen = 200

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("available_tasks")}
}

// List returns the full catalog in creation order.
func (s *Store) List(ctx context.Context) ([]models.AvailableTask, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.AvailableTask{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get loads one catalog entry.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.AvailableTask, error) {
	var t models.AvailableTask
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.AvailableTask{}, ErrNotFound
	}
	return t, err
}

// Create inserts a catalog entry. Titles are trimmed; duplicates are allowed.
func (s *Store) Create(ctx context.Context, title string) (models.AvailableTask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.AvailableTask{}, ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return models.AvailableTask{}, ErrTitleTooLong
	}
	t := models.AvailableTask{
		ID:        primitive.NewObjectID(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.AvailableTask{}, err
	}
	return t, nil
}

// Delete removes a catalog entry. Submissions that snapshot its title are
// not touched.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
