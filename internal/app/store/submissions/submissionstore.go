package submissionstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/tasktracker/internal/app/system/paging"
	"github.com/dalemusser/tasktracker/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no submission has the given id.
	ErrNotFound = errors.New("submission not found")
	// ErrInvalidStatus is returned by SetStatus for unknown statuses.
	ErrInvalidStatus = errors.New(`status must be "pending"|"in-progress"|"completed"`)
	// ErrEmptyTitle is returned by Create when no task was chosen.
	ErrEmptyTitle = errors.New("task title is required")
	// ErrBadCursor is returned when a paging cursor cannot be decoded.
	ErrBadCursor = errors.New("invalid paging cursor")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("submitted_tasks")}
}

// Create appends a pending submission stamped with the current time.
func (s *Store) Create(ctx context.Context, title, submitterUID, submitterName string) (models.SubmittedTask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.SubmittedTask{}, ErrEmptyTitle
	}
	st := models.SubmittedTask{
		ID:            primitive.NewObjectID(),
		TaskTitle:     title,
		SubmitterUID:  submitterUID,
		SubmitterName: submitterName,
		// BSON dates hold milliseconds; truncate so the returned value
		// matches what a later read sees.
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		Status:    models.StatusPending,
	}
	if _, err := s.c.InsertOne(ctx, st); err != nil {
		return models.SubmittedTask{}, err
	}
	return st, nil
}

// Get loads one submission.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.SubmittedTask, error) {
	var st models.SubmittedTask
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.SubmittedTask{}, ErrNotFound
	}
	return st, err
}

// FeedPage returns every user's submissions, newest first.
func (s *Store) FeedPage(ctx context.Context, after string, size int) (paging.Page[models.SubmittedTask], error) {
	return s.page(ctx, bson.M{}, after, size)
}

// HistoryPage returns one user's submissions, newest first.
func (s *Store) HistoryPage(ctx context.Context, submitterUID, after string, size int) (paging.Page[models.SubmittedTask], error) {
	return s.page(ctx, bson.M{"submitter_uid": submitterUID}, after, size)
}

func (s *Store) page(ctx context.Context, base bson.M, after string, size int) (paging.Page[models.SubmittedTask], error) {
	filter := base
	if after != "" {
		c, ok := paging.DecodeCursor(after)
		if !ok {
			return paging.Page[models.SubmittedTask]{}, ErrBadCursor
		}
		ts, okT := paging.ParseTimeKey(c.Key)
		oid, err := primitive.ObjectIDFromHex(c.ID)
		if !okT || err != nil {
			return paging.Page[models.SubmittedTask]{}, ErrBadCursor
		}
		filter = bson.M{"$and": []bson.M{base, paging.After("timestamp", ts, oid, true)}}
	}

	cur, err := s.c.Find(ctx, filter, paging.FindOptions("timestamp", true, size))
	if err != nil {
		return paging.Page[models.SubmittedTask]{}, err
	}
	defer cur.Close(ctx)

	var rows []models.SubmittedTask
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.SubmittedTask]{}, err
	}
	return paging.NewPage(rows, size, cursorOf), nil
}

func cursorOf(st models.SubmittedTask) paging.Cursor {
	return paging.Cursor{Key: paging.TimeKey(st.Timestamp), ID: st.ID.Hex()}
}

// SetStatus changes a submission's status and returns the updated row.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) (models.SubmittedTask, error) {
	if !models.ValidStatus(status) {
		return models.SubmittedTask{}, ErrInvalidStatus
	}

	var st models.SubmittedTask
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.SubmittedTask{}, ErrNotFound
	}
	return st, err
}

// Range returns submissions with from <= timestamp <= to, newest first.
// At most maxRows rows are returned; truncated reports whether more
// matched. maxRows <= 0 means no cap.
func (s *Store) Range(ctx context.Context, from, to time.Time, maxRows int) (rows []models.SubmittedTask, truncated bool, err error) {
	filter := bson.M{"timestamp": bson.M{"$gte": from.UTC(), "$lte": to.UTC()}}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if maxRows > 0 {
		opts.SetLimit(int64(maxRows) + 1)
	}

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, err
	}
	defer cur.Close(ctx)

	rows = []models.SubmittedTask{}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, false, err
	}
	if maxRows > 0 && len(rows) > maxRows {
		return rows[:maxRows], true, nil
	}
	return rows, false, nil
}
