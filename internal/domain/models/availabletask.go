// internal/domain/models/availabletask.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AvailableTask is a catalog entry users can pick when submitting work.
type AvailableTask struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title     string             `bson:"title" json:"title"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
