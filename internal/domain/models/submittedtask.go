// internal/domain/models/submittedtask.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Submission statuses. Users always create "pending"; only admins move
// a submission between statuses.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// Statuses lists the statuses in display order.
var Statuses = []string{StatusPending, StatusInProgress, StatusCompleted}

// ValidStatus reports whether s is a known submission status.
func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// SubmittedTask records one user's submission of a catalog task.
//
// TaskTitle is a snapshot of the catalog title at submission time, not a
// reference: removing the catalog entry leaves history untouched.
type SubmittedTask struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TaskTitle     string             `bson:"task_title" json:"task_title"`
	SubmitterUID  string             `bson:"submitter_uid" json:"submitter_uid"`
	SubmitterName string             `bson:"submitter_name" json:"submitter_name"`
	Timestamp     time.Time          `bson:"timestamp" json:"timestamp"`
	Status        string             `bson:"status" json:"status"`
}
