// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/tasktracker/internal/app/system/authz"
	"github.com/dalemusser/tasktracker/internal/app/system/catalogsync"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app. It is built in
// ConnectDB, handed to every later hook, and torn down in Shutdown.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is nil when redis_url is blank.
	Redis *catalogsync.RedisNotifier

	// CatalogHub fans catalog snapshots out to open views.
	CatalogHub *catalogsync.Hub

	Policy   *authz.Policy
	Location *time.Location

	bg *background
}
