// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	catalogstore "github.com/dalemusser/tasktracker/internal/app/store/catalog"
	"github.com/dalemusser/tasktracker/internal/app/system/authz"
	"github.com/dalemusser/tasktracker/internal/app/system/catalogsync"
	"github.com/dalemusser/tasktracker/internal/app/system/indexes"
	"github.com/dalemusser/tasktracker/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const mongoConnectTimeout = 10 * time.Second

// ConnectDB opens the MongoDB client (and Redis, when configured) and
// builds the shared back-end objects every handler receives.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	cctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().
		ApplyURI(appCfg.MongoURI).
		SetAppName("tasktracker"))
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping MongoDB: %w", err)
	}
	db := client.Database(appCfg.MongoDatabase)
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	loc, err := time.LoadLocation(appCfg.ReportTimezone)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("load report time zone: %w", err)
	}

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		CatalogHub:    catalogsync.NewHub(catalogstore.New(db).List, logger),
		Policy:        authz.NewPolicy(authz.ParseAllowlist(appCfg.SuperAdminEmails)),
		Location:      loc,
		bg:            &background{},
	}

	if appCfg.RedisURL != "" {
		n, err := catalogsync.NewRedisNotifier(appCfg.RedisURL, catalogsync.DefaultChannel, logger)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return DBDeps{}, fmt.Errorf("connect to Redis: %w", err)
		}
		deps.Redis = n
		deps.CatalogHub.SetPublisher(n)
		logger.Info("catalog change notifications enabled", zap.String("channel", catalogsync.DefaultChannel))
	}

	return deps, nil
}

// EnsureSchema creates collections with their JSON-schema validators and
// the indexes the queries rely on. Both steps are idempotent.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := validators.EnsureAll(ctx, deps.MongoDatabase, logger); err != nil {
		return fmt.Errorf("ensure validators: %w", err)
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase, logger); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return nil
}
