package commands

import (
	"context"
	"fmt"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const auditCollection = "checkout_audit"

// connect opens the terminal database named by mongo.url and mongo.name.
// The caller disconnects the returned client.
func connect(ctx context.Context, config *aqm.Config, logger aqm.Logger) (*mongo.Client, *mongo.Database, error) {
	mongoURL := config.GetStringOrDef("mongo.url", "mongodb://localhost:27017")
	dbName := config.GetStringOrDef("mongo.name", "pos_terminal")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}

	logger.Info("Connected to MongoDB", "database", dbName)
	return client, client.Database(dbName), nil
}
