package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// NewMongoDBConnection connects and verifies the primary is reachable.
// ConnectTimeout bounds both steps together.
func NewMongoDBConnection(cfg *config.MongoConfig) (*mongo.Client, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName("location-service").
		SetServerSelectionTimeout(timeout)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		disconnectCtx, done := context.WithTimeout(context.Background(), time.Second)
		defer done()
		_ = client.Disconnect(disconnectCtx)
		return nil, fmt.Errorf("mongo ping %s: %w", cfg.Database, err)
	}
	return client, nil
}
