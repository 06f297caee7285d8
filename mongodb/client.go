package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/v2/mongo/otelmongo"
)

// Client owns one MongoDB connection pool and the database used by the
// repositories. Create it once at start-up and pass it down explicitly.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri, verifies the primary is reachable and selects dbName.
func Connect(ctx context.Context, uri, dbName string) (*Client, error) {
	if uri == "" || dbName == "" {
		return nil, errors.New("mongodb: uri and database name are required")
	}

	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetMonitor(otelmongo.NewMonitor())

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: ping primary: %w", err)
	}

	log.Info().Str("database", dbName).Msg("MongoDB client connected")
	return &Client{client: client, db: client.Database(dbName)}, nil
}

// DB returns the selected database.
func (c *Client) DB() *mongo.Database {
	return c.db
}

// Ping checks the primary with a short timeout. Used by health checks.
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.client.Ping(pingCtx, readpref.Primary())
}

// Close disconnects the pool.
func (c *Client) Close(ctx context.Context) error {
	log.Info().Msg("Closing MongoDB connection")
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongodb: disconnect: %w", err)
	}
	return nil
}
