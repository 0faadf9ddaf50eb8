// Package mongo implements the workflow repositories over MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

const defaultTimeout = 10 * time.Second

// Config selects the deployment and database. Timeout bounds server
// selection and every operation; zero means ten seconds.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect dials, pings and returns the client with its database handle.
// Failures wrap domain.ErrBackendUnavailable.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(timeout).
		SetTimeout(timeout)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, backendErr("connect", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, backendErr("ping", err)
	}
	return client, client.Database(cfg.Database), nil
}

// EnsureIndexes prepares both collections.
func EnsureIndexes(ctx context.Context, users *UserRepository, knowledge *KnowledgeRepository) error {
	if err := users.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	if err := knowledge.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("knowledge indexes: %w", err)
	}
	return nil
}

// Pinger adapts a client to the readiness check.
type Pinger struct {
	Client *mongo.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: mongo: %w", domain.ErrBackendUnavailable, err)
	}
	return nil
}

func backendErr(op string, err error) error {
	return fmt.Errorf("%w: mongo %s: %w", domain.ErrBackendUnavailable, op, err)
}
