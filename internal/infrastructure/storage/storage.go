// Package storage selects and assembles the persistence backend named by
// configuration.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/knowledgehub/workflow/internal/core/ports"
	"github.com/knowledgehub/workflow/internal/infrastructure/config"
	"github.com/knowledgehub/workflow/internal/infrastructure/db/filestore"
	"github.com/knowledgehub/workflow/internal/infrastructure/db/memory"
	mongodb "github.com/knowledgehub/workflow/internal/infrastructure/db/mongo"
	redisdb "github.com/knowledgehub/workflow/internal/infrastructure/db/redis"
	"github.com/knowledgehub/workflow/internal/infrastructure/db/sqlite"
)

// Backend bundles the repositories the services need plus the hooks the
// process uses for readiness and shutdown.
type Backend struct {
	Name        string
	Users       ports.UserRepository
	Knowledge   ports.KnowledgeRepository
	Idempotency ports.IdempotencyStore
	// Checks is keyed by dependency name as reported by /health/ready.
	Checks map[string]ports.HealthChecker

	closers []func(context.Context) error
}

// Open connects the configured backend. Redis is used for idempotency keys
// when cfg.Redis.Addr is set; otherwise keys live in process memory.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Backend, error) {
	b := &Backend{Name: cfg.Storage.Backend, Checks: make(map[string]ports.HealthChecker)}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		b.Users = memory.NewUserRepository()
		b.Knowledge = memory.NewKnowledgeRepository()

	case config.BackendFile:
		store, err := filestore.Open(cfg.Storage.File)
		if err != nil {
			return nil, err
		}
		b.Users, b.Knowledge = store.Users(), store.Knowledge()
		b.Checks["file"] = store

	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.Users, b.Knowledge = store.Users(), store.Knowledge()
		b.Checks["sqlite"] = store
		b.closers = append(b.closers, func(context.Context) error { return store.Close() })

	case config.BackendMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		users := mongodb.NewUserRepository(db)
		knowledge := mongodb.NewKnowledgeRepository(db)
		if err := mongodb.EnsureIndexes(ctx, users, knowledge); err != nil {
			log.Warn().Err(err).Msg("failed to ensure mongo indexes")
		}
		b.Users, b.Knowledge = users, knowledge
		b.Checks["mongodb"] = mongodb.Pinger{Client: client}
		b.closers = append(b.closers, client.Disconnect)

	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Storage.Backend)
	}

	if cfg.Redis.Addr != "" {
		client, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			_ = b.Close(ctx)
			return nil, err
		}
		b.Idempotency = redisdb.NewIdempotencyStore(client, cfg.Idempotency.TTL)
		b.Checks["redis"] = redisdb.Pinger{Client: client}
		b.closers = append(b.closers, func(context.Context) error { return client.Close() })
	} else {
		b.Idempotency = memory.NewIdempotencyStore(cfg.Idempotency.TTL)
	}

	log.Info().
		Str("backend", b.Name).
		Bool("redis", cfg.Redis.Addr != "").
		Msg("storage ready")
	return b, nil
}

// Close releases every connection in reverse order of opening.
func (b *Backend) Close(ctx context.Context) error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
