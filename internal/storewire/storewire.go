// Package storewire centralizes the per-surface backend selection that
// both cmd/actorflowd and cmd/actorctl need: given a loaded
// config.StoreConfig, construct the concrete journal/lock/queue/pipeline
// backend each surface is configured to use. Kept separate from either
// main package so the operator CLI can open the same stores read-only
// without linking the daemon's runtime wiring.
package storewire

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/codeready-toolchain/actorflow/internal/store/memory"
	"github.com/codeready-toolchain/actorflow/internal/store/postgres"
	"github.com/codeready-toolchain/actorflow/internal/store/redis"
	storeS3 "github.com/codeready-toolchain/actorflow/internal/store/s3"
	"github.com/codeready-toolchain/actorflow/pkg/config"
	"github.com/codeready-toolchain/actorflow/pkg/journal"
	"github.com/codeready-toolchain/actorflow/pkg/lock"
	"github.com/codeready-toolchain/actorflow/pkg/mqueue"
	"github.com/codeready-toolchain/actorflow/pkg/pipeline"
)

// Stores bundles the constructed backends for one process.
type Stores struct {
	Journal  journal.Store
	Lock     lock.Backend
	Queue    mqueue.Backend
	Pipeline pipeline.OutboxStore
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// Open constructs every backend named by cfg, opening a Postgres pool
// and/or Redis client at most once each even when multiple surfaces
// share the same backend kind.
func Open(ctx context.Context, cfg *config.StoreConfig) (*Stores, error) {
	var (
		pgPool      *pgxpool.Pool
		redisClient *goredis.Client
		stores      Stores
	)

	if cfg.Journal == config.BackendPostgres || cfg.Lock == config.BackendPostgres {
		pgCfg, err := postgres.LoadConfigFromEnv()
		if err != nil {
			return nil, fmt.Errorf("storewire: load postgres config: %w", err)
		}
		pool, err := postgres.Open(ctx, pgCfg)
		if err != nil {
			return nil, fmt.Errorf("storewire: open postgres: %w", err)
		}
		pgPool = pool
	}

	if cfg.Lock == config.BackendRedis || cfg.Queue == config.BackendRedis || cfg.SharedMem == config.BackendRedis {
		client, err := redis.Open(redis.Config{URL: getEnv("REDIS_URL", "redis://localhost:6379/0")})
		if err != nil {
			return nil, fmt.Errorf("storewire: open redis: %w", err)
		}
		redisClient = client
	}

	switch cfg.Journal {
	case config.BackendMemory, "":
		stores.Journal = memory.NewJournalStore()
	case config.BackendPostgres:
		stores.Journal = postgres.NewJournalStore(pgPool)
	default:
		return nil, fmt.Errorf("storewire: unsupported journal backend %q", cfg.Journal)
	}

	if cfg.BlobArchive != "" {
		blobCfg := storeS3.Config{
			Bucket: getEnv("S3_ARCHIVE_BUCKET", "actorflow-snapshots"),
			Region: getEnv("AWS_REGION", "us-east-1"),
		}
		blobs, err := storeS3.Open(ctx, blobCfg)
		if err != nil {
			return nil, fmt.Errorf("storewire: open s3 archive: %w", err)
		}
		stores.Journal = storeS3.NewArchivingStore(stores.Journal, blobs, 64*1024)
	}

	switch cfg.Lock {
	case config.BackendMemory, "":
		stores.Lock = memory.NewLockBackend()
	case config.BackendPostgres:
		stores.Lock = postgres.NewLockBackend(pgPool)
	case config.BackendRedis:
		stores.Lock = redis.NewLockBackend(redisClient)
	default:
		return nil, fmt.Errorf("storewire: unsupported lock backend %q", cfg.Lock)
	}

	switch cfg.Queue {
	case config.BackendMemory, "":
		stores.Queue = memory.NewQueueBackend()
	case config.BackendRedis:
		stores.Queue = redis.NewQueueBackend(redisClient)
	default:
		return nil, fmt.Errorf("storewire: unsupported queue backend %q", cfg.Queue)
	}

	switch cfg.Journal {
	case config.BackendPostgres:
		stores.Pipeline = postgres.NewPipelineStore(pgPool)
	default:
		stores.Pipeline = memory.NewPipelineStore()
	}

	return &stores, nil
}
