// Package testpostgres provides a shared PostgreSQL testcontainer for
// internal/store/postgres's integration tests, adapted from the
// teacher's test/util database helpers for pgx instead of Ent: there is
// no generated schema to create, so setup reduces to running
// internal/store/postgres's own embedded migrations once per package and
// truncating tables between tests.
package testpostgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	ourpostgres "github.com/codeready-toolchain/actorflow/internal/store/postgres"
)

var (
	sharedPool    *pgxpool.Pool
	containerErr  error
	containerOnce sync.Once
)

// NewTestPool returns the package's shared pool, starting a testcontainer
// and running migrations on first use. Safe for concurrent subtests; each
// test is expected to use distinct actor/pipeline IDs or call Truncate in
// t.Cleanup to avoid cross-test interference.
func NewTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	containerOnce.Do(func() {
		pgContainer, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("actorflow_test"),
			tcpostgres.WithUsername("actorflow"),
			tcpostgres.WithPassword("actorflow"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			containerErr = err
			return
		}

		host, err := pgContainer.Host(ctx)
		if err != nil {
			containerErr = err
			return
		}
		port, err := pgContainer.MappedPort(ctx, "5432")
		if err != nil {
			containerErr = err
			return
		}

		cfg := ourpostgres.Config{
			Host:     host,
			Port:     port.Int(),
			User:     "actorflow",
			Password: "actorflow",
			Database: "actorflow_test",
			SSLMode:  "disable",
			MaxConns: 10,
			MinConns: 1,
		}
		sharedPool, containerErr = ourpostgres.Open(ctx, cfg)
	})

	require.NoError(t, containerErr, "failed to start shared postgres testcontainer")
	return sharedPool
}

// Truncate clears every table the journal/lock/pipeline stores use, for
// tests that need a clean slate rather than unique IDs per test.
func Truncate(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()
	_, err := pool.Exec(ctx, `TRUNCATE TABLE
		journal_entries, journal_snapshots, actor_leases,
		pipeline_instances, pipeline_outbox`)
	require.NoError(t, err)
}
