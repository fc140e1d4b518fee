package config

import "time"

// LockConfig holds lease tuning shared by every lock.Backend implementation.
type LockConfig struct {
	// TTL is the configured lease duration. pkg/runtime does not read it;
	// it acquires leases with runtime.DefaultLeaseTTL.
	TTL time.Duration `yaml:"ttl"`

	// AutoRenewFraction is the configured renewal interval as a fraction of
	// TTL. lock.Service.AutoRenew does not read it; it renews every ttl/3.
	AutoRenewFraction float64 `yaml:"auto_renew_fraction"`
}

// DefaultLockConfig returns the built-in lock defaults.
func DefaultLockConfig() *LockConfig {
	return &LockConfig{TTL: 30 * time.Second, AutoRenewFraction: 1.0 / 3.0}
}

// PoolConfig holds actor activation pool settings. pkg/runtime.Runtime does
// not read it; it uses DefaultMaxPoolSize and DefaultIdleTimeout.
type PoolConfig struct {
	MaxPoolSize int           `yaml:"max_pool_size"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// DefaultPoolConfig returns the built-in pool defaults.
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{MaxPoolSize: 100, IdleTimeout: 5 * time.Minute}
}

// BackendKind selects which concrete store implementation backs a given
// surface (journal, lock, queue, shared memory, blob archive).
type BackendKind string

// Backend kinds.
const (
	BackendMemory   BackendKind = "memory"
	BackendPostgres BackendKind = "postgres"
	BackendRedis    BackendKind = "redis"
	BackendS3       BackendKind = "s3"
)

// IsValid reports whether kind is a recognized backend kind.
func (k BackendKind) IsValid() bool {
	switch k {
	case BackendMemory, BackendPostgres, BackendRedis, BackendS3:
		return true
	default:
		return false
	}
}

// StoreConfig selects backends for each storage surface. Journal and lock
// are typically Postgres or Redis; queue and shared memory are typically
// Redis; blob archive is typically S3. Memory is always valid everywhere
// and is the default for local development and tests.
type StoreConfig struct {
	Journal     BackendKind `yaml:"journal"`
	Lock        BackendKind `yaml:"lock"`
	Queue       BackendKind `yaml:"queue"`
	SharedMem   BackendKind `yaml:"shared_mem"`
	BlobArchive BackendKind `yaml:"blob_archive,omitempty"` // empty disables snapshot archival
}

// DefaultStoreConfig returns the built-in store defaults: everything
// in-memory, suitable for a single-process deployment or tests.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Journal:   BackendMemory,
		Lock:      BackendMemory,
		Queue:     BackendMemory,
		SharedMem: BackendMemory,
	}
}
