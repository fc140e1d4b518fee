package config

import "time"

// QueueConfig contains message queue and worker pool configuration,
// adapted from the teacher's own pkg/config.QueueConfig — same shape,
// renamed from session polling/claiming to the mqueue worker pool that
// replaced it.
type QueueConfig struct {
	// WorkerCount is the number of worker goroutines draining the queue.
	WorkerCount int `yaml:"worker_count"`

	// VisibilityTimeout is how long a delivered message stays hidden from
	// redelivery before it is swept back onto the ready set.
	VisibilityTimeout time.Duration `yaml:"visibility_timeout"`

	// GracefulShutdownTimeout is the max time to wait for in-flight
	// activations to finish during shutdown.
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`

	// MaxAttempts mirrors mqueue.RetryPolicy.MaxAttempts. The queue
	// backends dead-letter at mqueue.DefaultRetryPolicy.MaxAttempts
	// whatever this is set to.
	MaxAttempts int `yaml:"max_attempts"`

	// BaseDelay and MaxDelay bound the exponential-backoff-with-jitter
	// redelivery schedule, mirroring mqueue.RetryPolicy.
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		WorkerCount:             5,
		VisibilityTimeout:       30 * time.Second,
		GracefulShutdownTimeout: 15 * time.Minute,
		MaxAttempts:             5,
		BaseDelay:               1 * time.Second,
		MaxDelay:                1 * time.Minute,
	}
}
