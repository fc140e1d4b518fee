package config

import "time"

// RetentionConfig holds completed-pipeline and dead-letter retention
// settings, adapted from the teacher's session-retention settings onto
// the journal/pipeline-instance domain. The values are loaded and
// validated only: nothing in this module purges records or runs a
// retention sweep from them.
type RetentionConfig struct {
	// CompletedPipelineRetentionDays is the configured retention, in days,
	// for a completed pipeline instance and its outbox records.
	CompletedPipelineRetentionDays int `yaml:"completed_pipeline_retention_days"`

	// DeadLetterTTL is the configured maximum age of a dead-lettered
	// message.
	DeadLetterTTL time.Duration `yaml:"dead_letter_ttl"`

	// CleanupInterval is the configured interval between retention sweeps.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		CompletedPipelineRetentionDays: 30,
		DeadLetterTTL:                  7 * 24 * time.Hour,
		CleanupInterval:                12 * time.Hour,
	}
}
