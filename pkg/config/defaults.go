package config

// Defaults contains system-wide default configurations, applied to an
// actor type when it does not specify its own value.
type Defaults struct {
	// CompactionThreshold is the journal-entry count past which an actor
	// is compacted to a snapshot (spec.md §9 Open Question: per-actor-type
	// policy value with this package default).
	CompactionThreshold int `yaml:"compaction_threshold,omitempty" validate:"omitempty,min=1"`

	// Telemetry is the default telemetry label for actor types that don't
	// set their own (actortype.Capabilities.Telemetry).
	Telemetry string `yaml:"telemetry,omitempty"`
}
