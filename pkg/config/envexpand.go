package config

import "os"

// ExpandEnv expands environment variables in YAML content using Go's standard library.
// Supports both ${VAR} and $VAR syntax (standard shell-style).
//
// Examples:
//   - ${ACTORFLOW_LEASE_TTL} → value of ACTORFLOW_LEASE_TTL environment variable
//   - $ACTORFLOW_HOLDER_NAME → value of ACTORFLOW_HOLDER_NAME environment variable
//   - ${QUEUE_DSN}:${QUEUE_PORT} → hostname:port with both variables expanded
//
// Missing variables expand to empty string. Validation should catch required fields that are empty.
func ExpandEnv(data []byte) []byte {
	expanded := os.ExpandEnv(string(data))
	return []byte(expanded)
}
