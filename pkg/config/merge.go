package config

import "github.com/codeready-toolchain/actorflow/pkg/pipeline"

// mergeActorTypes merges built-in and user-defined actor type
// configurations. User-defined entries override built-in entries with
// the same name, the same override-by-name shape as the teacher's
// mergeAgents.
func mergeActorTypes(builtin map[string]ActorTypeConfig, user map[string]ActorTypeConfig) map[string]*ActorTypeConfig {
	result := make(map[string]*ActorTypeConfig)
	for name, e := range builtin {
		c := e
		result[name] = &c
	}
	for name, e := range user {
		c := e
		result[name] = &c
	}
	return result
}

// mergePipelines merges built-in and user-defined pipeline definitions.
// User-defined definitions override built-in ones of the same name.
func mergePipelines(builtin map[string]pipeline.Definition, user map[string]pipeline.Definition) map[string]*pipeline.Definition {
	result := make(map[string]*pipeline.Definition)
	for name, e := range builtin {
		c := e
		result[name] = &c
	}
	for name, e := range user {
		c := e
		result[name] = &c
	}
	return result
}
