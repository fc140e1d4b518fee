package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	os.Setenv("ACTORFLOW_TEST_VAR", "hello")
	defer os.Unsetenv("ACTORFLOW_TEST_VAR")

	out := ExpandEnv([]byte("value: ${ACTORFLOW_TEST_VAR}"))
	assert.Equal(t, "value: hello", string(out))
}

func TestExpandEnv_MissingVarExpandsEmpty(t *testing.T) {
	out := ExpandEnv([]byte("value: ${ACTORFLOW_DOES_NOT_EXIST}"))
	assert.Equal(t, "value: ", string(out))
}
