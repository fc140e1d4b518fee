package pathexpr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/actorflow/pkg/pathexpr"
)

func TestEval_Root(t *testing.T) {
	root := map[string]any{"a": "b"}
	v, err := pathexpr.Eval("$", root, pathexpr.Bindings{})
	require.NoError(t, err)
	assert.Equal(t, root, v)
}

func TestEval_FieldAndIndex(t *testing.T) {
	root := map[string]any{
		"a": map[string]any{
			"b": []any{"x", "y", "z"},
		},
	}
	v, err := pathexpr.Eval("$.a.b[1]", root, pathexpr.Bindings{})
	require.NoError(t, err)
	assert.Equal(t, "y", v)
}

func TestEval_Wildcard(t *testing.T) {
	root := map[string]any{"items": []any{1, 2, 3}}
	v, err := pathexpr.Eval("$.items[*]", root, pathexpr.Bindings{})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2, 3}, v)
}

func TestEval_MissingFieldReturnsErrNotFound(t *testing.T) {
	root := map[string]any{"a": 1}
	_, err := pathexpr.Eval("$.missing", root, pathexpr.Bindings{})
	assert.ErrorIs(t, err, pathexpr.ErrNotFound)
}

func TestEval_IndexOutOfRange(t *testing.T) {
	root := map[string]any{"items": []any{1}}
	_, err := pathexpr.Eval("$.items[5]", root, pathexpr.Bindings{})
	assert.ErrorIs(t, err, pathexpr.ErrNotFound)
}

func TestEval_InvalidExprMustStartWithDollarOrAt(t *testing.T) {
	_, err := pathexpr.Eval("a.b", nil, pathexpr.Bindings{})
	assert.ErrorIs(t, err, pathexpr.ErrInvalidExpr)
}

func TestEval_Variables(t *testing.T) {
	bindings := pathexpr.Bindings{Variables: map[string]any{"stage1": "done"}}
	v, err := pathexpr.Eval("@variables('stage1')", nil, bindings)
	require.NoError(t, err)
	assert.Equal(t, "done", v)

	_, err = pathexpr.Eval("@variables('missing')", nil, bindings)
	assert.ErrorIs(t, err, pathexpr.ErrNotFound)
}

func TestEval_Parameters(t *testing.T) {
	bindings := pathexpr.Bindings{Parameters: map[string]any{"name": "alice"}}
	v, err := pathexpr.Eval("@parameters('name')", nil, bindings)
	require.NoError(t, err)
	assert.Equal(t, "alice", v)
}

func TestEval_Secret(t *testing.T) {
	bindings := pathexpr.Bindings{Secret: func(name string) (string, error) {
		if name == "api-key" {
			return "s3cr3t", nil
		}
		return "", errors.New("no such secret")
	}}
	v, err := pathexpr.Eval("@secret('api-key')", nil, bindings)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", v)

	_, err = pathexpr.Eval("@secret('unknown')", nil, bindings)
	assert.Error(t, err)
}

func TestEval_SecretWithNoResolverConfigured(t *testing.T) {
	_, err := pathexpr.Eval("@secret('x')", nil, pathexpr.Bindings{})
	assert.ErrorIs(t, err, pathexpr.ErrInvalidExpr)
}

func TestEval_MalformedFunctionCall(t *testing.T) {
	_, err := pathexpr.Eval("@variables(", nil, pathexpr.Bindings{})
	assert.ErrorIs(t, err, pathexpr.ErrInvalidExpr)
}

func TestEval_UnterminatedBracket(t *testing.T) {
	_, err := pathexpr.Eval("$.a[0", map[string]any{}, pathexpr.Bindings{})
	assert.ErrorIs(t, err, pathexpr.ErrInvalidExpr)
}

func TestEval_FieldOnNonObject(t *testing.T) {
	_, err := pathexpr.Eval("$.a.b", map[string]any{"a": 1}, pathexpr.Bindings{})
	assert.ErrorIs(t, err, pathexpr.ErrNotFound)
}

func ExampleEval() {
	root := map[string]any{"greeting": "hello"}
	v, _ := pathexpr.Eval("$.greeting", root, pathexpr.Bindings{})
	fmt.Println(v)
	// Output: hello
}
