// Package pathexpr implements the pipeline-context minilanguage from
// spec.md §4.6: JSONPath-like field/index access rooted at "$", plus the
// three binding functions @variables(), @parameters(), and @secret() that
// resolve against a pipeline's running context rather than its JSON
// payload tree.
//
// No JSONPath library appears anywhere in the retrieved corpus's
// dependency graphs, so this evaluator is hand-rolled against
// encoding/json's native map[string]any/[]any representation — see
// DESIGN.md for why no third-party library could be grounded here.
package pathexpr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotFound indicates the expression traversed a path that does not
// exist in the document (a distinct outcome from ErrInvalidExpr so callers
// can choose to treat a missing optional field as nil).
var ErrNotFound = errors.New("pathexpr: path not found")

// ErrInvalidExpr indicates a malformed expression string.
var ErrInvalidExpr = errors.New("pathexpr: invalid expression")

// Bindings supplies the values @variables(), @parameters(), and
// @secret() resolve against. Secret lookups are kept separate from
// Variables/Parameters so a store can apply stricter redaction to them.
type Bindings struct {
	Variables  map[string]any
	Parameters map[string]any
	Secret     func(name string) (string, error)
}

// Eval resolves expr against root (the pipeline's current context
// document) and bindings. Supported forms:
//
//	$                    the root document itself
//	$.a.b                nested field access
//	$.a[2]               array index
//	$.a[*]               every element of the array; since scatter/gather
//	                     never nests arrays-of-arrays through this path,
//	                     there is nothing left to flatten in practice
//	@variables('name')   a named pipeline variable
//	@parameters('name')  a named pipeline input parameter
//	@secret('name')      a named secret, resolved via Bindings.Secret
func Eval(expr string, root any, bindings Bindings) (any, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case strings.HasPrefix(expr, "@variables(") || strings.HasPrefix(expr, "@parameters(") || strings.HasPrefix(expr, "@secret("):
		return evalFunction(expr, bindings)
	case strings.HasPrefix(expr, "$"):
		return evalJSONPath(expr, root)
	default:
		return nil, fmt.Errorf("%w: %q must start with \"$\" or \"@\"", ErrInvalidExpr, expr)
	}
}

func evalFunction(expr string, bindings Bindings) (any, error) {
	name, arg, err := splitCall(expr)
	if err != nil {
		return nil, err
	}
	switch name {
	case "variables":
		v, ok := bindings.Variables[arg]
		if !ok {
			return nil, fmt.Errorf("%w: variable %q", ErrNotFound, arg)
		}
		return v, nil
	case "parameters":
		v, ok := bindings.Parameters[arg]
		if !ok {
			return nil, fmt.Errorf("%w: parameter %q", ErrNotFound, arg)
		}
		return v, nil
	case "secret":
		if bindings.Secret == nil {
			return nil, fmt.Errorf("%w: no secret resolver configured", ErrInvalidExpr)
		}
		return bindings.Secret(arg)
	default:
		return nil, fmt.Errorf("%w: unknown function %q", ErrInvalidExpr, name)
	}
}

// splitCall parses "name('arg')" into ("name", "arg", nil).
func splitCall(expr string) (name, arg string, err error) {
	open := strings.IndexByte(expr, '(')
	if open < 0 || !strings.HasSuffix(expr, ")") {
		return "", "", fmt.Errorf("%w: %q missing matching parens", ErrInvalidExpr, expr)
	}
	name = expr[:open]
	inner := strings.TrimSpace(expr[open+1 : len(expr)-1])
	inner = strings.Trim(inner, "'\"")
	if inner == "" {
		return "", "", fmt.Errorf("%w: %q has an empty argument", ErrInvalidExpr, expr)
	}
	return name, inner, nil
}

// token is one parsed step of a JSONPath-like expression.
type token struct {
	field    string // set for ".field" steps
	index    int    // set for "[n]" steps
	wildcard bool   // set for "[*]" steps
	isIndex  bool
}

func evalJSONPath(expr string, root any) (any, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return nil, err
	}
	cur := root
	for _, tok := range tokens {
		switch {
		case tok.wildcard:
			arr, ok := cur.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: %q: [*] on non-array", ErrNotFound, expr)
			}
			cur = arr
		case tok.isIndex:
			arr, ok := cur.([]any)
			if !ok || tok.index < 0 || tok.index >= len(arr) {
				return nil, fmt.Errorf("%w: %q: index %d", ErrNotFound, expr, tok.index)
			}
			cur = arr[tok.index]
		default:
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %q: field %q on non-object", ErrNotFound, expr, tok.field)
			}
			v, ok := obj[tok.field]
			if !ok {
				return nil, fmt.Errorf("%w: %q: field %q", ErrNotFound, expr, tok.field)
			}
			cur = v
		}
	}
	return cur, nil
}

// tokenize parses "$.a.b[2][*]" into a sequence of field/index/wildcard
// steps, ignoring the leading "$".
func tokenize(expr string) ([]token, error) {
	if !strings.HasPrefix(expr, "$") {
		return nil, fmt.Errorf("%w: %q must start with \"$\"", ErrInvalidExpr, expr)
	}
	rest := expr[1:]
	var tokens []token
	i := 0
	for i < len(rest) {
		switch rest[i] {
		case '.':
			j := i + 1
			for j < len(rest) && rest[j] != '.' && rest[j] != '[' {
				j++
			}
			field := rest[i+1 : j]
			if field == "" {
				return nil, fmt.Errorf("%w: %q has an empty field segment", ErrInvalidExpr, expr)
			}
			tokens = append(tokens, token{field: field})
			i = j
		case '[':
			j := strings.IndexByte(rest[i:], ']')
			if j < 0 {
				return nil, fmt.Errorf("%w: %q has an unterminated \"[\"", ErrInvalidExpr, expr)
			}
			inner := rest[i+1 : i+j]
			if inner == "*" {
				tokens = append(tokens, token{wildcard: true})
			} else {
				n, err := strconv.Atoi(inner)
				if err != nil {
					return nil, fmt.Errorf("%w: %q has a non-integer index %q", ErrInvalidExpr, expr, inner)
				}
				tokens = append(tokens, token{index: n, isIndex: true})
			}
			i += j + 1
		default:
			return nil, fmt.Errorf("%w: %q has unexpected character %q", ErrInvalidExpr, expr, string(rest[i]))
		}
	}
	return tokens, nil
}
