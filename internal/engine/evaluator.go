// Package engine evaluates trigger expressions against a tracked event.
//
// Two expression forms are supported: a small boolean grammar
// (`namespace.field OP literal` combined with `&&`, `||` and parentheses)
// and JSON Logic (any expression starting with `{`). Both are evaluated
// against three namespaces: params.* from the event parameters, user.* from
// the user attributes and device.* from the device attributes.
package engine

import (
	"strings"
)

// Context carries the attribute namespaces an expression can reference.
type Context struct {
	Params map[string]any
	User   map[string]any
	Device map[string]any
}

// Evaluate reports whether the expression matches the given context.
//
// A nil or blank expression always matches (a ruleless trigger applies to
// every event). Unknown namespaces or fields, type mismatches and malformed
// expressions evaluate to false rather than erroring; a bad expression must
// never break the evaluation of other rules.
func Evaluate(expression *string, evalCtx Context) bool {
	if expression == nil {
		return true
	}
	expr := strings.TrimSpace(*expression)
	if expr == "" {
		return true
	}
	if strings.HasPrefix(expr, "{") {
		return evaluateJSONLogic(expr, evalCtx)
	}

	node, err := parse(expr)
	if err != nil {
		return false
	}
	return node.eval(evalCtx)
}

func (c Context) lookup(namespace, field string) (any, bool) {
	var attrs map[string]any
	switch namespace {
	case "params":
		attrs = c.Params
	case "user":
		attrs = c.User
	case "device":
		attrs = c.Device
	default:
		return nil, false
	}
	if attrs == nil {
		return nil, false
	}
	v, ok := attrs[field]
	return v, ok
}
