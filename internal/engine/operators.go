package engine

import (
	"encoding/json"

	"github.com/Masterminds/semver/v3"
)

type operator string

const (
	opEq  operator = "=="
	opNeq operator = "!="
	opGT  operator = ">"
	opLT  operator = "<"
	opGTE operator = ">="
	opLTE operator = "<="
)

func parseOperator(text string) (operator, bool) {
	switch operator(text) {
	case opEq, opNeq, opGT, opLT, opGTE, opLTE:
		return operator(text), true
	default:
		return "", false
	}
}

// compare applies op to an attribute value and an expression literal.
// Equality coerces across string, numeric and bool representations. Ordered
// comparisons try numbers first, then semantic versions for strings that
// parse as versions. Anything else is a type mismatch and yields false.
func compare(op operator, value, literal any) bool {
	switch op {
	case opEq:
		return looselyEqual(value, literal)
	case opNeq:
		return !looselyEqual(value, literal)
	case opGT:
		return ordered(value, literal, func(c int) bool { return c > 0 })
	case opLT:
		return ordered(value, literal, func(c int) bool { return c < 0 })
	case opGTE:
		return ordered(value, literal, func(c int) bool { return c >= 0 })
	case opLTE:
		return ordered(value, literal, func(c int) bool { return c <= 0 })
	default:
		return false
	}
}

func looselyEqual(value, literal any) bool {
	if v, ok := toFloat64(value); ok {
		if l, ok := toFloat64(literal); ok {
			return v == l
		}
		return false
	}
	if v, ok := value.(bool); ok {
		l, ok := literal.(bool)
		return ok && v == l
	}
	if v, ok := toString(value); ok {
		l, ok := toString(literal)
		return ok && v == l
	}
	return false
}

func ordered(value, literal any, check func(int) bool) bool {
	if v, ok := toFloat64(value); ok {
		l, ok := toFloat64(literal)
		if !ok {
			return false
		}
		switch {
		case v < l:
			return check(-1)
		case v > l:
			return check(1)
		default:
			return check(0)
		}
	}

	// Ordered comparison on strings is only defined for version strings,
	// e.g. device.osVersion >= "16.4".
	v, vok := toString(value)
	l, lok := toString(literal)
	if !vok || !lok {
		return false
	}
	vv, err := semver.NewVersion(v)
	if err != nil {
		return false
	}
	lv, err := semver.NewVersion(l)
	if err != nil {
		return false
	}
	return check(vv.Compare(lv))
}

func toString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
