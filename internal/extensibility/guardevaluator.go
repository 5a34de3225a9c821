package extensibility

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/comalice/xchart/internal/primitives"
)

// ExpressionGuard compiles a simple expression like "temp > 30" or "loggedIn == true"
// into a guard evaluated against a map[string]any context. Supported operators are
// ==, !=, <, <=, > and >=.
func ExpressionGuard(expr string) (primitives.GuardFunc, error) {
	parts := strings.Fields(expr)
	if len(parts) != 3 {
		return nil, fmt.Errorf("guard expression %q: want \"key op value\"", expr)
	}
	key, op, valStr := parts[0], parts[1], parts[2]
	var want float64
	switch op {
	case "==", "!=":
	case "<", "<=", ">", ">=":
		f, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return nil, fmt.Errorf("guard expression %q: %w", expr, err)
		}
		want = f
	default:
		return nil, fmt.Errorf("guard expression %q: unknown operator %q", expr, op)
	}

	return func(_ context.Context, ext any, _ primitives.Event, _ primitives.GuardMeta) (bool, error) {
		m, ok := ext.(map[string]any)
		if !ok {
			return false, nil
		}
		v, hasKey := m[key]
		if !hasKey {
			return false, nil
		}
		switch op {
		case "==":
			return equals(v, valStr), nil
		case "!=":
			return !equals(v, valStr), nil
		}
		f, ok := toFloat(v)
		if !ok {
			return false, nil
		}
		switch op {
		case "<":
			return f < want, nil
		case "<=":
			return f <= want, nil
		case ">":
			return f > want, nil
		default:
			return f >= want, nil
		}
	}, nil
}

// ExpressionGuards compiles each expression and registers it under its own text, so
// a definition can write `cond: "count < 3"`.
func ExpressionGuards(exprs ...string) (map[string]primitives.GuardFunc, error) {
	out := make(map[string]primitives.GuardFunc, len(exprs))
	for _, expr := range exprs {
		fn, err := ExpressionGuard(expr)
		if err != nil {
			return nil, err
		}
		out[expr] = fn
	}
	return out, nil
}

func equals(v any, valStr string) bool {
	switch valStr {
	case "true":
		return v == true
	case "false":
		return v == false
	case "nil":
		return v == nil
	}
	if f, ok := toFloat(v); ok {
		want, err := strconv.ParseFloat(valStr, 64)
		return err == nil && f == want
	}
	if s, ok := v.(string); ok {
		return s == strings.Trim(valStr, `"'`)
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
