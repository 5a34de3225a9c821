package extensibility

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/xchart/internal/primitives"
)

func evalExpr(t *testing.T, expr string, ext any) bool {
	t.Helper()
	fn, err := ExpressionGuard(expr)
	require.NoError(t, err)
	ok, err := fn(context.Background(), ext, primitives.NewEvent("test", nil), primitives.GuardMeta{})
	require.NoError(t, err)
	return ok
}

func TestExpressionGuard(t *testing.T) {
	ext := map[string]any{
		"temp":     35,
		"ratio":    0.5,
		"loggedIn": true,
		"name":     "ada",
		"nothing":  nil,
	}
	tests := []struct {
		expr string
		want bool
	}{
		{"temp > 30", true},
		{"temp >= 35", true},
		{"temp < 30", false},
		{"temp <= 35", true},
		{"temp == 35", true},
		{"temp != 35", false},
		{"ratio < 1", true},
		{"loggedIn == true", true},
		{"loggedIn == false", false},
		{"name == ada", true},
		{"name != bob", true},
		{"nothing == nil", true},
		{"missing == nil", false},
		{"name > 3", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, evalExpr(t, tt.expr, ext))
		})
	}
}

func TestExpressionGuardNonMapContext(t *testing.T) {
	assert.False(t, evalExpr(t, "count < 3", 7))
	assert.False(t, evalExpr(t, "count < 3", nil))
}

func TestExpressionGuardErrors(t *testing.T) {
	_, err := ExpressionGuard("count <")
	require.Error(t, err)
	_, err = ExpressionGuard("count ~ 3")
	require.Error(t, err)
	_, err = ExpressionGuard("count < three")
	require.ErrorContains(t, err, `"count < three"`)

	_, err = ExpressionGuard("name == three")
	require.NoError(t, err)
}

func TestExpressionGuards(t *testing.T) {
	guards, err := ExpressionGuards("count < 3", "count >= 3")
	require.NoError(t, err)
	require.Len(t, guards, 2)
	ok, err := guards["count < 3"](context.Background(), map[string]any{"count": 1}, primitives.Event{}, primitives.GuardMeta{})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = ExpressionGuards("bad")
	require.Error(t, err)
}
