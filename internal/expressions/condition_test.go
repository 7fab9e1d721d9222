package expressions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateCondition_EmptyIsTrue(t *testing.T) {
	assert.True(t, EvaluateCondition("", nil))
	assert.True(t, EvaluateCondition("   \t ", nil))
}

func TestEvaluateCondition_LiteralKeywords(t *testing.T) {
	trueCases := []string{"true", "TRUE", "True", "1", "yes", "YES"}
	for _, c := range trueCases {
		assert.True(t, EvaluateCondition(c, nil), "expected %q to be true", c)
	}

	falseCases := []string{"false", "FALSE", "0", "no", "No"}
	for _, c := range falseCases {
		assert.False(t, EvaluateCondition(c, nil), "expected %q to be false", c)
	}
}

func TestEvaluateCondition_StateLookups(t *testing.T) {
	state := map[string]any{
		"count": float64(3),
		"name":  "ada",
		"flag":  true,
		"empty": "",
		"zero":  float64(0),
	}

	cases := map[string]bool{
		`state["count"] == 3`:           true,
		`state['count'] == 3`:           true,
		`state.count == 3`:              true,
		`state["count"] > 2`:            true,
		`state["count"] >= 4`:           false,
		`state["name"] == 'ada'`:        true,
		`state["name"] != "ada"`:        false,
		`state["flag"]`:                 true,
		`state["empty"]`:                false,
		`state["zero"]`:                 false,
		`state["missing"]`:              false,
		`state["missing"] == none`:      true,
		`not state["flag"]`:             false,
		`not state["missing"]`:          true,
		`state["flag"] and state.name`:  true,
		`state["flag"] and state.empty`: false,
		`state["empty"] or state.flag`:  true,
	}
	for expr, want := range cases {
		assert.Equal(t, want, EvaluateCondition(expr, state), "expression: %s", expr)
	}

	assert.True(t, EvaluateCondition(`(state.count > 1) and (state.count < 5)`, state))
}

func TestEvaluateCondition_FailClosed(t *testing.T) {
	state := map[string]any{"x": "text"}

	// Ordering against a missing key, unknown identifiers, unterminated
	// strings, calls: all evaluate to false rather than erroring.
	cases := []string{
		`state["missing"] > 1`,
		`bogus == 1`,
		`state["x`,
		`state["x"] > 1`,
		`delete(state)`,
		`state[`,
		`state`,
		`1 +`,
		`state["x"] == "text" extra`,
	}
	for _, expr := range cases {
		assert.False(t, EvaluateCondition(expr, state), "expression should fail closed: %s", expr)
	}
}

func TestEvaluateCondition_NumericCoercion(t *testing.T) {
	// State values arrive as int from Go callers and float64 from JSON;
	// comparisons must treat them alike.
	assert.True(t, EvaluateCondition(`state["n"] == 5`, map[string]any{"n": 5}))
	assert.True(t, EvaluateCondition(`state["n"] == 5`, map[string]any{"n": float64(5)}))
	assert.True(t, EvaluateCondition(`state["n"] < 5.5`, map[string]any{"n": int64(5)}))
}

func TestEvaluateCondition_StringOrdering(t *testing.T) {
	state := map[string]any{"a": "apple", "b": "banana"}
	assert.True(t, EvaluateCondition(`state["a"] < state["b"]`, state))
	assert.False(t, EvaluateCondition(`state["a"] > state["b"]`, state))
}

func TestEvaluateCondition_Precedence(t *testing.T) {
	// and binds tighter than or.
	state := map[string]any{"t": true, "f": false}
	assert.True(t, EvaluateCondition(`state.t or state.f and state.f`, state))
	assert.False(t, EvaluateCondition(`(state.t or state.f) and state.f`, state))
}

func TestEvaluateCondition_ErrorPoisonsWholeExpression(t *testing.T) {
	// A failed comparison anywhere fails the whole condition to false, even
	// under not/or where flattening the error to a falsy bool would flip it.
	state := map[string]any{"ok": true}
	assert.False(t, EvaluateCondition(`state["missing"] > 1 or state.ok`, state))
	assert.False(t, EvaluateCondition(`state["missing"] > 1 and state.ok`, state))
	assert.False(t, EvaluateCondition(`not (state["missing"] > 1)`, state))
	assert.False(t, EvaluateCondition(`not not (state["missing"] > 1)`, state))

	// Short-circuit still applies: the errored operand is never reached.
	assert.True(t, EvaluateCondition(`state.ok or state["missing"] > 1`, state))
	assert.False(t, EvaluateCondition(`state.missing and state.missing > 1`, state))
}

func TestEvaluateCondition_UncomparableOperands(t *testing.T) {
	// Action results saved into state can be maps or slices; comparing them
	// is an evaluation error, never a panic.
	state := map[string]any{
		"a":     map[string]any{"mode": "live"},
		"b":     map[string]any{"mode": "live"},
		"items": []any{1, 2},
		"ok":    true,
	}
	assert.False(t, EvaluateCondition(`state.a == state.b`, state))
	assert.False(t, EvaluateCondition(`state.a != state.b`, state))
	assert.False(t, EvaluateCondition(`state.items == state.items`, state))
	assert.False(t, EvaluateCondition(`not (state.a == state.b)`, state))
	assert.False(t, EvaluateCondition(`state.a == state.b or state.ok`, state))
}
