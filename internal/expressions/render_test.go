package expressions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderString_Basic(t *testing.T) {
	state := map[string]any{"name": "Ada"}
	assert.Equal(t, "hi Ada", RenderString("hi {name}", state))
}

func TestRenderString_MissingKeyStaysVerbatim(t *testing.T) {
	state := map[string]any{"other": "x"}
	assert.Equal(t, "hi {name}", RenderString("hi {name}", state))
}

func TestRenderString_Idempotent(t *testing.T) {
	state := map[string]any{}
	once := RenderString("hi {name}", state)
	twice := RenderString(once, state)
	assert.Equal(t, once, twice)
}

func TestRenderString_MultipleOccurrences(t *testing.T) {
	state := map[string]any{"q": "go"}
	assert.Equal(t, "go and go again", RenderString("{q} and {q} again", state))
}

func TestRenderString_NumericValue(t *testing.T) {
	state := map[string]any{"count": 3, "ratio": 1.5}
	assert.Equal(t, "3 of 1.5", RenderString("{count} of {ratio}", state))
}

func TestRender_NestedStructures(t *testing.T) {
	state := map[string]any{"name": "Ada"}
	in := map[string]any{
		"text": "hi {name}",
		"list": []any{"{name}", 42, map[string]any{"deep": "{name}!"}},
	}

	out := Render(in, state).(map[string]any)

	assert.Equal(t, "hi Ada", out["text"])
	list := out["list"].([]any)
	assert.Equal(t, "Ada", list[0])
	assert.Equal(t, 42, list[1])
	assert.Equal(t, "Ada!", list[2].(map[string]any)["deep"])
}

func TestRender_NonStringPassthrough(t *testing.T) {
	state := map[string]any{"x": "y"}
	assert.Equal(t, 7, Render(7, state))
	assert.Equal(t, true, Render(true, state))
	assert.Nil(t, Render(nil, state))
}

func TestRenderArgs_NilArgs(t *testing.T) {
	out := RenderArgs(nil, map[string]any{"a": 1})
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestStringify_CompositeUsesJSON(t *testing.T) {
	assert.Equal(t, `["a","b"]`, Stringify([]any{"a", "b"}))
	assert.Equal(t, `{"k":1}`, Stringify(map[string]any{"k": 1}))
}

func TestStringify_Scalars(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "1.5", Stringify(1.5))
	assert.Equal(t, "8", Stringify(int64(8)))
}
