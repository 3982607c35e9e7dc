package chat

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/structchat/structchat/schema"
)

func fence(body string) string {
	return "```json\n" + body + "\n```"
}

func TestExtractJSON_RoundTrip(t *testing.T) {
	values := []string{`{"a":1,"b":[true,null]}`, `[1,2,3]`, `"text"`, `42`, `null`}
	for _, v := range values {
		result := ExtractJSON("Here you go:\n"+fence(v)+"\nThanks.", nil)
		require.False(t, result.HasError, v)
		require.Len(t, result.Content, 1)
		assert.Equal(t, FailureNone, result.Kind)
		assert.Empty(t, result.Error)
	}

	result := ExtractJSON(fence(`{"a":"x"}`), nil)
	assert.Equal(t, []any{map[string]any{"a": "x"}}, result.Content)
}

func TestExtractJSON_DocumentOrder(t *testing.T) {
	raw := fence(`1`) + " and then " + fence(`2`) + "\n```\nnot json tagged\n```\n" + fence(`3`)

	result := ExtractJSON(raw, nil)
	require.False(t, result.HasError)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, result.Content)
}

func TestExtractJSON_NoFencedBlock(t *testing.T) {
	for _, raw := range []string{"no json here", `{"a":1}`, "```\n{\"a\":1}\n```", ""} {
		result := ExtractJSON(raw, nil)
		assert.True(t, result.HasError)
		assert.Equal(t, NoJSONMessage, result.Error)
		assert.Equal(t, FailureFormat, result.Kind)
		assert.Empty(t, result.Content)
	}
	assert.True(t, strings.HasPrefix(NoJSONMessage, "No JSON markdown found"))
}

func TestExtractJSON_ParseErrorHasPosition(t *testing.T) {
	result := ExtractJSON(fence(`{"a": }`), nil)
	assert.True(t, result.HasError)
	assert.Equal(t, FailureFormat, result.Kind)
	assert.Contains(t, result.Error, "invalid character '}'")
	assert.Contains(t, result.Error, "line 2 column 7 (char 7)")
	assert.Empty(t, result.Content)

	result = ExtractJSON("```json\n{\"a\": 1\n```", nil)
	assert.Equal(t, "unexpected end of JSON input: line 3 column 1 (char 9)", result.Error)
}

func TestExtractJSON_AnyBadBlockFailsAll(t *testing.T) {
	result := ExtractJSON(fence(`1`)+fence(`{oops}`)+fence(`3`), nil)
	assert.True(t, result.HasError)
	assert.Empty(t, result.Content)
}

func TestExtractJSON_FailFastOrdering(t *testing.T) {
	str := schema.MustCompile(`{"type":"string"}`)
	schemas := []*schema.Schema{str, str, str, str}

	raw := fence(`"ok"`) + fence(`"ok"`) + fence(`7`) + fence(`8`)
	result := ExtractJSON(raw, schemas)

	assert.True(t, result.HasError)
	assert.Equal(t, FailureSemantic, result.Kind)
	assert.Equal(t, "in the JSON #3:7 is not of type 'string'", result.Error)
	assert.NotContains(t, result.Error, "#4")
	assert.NotContains(t, result.Error, "8")
	assert.Empty(t, result.Content)
}

func TestExtractJSON_PositionalCoverage(t *testing.T) {
	obj := schema.MustCompile(`{"type":"object","required":["a"]}`)

	// Trailing blocks beyond the schemas pass through unvalidated.
	result := ExtractJSON(fence(`{"a":1}`)+fence(`"anything"`), []*schema.Schema{obj})
	require.False(t, result.HasError)
	assert.Len(t, result.Content, 2)

	// Schemas beyond the blocks are not checked.
	result = ExtractJSON(fence(`{"a":1}`), []*schema.Schema{obj, obj, obj})
	require.False(t, result.HasError)
	assert.Len(t, result.Content, 1)
}

func TestExtractJSON_PathQualifiedError(t *testing.T) {
	s := schema.MustCompile(`{"type":"array","items":{"type":"object","properties":{"b":{"type":"string","minLength":1}}}}`)

	result := ExtractJSON(fence(`[{"b":""}]`), []*schema.Schema{s})
	assert.Equal(t, "in the JSON #1:'' is too short, in path [0, 'b']", result.Error)
}

func TestExtractionResult_IsTransportFailure(t *testing.T) {
	assert.True(t, failure(FailureTransport, "Http error: max attempts (3) exceeded").IsTransportFailure())
	assert.False(t, failure(FailureFormat, NoJSONMessage).IsTransportFailure())
	assert.False(t, success([]any{1}).IsTransportFailure())
}

func TestExtractJSON_LargeIntegersKeepTheirValue(t *testing.T) {
	result := ExtractJSON(fence(`{"id": 9007199254740993, "small": 12, "ratio": 0.5, "neg": -9223372036854775809}`), nil)
	require.False(t, result.HasError, result.Error)
	require.Len(t, result.Content, 1)

	obj := result.Content[0].(map[string]any)
	assert.Equal(t, json.Number("9007199254740993"), obj["id"])
	assert.Equal(t, json.Number("-9223372036854775809"), obj["neg"])
	assert.Equal(t, 12.0, obj["small"])
	assert.Equal(t, 0.5, obj["ratio"])

	out, err := json.Marshal(result.Content[0])
	require.NoError(t, err)
	assert.Contains(t, string(out), `"id":9007199254740993`)
}

func TestExtractJSON_LargeIntegerValidated(t *testing.T) {
	s := schema.MustCompile(`{"type":"integer","maximum":10}`)

	result := ExtractJSON(fence(`9007199254740993`), []*schema.Schema{s})
	assert.Equal(t, FailureSemantic, result.Kind)
	assert.Equal(t, "in the JSON #1:9007199254740993 is greater than the maximum of 10", result.Error)
}

func TestExtractJSON_TrailingGarbageStillFails(t *testing.T) {
	result := ExtractJSON(fence(`{"a":1} x`), nil)
	assert.True(t, result.HasError)
	assert.Equal(t, FailureFormat, result.Kind)
	assert.Contains(t, result.Error, "after top-level value")
	assert.Contains(t, result.Error, "(char 9)")
}

func TestExtractJSON_OtherFenceTagsIgnored(t *testing.T) {
	for _, tag := range []string{"jsonc", "json5", "jsonl"} {
		result := ExtractJSON("```"+tag+"\n{\"a\":1}\n```", nil)
		assert.Equal(t, NoJSONMessage, result.Error, tag)
		assert.Equal(t, FailureFormat, result.Kind, tag)
	}

	result := ExtractJSON("```json {\"a\":1}```", nil)
	require.False(t, result.HasError, result.Error)
	assert.Equal(t, []any{map[string]any{"a": 1.0}}, result.Content)
}
