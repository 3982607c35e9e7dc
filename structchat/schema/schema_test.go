package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestValidate_Messages(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		value  string
		want   string
	}{
		{"type mismatch", `{"type":"string"}`, `3`, "3 is not of type 'string'"},
		{"type list", `{"type":["string","null"]}`, `1`, "1 is not of type 'string', 'null'"},
		{"boolean is not a number", `{"type":"number"}`, `true`, "True is not of type 'number'"},
		{"integer rejects fraction", `{"type":"integer"}`, `2.5`, "2.5 is not of type 'integer'"},
		{"integer accepts whole float", `{"type":"integer"}`, `3.0`, ""},
		{"null type", `{"type":"object"}`, `null`, "None is not of type 'object'"},
		{"required", `{"type":"object","required":["a"]}`, `{}`, "'a' is a required property"},
		{
			"single additional property",
			`{"type":"object","properties":{"a":{}},"additionalProperties":false}`,
			`{"a":1,"x":2}`,
			"Additional properties are not allowed ('x' was unexpected)",
		},
		{
			"several additional properties",
			`{"type":"object","properties":{"a":{}},"additionalProperties":false}`,
			`{"a":1,"y":2,"x":3}`,
			"Additional properties are not allowed ('x', 'y' were unexpected)",
		},
		{
			"additional property subschema",
			`{"type":"object","additionalProperties":{"type":"integer"}}`,
			`{"k":"v"}`,
			"'v' is not of type 'integer', in path ['k']",
		},
		{"min length", `{"type":"string","minLength":1}`, `""`, "'' is too short"},
		{"max length", `{"type":"string","maxLength":2}`, `"abc"`, "'abc' is too long"},
		{"non-empty array", `{"type":"array","minItems":1}`, `[]`, "[] should be non-empty"},
		{"min items", `{"type":"array","minItems":2}`, `[1]`, "[1] is too short"},
		{"max items", `{"type":"array","maxItems":1}`, `[1,2]`, "[1, 2] is too long"},
		{"empty array expected", `{"type":"array","maxItems":0}`, `[1]`, "[1] is expected to be empty"},
		{"minimum", `{"type":"integer","minimum":5}`, `3`, "3 is less than the minimum of 5"},
		{"maximum", `{"type":"integer","maximum":5}`, `9`, "9 is greater than the maximum of 5"},
		{
			"draft-4 exclusive minimum",
			`{"$schema":"http://json-schema.org/draft-04/schema#","minimum":5,"exclusiveMinimum":true}`,
			`5`,
			"5 is less than or equal to the minimum of 5",
		},
		{"draft-6 exclusive maximum", `{"exclusiveMaximum":5}`, `5`, "5 is greater than or equal to the maximum of 5"},
		{"enum", `{"enum":["a","b"]}`, `"z"`, "'z' is not one of ['a', 'b']"},
		{"enum match", `{"enum":["a",1]}`, `1`, ""},
		{
			"nested path",
			`{"type":"array","items":{"type":"object","properties":{"b":{"type":"string"}}}}`,
			`[{"b":"ok"},{"b":3}]`,
			"3 is not of type 'string', in path [1, 'b']",
		},
		{
			"nested required keeps parent path",
			`{"type":"object","properties":{"inner":{"type":"object","required":["id"]}}}`,
			`{"inner":{}}`,
			"'id' is a required property, in path ['inner']",
		},
		{"rules skip other kinds", `{"minLength":3,"minimum":10,"minItems":2}`, `true`, ""},
		{"empty schema accepts anything", `{}`, `{"a":[1,null]}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := MustCompile(tt.schema)
			assert.Equal(t, tt.want, Validate(decode(t, tt.value), s))
		})
	}
}

func TestValidate_DeclaredPropertyOrder(t *testing.T) {
	s := MustCompile(`{"type":"object","properties":{"z":{"type":"string"},"a":{"type":"string"}}}`)

	got := s.Validate(decode(t, `{"a":1,"z":2}`))
	assert.Equal(t, "2 is not of type 'string', in path ['z']", got)
}

func TestValidate_TypeFailureStopsAtNode(t *testing.T) {
	s := MustCompile(`{"type":"object","required":["a"]}`)
	assert.Equal(t, "[] is not of type 'object'", s.Validate([]any{}))
}

func TestValidate_NilSchema(t *testing.T) {
	assert.Empty(t, Validate(map[string]any{"x": 1}, nil))
}

func TestValidate_GoValues(t *testing.T) {
	s := MustCompile(`{"type":"object","properties":{"n":{"type":"integer","minimum":1}}}`)

	assert.Empty(t, s.Validate(map[string]any{"n": 2}))
	assert.Equal(t, "0 is less than the minimum of 1, in path ['n']", s.Validate(map[string]any{"n": 0}))
	assert.Equal(t, "0 is less than the minimum of 1, in path ['n']", s.Validate(map[string]any{"n": json.Number("0")}))
}

func TestValidate_LargeJSONNumber(t *testing.T) {
	s := MustCompile(`{"type":"object","properties":{"id":{"type":"integer","maximum":100}}}`)

	assert.Equal(t, "9007199254740993 is greater than the maximum of 100, in path ['id']",
		s.Validate(map[string]any{"id": json.Number("9007199254740993")}))
	assert.Equal(t, "'9007199254740993' is not of type 'integer', in path ['id']",
		s.Validate(map[string]any{"id": "9007199254740993"}))
	assert.Empty(t, s.Validate(map[string]any{"id": json.Number("42")}))
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile([]byte(`{"type": 12}`))
	assert.Error(t, err)

	_, err = Compile([]byte(`{`))
	assert.Error(t, err)

	assert.Panics(t, func() { MustCompile(`not json`) })
}

func TestCompileMap(t *testing.T) {
	s, err := CompileMap(map[string]any{
		"type":     "object",
		"required": []string{"name"},
	})
	require.NoError(t, err)
	assert.Equal(t, "'name' is a required property", s.Validate(map[string]any{}))
	assert.NotEmpty(t, s.Raw())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "None", Describe(nil))
	assert.Equal(t, "False", Describe(false))
	assert.Equal(t, "2.5", Describe(2.5))
	assert.Equal(t, "100", Describe(float64(100)))
	assert.Equal(t, `"it's"`, Describe("it's"))
	assert.Equal(t, `'a\nb'`, Describe("a\nb"))
	assert.Equal(t, "{'a': [1, 'x'], 'b': None}", Describe(map[string]any{"b": nil, "a": []any{1.0, "x"}}))
}

func TestRegistry_LoadDir(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "person.json"),
		[]byte(`{"type":"object","required":["name"]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tags.yaml"), []byte(`
type: object
properties:
  z:
    type: string
  a:
    type: string
additionalProperties: false
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	reg, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"person", "tags"}, reg.Names())

	tags, ok := reg.Get("tags")
	require.True(t, ok)
	assert.Equal(t, "1 is not of type 'string', in path ['z']", tags.Validate(decode(t, `{"a":2,"z":1}`)))
	assert.Equal(t, "Additional properties are not allowed ('q' was unexpected)", tags.Validate(decode(t, `{"q":1}`)))

	set, err := reg.Set("tags", "person")
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.Same(t, tags, set[0])

	_, err = reg.Set("missing")
	assert.Error(t, err)
}

func TestRegistry_LoadDirMissing(t *testing.T) {
	reg, err := LoadDir(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, reg.Names())
}

func TestRegistry_LoadDirInvalidSchema(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"type": 12}`), 0o644))

	_, err := LoadDir(dir)
	assert.Error(t, err)
}
