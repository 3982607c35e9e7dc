package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/structchat/structchat/schema"
)

// NoJSONMessage is returned when a response holds no fenced JSON block.
const NoJSONMessage = "No JSON markdown found. The response should be enclosed within a JSON Markdown block like: \n```json\nJSON OUTPUT HERE\n```"

var fencedJSON = regexp.MustCompile("(?s)```json\\b(.*?)```")

// ExtractJSON pulls every ```json fenced block out of raw in document order,
// parses each one and validates block i against schemas[i]. Blocks without a
// schema, and schemas without a block, are not checked. The first failure
// wins and no partial content is returned.
func ExtractJSON(raw string, schemas []*schema.Schema) ExtractionResult {
	matches := fencedJSON.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return failure(FailureFormat, NoJSONMessage)
	}

	content := make([]any, 0, len(matches))
	for _, m := range matches {
		v, err := decodeBlock(m[1])
		if err != nil {
			return failure(FailureFormat, parseError(m[1], err))
		}
		content = append(content, v)
	}

	n := min(len(content), len(schemas))
	for i := 0; i < n; i++ {
		if msg := schema.Validate(content[i], schemas[i]); msg != "" {
			return failure(FailureSemantic, fmt.Sprintf("in the JSON #%d:%s", i+1, msg))
		}
	}

	return success(content)
}

// decodeBlock parses one block. Numbers become float64 unless that would
// change their value, in which case they stay json.Number.
func decodeBlock(text string) (any, error) {
	if !json.Valid([]byte(text)) {
		var v any
		return nil, json.Unmarshal([]byte(text), &v)
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeNumbers(item)
		}
	case []any:
		for i, item := range t {
			t[i] = normalizeNumbers(item)
		}
	case json.Number:
		s := t.String()
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return t
		}
		if strings.ContainsAny(s, ".eE") || strconv.FormatFloat(f, 'f', -1, 64) == s {
			return f
		}
		return t
	}
	return v
}

// parseError appends a line/column/char position to a decoder error.
func parseError(text string, err error) string {
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return err.Error()
	}

	// Offset counts the bytes read, including the offending one.
	char := int(syntaxErr.Offset)
	if char > 0 && char <= len(text) && !strings.HasPrefix(syntaxErr.Error(), "unexpected end") {
		char--
	}
	if char > len(text) {
		char = len(text)
	}

	before := text[:char]
	line := strings.Count(before, "\n") + 1
	column := char - strings.LastIndex(before, "\n")

	return fmt.Sprintf("%s: line %d column %d (char %d)", syntaxErr.Error(), line, column, char)
}
