package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"
)

// rule is one member of the closed constraint vocabulary.
type rule uint8

const (
	ruleType rule = iota
	ruleEnum
	ruleMinimum
	ruleMaximum
	ruleMinLength
	ruleMaxLength
	ruleMinItems
	ruleMaxItems
	ruleItems
	ruleRequired
	ruleAdditional
	ruleProperties
)

// planRules fixes the evaluation order for a node: the node's own
// constraints first, then its children.
func (s *Schema) planRules() []rule {
	var rules []rule
	if len(s.types) > 0 {
		rules = append(rules, ruleType)
	}
	if s.enum != nil {
		rules = append(rules, ruleEnum)
	}
	if s.minimum != nil || s.exclusiveMinimum != nil {
		rules = append(rules, ruleMinimum)
	}
	if s.maximum != nil || s.exclusiveMaximum != nil {
		rules = append(rules, ruleMaximum)
	}
	if s.minLength != nil {
		rules = append(rules, ruleMinLength)
	}
	if s.maxLength != nil {
		rules = append(rules, ruleMaxLength)
	}
	if s.minItems != nil {
		rules = append(rules, ruleMinItems)
	}
	if s.maxItems != nil {
		rules = append(rules, ruleMaxItems)
	}
	if s.items != nil {
		rules = append(rules, ruleItems)
	}
	if len(s.required) > 0 {
		rules = append(rules, ruleRequired)
	}
	if s.closed || s.additional != nil {
		rules = append(rules, ruleAdditional)
	}
	if len(s.properties) > 0 {
		rules = append(rules, ruleProperties)
	}
	return rules
}

type violation struct {
	message string
	path    []any
}

func (v *violation) String() string {
	if len(v.path) == 0 {
		return v.message
	}
	parts := make([]string, len(v.path))
	for i, p := range v.path {
		parts[i] = Describe(p)
	}
	return fmt.Sprintf("%s, in path [%s]", v.message, strings.Join(parts, ", "))
}

// Validate walks value depth-first against s and returns a description of the
// first violation, or "" when value conforms. A nil schema accepts anything.
func Validate(value any, s *Schema) string {
	if s == nil {
		return ""
	}
	if v := s.walk(value, nil); v != nil {
		return v.String()
	}
	return ""
}

// Validate is shorthand for Validate(value, s).
func (s *Schema) Validate(value any) string {
	return Validate(value, s)
}

func (s *Schema) walk(value any, path []any) *violation {
	for _, r := range s.rules {
		if v := s.check(r, value, path); v != nil {
			return v
		}
	}
	return nil
}

func (s *Schema) check(r rule, value any, path []any) *violation {
	fail := func(format string, args ...any) *violation {
		return &violation{message: fmt.Sprintf(format, args...), path: path}
	}

	switch r {
	case ruleType:
		for _, t := range s.types {
			if isType(value, t) {
				return nil
			}
		}
		quoted := make([]string, len(s.types))
		for i, t := range s.types {
			quoted[i] = quote(t)
		}
		return fail("%s is not of type %s", Describe(value), strings.Join(quoted, ", "))

	case ruleEnum:
		for _, candidate := range s.enum {
			if equal(value, candidate) {
				return nil
			}
		}
		return fail("%s is not one of %s", Describe(value), Describe(s.enum))

	case ruleMinimum:
		n, ok := number(value)
		if !ok {
			return nil
		}
		if s.minimum != nil {
			if s.exclusiveMinFlag && n <= *s.minimum {
				return fail("%s is less than or equal to the minimum of %s", Describe(value), Describe(*s.minimum))
			}
			if n < *s.minimum {
				return fail("%s is less than the minimum of %s", Describe(value), Describe(*s.minimum))
			}
		}
		if s.exclusiveMinimum != nil && n <= *s.exclusiveMinimum {
			return fail("%s is less than or equal to the minimum of %s", Describe(value), Describe(*s.exclusiveMinimum))
		}

	case ruleMaximum:
		n, ok := number(value)
		if !ok {
			return nil
		}
		if s.maximum != nil {
			if s.exclusiveMaxFlag && n >= *s.maximum {
				return fail("%s is greater than or equal to the maximum of %s", Describe(value), Describe(*s.maximum))
			}
			if n > *s.maximum {
				return fail("%s is greater than the maximum of %s", Describe(value), Describe(*s.maximum))
			}
		}
		if s.exclusiveMaximum != nil && n >= *s.exclusiveMaximum {
			return fail("%s is greater than or equal to the maximum of %s", Describe(value), Describe(*s.exclusiveMaximum))
		}

	case ruleMinLength:
		if str, ok := value.(string); ok && utf8.RuneCountInString(str) < *s.minLength {
			return fail("%s is too short", Describe(value))
		}

	case ruleMaxLength:
		if str, ok := value.(string); ok && utf8.RuneCountInString(str) > *s.maxLength {
			return fail("%s is too long", Describe(value))
		}

	case ruleMinItems:
		if arr, ok := value.([]any); ok && len(arr) < *s.minItems {
			if len(arr) == 0 && *s.minItems == 1 {
				return fail("%s should be non-empty", Describe(value))
			}
			return fail("%s is too short", Describe(value))
		}

	case ruleMaxItems:
		if arr, ok := value.([]any); ok && len(arr) > *s.maxItems {
			if *s.maxItems == 0 {
				return fail("%s is expected to be empty", Describe(value))
			}
			return fail("%s is too long", Describe(value))
		}

	case ruleItems:
		if arr, ok := value.([]any); ok {
			for i, item := range arr {
				if v := s.items.walk(item, appendPath(path, i)); v != nil {
					return v
				}
			}
		}

	case ruleRequired:
		if obj, ok := value.(map[string]any); ok {
			for _, name := range s.required {
				if _, present := obj[name]; !present {
					return fail("%s is a required property", quote(name))
				}
			}
		}

	case ruleAdditional:
		obj, ok := value.(map[string]any)
		if !ok {
			return nil
		}
		extras := s.extraKeys(obj)
		if len(extras) == 0 {
			return nil
		}
		if s.closed {
			quoted := make([]string, len(extras))
			for i, k := range extras {
				quoted[i] = quote(k)
			}
			verb := "was"
			if len(extras) > 1 {
				verb = "were"
			}
			return fail("Additional properties are not allowed (%s %s unexpected)", strings.Join(quoted, ", "), verb)
		}
		for _, k := range extras {
			if v := s.additional.walk(obj[k], appendPath(path, k)); v != nil {
				return v
			}
		}

	case ruleProperties:
		if obj, ok := value.(map[string]any); ok {
			for _, p := range s.properties {
				child, present := obj[p.name]
				if !present {
					continue
				}
				if v := p.schema.walk(child, appendPath(path, p.name)); v != nil {
					return v
				}
			}
		}
	}

	return nil
}

func (s *Schema) extraKeys(obj map[string]any) []string {
	var extras []string
	for k := range obj {
		declared := false
		for _, p := range s.properties {
			if p.name == k {
				declared = true
				break
			}
		}
		if !declared {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	return extras
}

func appendPath(path []any, elem any) []any {
	out := make([]any, len(path), len(path)+1)
	copy(out, path)
	return append(out, elem)
}

func isType(value any, t string) bool {
	switch t {
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "null":
		return value == nil
	case "number":
		_, ok := number(value)
		return ok
	case "integer":
		n, ok := number(value)
		return ok && !math.IsInf(n, 0) && n == math.Trunc(n)
	}
	return false
}

// number accepts the numeric shapes produced by encoding/json and by callers
// passing Go literals. Booleans are never numbers.
func number(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func equal(a, b any) bool {
	if na, ok := number(a); ok {
		if nb, ok := number(b); ok {
			return na == nb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}
