package chat

import "strings"

// FailureKind classifies an ExtractionResult.
type FailureKind int

const (
	FailureNone      FailureKind = iota
	FailureTransport             // network budget exhausted
	FailureFormat                // no fenced block, or a block is not JSON
	FailureSemantic              // a block violates its schema
	FailureExhausted             // self-correction budget exhausted
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "ok"
	case FailureTransport:
		return "transport"
	case FailureFormat:
		return "format"
	case FailureSemantic:
		return "semantic"
	case FailureExhausted:
		return "exhausted"
	}
	return "unknown"
}

// ExtractionResult is the outcome of extracting and validating one response,
// or of a whole chat. Content is empty whenever HasError is true.
type ExtractionResult struct {
	HasError bool
	Error    string
	Content  []any
	Kind     FailureKind
}

// IsTransportFailure reports whether the result came from an exhausted
// network budget rather than from the model's answer.
func (r ExtractionResult) IsTransportFailure() bool {
	return r.HasError && strings.HasPrefix(r.Error, HTTPErrorPrefix)
}

func success(content []any) ExtractionResult {
	if content == nil {
		content = []any{}
	}
	return ExtractionResult{Content: content}
}

func failure(kind FailureKind, msg string) ExtractionResult {
	return ExtractionResult{HasError: true, Error: msg, Content: []any{}, Kind: kind}
}

// Error is the classified failure returned by Engine.SingleQuery.
type Error struct {
	Kind    FailureKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
