package chatports

import (
	"context"
	"time"
)

// AuditSink collects free-text log lines per logical session. Flush stores the
// lines accumulated so far; implementations must be safe for concurrent use.
type AuditSink interface {
	Log(ctx context.Context, session, line string)
	Flush(ctx context.Context, session string) error
}

// Instruction is the opaque correlation context a caller attaches to a query.
// The engine only uses it to route persisted turns.
type Instruction struct {
	ID    string
	Label string
	Index int
}

// Record is one concluded exchange handed to a TurnStore.
type Record struct {
	ID            string    `json:"id"`
	InstructionID string    `json:"instruction_id,omitempty"`
	Label         string    `json:"label"`
	Index         int       `json:"index"` // -1 when no instruction was supplied
	Turns         []Turn    `json:"turns"`
	Answers       []any     `json:"answers"`
	CreatedAt     time.Time `json:"created_at"`
}

// TurnStore persists audit turn sequences.
type TurnStore interface {
	Store(ctx context.Context, rec Record) error
	Load(ctx context.Context, label string, index int) ([]Record, error)
}
