// Package chat drives a self-correcting exchange with a generative model:
// it requests a reply, extracts fenced JSON blocks, validates them against
// positional schemas and feeds violations back to the model until the answer
// validates or the budgets run out.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	internal "github.com/ZanzyTHEbar/structchat/structchat"
	ports "github.com/ZanzyTHEbar/structchat/structchat/chat/ports"
	"github.com/ZanzyTHEbar/structchat/structchat/schema"
)

// Audit markers bracketing every chat.
const (
	MarkerBegin = "chat begins"
	MarkerEnd   = "chat ends"
)

// Policy holds the two independent retry budgets.
type Policy struct {
	NetworkAttempts    int    // attempts per exchange inside the executor
	CorrectionAttempts int    // self-correction rounds per chat
	DefaultLabel       string // audit label when no instruction is supplied
}

// DefaultPolicy returns the default budgets.
func DefaultPolicy() Policy {
	return Policy{
		NetworkAttempts:    internal.DefaultAttempts,
		CorrectionAttempts: internal.DefaultAttempts,
		DefaultLabel:       internal.DefaultLabel,
	}
}

// Engine owns one Conversation and is not safe for concurrent use. Run
// independent engines for parallel work.
type Engine struct {
	conv     *Conversation
	executor *Executor
	audit    ports.AuditSink
	store    ports.TurnStore
	metrics  ports.Metrics
	policy   Policy
	session  string
	logger   zerolog.Logger
}

// NewEngine creates an engine with a fresh conversation and session id.
func NewEngine(executor *Executor, audit ports.AuditSink, store ports.TurnStore, metrics ports.Metrics, policy Policy, logger zerolog.Logger) *Engine {
	if audit == nil {
		audit = noOpAudit{}
	}
	if store == nil {
		store = noOpStore{}
	}
	if metrics == nil {
		metrics = noOpMetrics{}
	}
	if policy.NetworkAttempts < 1 {
		policy.NetworkAttempts = 1
	}
	if policy.CorrectionAttempts < 1 {
		policy.CorrectionAttempts = 1
	}
	if policy.DefaultLabel == "" {
		policy.DefaultLabel = internal.DefaultLabel
	}

	session := uuid.NewString()
	return &Engine{
		conv:     NewConversation(),
		executor: executor,
		audit:    audit,
		store:    store,
		metrics:  metrics,
		policy:   policy,
		session:  session,
		logger:   logger.With().Str("session", session).Logger(),
	}
}

// Conversation exposes the engine's turn history for callers building
// prompts before Chat.
func (e *Engine) Conversation() *Conversation {
	return e.conv
}

// Session returns the audit session id.
func (e *Engine) Session() string {
	return e.session
}

// Policy returns the effective budgets.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Chat runs the request/extract/correct loop over the current conversation.
// A transport failure ends the chat at once; format and semantic failures
// append a correction turn and retry until CorrectionAttempts is spent.
func (e *Engine) Chat(ctx context.Context, schemas []*schema.Schema) ExtractionResult {
	e.log(ctx, MarkerBegin)

	for attempt := 1; attempt <= e.policy.CorrectionAttempts; attempt++ {
		resp := e.executor.AttemptRequest(ctx, e.session, e.conv.Turns(), e.policy.NetworkAttempts)
		if resp.Code != ports.StatusOK {
			e.logTurns(ctx)
			return e.finish(ctx, failure(FailureTransport, resp.Body))
		}

		e.conv.SetModelText(resp.Body)
		e.log(ctx, fmt.Sprintf("model answer (attempt %d/%d):\n%s", attempt, e.policy.CorrectionAttempts, resp.Body))

		result := ExtractJSON(resp.Body, schemas)
		if !result.HasError {
			if pretty, err := json.MarshalIndent(result.Content, "", "  "); err == nil {
				e.log(ctx, "validated content:\n"+string(pretty))
			}
			return e.finish(ctx, result)
		}

		e.log(ctx, fmt.Sprintf("attempt %d/%d rejected: %s", attempt, e.policy.CorrectionAttempts, result.Error))
		e.conv.SetUserText(correctionLines(result.Error)...)
		e.metrics.ObserveCorrection()
		e.flush(ctx)
	}

	return e.finish(ctx, failure(FailureExhausted,
		fmt.Sprintf("JSON incorrect: max attempts (%d) exceeded", e.policy.CorrectionAttempts)))
}

// correctionLines builds the user turn asking the model to fix its answer.
// The error text is quoted unchanged.
func correctionLines(errText string) []string {
	return []string{
		"Your previous answer could not be used because of the following error:",
		errText,
		"Correct the answer and reply again, with each JSON value enclosed in its own ```json fenced block.",
	}
}

func (e *Engine) finish(ctx context.Context, result ExtractionResult) ExtractionResult {
	e.metrics.ObserveOutcome(result.Kind.String())
	if result.HasError {
		e.logger.Warn().Str("kind", result.Kind.String()).Str("error", result.Error).Msg("chat failed")
	}
	e.log(ctx, MarkerEnd)
	e.flush(ctx)
	return result
}

func (e *Engine) logTurns(ctx context.Context) {
	for i, turn := range e.conv.Turns() {
		e.log(ctx, fmt.Sprintf("turn %d [%s]: %s", i, turn.Role, strings.TrimSpace(turn.Text())))
	}
}

func (e *Engine) log(ctx context.Context, line string) {
	e.audit.Log(ctx, e.session, line)
}

func (e *Engine) flush(ctx context.Context) {
	if err := e.audit.Flush(ctx, e.session); err != nil {
		e.logger.Error().Err(err).Msg("failed to flush audit log")
	}
}
