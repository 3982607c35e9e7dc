package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	ports "github.com/ZanzyTHEbar/structchat/structchat/chat/ports"
	"github.com/ZanzyTHEbar/structchat/structchat/schema"
)

// SingleQuery asks one question and returns the validated answer. Media
// attached beforehand travels with the user turn. With exactly one schema
// the first content value is returned on its own, otherwise the whole
// content slice. Failures come back as *Error. Successful exchanges are
// handed to the TurnStore, and the conversation is cleared before returning
// either way.
func (e *Engine) SingleQuery(ctx context.Context, system, user []string, schemas []*schema.Schema, instr *ports.Instruction) (any, error) {
	defer e.conv.Clear()

	if len(system) > 0 {
		e.conv.SetSystemText(system...)
	}
	e.conv.SetUserText(user...)

	result := e.Chat(ctx, schemas)
	if result.HasError {
		return nil, &Error{Kind: result.Kind, Message: result.Error}
	}

	e.persist(ctx, result.Content[:min(len(schemas), len(result.Content))], instr)

	if len(schemas) == 1 {
		return result.Content[0], nil
	}
	return result.Content, nil
}

// SingleConversation is SingleQuery with every failure collapsed to an
// empty slice.
func (e *Engine) SingleConversation(ctx context.Context, system, user []string, schemas []*schema.Schema, instr *ports.Instruction) any {
	value, err := e.SingleQuery(ctx, system, user, schemas, instr)
	if err != nil {
		return []any{}
	}
	return value
}

func (e *Engine) persist(ctx context.Context, answers []any, instr *ports.Instruction) {
	rec := ports.Record{
		ID:        uuid.NewString(),
		Label:     e.policy.DefaultLabel,
		Index:     -1,
		Turns:     e.conv.Turns(),
		Answers:   answers,
		CreatedAt: time.Now().UTC(),
	}
	if instr != nil {
		if instr.Label != "" {
			rec.Label = instr.Label
		}
		rec.Index = instr.Index
		rec.InstructionID = instr.ID
	}

	if err := e.store.Store(ctx, rec); err != nil {
		e.logger.Error().Err(err).Str("label", rec.Label).Int("index", rec.Index).Msg("failed to store turns")
	}
}
