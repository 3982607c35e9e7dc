package chat

import (
	"encoding/base64"
	"time"

	ports "github.com/ZanzyTHEbar/structchat/structchat/chat/ports"
)

// Conversation is the ordered turn history owned by one Engine. It holds at
// most one system turn, always at index 0; user and model turns only append.
type Conversation struct {
	turns   []ports.Turn
	pending []ports.Media
	now     func() time.Time
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{now: time.Now}
}

// SetSystemText replaces the system turn, inserting it at index 0 if absent.
func (c *Conversation) SetSystemText(lines ...string) {
	c.Insert(ports.RoleSystem, lines)
}

// SetUserText appends a user turn carrying any pending media.
func (c *Conversation) SetUserText(lines ...string) {
	c.Insert(ports.RoleUser, lines)
}

// SetModelText appends a model turn.
func (c *Conversation) SetModelText(lines ...string) {
	c.Insert(ports.RoleModel, lines)
}

// Insert adds a turn following the role rules. Unknown roles are dropped.
func (c *Conversation) Insert(role ports.Role, lines []string) {
	if !role.Valid() {
		return
	}

	turn := ports.Turn{
		Role:      role,
		Lines:     append([]string(nil), lines...),
		CreatedAt: c.now(),
	}

	switch role {
	case ports.RoleSystem:
		if len(c.turns) > 0 && c.turns[0].Role == ports.RoleSystem {
			c.turns[0] = turn
			return
		}
		c.turns = append([]ports.Turn{turn}, c.turns...)
	case ports.RoleUser:
		if len(c.pending) > 0 {
			turn.Media = c.pending
			c.pending = nil
		}
		c.turns = append(c.turns, turn)
	default:
		c.turns = append(c.turns, turn)
	}
}

// AttachMedia queues a binary segment for the next user turn. Empty data is
// ignored.
func (c *Conversation) AttachMedia(data []byte, format string) {
	if len(data) == 0 {
		return
	}
	c.pending = append(c.pending, ports.Media{
		Format: format,
		Data:   base64.StdEncoding.EncodeToString(data),
	})
}

// Clear drops every turn and any pending media.
func (c *Conversation) Clear() {
	c.turns = nil
	c.pending = nil
}

// Turns returns a copy of the history.
func (c *Conversation) Turns() []ports.Turn {
	out := make([]ports.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}
