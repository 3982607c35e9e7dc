package chatports

import (
	"strings"
	"time"
)

// Role tags a turn with its author.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "model"
)

// Valid reports whether r is one of the three recognized roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleModel:
		return true
	}
	return false
}

// Media is an opaque binary attachment travelling with a turn.
type Media struct {
	Format string `json:"format"` // short codec tag, e.g. "mp3"
	Data   string `json:"data"`   // base64 (standard encoding)
}

// Turn represents one role-tagged unit of conversation history.
type Turn struct {
	Role      Role      `json:"role"`
	Lines     []string  `json:"lines"`
	Media     []Media   `json:"media,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Text renders the turn's lines the way they are sent to the transport.
func (t Turn) Text() string {
	return strings.Join(t.Lines, "\n")
}
