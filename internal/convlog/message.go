package convlog

import (
	"time"

	"github.com/google/uuid"
)

// Role is who authored a message as the UI sees it.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Source distinguishes assistant replies from operator replies that
// arrive through the same poll feed.
type Source string

const (
	SourceAI    Source = "ai"
	SourceAdmin Source = "admin"
)

// Kind marks special-purpose messages.
type Kind string

const (
	KindNormal  Kind = "normal"
	KindWelcome Kind = "welcome"
	KindSystem  Kind = "system"
)

// Message is one entry in the conversation log. Timestamps are unix
// milliseconds to match the backend's poll cursor.
type Message struct {
	ID        string
	Role      Role
	Text      string
	Timestamp int64
	Source    Source
	Kind      Kind
}

// NewUserMessage builds a locally created user turn.
func NewUserMessage(text string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      RoleUser,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
		Kind:      KindNormal,
	}
}

// NewAIPlaceholder reserves the reply's position in the log before the
// response arrives. Text stays empty until the reveal fills it.
func NewAIPlaceholder() Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      RoleAI,
		Timestamp: time.Now().UnixMilli(),
		Source:    SourceAI,
		Kind:      KindNormal,
	}
}

// NewSystemMessage builds a local notice, e.g. "operator mode off".
func NewSystemMessage(text string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      RoleAI,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
		Source:    SourceAI,
		Kind:      KindSystem,
	}
}

// NewWelcomeMessage builds the greeting shown in a fresh conversation.
func NewWelcomeMessage(text string) Message {
	m := NewSystemMessage(text)
	m.Kind = KindWelcome
	return m
}
