// Package llm is the chat completion model the roleplay customer is played by.
package llm

import (
	"context"
	"errors"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ErrEmptyCompletion is returned when the model answers without any content.
var ErrEmptyCompletion = errors.New("no content returned from model")

// Completer produces the next assistant message for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
