package fakellm

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-roleplay-desk/llm"
)

var _ llm.Completer = (*Completer)(nil)

// Completer answers with a fixed reply, or with Reply(messages) when set, and records every
// conversation it was given.
type Completer struct {
	Fixed string
	Reply func(messages []llm.Message) (string, error)

	lock  sync.Mutex
	calls [][]llm.Message
}

func (c *Completer) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.lock.Lock()
	c.calls = append(c.calls, append([]llm.Message(nil), messages...))
	c.lock.Unlock()

	if c.Reply != nil {
		return c.Reply(messages)
	}
	return c.Fixed, nil
}

func (c *Completer) Calls() [][]llm.Message {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([][]llm.Message(nil), c.calls...)
}
