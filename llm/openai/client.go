// Package openai implements llm.Completer with the OpenAI chat completions API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	apperrors "github.com/jrsteele09/go-roleplay-desk/internal/errors"
	"github.com/jrsteele09/go-roleplay-desk/llm"
)

const (
	completionsPath = "/v1/chat/completions"
	DefaultModel    = "gpt-4o-mini"
)

var _ llm.Completer = (*Client)(nil)

type Client struct {
	rest       *resty.Client
	model      string
	maxRetries uint64
	backoff    func() backoff.BackOff
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = uint64(n)
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.rest.SetTimeout(d)
	}
}

// WithBackOff replaces the retry schedule.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) {
		c.backoff = newBackOff
	}
}

// New builds a client authenticating with apiKey as a bearer token.
func New(baseURL, apiKey string, opts ...Option) *Client {
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: apiKey,
		TokenType:   "Bearer",
	}))
	c := &Client{
		rest: resty.NewWithClient(httpClient).
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Accept", "application/json"),
		model:      DefaultModel,
		maxRetries: 3,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 20 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete retries rate limiting and server errors with exponential backoff. Other failures
// are returned straight away.
func (c *Client) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	var out completionOut
	op := func() error {
		out = completionOut{}
		resp, err := c.rest.R().
			SetContext(ctx).
			SetBody(completionIn{Model: c.model, Messages: messages}).
			SetResult(&out).
			SetError(&errorOut{}).
			Post(completionsPath)
		if err != nil {
			return fmt.Errorf("chat completion: %w: %v", apperrors.ErrRemoteUnavailable, err)
		}
		if resp.IsError() {
			err := fmt.Errorf("chat completion: status %d: %s", resp.StatusCode(), errorMessage(resp))
			if resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError {
				return fmt.Errorf("%w: %w", apperrors.ErrRemoteUnavailable, err)
			}
			return backoff.Permanent(fmt.Errorf("%w: %w", apperrors.ErrRemoteResponse, err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.backoff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}

	if len(out.Choices) == 0 || out.Choices[0].Message.Content == nil || *out.Choices[0].Message.Content == "" {
		return "", llm.ErrEmptyCompletion
	}
	return *out.Choices[0].Message.Content, nil
}

type completionIn struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
}

type completionOut struct {
	Choices []struct {
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorOut struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func errorMessage(resp *resty.Response) string {
	if e, ok := resp.Error().(*errorOut); ok && e.Error.Message != "" {
		return e.Error.Message
	}
	return http.StatusText(resp.StatusCode())
}
