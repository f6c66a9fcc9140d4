// Package openai wraps the OpenAI chat completions API.
package openai

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	sdk "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when a request leaves Model empty.
const DefaultModel = sdk.GPT4oMini

// Client defines the OpenAI operations used for discovery.
type Client interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is a system prompt plus one user message.
type ChatRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// ChatResponse holds the first choice of a completion.
type ChatResponse struct {
	Model            string
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// Option configures the client.
type Option func(*sdk.ClientConfig)

// WithBaseURL sets a custom API base URL (for testing or compatible hosts).
func WithBaseURL(url string) Option {
	return func(c *sdk.ClientConfig) {
		if url != "" {
			c.BaseURL = url
		}
	}
}

type sdkClient struct {
	client *sdk.Client
}

// NewClient creates a client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	cfg := sdk.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&cfg)
	}
	return &sdkClient{client: sdk.NewClientWithConfig(cfg)}
}

func (c *sdkClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	var msgs []sdk.ChatCompletionMessage
	if req.System != "" {
		msgs = append(msgs, sdk.ChatCompletionMessage{Role: sdk.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, sdk.ChatCompletionMessage{Role: sdk.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := c.client.CreateChatCompletion(ctx, sdk.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, eris.Wrap(err, "openai: create chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: no choices in response")
	}

	return &ChatResponse{
		Model:            resp.Model,
		Content:          strings.TrimSpace(resp.Choices[0].Message.Content),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
