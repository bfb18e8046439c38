// Package openai adapts the OpenAI Chat Completions API (streaming) to the
// generic model.Client interface. Chunks are surfaced as plain text deltas;
// empty deltas are never emitted.
package openai

import (
	"context"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Options configure the OpenAI client adapter.
type Options struct {
	// APIKey overrides the environment-provided key.
	APIKey string
	// BaseURL overrides the API endpoint (proxies, compatible servers).
	BaseURL string
}

// Client wraps the OpenAI SDK behind model.Client.
type Client struct {
	client  *openai.Client
	modelID string
}

// New creates an OpenAI client for the given model id.
func New(modelID string, optFns ...func(o *Options)) *Client {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	var reqOpts []option.RequestOption
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := openai.NewClient(reqOpts...)

	return &Client{client: &client, modelID: modelID}
}

// NewFromClient creates an adapter from an existing SDK client.
func NewFromClient(client *openai.Client, modelID string) *Client {
	return &Client{client: client, modelID: modelID}
}

// Stream implements model.Client using the streaming completions endpoint.
func (c *Client) Stream(ctx context.Context, req model.Request) (<-chan model.Chunk, <-chan error) {
	out := make(chan model.Chunk, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := c.buildParams(req)

		stream := c.client.Chat.Completions.NewStreaming(ctx, params)
		for stream.Next() {
			chunk := stream.Current()
			for _, choice := range chunk.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case out <- model.Chunk{Delta: choice.Delta.Content}:
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- model.WrapErr("openai stream", err)
		}
	}()

	return out, errCh
}

// buildParams assembles request parameters. Reasoning-family models omit the
// temperature parameter entirely; the API rejects it for them.
func (c *Client) buildParams(req model.Request) openai.ChatCompletionNewParams {
	modelID := req.Model
	if modelID == "" {
		modelID = c.modelID
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case core.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(modelID),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(req.MaxTokens)
	}
	if !model.IsReasoningModel(modelID) {
		params.Temperature = openai.Float(req.Temperature)
	}

	return params
}

// Info returns metadata describing this adapter.
func (c *Client) Info() model.Info {
	return model.Info{Model: c.modelID, Provider: "openai"}
}

var _ model.Client = (*Client)(nil)
