// Package anthropic adapts the Anthropic Messages API (streaming) to the
// generic model.Client interface. Text deltas arrive as typed content blocks
// and are surfaced as structured chunk parts.
package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/model"
)

// Options configure the Anthropic client adapter.
type Options struct {
	// APIKey overrides the environment-provided key.
	APIKey string
}

// Client wraps the Anthropic SDK behind model.Client.
type Client struct {
	client  *anthropic.Client
	modelID string
}

// New creates an Anthropic client for the given model id.
func New(modelID string, optFns ...func(o *Options)) *Client {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Client{client: &client, modelID: modelID}
}

// NewFromClient creates an adapter from an existing SDK client.
func NewFromClient(client *anthropic.Client, modelID string) *Client {
	return &Client{client: client, modelID: modelID}
}

// Stream implements model.Client using the streaming messages endpoint.
func (c *Client) Stream(ctx context.Context, req model.Request) (<-chan model.Chunk, <-chan error) {
	out := make(chan model.Chunk, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := c.buildParams(req)

		stream := c.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch deltaVariant := eventVariant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if deltaVariant.Text == "" {
						continue
					}
					select {
					case <-ctx.Done():
						return
					case out <- model.Chunk{Parts: []model.Part{model.TextPart{Text: deltaVariant.Text}}}:
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- model.WrapErr("anthropic stream", err)
		}
	}()

	return out, errCh
}

// buildParams assembles request parameters. System messages are lifted into
// the dedicated system field; the temperature policy for reasoning-family
// model ids applies here as well.
func (c *Client) buildParams(req model.Request) anthropic.MessageNewParams {
	modelID := req.Model
	if modelID == "" {
		modelID = c.modelID
	}

	var system []anthropic.TextBlockParam
	var messages []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case core.RoleSystem:
			if m.Content != "" {
				system = append(system, anthropic.TextBlockParam{Text: m.Content})
			}
		case core.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if len(system) > 0 {
		params.System = system
	}
	if !model.IsReasoningModel(modelID) {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	return params
}

// Info returns metadata describing this adapter.
func (c *Client) Info() model.Info {
	return model.Info{Model: c.modelID, Provider: "anthropic"}
}

var _ model.Client = (*Client)(nil)
