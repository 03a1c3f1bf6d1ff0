// Package anthropic adapts the Anthropic Messages streaming API to the
// event sequence contract: text deltas are emitted live as message content
// events, and tool calls are emitted from the accumulated message once the
// stream completes.
package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/agentloom/loom/agentdef"
	"github.com/agentloom/loom/event"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "claude-sonnet-4-5"

// Client runs agent turns against the Anthropic API.
type Client struct {
	client      *anthropic.Client
	model       string
	maxTokens   int64
	temperature *float64
	system      string
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithModel sets the model for requests.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithMaxTokens sets the completion token budget.
func WithMaxTokens(maxTokens int) ClientOption {
	return func(c *Client) {
		c.maxTokens = int64(maxTokens)
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) ClientOption {
	return func(c *Client) {
		c.temperature = &temperature
	}
}

// WithSystemPrompt sets a system prompt prepended to every run.
func WithSystemPrompt(prompt string) ClientOption {
	return func(c *Client) {
		c.system = prompt
	}
}

// WithDefinition applies a resolved agent definition's model parameters
// and instructions.
func WithDefinition(def agentdef.Definition) ClientOption {
	return func(c *Client) {
		c.model = def.Model
		c.maxTokens = int64(def.MaxTokens)
		temp := def.Temperature
		c.temperature = &temp
		c.system = def.Instructions
	}
}

// New creates a client with the given API key.
func New(apiKey string, opts ...ClientOption) *Client {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	c := &Client{
		client:    &client,
		model:     DefaultModel,
		maxTokens: 4096,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run opens a streaming completion for the input and emits its protocol
// event sequence. The channel closes after the terminal event.
func (c *Client) Run(ctx context.Context, input *event.PreparedInput) <-chan event.Event {
	ch := make(chan event.Event)

	go func() {
		defer close(ch)

		msgs, system := convertMessages(input.Messages)
		if c.system != "" {
			system = append([]anthropic.TextBlockParam{{Text: c.system}}, system...)
		}

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(c.model),
			MaxTokens: c.maxTokens,
			Messages:  msgs,
		}
		if len(system) > 0 {
			params.System = system
		}
		if c.temperature != nil {
			params.Temperature = anthropic.Float(*c.temperature)
		}
		if len(input.Tools) > 0 {
			params.Tools = convertTools(input.Tools)
		}

		if !emit(ctx, ch, event.NewRunStarted(input.ThreadID, input.RunID)) {
			return
		}

		stream := c.client.Messages.NewStreaming(ctx, params)

		var acc anthropic.Message
		messageID := ""
		for stream.Next() {
			chunk := stream.Current()
			acc.Accumulate(chunk)

			if chunk.Type == "content_block_delta" {
				delta := chunk.AsContentBlockDelta()
				if textDelta := delta.Delta.AsTextDelta(); textDelta.Type == "text_delta" {
					if messageID == "" {
						messageID = event.GenerateMessageID()
						if !emit(ctx, ch, event.NewTextMessageStart(messageID, "assistant")) {
							return
						}
					}
					if !emit(ctx, ch, event.NewTextMessageContent(messageID, textDelta.Text)) {
						return
					}
				}
			}
		}

		if err := stream.Err(); err != nil {
			emit(ctx, ch, event.NewRunError("provider_error", err.Error()))
			return
		}

		if messageID != "" {
			if !emit(ctx, ch, event.NewTextMessageEnd(messageID)) {
				return
			}
		}

		for _, block := range acc.Content {
			if block.Type != "tool_use" {
				continue
			}
			if !emit(ctx, ch, event.NewToolCallStart(block.ID, block.Name, messageID)) {
				return
			}
			if !emit(ctx, ch, event.NewToolCallArgs(block.ID, string(block.Input))) {
				return
			}
			if !emit(ctx, ch, event.NewToolCallEnd(block.ID)) {
				return
			}
		}

		emit(ctx, ch, event.NewRunFinished(input.ThreadID, input.RunID))
	}()

	return ch
}

func emit(ctx context.Context, ch chan<- event.Event, ev event.Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
