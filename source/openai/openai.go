// Package openai adapts the OpenAI Chat Completions streaming API to the
// event sequence contract: content deltas are emitted live as message
// content events, and tool calls are emitted from the accumulated
// completion once the stream completes.
package openai

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/agentloom/loom/agentdef"
	"github.com/agentloom/loom/event"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gpt-4o"

// Client runs agent turns against the OpenAI API.
type Client struct {
	client      *openai.Client
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
	client := openai.NewClient(option.WithAPIKey(apiKey))
	c := &Client{
		client: &client,
		model:  DefaultModel,
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

		messages := convertMessages(input.Messages)
		if c.system != "" {
			messages = append([]openai.ChatCompletionMessageParamUnion{openai.SystemMessage(c.system)}, messages...)
		}

		params := openai.ChatCompletionNewParams{
			Model:    c.model,
			Messages: messages,
		}
		if c.maxTokens > 0 {
			params.MaxTokens = openai.Int(c.maxTokens)
		}
		if c.temperature != nil {
			params.Temperature = openai.Float(*c.temperature)
		}
		if len(input.Tools) > 0 {
			params.Tools = convertTools(input.Tools)
		}

		if !emit(ctx, ch, event.NewRunStarted(input.ThreadID, input.RunID)) {
			return
		}

		stream := c.client.Chat.Completions.NewStreaming(ctx, params)

		var acc openai.ChatCompletionAccumulator
		messageID := ""
		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				if messageID == "" {
					messageID = event.GenerateMessageID()
					if !emit(ctx, ch, event.NewTextMessageStart(messageID, "assistant")) {
						return
					}
				}
				if !emit(ctx, ch, event.NewTextMessageContent(messageID, chunk.Choices[0].Delta.Content)) {
					return
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

		if len(acc.Choices) > 0 {
			for _, tc := range acc.Choices[0].Message.ToolCalls {
				if !emit(ctx, ch, event.NewToolCallStart(tc.ID, tc.Function.Name, messageID)) {
					return
				}
				if !emit(ctx, ch, event.NewToolCallArgs(tc.ID, tc.Function.Arguments)) {
					return
				}
				if !emit(ctx, ch, event.NewToolCallEnd(tc.ID)) {
					return
				}
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
