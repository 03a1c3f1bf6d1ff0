package event

import (
	"github.com/agentloom/loom"
)

// Message is the wire form of a transcript entry, used in
// MESSAGES_SNAPSHOT events and RunAgentInput payloads.
type Message struct {
	ID         string     `json:"id"`
	Role       string     `json:"role"`
	Content    *string    `json:"content,omitempty"`
	Name       *string    `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID *string    `json:"toolCallId,omitempty"`
}

// ToolCall is the wire form of a completed tool invocation.
type ToolCall struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

// Function carries a tool call's name and accumulated arguments.
type Function struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToTranscript converts wire messages to domain messages.
// Wire messages are complete by definition, so the results are sealed.
func ToTranscript(msgs []Message) []loom.Message {
	result := make([]loom.Message, 0, len(msgs))
	for _, msg := range msgs {
		result = append(result, ToTranscriptMessage(msg))
	}
	return result
}

// ToTranscriptMessage converts a single wire message to a domain message.
func ToTranscriptMessage(msg Message) loom.Message {
	m := loom.Message{
		ID:     msg.ID,
		Role:   loom.Role(msg.Role),
		Sealed: true,
	}
	if msg.Content != nil {
		m.Content = *msg.Content
	}
	if msg.Name != nil {
		m.Name = *msg.Name
	}
	if msg.ToolCallID != nil {
		m.ToolCallID = *msg.ToolCallID
	}
	if len(msg.ToolCalls) > 0 {
		m.ToolCalls = make([]loom.ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			m.ToolCalls[i] = loom.ToolCall{
				ID:              tc.ID,
				Name:            tc.Function.Name,
				ParentMessageID: msg.ID,
				Arguments:       tc.Function.Arguments,
				Sealed:          true,
			}
		}
	}
	return m
}

// FromTranscript converts domain messages to wire messages.
func FromTranscript(msgs []loom.Message) []Message {
	result := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		result = append(result, FromTranscriptMessage(msg))
	}
	return result
}

// FromTranscriptMessage converts a single domain message to its wire form.
// A missing id is filled with a generated one.
func FromTranscriptMessage(msg loom.Message) Message {
	id := msg.ID
	if id == "" {
		id = GenerateMessageID()
	}
	m := Message{
		ID:   id,
		Role: string(msg.Role),
	}
	if msg.Content != "" {
		content := msg.Content
		m.Content = &content
	}
	if msg.Name != "" {
		name := msg.Name
		m.Name = &name
	}
	if msg.ToolCallID != "" {
		callID := msg.ToolCallID
		m.ToolCallID = &callID
	}
	if len(msg.ToolCalls) > 0 {
		m.ToolCalls = make([]ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			m.ToolCalls[i] = ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: Function{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			}
		}
	}
	return m
}
