package loom

import "encoding/json"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleDeveloper Role = "developer"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the fixed role values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleTool, RoleDeveloper, RoleSystem:
		return true
	}
	return false
}

// Message is one entry in a run's transcript. Its content accumulates from
// content-delta events in arrival order until the message is sealed, after
// which it accepts no further mutation.
type Message struct {
	// ID is stable across the message's lifecycle.
	ID string

	// Role is the author of the message.
	Role Role

	// Content is the accumulated text, built by concatenating deltas.
	Content string

	// Name optionally identifies the author within the role.
	Name string

	// ToolCallID links a tool-result message back to the call it answers.
	ToolCallID string

	// ToolCalls holds the completed tool calls attached to this message.
	ToolCalls []ToolCall

	// Sealed is true once the message has received its end signal.
	Sealed bool
}

// ToolCall is one tool invocation made by an assistant message. Arguments
// accumulate from args-delta events and are expected to parse as JSON once
// the call is sealed.
type ToolCall struct {
	// ID is stable across the call's lifecycle.
	ID string

	// Name is resolved from the start event and never renamed.
	Name string

	// ParentMessageID is the message this call is attached to.
	ParentMessageID string

	// Arguments is the accumulated argument text.
	Arguments string

	// Sealed is true once the call has received its end signal.
	Sealed bool
}

// ParseArguments decodes the accumulated arguments as JSON.
// It is meaningful only after the call is sealed.
func (tc ToolCall) ParseArguments() (map[string]any, error) {
	args := make(map[string]any)
	if tc.Arguments == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// Tool describes a tool an agent may call: a name, a human description, and
// an opaque JSON schema for its parameters.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}
