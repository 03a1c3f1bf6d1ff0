// Package event defines the closed set of protocol events streamed by an
// agent run and their JSON wire form. Events are immutable values tagged by
// Type; every event carries a wall-clock timestamp, and its position in the
// sequence is implicit in arrival order.
package event

import (
	"encoding/json"
	"time"

	"github.com/agentloom/loom/patch"
)

// Type identifies the kind of event.
type Type string

// Run lifecycle events.
const (
	// TypeRunStarted opens a run's event sequence.
	TypeRunStarted Type = "RUN_STARTED"

	// TypeRunFinished closes a run successfully.
	TypeRunFinished Type = "RUN_FINISHED"

	// TypeRunError closes a run with a remote error code and message.
	TypeRunError Type = "RUN_ERROR"
)

// Message lifecycle events. A message arrives as a start event, zero or
// more content deltas, and an end event, or as standalone chunk events when
// the backend does not emit discrete boundaries.
const (
	TypeTextMessageStart   Type = "TEXT_MESSAGE_START"
	TypeTextMessageContent Type = "TEXT_MESSAGE_CONTENT"
	TypeTextMessageEnd     Type = "TEXT_MESSAGE_END"
	TypeTextMessageChunk   Type = "TEXT_MESSAGE_CHUNK"
)

// Tool call lifecycle events, mirroring the message lifecycle. The tool
// name is declared on the start event and never renamed.
const (
	TypeToolCallStart Type = "TOOL_CALL_START"
	TypeToolCallArgs  Type = "TOOL_CALL_ARGS"
	TypeToolCallEnd   Type = "TOOL_CALL_END"
	TypeToolCallChunk Type = "TOOL_CALL_CHUNK"
)

// State synchronization events.
const (
	// TypeStateSnapshot replaces the whole agent state atomically.
	TypeStateSnapshot Type = "STATE_SNAPSHOT"

	// TypeStateDelta applies an ordered patch batch atomically.
	TypeStateDelta Type = "STATE_DELTA"

	// TypeMessagesSnapshot replaces the whole transcript.
	TypeMessagesSnapshot Type = "MESSAGES_SNAPSHOT"
)

// Step lifecycle events.
const (
	TypeStepStarted  Type = "STEP_STARTED"
	TypeStepFinished Type = "STEP_FINISHED"
)

// Extension events.
const (
	// TypeCustom carries an application-defined payload keyed by name.
	TypeCustom Type = "CUSTOM"

	// TypeRaw passes an opaque payload through the sequence untouched.
	TypeRaw Type = "RAW"
)

// Valid reports whether t is a member of the closed event set.
func (t Type) Valid() bool {
	switch t {
	case TypeRunStarted, TypeRunFinished, TypeRunError,
		TypeTextMessageStart, TypeTextMessageContent, TypeTextMessageEnd, TypeTextMessageChunk,
		TypeToolCallStart, TypeToolCallArgs, TypeToolCallEnd, TypeToolCallChunk,
		TypeStateSnapshot, TypeStateDelta, TypeMessagesSnapshot,
		TypeStepStarted, TypeStepFinished,
		TypeCustom, TypeRaw:
		return true
	}
	return false
}

// Event is one immutable unit in the ordered protocol sequence. Which
// fields are populated depends on Type; unused fields stay zero and are
// omitted from the wire form.
type Event struct {
	// Type identifies the kind of event.
	Type Type `json:"type"`

	// TimestampMs is the wall-clock emission time in Unix milliseconds.
	TimestampMs int64 `json:"timestamp,omitempty"`

	// ThreadID and RunID identify the run for lifecycle events.
	ThreadID string `json:"threadId,omitempty"`
	RunID    string `json:"runId,omitempty"`

	// MessageID correlates message lifecycle events.
	MessageID string `json:"messageId,omitempty"`

	// Role is the message author, set on start and chunk events.
	Role string `json:"role,omitempty"`

	// Delta is the incremental text fragment for content and args events.
	Delta string `json:"delta,omitempty"`

	// ToolCallID correlates tool call lifecycle events.
	ToolCallID string `json:"toolCallId,omitempty"`

	// ToolCallName is the tool name, declared on the start event.
	ToolCallName string `json:"toolCallName,omitempty"`

	// ParentMessageID is the message a tool call belongs to.
	ParentMessageID string `json:"parentMessageId,omitempty"`

	// Snapshot is the full replacement state for STATE_SNAPSHOT.
	Snapshot map[string]any `json:"snapshot,omitempty"`

	// Ops is the ordered patch batch for STATE_DELTA.
	Ops []patch.Op `json:"ops,omitempty"`

	// Messages is the full transcript for MESSAGES_SNAPSHOT.
	Messages []Message `json:"messages,omitempty"`

	// StepName identifies the step for step lifecycle events.
	StepName string `json:"stepName,omitempty"`

	// Name keys the application-defined channel for CUSTOM events.
	Name string `json:"name,omitempty"`

	// Value is the application-defined payload for CUSTOM events.
	Value any `json:"value,omitempty"`

	// Raw is the opaque payload for RAW events.
	Raw json.RawMessage `json:"event,omitempty"`

	// Code and Message carry the remote error for RUN_ERROR events.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// now is stubbed in tests.
var now = func() int64 { return time.Now().UnixMilli() }

// NewRunStarted returns a RUN_STARTED event for the given run.
func NewRunStarted(threadID, runID string) Event {
	return Event{Type: TypeRunStarted, ThreadID: threadID, RunID: runID, TimestampMs: now()}
}

// NewRunFinished returns a RUN_FINISHED event for the given run.
func NewRunFinished(threadID, runID string) Event {
	return Event{Type: TypeRunFinished, ThreadID: threadID, RunID: runID, TimestampMs: now()}
}

// NewRunError returns a RUN_ERROR event carrying the remote code and message.
func NewRunError(code, message string) Event {
	return Event{Type: TypeRunError, Code: code, Message: message, TimestampMs: now()}
}

// NewTextMessageStart opens a message with the given id and role.
func NewTextMessageStart(messageID, role string) Event {
	return Event{Type: TypeTextMessageStart, MessageID: messageID, Role: role, TimestampMs: now()}
}

// NewTextMessageContent appends a content fragment to an open message.
func NewTextMessageContent(messageID, delta string) Event {
	return Event{Type: TypeTextMessageContent, MessageID: messageID, Delta: delta, TimestampMs: now()}
}

// NewTextMessageEnd seals a message.
func NewTextMessageEnd(messageID string) Event {
	return Event{Type: TypeTextMessageEnd, MessageID: messageID, TimestampMs: now()}
}

// NewTextMessageChunk carries a message fragment for backends that do not
// emit discrete start and end events.
func NewTextMessageChunk(messageID, role, delta string) Event {
	return Event{Type: TypeTextMessageChunk, MessageID: messageID, Role: role, Delta: delta, TimestampMs: now()}
}

// NewToolCallStart opens a tool call, declaring its name and parent message.
func NewToolCallStart(toolCallID, name, parentMessageID string) Event {
	return Event{Type: TypeToolCallStart, ToolCallID: toolCallID, ToolCallName: name, ParentMessageID: parentMessageID, TimestampMs: now()}
}

// NewToolCallArgs appends an argument fragment to an open tool call.
func NewToolCallArgs(toolCallID, delta string) Event {
	return Event{Type: TypeToolCallArgs, ToolCallID: toolCallID, Delta: delta, TimestampMs: now()}
}

// NewToolCallEnd seals a tool call.
func NewToolCallEnd(toolCallID string) Event {
	return Event{Type: TypeToolCallEnd, ToolCallID: toolCallID, TimestampMs: now()}
}

// NewToolCallChunk carries a tool-call fragment for backends that do not
// emit discrete start and end events.
func NewToolCallChunk(toolCallID, name, parentMessageID, delta string) Event {
	return Event{Type: TypeToolCallChunk, ToolCallID: toolCallID, ToolCallName: name, ParentMessageID: parentMessageID, Delta: delta, TimestampMs: now()}
}

// NewStateSnapshot replaces the whole agent state.
func NewStateSnapshot(snapshot map[string]any) Event {
	return Event{Type: TypeStateSnapshot, Snapshot: snapshot, TimestampMs: now()}
}

// NewStateDelta applies an ordered patch batch to the agent state.
func NewStateDelta(ops ...patch.Op) Event {
	return Event{Type: TypeStateDelta, Ops: ops, TimestampMs: now()}
}

// NewMessagesSnapshot replaces the whole transcript.
func NewMessagesSnapshot(messages []Message) Event {
	return Event{Type: TypeMessagesSnapshot, Messages: messages, TimestampMs: now()}
}

// NewStepStarted marks the start of a named step.
func NewStepStarted(name string) Event {
	return Event{Type: TypeStepStarted, StepName: name, TimestampMs: now()}
}

// NewStepFinished marks the end of a named step.
func NewStepFinished(name string) Event {
	return Event{Type: TypeStepFinished, StepName: name, TimestampMs: now()}
}

// NewCustom carries an application-defined payload on the named channel.
func NewCustom(name string, value any) Event {
	return Event{Type: TypeCustom, Name: name, Value: value, TimestampMs: now()}
}

// NewRaw passes an opaque payload through the sequence.
func NewRaw(raw json.RawMessage) Event {
	return Event{Type: TypeRaw, Raw: raw, TimestampMs: now()}
}

// ToJSON serializes the event to its wire form.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes a wire-form event.
func FromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}
