package session

import (
	"github.com/agentloom/loom"
	"github.com/agentloom/loom/event"
)

// toolCalls assembles tool invocations from start, args-delta, and end
// events. The tool name is resolved from the start event and never
// renamed; an args-delta for an id that was never started is an
// unknown-entity error, not an invitation to invent a placeholder.
type toolCalls struct {
	order []string
	byID  map[string]*loom.ToolCall
}

func newToolCalls() *toolCalls {
	return &toolCalls{byID: make(map[string]*loom.ToolCall)}
}

// start creates an open tool call with its declared name and parent.
func (c *toolCalls) start(id, name, parentMessageID string) error {
	if name == "" {
		return &loom.ViolationError{EventType: string(event.TypeToolCallStart), EntityID: id, Reason: "start without a tool name"}
	}
	if existing, ok := c.byID[id]; ok {
		reason := "duplicate start for open tool call"
		if existing.Sealed {
			reason = "start for sealed tool call"
		}
		return &loom.ViolationError{EventType: string(event.TypeToolCallStart), EntityID: id, Reason: reason}
	}
	c.insert(&loom.ToolCall{ID: id, Name: name, ParentMessageID: parentMessageID})
	return nil
}

// appendArgs appends an argument fragment to an open tool call.
func (c *toolCalls) appendArgs(id, delta string) error {
	call, ok := c.byID[id]
	if !ok {
		return &loom.UnknownEntityError{EventType: string(event.TypeToolCallArgs), EntityID: id}
	}
	if call.Sealed {
		return &loom.ViolationError{EventType: string(event.TypeToolCallArgs), EntityID: id, Reason: "delta after seal"}
	}
	call.Arguments += delta
	return nil
}

// end seals a tool call and returns the completed record.
func (c *toolCalls) end(id string) (loom.ToolCall, error) {
	call, ok := c.byID[id]
	if !ok {
		return loom.ToolCall{}, &loom.UnknownEntityError{EventType: string(event.TypeToolCallEnd), EntityID: id}
	}
	if call.Sealed {
		return loom.ToolCall{}, &loom.ViolationError{EventType: string(event.TypeToolCallEnd), EntityID: id, Reason: "duplicate end"}
	}
	call.Sealed = true
	return *call, nil
}

// chunk is the start-if-absent-then-append path. The first chunk must
// declare the tool name, since there is no separate start event to carry
// it.
func (c *toolCalls) chunk(id, name, parentMessageID, delta string) error {
	call, ok := c.byID[id]
	if !ok {
		if name == "" {
			return &loom.ViolationError{EventType: string(event.TypeToolCallChunk), EntityID: id, Reason: "first chunk without a tool name"}
		}
		call = &loom.ToolCall{ID: id, Name: name, ParentMessageID: parentMessageID}
		c.insert(call)
	}
	if call.Sealed {
		return &loom.ViolationError{EventType: string(event.TypeToolCallChunk), EntityID: id, Reason: "chunk after seal"}
	}
	call.Arguments += delta
	return nil
}

// sealOpen seals every open tool call and returns the newly sealed
// records, for attachment to their parent messages on the terminal run
// event.
func (c *toolCalls) sealOpen() []loom.ToolCall {
	var sealed []loom.ToolCall
	for _, id := range c.order {
		call := c.byID[id]
		if !call.Sealed {
			call.Sealed = true
			sealed = append(sealed, *call)
		}
	}
	return sealed
}

// calls returns every tool call, sealed and in-progress, in insertion
// order. The result is a copy.
func (c *toolCalls) calls() []loom.ToolCall {
	result := make([]loom.ToolCall, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, *c.byID[id])
	}
	return result
}

func (c *toolCalls) insert(call *loom.ToolCall) {
	c.order = append(c.order, call.ID)
	c.byID[call.ID] = call
}
