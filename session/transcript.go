package session

import (
	"github.com/agentloom/loom"
	"github.com/agentloom/loom/event"
)

// transcript assembles messages from start, content-delta, and end events
// (or standalone chunks) and owns the run's completed-message collection.
// Insertion order is preserved for replay.
type transcript struct {
	order []string
	byID  map[string]*loom.Message
}

func newTranscript() *transcript {
	return &transcript{byID: make(map[string]*loom.Message)}
}

// start creates an open message. A start for an id that already exists is
// a protocol violation, whether the existing message is open (duplicate
// start) or sealed (sealed entities accept no mutation).
func (t *transcript) start(id string, role loom.Role) error {
	if existing, ok := t.byID[id]; ok {
		reason := "duplicate start for open message"
		if existing.Sealed {
			reason = "start for sealed message"
		}
		return &loom.ViolationError{EventType: string(event.TypeTextMessageStart), EntityID: id, Reason: reason}
	}
	t.insert(&loom.Message{ID: id, Role: role})
	return nil
}

// appendDelta appends a content fragment to an open message.
func (t *transcript) appendDelta(id, delta string) error {
	msg, ok := t.byID[id]
	if !ok {
		return &loom.UnknownEntityError{EventType: string(event.TypeTextMessageContent), EntityID: id}
	}
	if msg.Sealed {
		return &loom.ViolationError{EventType: string(event.TypeTextMessageContent), EntityID: id, Reason: "delta after seal"}
	}
	msg.Content += delta
	return nil
}

// end seals a message. No further mutation is permitted afterwards.
func (t *transcript) end(id string) error {
	msg, ok := t.byID[id]
	if !ok {
		return &loom.UnknownEntityError{EventType: string(event.TypeTextMessageEnd), EntityID: id}
	}
	if msg.Sealed {
		return &loom.ViolationError{EventType: string(event.TypeTextMessageEnd), EntityID: id, Reason: "duplicate end"}
	}
	msg.Sealed = true
	return nil
}

// chunk is the start-if-absent-then-append path for backends without
// discrete start and end events. It never seals; chunked messages are
// sealed by the terminal run event.
func (t *transcript) chunk(id string, role loom.Role, delta string) error {
	msg, ok := t.byID[id]
	if !ok {
		msg = &loom.Message{ID: id, Role: role}
		t.insert(msg)
	}
	if msg.Sealed {
		return &loom.ViolationError{EventType: string(event.TypeTextMessageChunk), EntityID: id, Reason: "chunk after seal"}
	}
	msg.Content += delta
	return nil
}

// attachToolCall appends a completed tool call to its parent message.
// Returns false if the parent is unknown.
func (t *transcript) attachToolCall(parentID string, call loom.ToolCall) bool {
	msg, ok := t.byID[parentID]
	if !ok {
		return false
	}
	msg.ToolCalls = append(msg.ToolCalls, call)
	return true
}

// sealOpen seals every open message and returns the newly sealed records.
// Called on the terminal run event, since chunked messages have no
// explicit end.
func (t *transcript) sealOpen() []loom.Message {
	var sealed []loom.Message
	for _, id := range t.order {
		msg := t.byID[id]
		if !msg.Sealed {
			msg.Sealed = true
			sealed = append(sealed, *msg)
		}
	}
	return sealed
}

// replaceAll swaps in a full transcript snapshot, superseding all
// incrementally assembled state.
func (t *transcript) replaceAll(msgs []loom.Message) {
	t.order = t.order[:0]
	t.byID = make(map[string]*loom.Message, len(msgs))
	for i := range msgs {
		msg := msgs[i]
		t.insert(&msg)
	}
}

// messages returns the transcript, sealed and in-progress entries alike,
// in insertion order. The result is a copy.
func (t *transcript) messages() []loom.Message {
	result := make([]loom.Message, 0, len(t.order))
	for _, id := range t.order {
		msg := *t.byID[id]
		if len(msg.ToolCalls) > 0 {
			calls := make([]loom.ToolCall, len(msg.ToolCalls))
			copy(calls, msg.ToolCalls)
			msg.ToolCalls = calls
		}
		result = append(result, msg)
	}
	return result
}

func (t *transcript) insert(msg *loom.Message) {
	t.order = append(t.order, msg.ID)
	t.byID[msg.ID] = msg
}
