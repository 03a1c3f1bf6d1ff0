package session

import (
	"github.com/agentloom/loom"
)

// Hooks is the convenience projection of raw events into named callbacks.
// Every field is optional; nil hooks are skipped. Hooks fire after the
// event has been applied to the session's derived state, so a hook that
// reads back through the session observes the post-event view.
type Hooks struct {
	// OnRunStarted fires when the run transitions to running.
	OnRunStarted func(threadID, runID string)

	// OnRunFinished fires when the run finishes successfully.
	OnRunFinished func(threadID, runID string)

	// OnRunError fires with the remote (or locally synthesized) terminal
	// error code and message.
	OnRunError func(code, message string)

	// OnMessageDelta fires for each content fragment appended to a message.
	OnMessageDelta func(messageID, delta string)

	// OnMessageComplete fires when a message is sealed.
	OnMessageComplete func(msg loom.Message)

	// OnToolCall fires when a tool call is sealed, with its resolved name
	// and accumulated arguments.
	OnToolCall func(call loom.ToolCall)

	// OnStateChanged fires after every snapshot or delta event. When a
	// delta batch is rejected, err carries the patch failure and state is
	// the retained prior state.
	OnStateChanged func(state map[string]any, err error)

	// OnStepStarted and OnStepFinished fire on step lifecycle events.
	OnStepStarted  func(name string)
	OnStepFinished func(name string)

	// OnCustom fires for application-defined events, keyed by name.
	OnCustom func(name string, value any)
}

func (h Hooks) runStarted(threadID, runID string) {
	if h.OnRunStarted != nil {
		h.OnRunStarted(threadID, runID)
	}
}

func (h Hooks) runFinished(threadID, runID string) {
	if h.OnRunFinished != nil {
		h.OnRunFinished(threadID, runID)
	}
}

func (h Hooks) runError(code, message string) {
	if h.OnRunError != nil {
		h.OnRunError(code, message)
	}
}

func (h Hooks) messageDelta(messageID, delta string) {
	if h.OnMessageDelta != nil {
		h.OnMessageDelta(messageID, delta)
	}
}

func (h Hooks) messageComplete(msg loom.Message) {
	if h.OnMessageComplete != nil {
		h.OnMessageComplete(msg)
	}
}

func (h Hooks) toolCall(call loom.ToolCall) {
	if h.OnToolCall != nil {
		h.OnToolCall(call)
	}
}

func (h Hooks) stateChanged(state map[string]any, err error) {
	if h.OnStateChanged != nil {
		h.OnStateChanged(state, err)
	}
}

func (h Hooks) stepStarted(name string) {
	if h.OnStepStarted != nil {
		h.OnStepStarted(name)
	}
}

func (h Hooks) stepFinished(name string) {
	if h.OnStepFinished != nil {
		h.OnStepFinished(name)
	}
}

func (h Hooks) custom(name string, value any) {
	if h.OnCustom != nil {
		h.OnCustom(name, value)
	}
}
