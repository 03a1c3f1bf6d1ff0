package event

import (
	"errors"

	"github.com/agentloom/loom"
)

// RunAgentInput is the request payload that opens a remote agent run. The
// remote side answers with the ordered event sequence for (ThreadID, RunID).
type RunAgentInput struct {
	ThreadID       string        `json:"threadId"`
	RunID          string        `json:"runId"`
	State          any           `json:"state,omitempty"`
	Messages       []Message     `json:"messages,omitempty"`
	Tools          []loom.Tool   `json:"tools,omitempty"`
	Context        []ContextItem `json:"context,omitempty"`
	ForwardedProps any           `json:"forwardedProps,omitempty"`
}

// ContextItem is one piece of frontend-provided context.
type ContextItem struct {
	Description string `json:"description,omitempty"`
	Value       string `json:"value"`
}

// PreparedInput contains validated input ready for a run, with ids filled
// in and messages converted to domain form.
type PreparedInput struct {
	ThreadID string
	RunID    string
	Messages []loom.Message
	Tools    []loom.Tool
	State    any
}

// ErrNoMessages is returned when the input contains no messages.
var ErrNoMessages = errors.New("no messages provided")

// Prepare validates the input and converts it for execution. Missing
// thread and run ids are generated. Returns ErrNoMessages if Messages is
// empty.
func (r *RunAgentInput) Prepare() (*PreparedInput, error) {
	messages := ToTranscript(r.Messages)
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	threadID := r.ThreadID
	if threadID == "" {
		threadID = GenerateThreadID()
	}
	runID := r.RunID
	if runID == "" {
		runID = GenerateRunID()
	}

	return &PreparedInput{
		ThreadID: threadID,
		RunID:    runID,
		Messages: messages,
		Tools:    r.Tools,
		State:    r.State,
	}, nil
}

// LastUserMessage returns the content of the most recent user message, or
// an empty string if there is none.
func (p *PreparedInput) LastUserMessage() string {
	for i := len(p.Messages) - 1; i >= 0; i-- {
		if p.Messages[i].Role == loom.RoleUser {
			return p.Messages[i].Content
		}
	}
	return ""
}
