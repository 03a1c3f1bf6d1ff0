// Package session implements the per-run protocol runtime: it consumes the
// ordered event sequence for one (thread, run) pair and maintains the
// derived projections a UI reads, namely the message transcript, the
// in-flight tool calls, and the agent state, while fanning raw events and
// named callbacks out to any number of observers.
//
// A Session processes one event at a time to completion before the next,
// matching the protocol's single-threaded delivery model. Assembler errors
// are non-fatal: the offending event is rejected, logged, and returned to
// the caller, and processing of subsequent events continues. Terminal run
// states are absorbing; late events are logged and dropped.
package session

import (
	"log/slog"

	"github.com/agentloom/loom"
	"github.com/agentloom/loom/event"
)

// CancelledCode is the error code of the RUN_ERROR synthesized by Cancel.
const CancelledCode = "cancelled"

// Session owns the derived state of a single run.
type Session struct {
	threadID string
	runID    string

	status  loom.RunStatus
	runErr  *loom.RunError
	disp    *dispatcher
	msgs    *transcript
	calls   *toolCalls
	state   *stateStore
	hooks   Hooks
	logger  *slog.Logger
	dropped int
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithHooks sets the named callbacks fired as a projection of raw events.
func WithHooks(hooks Hooks) Option {
	return func(s *Session) {
		s.hooks = hooks
	}
}

// New creates a session for one run. Empty ids are generated.
func New(threadID, runID string, opts ...Option) *Session {
	if threadID == "" {
		threadID = event.GenerateThreadID()
	}
	if runID == "" {
		runID = event.GenerateRunID()
	}
	s := &Session{
		threadID: threadID,
		runID:    runID,
		status:   loom.RunPending,
		msgs:     newTranscript(),
		calls:    newToolCalls(),
		state:    newStateStore(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("thread_id", threadID, "run_id", runID)
	s.disp = newDispatcher(s.logger)
	return s
}

// ThreadID returns the thread identity of the run.
func (s *Session) ThreadID() string { return s.threadID }

// RunID returns the run identity.
func (s *Session) RunID() string { return s.runID }

// Status returns the current run status.
func (s *Session) Status() loom.RunStatus { return s.status }

// Err returns the terminal run error, or nil if the run has not errored.
func (s *Session) Err() *loom.RunError {
	if s.runErr == nil {
		return nil
	}
	e := *s.runErr
	return &e
}

// Messages returns the transcript, sealed and in-progress messages alike,
// in insertion order.
func (s *Session) Messages() []loom.Message { return s.msgs.messages() }

// ToolCalls returns every tool call observed so far, in insertion order.
func (s *Session) ToolCalls() []loom.ToolCall { return s.calls.calls() }

// State returns a copy of the current agent state. The result is a
// read-only view: mutating it never affects the session.
func (s *Session) State() map[string]any { return s.state.read() }

// Attach registers a push consumer for raw events published after this
// call. Detach with the returned handle.
func (s *Session) Attach(h Handler) *Subscription { return s.disp.attach(h) }

// Detach removes a previously attached consumer.
func (s *Session) Detach(sub *Subscription) { s.disp.detach(sub) }

// NewReader returns a cursor over the buffered event log for consumers
// that poll instead of receiving push callbacks.
func (s *Session) NewReader() *Reader { return s.disp.newReader() }

// Feed processes one event to completion. Accepted events mutate the
// session's projections, are appended to the event log, and fan out to
// consumers. Rejected events are logged and returned as typed errors
// (ViolationError, UnknownEntityError, patch.Error, RunClosedError);
// rejection never stops the run.
func (s *Session) Feed(ev event.Event) error {
	if s.status.Terminal() {
		err := &loom.RunClosedError{ThreadID: s.threadID, RunID: s.runID, EventType: string(ev.Type)}
		s.dropped++
		s.logger.Warn("dropped late event", "event_type", ev.Type, "dropped_total", s.dropped)
		return err
	}

	switch ev.Type {
	case event.TypeRunStarted:
		return s.onRunStarted(ev)
	case event.TypeRunFinished:
		return s.onRunFinished(ev)
	case event.TypeRunError:
		return s.onRunError(ev)

	case event.TypeTextMessageStart:
		role, err := s.messageRole(ev)
		if err != nil {
			return s.reject(err)
		}
		if err := s.msgs.start(ev.MessageID, role); err != nil {
			return s.reject(err)
		}
		s.publish(ev)
		return nil
	case event.TypeTextMessageContent:
		if err := s.msgs.appendDelta(ev.MessageID, ev.Delta); err != nil {
			return s.reject(err)
		}
		s.publish(ev)
		s.hooks.messageDelta(ev.MessageID, ev.Delta)
		return nil
	case event.TypeTextMessageEnd:
		if err := s.msgs.end(ev.MessageID); err != nil {
			return s.reject(err)
		}
		s.publish(ev)
		s.completeMessage(ev.MessageID)
		return nil
	case event.TypeTextMessageChunk:
		role, err := s.messageRole(ev)
		if err != nil {
			return s.reject(err)
		}
		if err := s.msgs.chunk(ev.MessageID, role, ev.Delta); err != nil {
			return s.reject(err)
		}
		s.publish(ev)
		s.hooks.messageDelta(ev.MessageID, ev.Delta)
		return nil

	case event.TypeToolCallStart:
		if err := s.calls.start(ev.ToolCallID, ev.ToolCallName, ev.ParentMessageID); err != nil {
			return s.reject(err)
		}
		s.publish(ev)
		return nil
	case event.TypeToolCallArgs:
		if err := s.calls.appendArgs(ev.ToolCallID, ev.Delta); err != nil {
			return s.reject(err)
		}
		s.publish(ev)
		return nil
	case event.TypeToolCallEnd:
		call, err := s.calls.end(ev.ToolCallID)
		if err != nil {
			return s.reject(err)
		}
		s.attachCall(call)
		s.publish(ev)
		s.hooks.toolCall(call)
		return nil
	case event.TypeToolCallChunk:
		if err := s.calls.chunk(ev.ToolCallID, ev.ToolCallName, ev.ParentMessageID, ev.Delta); err != nil {
			return s.reject(err)
		}
		s.publish(ev)
		return nil

	case event.TypeStateSnapshot:
		s.state.applySnapshot(ev.Snapshot)
		s.publish(ev)
		s.hooks.stateChanged(s.state.read(), nil)
		return nil
	case event.TypeStateDelta:
		if err := s.state.applyDelta(ev.Ops); err != nil {
			s.logger.Warn("rejected state delta", "error", err)
			s.hooks.stateChanged(s.state.read(), err)
			return err
		}
		s.publish(ev)
		s.hooks.stateChanged(s.state.read(), nil)
		return nil
	case event.TypeMessagesSnapshot:
		s.msgs.replaceAll(event.ToTranscript(ev.Messages))
		s.publish(ev)
		return nil

	case event.TypeStepStarted:
		s.publish(ev)
		s.hooks.stepStarted(ev.StepName)
		return nil
	case event.TypeStepFinished:
		s.publish(ev)
		s.hooks.stepFinished(ev.StepName)
		return nil

	case event.TypeCustom:
		s.publish(ev)
		s.hooks.custom(ev.Name, ev.Value)
		return nil
	case event.TypeRaw:
		s.publish(ev)
		return nil

	default:
		return s.reject(&loom.ViolationError{EventType: string(ev.Type), Reason: "unknown event type"})
	}
}

// Cancel synthesizes a local terminal error for the run, even if the
// remote side has not signaled termination. Further events are dropped;
// aborting the transport's in-flight I/O is the caller's responsibility.
// Cancelling an already-terminal run is a no-op.
func (s *Session) Cancel(reason string) {
	if s.status.Terminal() {
		return
	}
	if reason == "" {
		reason = "run cancelled"
	}
	ev := event.NewRunError(CancelledCode, reason)
	ev.ThreadID = s.threadID
	ev.RunID = s.runID
	s.terminate(loom.RunErrored, &loom.RunError{Code: CancelledCode, Message: reason})
	s.publish(ev)
	s.hooks.runError(CancelledCode, reason)
	s.logger.Info("run cancelled", "reason", reason)
}

func (s *Session) onRunStarted(ev event.Event) error {
	if s.status != loom.RunPending {
		return s.reject(&loom.ViolationError{EventType: string(ev.Type), Reason: "duplicate run start"})
	}
	s.status = loom.RunRunning
	s.publish(ev)
	s.hooks.runStarted(s.threadID, s.runID)
	return nil
}

func (s *Session) onRunFinished(ev event.Event) error {
	if s.status != loom.RunRunning {
		return s.reject(&loom.ViolationError{EventType: string(ev.Type), Reason: "finish before start"})
	}
	s.terminate(loom.RunFinished, nil)
	s.publish(ev)
	s.hooks.runFinished(s.threadID, s.runID)
	return nil
}

func (s *Session) onRunError(ev event.Event) error {
	s.terminate(loom.RunErrored, &loom.RunError{Code: ev.Code, Message: ev.Message})
	s.publish(ev)
	s.hooks.runError(ev.Code, ev.Message)
	return nil
}

// terminate moves the run to a terminal status and seals every open
// entity, since chunked messages and tool calls have no explicit end.
func (s *Session) terminate(status loom.RunStatus, runErr *loom.RunError) {
	for _, call := range s.calls.sealOpen() {
		s.attachCall(call)
		s.hooks.toolCall(call)
	}
	for _, msg := range s.msgs.sealOpen() {
		s.hooks.messageComplete(msg)
	}
	s.status = status
	s.runErr = runErr
}

func (s *Session) attachCall(call loom.ToolCall) {
	if call.ParentMessageID == "" {
		return
	}
	if !s.msgs.attachToolCall(call.ParentMessageID, call) {
		s.logger.Warn("tool call parent not in transcript", "tool_call_id", call.ID, "parent_message_id", call.ParentMessageID)
	}
}

func (s *Session) completeMessage(id string) {
	for _, msg := range s.msgs.messages() {
		if msg.ID == id {
			s.hooks.messageComplete(msg)
			return
		}
	}
}

func (s *Session) messageRole(ev event.Event) (loom.Role, error) {
	if ev.Role == "" {
		return loom.RoleAssistant, nil
	}
	role := loom.Role(ev.Role)
	if !role.Valid() {
		return "", &loom.ViolationError{EventType: string(ev.Type), EntityID: ev.MessageID, Reason: "invalid role " + ev.Role}
	}
	return role, nil
}

func (s *Session) publish(ev event.Event) {
	s.disp.publish(ev)
}

func (s *Session) reject(err error) error {
	s.logger.Warn("rejected event", "error", err)
	return err
}
