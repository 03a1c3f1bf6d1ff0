package loom

import (
	"errors"
	"fmt"
)

// ViolationError reports an event that arrived out of the required
// start, delta, end order: a duplicate start, a delta after seal, or a
// duplicate end. The offending event is rejected; processing of subsequent
// events continues.
type ViolationError struct {
	// EventType is the wire type of the offending event.
	EventType string

	// EntityID is the message or tool-call id the event referenced.
	EntityID string

	// Reason describes the ordering rule that was broken.
	Reason string
}

// Error returns the violation message.
func (e *ViolationError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("protocol violation: %s for %q: %s", e.EventType, e.EntityID, e.Reason)
	}
	return fmt.Sprintf("protocol violation: %s: %s", e.EventType, e.Reason)
}

// UnknownEntityError reports a delta or end event referencing an id with no
// prior start. It must never be absorbed into a placeholder entity.
type UnknownEntityError struct {
	// EventType is the wire type of the offending event.
	EventType string

	// EntityID is the unknown message or tool-call id.
	EntityID string
}

// Error returns the unknown-entity message.
func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("unknown entity: %s references %q with no prior start", e.EventType, e.EntityID)
}

// RunClosedError reports an event received after the run reached a terminal
// state. The event is logged and dropped, never reprocessed.
type RunClosedError struct {
	ThreadID  string
	RunID     string
	EventType string
}

// Error returns the late-event message.
func (e *RunClosedError) Error() string {
	return fmt.Sprintf("run %s/%s is closed: dropped late %s event", e.ThreadID, e.RunID, e.EventType)
}

// RunError is the terminal error a remote run reports. It is not an
// internal fault: the code and message are surfaced verbatim to consumers.
type RunError struct {
	Code    string
	Message string
}

// Error returns the remote error message.
func (e *RunError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("run error [%s]: %s", e.Code, e.Message)
	}
	return "run error: " + e.Message
}

// IsViolation returns true if the error is a protocol ordering violation.
// It checks the error and any wrapped error.
func IsViolation(err error) bool {
	var ve *ViolationError
	return errors.As(err, &ve)
}

// IsUnknownEntity returns true if the error references an entity that was
// never started. It checks the error and any wrapped error.
func IsUnknownEntity(err error) bool {
	var ue *UnknownEntityError
	return errors.As(err, &ue)
}

// IsRunClosed returns true if the error reports a late event for a closed
// run. It checks the error and any wrapped error.
func IsRunClosed(err error) bool {
	var re *RunClosedError
	return errors.As(err, &re)
}
