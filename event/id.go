package event

import "github.com/google/uuid"

// GenerateThreadID returns a new thread id.
func GenerateThreadID() string {
	return "thread_" + uuid.NewString()
}

// GenerateRunID returns a new run id.
func GenerateRunID() string {
	return "run_" + uuid.NewString()
}

// GenerateMessageID returns a new message id.
func GenerateMessageID() string {
	return "msg_" + uuid.NewString()
}

// GenerateToolCallID returns a new tool call id.
func GenerateToolCallID() string {
	return "call_" + uuid.NewString()
}
