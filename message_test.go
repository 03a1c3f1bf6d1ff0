package loom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleValid(t *testing.T) {
	for _, role := range []Role{RoleUser, RoleAssistant, RoleTool, RoleDeveloper, RoleSystem} {
		assert.True(t, role.Valid(), string(role))
	}
	assert.False(t, Role("robot").Valid())
	assert.False(t, Role("").Valid())
}

func TestToolCallParseArguments(t *testing.T) {
	t.Run("valid JSON arguments", func(t *testing.T) {
		tc := ToolCall{ID: "t1", Name: "lookup", Arguments: `{"q": "weather", "limit": 3}`}
		args, err := tc.ParseArguments()
		require.NoError(t, err)
		assert.Equal(t, "weather", args["q"])
		assert.Equal(t, float64(3), args["limit"])
	})

	t.Run("empty arguments parse as an empty map", func(t *testing.T) {
		tc := ToolCall{ID: "t1", Name: "lookup"}
		args, err := tc.ParseArguments()
		require.NoError(t, err)
		assert.Empty(t, args)
	})

	t.Run("malformed arguments are an error", func(t *testing.T) {
		tc := ToolCall{ID: "t1", Name: "lookup", Arguments: `{"q":`}
		_, err := tc.ParseArguments()
		assert.Error(t, err)
	})
}

func TestErrorPredicates(t *testing.T) {
	violation := &ViolationError{EventType: "TEXT_MESSAGE_START", EntityID: "m1", Reason: "duplicate start"}
	unknown := &UnknownEntityError{EventType: "TEXT_MESSAGE_CONTENT", EntityID: "ghost"}
	closed := &RunClosedError{ThreadID: "t", RunID: "r", EventType: "TEXT_MESSAGE_CONTENT"}

	assert.True(t, IsViolation(violation))
	assert.False(t, IsViolation(unknown))
	assert.True(t, IsUnknownEntity(unknown))
	assert.False(t, IsUnknownEntity(closed))
	assert.True(t, IsRunClosed(closed))
	assert.False(t, IsRunClosed(violation))

	assert.False(t, IsViolation(nil))
	assert.False(t, IsUnknownEntity(nil))
	assert.False(t, IsRunClosed(nil))
}

func TestRunErrorMessage(t *testing.T) {
	withCode := &RunError{Code: "rate_limited", Message: "too many requests"}
	assert.Contains(t, withCode.Error(), "rate_limited")
	assert.Contains(t, withCode.Error(), "too many requests")

	noCode := &RunError{Message: "boom"}
	assert.Equal(t, "run error: boom", noCode.Error())
}
