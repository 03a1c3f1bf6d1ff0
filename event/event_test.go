package event

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentloom/loom"
	"github.com/agentloom/loom/patch"
)

func TestConstructors(t *testing.T) {
	restore := now
	now = func() int64 { return 42 }
	defer func() { now = restore }()

	t.Run("lifecycle events carry run identity", func(t *testing.T) {
		ev := NewRunStarted("thread-1", "run-1")
		assert.Equal(t, TypeRunStarted, ev.Type)
		assert.Equal(t, "thread-1", ev.ThreadID)
		assert.Equal(t, "run-1", ev.RunID)
		assert.Equal(t, int64(42), ev.TimestampMs)
	})

	t.Run("run error carries code and message", func(t *testing.T) {
		ev := NewRunError("rate_limited", "slow down")
		assert.Equal(t, TypeRunError, ev.Type)
		assert.Equal(t, "rate_limited", ev.Code)
		assert.Equal(t, "slow down", ev.Message)
	})

	t.Run("tool call start declares name and parent", func(t *testing.T) {
		ev := NewToolCallStart("call-1", "lookup", "msg-1")
		assert.Equal(t, "lookup", ev.ToolCallName)
		assert.Equal(t, "msg-1", ev.ParentMessageID)
	})
}

func TestTypeValid(t *testing.T) {
	assert.True(t, TypeStateDelta.Valid())
	assert.True(t, TypeRaw.Valid())
	assert.False(t, Type("BOGUS").Valid())
	assert.False(t, Type("").Valid())
}

func TestWireRoundTrip(t *testing.T) {
	ev := NewStateDelta(patch.Replace("/count", 2), patch.Remove("/stale"))
	data, err := ev.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"STATE_DELTA"`)

	decoded, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, TypeStateDelta, decoded.Type)
	require.Len(t, decoded.Ops, 2)
	assert.Equal(t, patch.OpReplace, decoded.Ops[0].Op)
	assert.Equal(t, "/count", decoded.Ops[0].Path)
}

func TestGenerateIDs(t *testing.T) {
	assert.True(t, strings.HasPrefix(GenerateThreadID(), "thread_"))
	assert.True(t, strings.HasPrefix(GenerateRunID(), "run_"))
	assert.True(t, strings.HasPrefix(GenerateMessageID(), "msg_"))
	assert.True(t, strings.HasPrefix(GenerateToolCallID(), "call_"))
	assert.NotEqual(t, GenerateRunID(), GenerateRunID())
}

func TestMessageConversion(t *testing.T) {
	content := "done"
	wire := Message{
		ID:      "m1",
		Role:    "assistant",
		Content: &content,
		ToolCalls: []ToolCall{{
			ID:       "t1",
			Type:     "function",
			Function: Function{Name: "lookup", Arguments: `{"q":1}`},
		}},
	}

	msg := ToTranscriptMessage(wire)
	assert.Equal(t, loom.RoleAssistant, msg.Role)
	assert.Equal(t, "done", msg.Content)
	assert.True(t, msg.Sealed)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "lookup", msg.ToolCalls[0].Name)
	assert.Equal(t, "m1", msg.ToolCalls[0].ParentMessageID)

	back := FromTranscriptMessage(msg)
	assert.Equal(t, wire.ID, back.ID)
	require.NotNil(t, back.Content)
	assert.Equal(t, content, *back.Content)
	require.Len(t, back.ToolCalls, 1)
	assert.Equal(t, "lookup", back.ToolCalls[0].Function.Name)
}
