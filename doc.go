// Package loom implements the Agent-UI streaming event protocol runtime:
// it consumes the ordered event sequence emitted by a remote agent run and
// incrementally reconstructs the state a UI needs (the message transcript,
// in-flight tool calls, and the agent's key/value state) while fanning out
// lifecycle signals to any number of observers.
//
// The root package holds the shared domain vocabulary: [Message],
// [ToolCall], [Role], [RunStatus], [Tool] and the protocol error taxonomy.
// Behavior lives in the subpackages:
//
//   - [github.com/agentloom/loom/event]: the closed set of protocol events
//     and their wire form
//   - [github.com/agentloom/loom/session]: the per-run runtime, covering
//     event dispatch, message/tool-call assembly, state synchronization,
//     and the run lifecycle
//   - [github.com/agentloom/loom/patch]: the state-delta patch operations
//   - [github.com/agentloom/loom/agentdef]: agent definition resolution and
//     caching
//   - [github.com/agentloom/loom/client]: the SSE consumer that opens a
//     remote run and feeds a session
//   - [github.com/agentloom/loom/source]: event sources that produce the
//     protocol sequence (scripted, Anthropic, OpenAI)
//
// # Basic Usage
//
// Feed a session from an event sequence and read the derived state:
//
//	sess := session.New(threadID, runID)
//	sub := sess.Attach(func(ev event.Event) {
//	    log.Printf("event: %s", ev.Type)
//	})
//	defer sess.Detach(sub)
//
//	for ev := range stream {
//	    if err := sess.Feed(ev); err != nil {
//	        log.Printf("rejected: %v", err) // run keeps processing
//	    }
//	}
//
//	for _, msg := range sess.Messages() {
//	    fmt.Println(msg.Role, msg.Content)
//	}
package loom
