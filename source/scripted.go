package source

import (
	"context"
	"strings"

	"github.com/agentloom/loom/event"
)

// Scripted replies to every run with a fixed template, streamed as content
// deltas. It exists for demos and tests where no model backend is
// configured. The placeholder {input} in the template is replaced with the
// run's last user message.
type Scripted struct {
	// Template is the reply text. Defaults to echoing the user message.
	Template string

	// ChunkSize is the delta size in bytes. Defaults to 8.
	ChunkSize int
}

// Run implements Source.
func (s *Scripted) Run(ctx context.Context, input *event.PreparedInput) <-chan event.Event {
	ch := make(chan event.Event)

	go func() {
		defer close(ch)

		template := s.Template
		if template == "" {
			template = "You said: {input}"
		}
		reply := strings.ReplaceAll(template, "{input}", input.LastUserMessage())

		chunkSize := s.ChunkSize
		if chunkSize <= 0 {
			chunkSize = 8
		}

		if !emit(ctx, ch, event.NewRunStarted(input.ThreadID, input.RunID)) {
			return
		}

		messageID := event.GenerateMessageID()
		if !emit(ctx, ch, event.NewTextMessageStart(messageID, "assistant")) {
			return
		}
		for len(reply) > 0 {
			n := chunkSize
			if n > len(reply) {
				n = len(reply)
			}
			if !emit(ctx, ch, event.NewTextMessageContent(messageID, reply[:n])) {
				return
			}
			reply = reply[n:]
		}
		if !emit(ctx, ch, event.NewTextMessageEnd(messageID)) {
			return
		}

		emit(ctx, ch, event.NewRunFinished(input.ThreadID, input.RunID))
	}()

	return ch
}
