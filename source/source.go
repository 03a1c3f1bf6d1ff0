// Package source defines the contract for backends that produce a run's
// event sequence, plus a scripted in-process source that needs no API key.
package source

import (
	"context"

	"github.com/agentloom/loom/event"
)

// Source produces the ordered event sequence for one run. The returned
// channel is closed when the run's sequence is complete; implementations
// stop emitting when ctx is cancelled. A well-behaved source brackets its
// output with RUN_STARTED and a terminal RUN_FINISHED or RUN_ERROR.
type Source interface {
	Run(ctx context.Context, input *event.PreparedInput) <-chan event.Event
}

// emit sends ev unless ctx is cancelled first. It reports whether the send
// happened.
func emit(ctx context.Context, ch chan<- event.Event, ev event.Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
