package session

import (
	"github.com/agentloom/loom/patch"
)

// stateStore is the exclusive owner of the run's agent state: a single
// JSON-like mapping mutated only by snapshot and delta events, in arrival
// order.
type stateStore struct {
	doc map[string]any
}

func newStateStore() *stateStore {
	return &stateStore{doc: make(map[string]any)}
}

// applySnapshot replaces the state wholesale. The snapshot is cloned on
// the way in so later mutation of the caller's map cannot leak through.
func (s *stateStore) applySnapshot(snapshot map[string]any) {
	next := patch.Clone(snapshot)
	if next == nil {
		next = make(map[string]any)
	}
	s.doc = next
}

// applyDelta applies an ordered patch batch atomically. On failure the
// prior state is retained and the patch error is returned.
func (s *stateStore) applyDelta(ops []patch.Op) error {
	next, err := patch.Apply(s.doc, ops)
	if err != nil {
		return err
	}
	s.doc = next
	return nil
}

// read returns a copy of the current state. Callers get copy-on-read
// semantics: mutating the result never touches the owned document.
func (s *stateStore) read() map[string]any {
	out := patch.Clone(s.doc)
	if out == nil {
		out = make(map[string]any)
	}
	return out
}
