// Package patch implements the state-delta operations of the protocol:
// an ordered list of add, replace, and remove operations at slash-style
// paths, applied atomically as a batch. A batch either applies in full or
// leaves the prior document untouched.
package patch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// OpKind is the kind of a single patch operation.
type OpKind string

const (
	OpAdd     OpKind = "add"
	OpReplace OpKind = "replace"
	OpRemove  OpKind = "remove"
)

// Op is one patch operation at a slash-style path, e.g. {replace, "/a/b", 2}.
type Op struct {
	Op    OpKind `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Add returns an add operation.
func Add(path string, value any) Op {
	return Op{Op: OpAdd, Path: path, Value: value}
}

// Replace returns a replace operation.
func Replace(path string, value any) Op {
	return Op{Op: OpReplace, Path: path, Value: value}
}

// Remove returns a remove operation.
func Remove(path string) Op {
	return Op{Op: OpRemove, Path: path}
}

// Error reports a batch that could not be applied. The whole batch is
// rejected and the prior document is retained.
type Error struct {
	// Index is the position of the failing operation within the batch.
	Index int

	// Failed is the operation that could not be applied.
	Failed Op

	// Reason describes why the target path was invalid for the operation.
	Reason string
}

// Error returns the patch failure message.
func (e *Error) Error() string {
	return fmt.Sprintf("patch op %d (%s %s) failed: %s", e.Index, e.Failed.Op, e.Failed.Path, e.Reason)
}

// Apply applies ops to doc in order and returns the resulting document.
// Application is all-or-nothing: on any failure doc is returned to the
// caller unchanged and the error identifies the failing operation.
func Apply(doc map[string]any, ops []Op) (map[string]any, error) {
	next := Clone(doc)
	if next == nil {
		next = make(map[string]any)
	}
	for i, op := range ops {
		if err := applyOne(next, op); err != nil {
			return nil, &Error{Index: i, Failed: op, Reason: err.Error()}
		}
	}
	return next, nil
}

// Clone deep-copies a JSON-like document via a JSON round trip.
// Clone(nil) returns nil.
func Clone(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		// Documents come from decoded JSON events, so this cannot happen
		// for well-formed state. Fall back to a shallow copy.
		out := make(map[string]any, len(doc))
		for k, v := range doc {
			out[k] = v
		}
		return out
	}
	out := make(map[string]any, len(doc))
	json.Unmarshal(data, &out)
	return out
}

func applyOne(doc map[string]any, op Op) error {
	keys, err := splitPath(op.Path)
	if err != nil {
		return err
	}

	parent, last, err := descend(doc, keys)
	if err != nil {
		return err
	}

	switch container := parent.(type) {
	case map[string]any:
		return applyToMap(container, last, op)
	case []any:
		return fmt.Errorf("cannot address element %q of an array parent for %s (arrays are replaced wholesale)", last, op.Op)
	default:
		return fmt.Errorf("parent of %q is not a container", last)
	}
}

// descend walks doc to the parent container of the final path element.
// Intermediate elements may traverse maps by key and arrays by index.
func descend(doc map[string]any, keys []string) (parent any, last string, err error) {
	var cur any = doc
	for i := 0; i < len(keys)-1; i++ {
		key := keys[i]
		switch container := cur.(type) {
		case map[string]any:
			next, ok := container[key]
			if !ok {
				return nil, "", fmt.Errorf("parent container %q does not exist", key)
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(container) {
				return nil, "", fmt.Errorf("invalid array index %q", key)
			}
			cur = container[idx]
		default:
			return nil, "", fmt.Errorf("segment %q is not a container", key)
		}
	}
	return cur, keys[len(keys)-1], nil
}

func applyToMap(m map[string]any, key string, op Op) error {
	switch op.Op {
	case OpAdd:
		m[key] = op.Value
		return nil
	case OpReplace:
		if _, ok := m[key]; !ok {
			return fmt.Errorf("path does not exist for replace")
		}
		m[key] = op.Value
		return nil
	case OpRemove:
		if _, ok := m[key]; !ok {
			return fmt.Errorf("path does not exist for remove")
		}
		delete(m, key)
		return nil
	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
}

func splitPath(path string) ([]string, error) {
	if path == "" || path == "/" {
		return nil, fmt.Errorf("empty path")
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("path must start with /")
	}
	keys := strings.Split(path[1:], "/")
	for _, k := range keys {
		if k == "" {
			return nil, fmt.Errorf("path %q has an empty segment", path)
		}
	}
	return keys, nil
}
