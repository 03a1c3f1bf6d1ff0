package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	t.Run("add sets a new key", func(t *testing.T) {
		doc := map[string]any{"a": 1}
		out, err := Apply(doc, []Op{Add("/b", "hello")})
		require.NoError(t, err)
		assert.Equal(t, "hello", out["b"])
		assert.Equal(t, 1, doc["a"], "input document is untouched")
		_, ok := doc["b"]
		assert.False(t, ok, "input document is untouched")
	})

	t.Run("add overwrites an existing key", func(t *testing.T) {
		out, err := Apply(map[string]any{"a": 1}, []Op{Add("/a", 2)})
		require.NoError(t, err)
		assert.Equal(t, 2, out["a"])
	})

	t.Run("replace requires the key to exist", func(t *testing.T) {
		out, err := Apply(map[string]any{"a": 1}, []Op{Replace("/missing", 2)})
		assert.Nil(t, out)
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, 0, perr.Index)
	})

	t.Run("remove deletes the key", func(t *testing.T) {
		out, err := Apply(map[string]any{"a": 1, "b": 2}, []Op{Remove("/b")})
		require.NoError(t, err)
		_, ok := out["b"]
		assert.False(t, ok)
	})

	t.Run("nested paths traverse maps", func(t *testing.T) {
		doc := map[string]any{"outer": map[string]any{"inner": 1}}
		out, err := Apply(doc, []Op{Replace("/outer/inner", 2)})
		require.NoError(t, err)
		assert.Equal(t, 2, out["outer"].(map[string]any)["inner"])
	})

	t.Run("add fails when parent container is missing", func(t *testing.T) {
		_, err := Apply(map[string]any{}, []Op{Add("/missing/key", 1)})
		require.Error(t, err)
	})

	t.Run("ops apply in order within a batch", func(t *testing.T) {
		out, err := Apply(map[string]any{}, []Op{
			Add("/a", map[string]any{}),
			Add("/a/b", 1),
			Replace("/a/b", 2),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, out["a"].(map[string]any)["b"])
	})
}

func TestApplyAtomicity(t *testing.T) {
	t.Run("failed batch leaves the document unchanged", func(t *testing.T) {
		doc := map[string]any{"a": 1}
		out, err := Apply(doc, []Op{
			Replace("/a", 2),
			Remove("/b"), // does not exist: whole batch rejected
		})
		assert.Nil(t, out)
		var perr *Error
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, 1, perr.Index)
		assert.Equal(t, OpRemove, perr.Failed.Op)
		assert.Equal(t, map[string]any{"a": 1}, doc)
	})
}

func TestApplyPathSyntax(t *testing.T) {
	for _, bad := range []string{"", "/", "a/b", "/a//b"} {
		_, err := Apply(map[string]any{"a": 1}, []Op{Add(bad, 1)})
		assert.Error(t, err, "path %q", bad)
	}
}

func TestClone(t *testing.T) {
	t.Run("mutating the clone does not touch the original", func(t *testing.T) {
		doc := map[string]any{"nested": map[string]any{"v": 1}}
		copied := Clone(doc)
		copied["nested"].(map[string]any)["v"] = 2
		assert.Equal(t, 1, doc["nested"].(map[string]any)["v"])
	})

	t.Run("nil clones to nil", func(t *testing.T) {
		assert.Nil(t, Clone(nil))
	})
}
